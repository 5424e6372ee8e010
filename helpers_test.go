package metaport

import (
	"github.com/broady/metaport/host/memhost"
	"github.com/broady/metaport/metadata"
)

// corlib is a small runtime assembly shared by the engine tests.
type corlib struct {
	asm  *memhost.Assembly
	str  *memhost.Type
	i32  *memhost.Type
	list *memhost.Type
	dict *memhost.Type
}

func newCorlib() *corlib {
	asm := memhost.NewAssembly(metadata.AssemblyName{
		Name:           "mscorlib",
		Version:        metadata.Version{Major: 4},
		PublicKeyToken: []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89},
	})
	c := &corlib{
		asm:  asm,
		str:  asm.Class("System", "String"),
		i32:  asm.Struct("System", "Int32"),
		list: asm.Class("System.Collections.Generic", "List`1", "T"),
		dict: asm.Class("System.Collections.Generic", "Dictionary`2", "TKey", "TValue"),
	}
	c.list.AddMethod("Add", nil, c.list.Param(0))
	c.list.AddField("_items", c.list.Param(0).MakeArray())
	c.dict.AddMethod("get_Item", c.dict.Param(1), c.dict.Param(0))
	c.dict.AddConstructor()
	return c
}

func newDestination() *metadata.Container {
	return metadata.NewContainer("App.dll", metadata.AssemblyName{Name: "App", Version: metadata.Version{Major: 1}})
}

func typeRefNames(c *metadata.Container) []string {
	var names []string
	for _, t := range c.TypeReferences() {
		names = append(names, t.FullName())
	}
	return names
}

// library is a foreign container declaring Lib.Pair`2<K,V> against mscorlib.
type library struct {
	container *metadata.Container
	mscorlib  *metadata.AssemblyReference
	object    *metadata.TypeReference
	str       *metadata.TypeReference
	i32       *metadata.TypeReference
	pair      *metadata.TypeDefinition
	get       *metadata.MethodDefinition
	convert   *metadata.MethodDefinition
	value     *metadata.FieldDefinition
}

func newLibrary() *library {
	c := metadata.NewContainer("Lib.dll", metadata.AssemblyName{Name: "Lib", Version: metadata.Version{Major: 2}})
	mscorlib := metadata.NewAssemblyReference(newCorlib().asm.Name())
	if err := c.AddAssemblyReference(mscorlib); err != nil {
		panic(err)
	}
	object := metadata.NewTypeReference("Object", "System", mscorlib, false)
	str := metadata.NewTypeReference("String", "System", mscorlib, false)
	i32 := metadata.NewTypeReference("Int32", "System", mscorlib, true)
	for _, t := range []*metadata.TypeReference{object, str, i32} {
		c.AddTypeReference(t)
	}

	pair := metadata.NewTypeDefinition("Pair`2", "Lib", metadata.TypePublic, object)
	k := pair.AddGenericParameter("K")
	v := pair.AddGenericParameter("V")

	value := metadata.NewFieldDefinition("Value", metadata.FieldPublic, v)
	pair.AddField(value)

	get := metadata.NewMethodDefinition("Get", metadata.MethodPublic, v)
	get.AddParameter("key", k)
	pair.AddMethod(get)

	convert := metadata.NewMethodDefinition("Convert", metadata.MethodPublic, nil)
	u := convert.AddGenericParameter("U")
	convert.CallingConvention = metadata.CallingConventionGeneric
	convert.ReturnType = u
	convert.AddParameter("key", k)
	pair.AddMethod(convert)

	c.AddType(pair)
	return &library{
		container: c,
		mscorlib:  mscorlib,
		object:    object,
		str:       str,
		i32:       i32,
		pair:      pair,
		get:       get,
		convert:   convert,
		value:     value,
	}
}
