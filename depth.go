package metaport

import (
	"github.com/broady/metaport/host"
	"github.com/broady/metaport/metadata"
)

// heightWalker measures how deep a foreign descriptor graph nests before
// FullName or Module recurse over it. The walk stops at budget, so a cycle or
// an overly deep chain fails with ErrDepthExceeded instead of overflowing
// the stack.
type heightWalker struct {
	budget int
	// heights memoizes finished nodes; -1 marks a node still on the path.
	heights map[any]int
}

func newHeightWalker(budget int) *heightWalker {
	return &heightWalker{budget: budget, heights: make(map[any]int)}
}

func (w *heightWalker) exceeded(name string) error {
	return Errorf(CodeDepthExceeded, "descriptor %s nests deeper than %d", name, w.budget).
		WithDetail("descriptor", name)
}

// visit bounds the recursion on node at depth and memoizes its height.
func (w *heightWalker) visit(node any, name string, depth int, children func(depth int) (int, error)) (int, error) {
	if depth > w.budget {
		return 0, w.exceeded(name)
	}
	if h, ok := w.heights[node]; ok {
		if h < 0 || depth+h-1 > w.budget {
			return 0, w.exceeded(name)
		}
		return h, nil
	}
	w.heights[node] = -1
	h, err := children(depth + 1)
	if err != nil {
		return 0, err
	}
	w.heights[node] = h + 1
	return h + 1, nil
}

func (w *heightWalker) typeHeight(t metadata.TypeDescriptor, depth int) (int, error) {
	switch v := t.(type) {
	case nil:
		return 0, nil
	case *metadata.GenericParameter:
		if v == nil {
			return 0, nil
		}
		return w.visit(v, v.Name, depth, func(int) (int, error) { return 0, nil })
	case metadata.Nominal:
		ref := v.Reference()
		if ref == nil {
			return 0, nil
		}
		return w.visit(ref, ref.Name, depth, func(d int) (int, error) {
			if ref.DeclaringType == nil {
				return 0, nil
			}
			return w.typeHeight(ref.DeclaringType, d)
		})
	case *metadata.GenericInstanceType:
		if v == nil {
			return 0, nil
		}
		return w.visit(v, v.Kind().String(), depth, func(d int) (int, error) {
			return w.maxHeight(d, append([]metadata.TypeDescriptor{v.Element}, v.Arguments...)...)
		})
	case metadata.Specification:
		return w.visit(v, v.Kind().String(), depth, func(d int) (int, error) {
			return w.typeHeight(v.ElementType(), d)
		})
	default:
		return 0, nil
	}
}

func (w *heightWalker) maxHeight(depth int, ts ...metadata.TypeDescriptor) (int, error) {
	highest := 0
	for _, t := range ts {
		h, err := w.typeHeight(t, depth)
		if err != nil {
			return 0, err
		}
		highest = max(highest, h)
	}
	return highest, nil
}

func (w *heightWalker) methodHeight(m *metadata.MethodReference, depth int) (int, error) {
	if m == nil {
		return 0, nil
	}
	return w.visit(m, m.Name, depth, func(d int) (int, error) {
		ts := []metadata.TypeDescriptor{m.DeclaringType, m.ReturnType}
		for _, p := range m.Parameters {
			if p != nil {
				ts = append(ts, p.ParameterType)
			}
		}
		return w.maxHeight(d, ts...)
	})
}

func (w *heightWalker) methodDescriptorHeight(m metadata.MethodDescriptor, depth int) (int, error) {
	switch v := m.(type) {
	case *metadata.GenericInstanceMethod:
		if v == nil {
			return 0, nil
		}
		return w.visit(v, "generic instance method", depth, func(d int) (int, error) {
			h, err := w.methodHeight(v.ElementMethod, d)
			if err != nil {
				return 0, err
			}
			args, err := w.maxHeight(d, v.Arguments...)
			if err != nil {
				return 0, err
			}
			return max(h, args), nil
		})
	case *metadata.MethodDefinition:
		if v == nil {
			return 0, nil
		}
		return w.methodHeight(&v.MethodReference, depth)
	case *metadata.MethodReference:
		return w.methodHeight(v, depth)
	default:
		return 0, nil
	}
}

func (w *heightWalker) fieldHeight(f *metadata.FieldReference, depth int) (int, error) {
	if f == nil {
		return 0, nil
	}
	return w.visit(f, f.Name, depth, func(d int) (int, error) {
		return w.maxHeight(d, f.DeclaringType, f.FieldType)
	})
}

// budget is the nesting the engine can still afford at its current depth.
func (e *Engine) budget() int { return e.config.MaxDepth - e.depth }

// signType fingerprints a runtime type the caller has already entered.
func (e *Engine) signType(t host.Type) (string, error) { return typeSignature(t, e.budget()+1) }

// checkType fails with ErrDepthExceeded when t cannot be imported within the
// remaining depth, including when t is cyclic.
func (e *Engine) checkType(t metadata.TypeDescriptor) error {
	_, err := newHeightWalker(e.budget()).typeHeight(t, 1)
	return err
}

func (e *Engine) checkMethod(m metadata.MethodDescriptor) error {
	_, err := newHeightWalker(e.budget()).methodDescriptorHeight(m, 1)
	return err
}

func (e *Engine) checkField(f *metadata.FieldReference) error {
	_, err := newHeightWalker(e.budget()).fieldHeight(f, 1)
	return err
}
