// Package metaport imports types, methods and fields into a destination
// metadata container, from a host runtime's live type system or from another
// container's descriptor graph, canonicalizing them so that each logical
// entity is represented once per destination.
package metaport

import (
	"fmt"
	"log/slog"

	"github.com/broady/metaport/internal/logging"
	"github.com/broady/metaport/metadata"
	"github.com/viant/gmetric"
)

// Engine imports references into one destination container.
//
// It owns two identity caches: assembly full name to AssemblyReference, and
// tagged fingerprint to imported descriptor. Both are populated from the
// container on first use. Cache hits never mutate the container; every miss
// publishes exactly one new reference, plus possibly one assembly reference.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	container *metadata.Container
	config    Config
	logger    *slog.Logger
	metrics   *gmetric.Service

	cacheLoaded bool
	assemblies  map[string]*metadata.AssemblyReference
	references  map[Fingerprint]any

	depth int
}

// NewEngine creates an engine importing into container, with DefaultConfig.
func NewEngine(container *metadata.Container) *Engine {
	return &Engine{
		container:  container,
		config:     DefaultConfig(),
		assemblies: make(map[string]*metadata.AssemblyReference),
		references: make(map[Fingerprint]any),
	}
}

// WithLogger sets a custom logger for the engine.
// If not set, slog.Default() will be used.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// WithConfig replaces the engine configuration. A zero MaxDepth selects
// DefaultMaxDepth. When cfg.LogLevel is set and no logger has been supplied,
// a text logger at that level is installed.
func (e *Engine) WithConfig(cfg Config) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	e.config = cfg
	if cfg.LogLevel != "" && e.logger == nil {
		e.logger = logging.New(cfg.LogLevel, nil)
	}
	return e
}

// WithMetrics records per-operation call counts and latencies in service.
func (e *Engine) WithMetrics(service *gmetric.Service) *Engine {
	e.metrics = service
	return e
}

// Container returns the destination container.
func (e *Engine) Container() *metadata.Container { return e.container }

// Config returns the active configuration.
func (e *Engine) Config() Config { return e.config }

// CacheLen returns the number of cached descriptors, excluding assemblies.
func (e *Engine) CacheLen() int { return len(e.references) }

func (e *Engine) getLogger() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// loadCache fully loads the container once and indexes its existing
// assembly, type and member references.
func (e *Engine) loadCache() error {
	if e.cacheLoaded {
		return nil
	}
	if err := e.container.FullLoad(); err != nil {
		return err
	}
	for _, r := range e.container.AssemblyReferences() {
		e.assemblies[r.FullName()] = r
	}
	for _, t := range e.container.TypeReferences() {
		e.references[typeKey(t.FullName())] = t
	}
	for _, m := range e.container.MemberReferences() {
		switch m.(type) {
		case metadata.FieldDescriptor:
			e.references[fieldKey(m.FullName())] = m
		default:
			e.references[methodKey(m.FullName())] = m
		}
	}
	e.cacheLoaded = true
	e.getLogger().Debug("import cache populated",
		slog.String("container", e.container.Name),
		slog.Int("assemblies", len(e.assemblies)),
		slog.Int("references", len(e.references)))
	return nil
}

func (e *Engine) lookupType(key Fingerprint) (metadata.TypeDescriptor, bool) {
	t, ok := e.references[key].(metadata.TypeDescriptor)
	return t, ok
}

func (e *Engine) lookupMethod(key Fingerprint) (*metadata.MethodReference, bool) {
	m, ok := e.references[key].(*metadata.MethodReference)
	return m, ok
}

func (e *Engine) lookupField(key Fingerprint) (*metadata.FieldReference, bool) {
	f, ok := e.references[key].(*metadata.FieldReference)
	return f, ok
}

// publish caches d under key and appends nominal and member references to the
// container. Composite types are cached only.
func (e *Engine) publish(key Fingerprint, d any) {
	e.references[key] = d
	switch v := d.(type) {
	case *metadata.TypeReference:
		e.container.AddTypeReference(v)
	case metadata.MemberReference:
		e.container.AddMemberReference(v)
	default:
		return
	}
	e.getLogger().Debug("reference published",
		slog.String("container", e.container.Name),
		slog.String("kind", key.Kind.String()),
		slog.String("signature", key.Signature))
}

// enter increments the recursion depth by n and fails when it exceeds the
// configured ceiling. Every successful enter is paired with leave(n).
func (e *Engine) enter(n int) error {
	if e.depth+n > e.config.MaxDepth {
		return Errorf(CodeDepthExceeded, "import depth exceeds %d", e.config.MaxDepth).
			WithDetail("depth", e.depth+n)
	}
	e.depth += n
	return nil
}

func (e *Engine) leave(n int) { e.depth -= n }

// ImportAssembly returns the destination's reference for name, creating it on
// first use. Names are validated before publication.
func (e *Engine) ImportAssembly(name metadata.AssemblyName) (ref *metadata.AssemblyReference, err error) {
	done := e.begin(MetricAssembly)
	defer func() { done(err) }()

	if err := e.loadCache(); err != nil {
		return nil, err
	}
	return e.importAssembly(name)
}

func (e *Engine) importAssembly(name metadata.AssemblyName) (*metadata.AssemblyReference, error) {
	key := name.FullName()
	if ref, ok := e.assemblies[key]; ok {
		return ref, nil
	}

	if err := validate.Struct(name); err != nil {
		if ie := AsError(err); ie != nil {
			return nil, ie.WithDetail("assembly", key)
		}
		return nil, err
	}

	ref := metadata.NewAssemblyReference(name)
	if err := e.container.AddAssemblyReference(ref); err != nil {
		return nil, fmt.Errorf("failed to import assembly: %w", err)
	}
	e.assemblies[key] = ref
	e.getLogger().Debug("assembly imported",
		slog.String("container", e.container.Name),
		slog.String("assembly", key))
	return ref, nil
}
