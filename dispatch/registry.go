package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrInvalidArgument reports a SetAll argument that is neither nil nor a
// slice of descriptors.
var ErrInvalidArgument = errors.New("handlers must be a slice of descriptors or nil")

// Binding is one registry entry: the bound instance plus the method table
// dispatch scans against.
type Binding struct {
	Key      string
	Instance any
	Handler  Handler
}

// Registry stores bound handlers keyed by concrete type name and preserves
// insertion order for the dispatch scan. Rebinding a type replaces the
// entry in place, keeping its original position.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Binding
	catalog *Catalog
	logger  *zap.Logger
}

// NewRegistry creates an empty registry. The catalog may be nil, in which
// case only already-constructed instances can be bound.
func NewRegistry(catalog *Catalog, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*Binding),
		catalog: catalog,
		logger:  logger.Named("registry"),
	}
}

// Bind registers one handler. The descriptor is an existing instance, a
// type name known to the catalog, or a map with a "type" member plus
// properties to assign to the fresh instance. Returns false when nothing
// was bound; the registry is left untouched in that case.
func (r *Registry) Bind(descriptor any) bool {
	instance, ok := r.construct(descriptor)
	if !ok {
		return false
	}
	handler, ok := asHandler(instance)
	if !ok {
		return false
	}
	key := typeKey(instance)
	r.mu.Lock()
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = &Binding{Key: key, Instance: instance, Handler: handler}
	r.mu.Unlock()
	r.logger.Debug("Bound handler",
		zap.String("type", key),
		zap.Strings("methods", handler.Methods()))
	return true
}

// construct resolves a bind descriptor to a handler instance.
func (r *Registry) construct(descriptor any) (any, bool) {
	switch d := descriptor.(type) {
	case nil:
		return nil, false
	case string:
		if r.catalog == nil {
			return nil, false
		}
		return r.catalog.New(d)
	case map[string]any:
		if r.catalog == nil {
			return nil, false
		}
		typeName, _ := d["type"].(string)
		if typeName == "" {
			return nil, false
		}
		instance, ok := r.catalog.New(typeName)
		if !ok {
			return nil, false
		}
		applyProperties(instance, d)
		return instance, true
	default:
		return descriptor, true
	}
}

// SetAll replaces the registry contents. A nil argument clears it; a slice
// clears it and binds each descriptor in order, skipping descriptors that
// fail. Any other argument reports ErrInvalidArgument without mutating
// anything. The returned snapshot reflects the registry after the call.
func (r *Registry) SetAll(descriptors any) ([]Binding, error) {
	switch d := descriptors.(type) {
	case nil:
		r.clear()
	case []any:
		r.clear()
		for _, descriptor := range d {
			if !r.Bind(descriptor) {
				r.logger.Warn("Skipping descriptor that failed to bind",
					zap.Any("descriptor", descriptor))
			}
		}
	default:
		return r.Handlers(), ErrInvalidArgument
	}
	return r.Handlers(), nil
}

// List returns the bindings in insertion order for the dispatch scan.
func (r *Registry) List() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bindings := make([]Binding, 0, len(r.order))
	for _, key := range r.order {
		bindings = append(bindings, *r.entries[key])
	}
	return bindings
}

// Handlers is the read-only configuration surface over the registry.
func (r *Registry) Handlers() []Binding {
	return r.List()
}

// Len reports the number of bound handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) clear() {
	r.mu.Lock()
	r.order = r.order[:0]
	r.entries = make(map[string]*Binding)
	r.mu.Unlock()
}

// typeKey derives the registry key from the instance's concrete type.
func typeKey(instance any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", instance), "*")
}
