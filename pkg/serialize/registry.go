package serialize

import (
	"reflect"
	"sync"

	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/scalar"
)

// Serializer emits values of the runtime types it is registered for.
type Serializer interface {
	Serialize(e *Emitter, value any, depth int) error
}

// SerializerFunc adapts a function to [Serializer].
type SerializerFunc func(e *Emitter, value any, depth int) error

func (f SerializerFunc) Serialize(e *Emitter, value any, depth int) error {
	return f(e, value, depth)
}

// Built-in serializers.
var (
	EntitySerializer      Serializer = entitySerializer{}
	PropertyMapSerializer Serializer = propertyMapSerializer{}
	IterableSerializer    Serializer = iterableSerializer{}
	MapSerializer         Serializer = mapSerializer{}
)

var (
	objectType      = reflect.TypeFor[graph.Object]()
	iterableType    = reflect.TypeFor[graph.Iterable]()
	propertyMapType = reflect.TypeFor[*graph.PropertyMap]()
)

type noSerializer struct{}

type ifaceEntry struct {
	iface reflect.Type
	s     Serializer
}

// Registry maps runtime types to serializers.
//
// Resolution order for a type T:
//  1. the memoized answer for T
//  2. predeclared primitive types (bool, string, numbers) have no serializer
//  3. a serializer registered for exactly T
//  4. the first registered interface that T implements, in registration order
//  5. the same steps for the element type when T is a pointer
//  6. the kind fallback: slices and arrays are iterables, maps are maps
//
// The answer, including "none", is memoized under T. Lookups are safe for
// concurrent use; registering a serializer clears the memo.
type Registry struct {
	mu     sync.RWMutex
	exact  map[reflect.Type]Serializer
	ifaces []ifaceEntry
	cache  sync.Map // reflect.Type -> Serializer | noSerializer
}

// NewRegistry creates a registry seeded with the built-in serializers.
func NewRegistry() *Registry {
	r := &Registry{exact: make(map[reflect.Type]Serializer)}
	r.Register(propertyMapType, propertyMapSerializer{})
	r.RegisterInterface(objectType, entitySerializer{})
	r.RegisterInterface(iterableType, iterableSerializer{})
	return r
}

// Register binds s to exactly t.
func (r *Registry) Register(t reflect.Type, s Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[t] = s
	r.cache.Clear()
}

// RegisterInterface binds s to every type implementing iface. Interfaces
// registered earlier take precedence.
func (r *Registry) RegisterInterface(iface reflect.Type, s Serializer) {
	if iface.Kind() != reflect.Interface {
		panic("serialize: RegisterInterface called with non-interface type " + iface.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ifaces = append(r.ifaces, ifaceEntry{iface: iface, s: s})
	r.cache.Clear()
}

// Resolve returns the serializer for t, or nil when values of t are scalars.
func (r *Registry) Resolve(t reflect.Type) Serializer {
	if t == nil {
		return nil
	}
	if v, ok := r.cache.Load(t); ok {
		s, _ := v.(Serializer)
		return s
	}
	if t.PkgPath() == "" && scalar.IsPrimitive(t) {
		return nil
	}

	r.mu.RLock()
	s := r.lookup(t)
	if s == nil && t.Kind() == reflect.Pointer {
		s = r.lookup(t.Elem())
	}
	r.mu.RUnlock()

	if s == nil {
		s = kindFallback(t)
	}
	if s == nil {
		r.cache.Store(t, noSerializer{})
	} else {
		r.cache.Store(t, s)
	}
	return s
}

func (r *Registry) lookup(t reflect.Type) Serializer {
	if s, ok := r.exact[t]; ok {
		return s
	}
	for _, e := range r.ifaces {
		if t.Implements(e.iface) {
			return e.s
		}
	}
	return nil
}

func kindFallback(t reflect.Type) Serializer {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	//nolint:exhaustive // only container kinds have a fallback
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return iterableSerializer{}
	case reflect.Map:
		return mapSerializer{}
	}
	return nil
}
