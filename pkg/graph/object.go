package graph

import "iter"

// Predefined view names.
const (
	// ViewPublic is the default projection.
	ViewPublic = "public"
	// ViewUI is the administrative projection used by editing front ends.
	ViewUI = "ui"
	// ViewAll exposes every declared key.
	ViewAll = "all"
	// ViewGraph is the internal structural view.
	ViewGraph = "_graph"
)

// IsFullView reports whether view is one of the full projections that collapse
// to identity keys for nested objects.
func IsFullView(view string) bool {
	return view == ViewUI || view == ViewAll
}

// ConvertFunc converts a stored property value into its output form. A
// converter that fails may still return a partially converted value.
type ConvertFunc func(value any) (any, error)

// PropertyKey identifies a named property of an object type.
type PropertyKey interface {
	// Name is the internal property name used to fetch the value.
	Name() string
	// WireName is the name written to the output.
	WireName() string
	// Converter returns the value conversion function, or nil.
	Converter() ConvertFunc
}

// Object is an entity that can be serialized.
type Object interface {
	// Identity returns a comparable handle that is stable for the lifetime of
	// the process.
	Identity() any
	// Type returns the type name used to resolve views.
	Type() string
	// PropertyKeys returns the ordered keys of the named view. It returns nil
	// when the view is not defined for the object's type.
	PropertyKeys(view string) []PropertyKey
	// Property returns the value stored under key, or nil.
	Property(key PropertyKey) (any, error)
}

// RangedObject is implemented by objects that can apply a [Range] to
// collection-valued properties.
type RangedObject interface {
	Object
	PropertyRange(key PropertyKey, r *Range) (any, error)
}

// KeyResolver looks up the key a type declares under a wire name.
type KeyResolver interface {
	Key(typeName, wireName string) (PropertyKey, bool)
}

// Iterable is implemented by custom collections.
type Iterable interface {
	All() iter.Seq[any]
}

// Key is the standard [PropertyKey] implementation.
type Key struct {
	name    string
	wire    string
	convert ConvertFunc
}

// KeyOption configures a [Key].
type KeyOption func(*Key)

// WithWireName sets an output name different from the internal name.
func WithWireName(wire string) KeyOption {
	return func(k *Key) { k.wire = wire }
}

// WithConverter attaches a conversion function.
func WithConverter(fn ConvertFunc) KeyOption {
	return func(k *Key) { k.convert = fn }
}

// NewKey returns a key whose wire name equals name unless overridden.
func NewKey(name string, opts ...KeyOption) *Key {
	k := &Key{name: name, wire: name}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Key) Name() string           { return k.name }
func (k *Key) WireName() string       { return k.wire }
func (k *Key) Converter() ConvertFunc { return k.convert }

func (k *Key) String() string {
	if k.wire != k.name {
		return k.name + "(" + k.wire + ")"
	}
	return k.name
}

// Identity keys shared by every type.
var (
	IDKey   = NewKey("id")
	TypeKey = NewKey("type")
	NameKey = NewKey("name")
)

// IdentityKeys returns the identity-only projection used for nested objects
// under a full view.
func IdentityKeys() []PropertyKey {
	return []PropertyKey{IDKey, TypeKey, NameKey}
}

// IsNameKey reports whether key is the universal name key.
func IsNameKey(key PropertyKey) bool {
	return key != nil && key.Name() == NameKey.Name()
}
