package graph

import "iter"

// Metadata stores the raw property values of a [Node], keyed by internal
// property name.
type Metadata map[string]any

// Node is a generic, schema-driven [Object].
//
// Identity is the node pointer itself, so two nodes with equal fields are still
// distinct for cycle and redundancy tracking. The id and type keys are answered
// from the struct fields; every other key is read from Props.
type Node struct {
	ID       string
	TypeName string
	Props    Metadata

	schema *Schema
}

// NewNode creates a detached node. Props may be nil.
func NewNode(id, typeName string, props Metadata) *Node {
	if props == nil {
		props = Metadata{}
	}
	return &Node{ID: id, TypeName: typeName, Props: props}
}

// Attach binds the node to schema for view resolution. [Store.Add] attaches
// nodes automatically.
func (n *Node) Attach(schema *Schema) *Node {
	n.schema = schema
	return n
}

func (n *Node) Identity() any { return n }
func (n *Node) Type() string  { return n.TypeName }

// Name returns the "name" property as a string, or "".
func (n *Node) Name() string {
	s, _ := n.Props[NameKey.Name()].(string)
	return s
}

func (n *Node) PropertyKeys(view string) []PropertyKey {
	if n.schema == nil {
		return nil
	}
	return n.schema.Keys(n.TypeName, view)
}

func (n *Node) Property(key PropertyKey) (any, error) {
	switch key.Name() {
	case IDKey.Name():
		return n.ID, nil
	case TypeKey.Name():
		return n.TypeName, nil
	}
	return n.Props[key.Name()], nil
}

// PropertyRange returns the windowed value of a collection property. Scalar
// and single-object values are returned unchanged.
func (n *Node) PropertyRange(key PropertyKey, r *Range) (any, error) {
	v, err := n.Property(key)
	if err != nil || r == nil {
		return v, err
	}
	if items, ok := v.([]any); ok {
		return r.Apply(items), nil
	}
	return v, nil
}

func (n *Node) String() string {
	if name := n.Name(); name != "" {
		return n.TypeName + "(" + name + ")"
	}
	return n.TypeName + "(" + n.ID + ")"
}

// PropertyMap is an insertion-ordered set of key/value pairs. The serializer
// emits it as an object using each key's wire name.
type PropertyMap struct {
	keys   []PropertyKey
	values []any
	index  map[string]int
}

// NewPropertyMap creates an empty map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{index: make(map[string]int)}
}

// Set stores value under key, replacing any entry with the same wire name.
func (m *PropertyMap) Set(key PropertyKey, value any) *PropertyMap {
	if i, ok := m.index[key.WireName()]; ok {
		m.keys[i] = key
		m.values[i] = value
		return m
	}
	m.index[key.WireName()] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
	return m
}

// Get returns the value stored under wireName.
func (m *PropertyMap) Get(wireName string) (any, bool) {
	i, ok := m.index[wireName]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Len returns the number of entries.
func (m *PropertyMap) Len() int { return len(m.keys) }

// All iterates the entries in insertion order.
func (m *PropertyMap) All() iter.Seq2[PropertyKey, any] {
	return func(yield func(PropertyKey, any) bool) {
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}
