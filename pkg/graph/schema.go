package graph

import (
	"maps"
	"slices"
	"sort"
)

// Schema stores the views and keys of each object type.
//
// Define registers keys on the fly, so a schema can be built incrementally
// while a document is imported. Schemas are not safe for concurrent mutation.
type Schema struct {
	types map[string]*typeDef
}

type typeDef struct {
	keys  map[string]PropertyKey // by wire name
	views map[string][]PropertyKey
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{types: make(map[string]*typeDef)}
}

func (s *Schema) def(typeName string) *typeDef {
	td, ok := s.types[typeName]
	if !ok {
		td = &typeDef{
			keys:  make(map[string]PropertyKey),
			views: make(map[string][]PropertyKey),
		}
		s.types[typeName] = td
	}
	return td
}

// AddKey declares key on typeName without adding it to a view.
func (s *Schema) AddKey(typeName string, key PropertyKey) {
	s.def(typeName).keys[key.WireName()] = key
}

// Define appends keys to the named view of typeName. Keys already declared on
// the type under the same wire name are replaced.
func (s *Schema) Define(typeName, view string, keys ...PropertyKey) {
	td := s.def(typeName)
	for _, k := range keys {
		td.keys[k.WireName()] = k
	}
	td.views[view] = append(td.views[view], keys...)
}

// Keys returns the ordered keys of view for typeName, or nil when either is
// undefined. The returned slice must not be modified.
func (s *Schema) Keys(typeName, view string) []PropertyKey {
	td, ok := s.types[typeName]
	if !ok {
		return nil
	}
	return td.views[view]
}

// Key implements [KeyResolver].
func (s *Schema) Key(typeName, wireName string) (PropertyKey, bool) {
	td, ok := s.types[typeName]
	if !ok {
		return nil, false
	}
	k, ok := td.keys[wireName]
	return k, ok
}

// HasType reports whether typeName has been declared.
func (s *Schema) HasType(typeName string) bool {
	_, ok := s.types[typeName]
	return ok
}

// Types returns the declared type names in sorted order.
func (s *Schema) Types() []string {
	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Views returns the views defined for typeName in sorted order.
func (s *Schema) Views(typeName string) []string {
	td, ok := s.types[typeName]
	if !ok {
		return nil
	}
	views := make([]string, 0, len(td.views))
	for v := range td.views {
		views = append(views, v)
	}
	slices.Sort(views)
	return views
}

// Declared returns every key declared on typeName, ordered by wire name.
func (s *Schema) Declared(typeName string) []PropertyKey {
	td, ok := s.types[typeName]
	if !ok {
		return nil
	}
	keys := make([]PropertyKey, 0, len(td.keys))
	for _, wire := range slices.Sorted(maps.Keys(td.keys)) {
		keys = append(keys, td.keys[wire])
	}
	return keys
}
