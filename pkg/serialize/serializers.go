package serialize

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"

	"github.com/matzehuels/graphwriter/pkg/graph"
)

type entitySerializer struct{}

func (entitySerializer) Serialize(e *Emitter, value any, depth int) error {
	return e.Object(value.(graph.Object), depth)
}

// iterableSerializer writes slices, arrays and graph.Iterable values.
// Elements are siblings, so they share the depth of the collection.
type iterableSerializer struct{}

func (iterableSerializer) Serialize(e *Emitter, value any, depth int) error {
	if err := e.out.BeginArray(); err != nil {
		return err
	}
	if e.Expand(depth) {
		if it, ok := value.(graph.Iterable); ok {
			for v := range it.All() {
				if err := e.Value(v, depth); err != nil {
					return err
				}
			}
		} else {
			rv := reflect.ValueOf(value)
			for rv.Kind() == reflect.Pointer {
				rv = rv.Elem()
			}
			for i := range rv.Len() {
				if err := e.Value(rv.Index(i).Interface(), depth); err != nil {
					return err
				}
			}
		}
	}
	return e.out.EndArray()
}

// mapSerializer writes maps as objects. Keys are emitted in sorted order of
// their string form so the output does not depend on map iteration order.
type mapSerializer struct{}

func (mapSerializer) Serialize(e *Emitter, value any, depth int) error {
	if err := e.out.BeginObject(nil); err != nil {
		return err
	}
	if e.Expand(depth) {
		if err := mapEntries(value, func(name string, v any) error {
			if err := e.out.Name(name); err != nil {
				return err
			}
			return e.Value(v, depth+1)
		}); err != nil {
			return err
		}
	}
	return e.out.EndObject(nil)
}

func mapEntries(value any, fn func(name string, v any) error) error {
	var m map[string]any
	switch x := value.(type) {
	case map[string]any:
		m = x
	case graph.Metadata:
		m = x
	}
	if m != nil {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if err := fn(k, m[k]); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	type entry struct {
		name string
		key  reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		entries = append(entries, entry{name: fmt.Sprint(k.Interface()), key: k})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	for _, en := range entries {
		if err := fn(en.name, rv.MapIndex(en.key).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// propertyMapSerializer writes a graph.PropertyMap in insertion order. Each
// entry is a declared property, so converters apply and a failing entry is
// dropped on its own.
type propertyMapSerializer struct{}

func (propertyMapSerializer) Serialize(e *Emitter, value any, depth int) error {
	pm := value.(*graph.PropertyMap)
	if err := e.out.BeginObject(nil); err != nil {
		return err
	}
	if e.Expand(depth) {
		for key, v := range pm.All() {
			if err := e.Property("", key, v, depth+1); err != nil {
				return err
			}
		}
	}
	return e.out.EndObject(nil)
}
