package io

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/graphwriter/pkg/graph"
)

// refField marks a node reference inside property values.
const refField = "$ref"

var jsonAPI = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

type document struct {
	Types map[string]typeDoc `json:"types,omitempty"`
	Nodes []nodeDoc          `json:"nodes"`
}

type typeDoc struct {
	Keys  map[string]keyDoc   `json:"keys,omitempty"`
	Views map[string][]string `json:"views,omitempty"`
}

type keyDoc struct {
	Property string `json:"property,omitempty"`
	Convert  string `json:"convert,omitempty"`
}

type nodeDoc struct {
	ID    string         `json:"id,omitempty"`
	Type  string         `json:"type"`
	Props map[string]any `json:"props,omitempty"`
}

// docKey is a key declared in a document. It remembers its converter name so
// the schema can be written back.
type docKey struct {
	*graph.Key
	convert string
}

// ReadJSON decodes a graph document from r into a new store.
//
// ReadJSON returns an error if:
//   - The JSON is malformed
//   - A node has no type or a duplicate ID
//   - A key names an unknown converter
//   - A reference points to an unknown node ID
//
// Errors are wrapped with context describing which type, node or key caused
// the problem. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*graph.Store, error) {
	var data document
	if err := jsonAPI.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	schema, err := buildSchema(data.Types)
	if err != nil {
		return nil, err
	}

	store := graph.NewStore(schema)
	for i, n := range data.Nodes {
		if n.Type == "" {
			return nil, fmt.Errorf("node %d (%s): missing type", i, n.ID)
		}
		id := n.ID
		if id == "" {
			id = uuid.NewString()
		}
		props := make(graph.Metadata, len(n.Props))
		for k, v := range n.Props {
			props[k] = normalize(v)
		}
		if err := store.Add(graph.NewNode(id, n.Type, props)); err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
	}

	for _, n := range store.Nodes() {
		for k, v := range n.Props {
			resolved, err := resolve(store, v)
			if err != nil {
				return nil, fmt.Errorf("node %s, property %s: %w", n.ID, k, err)
			}
			n.Props[k] = resolved
		}
	}
	return store, nil
}

// ImportJSON reads a graph document file at path.
//
// ImportJSON returns the same validation errors as [ReadJSON], wrapped with
// the file path.
func ImportJSON(path string) (*graph.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	store, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

func buildSchema(types map[string]typeDoc) (*graph.Schema, error) {
	schema := graph.NewSchema()
	for _, typeName := range slices.Sorted(maps.Keys(types)) {
		td := types[typeName]

		declared := make(map[string]graph.PropertyKey, len(td.Keys))
		for _, wire := range slices.Sorted(maps.Keys(td.Keys)) {
			key, err := newDocKey(wire, td.Keys[wire])
			if err != nil {
				return nil, fmt.Errorf("type %s, key %s: %w", typeName, wire, err)
			}
			declared[wire] = key
		}

		for _, view := range slices.Sorted(maps.Keys(td.Views)) {
			keys := make([]graph.PropertyKey, 0, len(td.Views[view]))
			for _, wire := range td.Views[view] {
				keys = append(keys, viewKey(wire, declared))
			}
			schema.Define(typeName, view, keys...)
		}
		if len(td.Views) == 0 {
			schema.Define(typeName, graph.ViewPublic, graph.IdentityKeys()...)
		}

		// Declared keys win over the identity keys for resolver lookups.
		for _, wire := range slices.Sorted(maps.Keys(declared)) {
			schema.AddKey(typeName, declared[wire])
		}
	}
	return schema, nil
}

func newDocKey(wire string, kd keyDoc) (*docKey, error) {
	convert, err := converter(kd.Convert)
	if err != nil {
		return nil, err
	}
	name := kd.Property
	if name == "" {
		name = wire
	}
	return &docKey{
		Key:     graph.NewKey(name, graph.WithWireName(wire), graph.WithConverter(convert)),
		convert: kd.Convert,
	}, nil
}

func viewKey(wire string, declared map[string]graph.PropertyKey) graph.PropertyKey {
	for _, k := range graph.IdentityKeys() {
		if k.WireName() == wire {
			return k
		}
	}
	if k, ok := declared[wire]; ok {
		return k
	}
	return graph.NewKey(wire)
}

// normalize turns decoded numbers into int64 where they are integral and
// float64 otherwise.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
	}
	return v
}

func resolve(store *graph.Store, v any) (any, error) {
	switch x := v.(type) {
	case []any:
		for i := range x {
			r, err := resolve(store, x[i])
			if err != nil {
				return nil, err
			}
			x[i] = r
		}
	case map[string]any:
		if id, ok := ref(x); ok {
			n, found := store.Get(id)
			if !found {
				return nil, fmt.Errorf("%w: %s", graph.ErrUnknownNode, id)
			}
			return n, nil
		}
		for k := range x {
			r, err := resolve(store, x[k])
			if err != nil {
				return nil, err
			}
			x[k] = r
		}
	}
	return v, nil
}

func ref(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	id, ok := m[refField].(string)
	return id, ok
}
