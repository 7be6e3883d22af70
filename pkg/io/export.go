package io

import (
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/graphwriter/pkg/graph"
)

// WriteJSON encodes store as a graph document and writes it to w.
// Node references are written as {"$ref": id}. The output can be re-imported
// with [ReadJSON].
func WriteJSON(store *graph.Store, w io.Writer) error {
	out := document{
		Types: exportTypes(store.Schema()),
		Nodes: make([]nodeDoc, 0, store.Len()),
	}
	for _, n := range store.Nodes() {
		nd := nodeDoc{ID: n.ID, Type: n.TypeName}
		if len(n.Props) > 0 {
			nd.Props = make(map[string]any, len(n.Props))
			for k, v := range n.Props {
				nd.Props[k] = exportValue(v)
			}
		}
		out.Nodes = append(out.Nodes, nd)
	}

	data, err := jsonAPI.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ExportJSON writes store to a graph document file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(store *graph.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(store, f)
}

func exportTypes(schema *graph.Schema) map[string]typeDoc {
	if schema == nil {
		return nil
	}
	types := make(map[string]typeDoc)
	for _, typeName := range schema.Types() {
		td := typeDoc{Views: make(map[string][]string)}
		for _, view := range schema.Views(typeName) {
			keys := schema.Keys(typeName, view)
			wires := make([]string, len(keys))
			for i, k := range keys {
				wires[i] = k.WireName()
			}
			td.Views[view] = wires
		}
		for _, k := range schema.Declared(typeName) {
			kd := keyDoc{}
			if k.Name() != k.WireName() {
				kd.Property = k.Name()
			}
			if dk, ok := k.(*docKey); ok {
				kd.Convert = dk.convert
			}
			if kd == (keyDoc{}) {
				continue
			}
			if td.Keys == nil {
				td.Keys = make(map[string]keyDoc)
			}
			td.Keys[k.WireName()] = kd
		}
		types[typeName] = td
	}
	return types
}

func exportValue(v any) any {
	switch x := v.(type) {
	case *graph.Node:
		return map[string]any{refField: x.ID}
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = exportValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k := range x {
			out[k] = exportValue(x[k])
		}
		return out
	}
	return v
}
