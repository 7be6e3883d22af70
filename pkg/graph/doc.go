// Package graph defines the read-only object model consumed by the serializer.
//
// An [Object] is any entity that can report a stable identity, its type name, an
// ordered set of [PropertyKey] values for a named view, and the value stored
// under each key. Property values may be scalars, other objects, slices, maps,
// [PropertyMap] instances or anything implementing [Iterable].
//
// # Views
//
// A view is a named, ordered projection of a type's properties. The names
// [ViewPublic], [ViewUI] and [ViewAll] are predefined; [ViewUI] and [ViewAll]
// are the "full" projections that collapse to the identity keys (id, type, name)
// below the root object. [ViewGraph] is the internal structural view.
//
// A [Schema] stores the view definitions per type and doubles as the
// [KeyResolver] used to look up type-specific keys by wire name:
//
//	schema := graph.NewSchema()
//	schema.Define("Project", graph.ViewPublic, graph.IDKey, graph.TypeKey, graph.NameKey,
//	    graph.NewKey("tasks"))
//
// # Nodes and Stores
//
// [Node] is a generic schema-driven object backed by a property map. A [Store]
// holds nodes by ID, resolves links between them and answers paged [Query]
// requests, standing in for a real storage engine:
//
//	store := graph.NewStore(schema)
//	_ = store.Add(graph.NewNode("p1", "Project", graph.Metadata{"name": "Apollo"}))
//	page, _ := store.Query(graph.Query{Type: "Project", PageSize: 10, Page: 1})
//
// Stores are not safe for concurrent mutation. Once populated they may be read
// from any number of goroutines.
package graph
