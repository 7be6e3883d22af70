// Package pkg provides the libraries behind graphwriter, a streaming
// serializer for object graphs.
//
// # Overview
//
// graphwriter writes entities, collections of entities and primitive values
// into a single result document. Which properties of an entity appear is
// decided by a named view ("public", "ui", "full", ...), nested entities are
// expanded up to a depth limit, cycles are cut, and the result loop stops
// cleanly when a time budget runs out.
//
// The pkg directory is organized by concern:
//
//  1. [graph] - Data model: objects, property keys, views, the in-memory store
//  2. [serialize] - Serializer registry, property dispatch and the stream orchestrator
//  3. [sink] - Output encodings (JSON, BSON, Extended JSON) and a recording sink
//  4. [io] - Graph document import and export
//  5. [api] - HTTP transport with caching, rate limiting and metrics
//
// # Architecture
//
// The typical data flow:
//
//	graph document (JSON)
//	         ↓
//	    [io] package (decode into a store)
//	         ↓
//	    [graph] package (query, sort, page)
//	         ↓
//	    [serialize] package (views, depth, cycles, budget)
//	         ↓
//	    [sink] package (JSON / BSON / Extended JSON)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "os"
//
//	    graphio "github.com/matzehuels/graphwriter/pkg/io"
//	    "github.com/matzehuels/graphwriter/pkg/graph"
//	    "github.com/matzehuels/graphwriter/pkg/serialize"
//	    "github.com/matzehuels/graphwriter/pkg/sink"
//	)
//
//	store, _ := graphio.ImportJSON("graph.json")
//	page, _ := store.Query(graph.Query{Type: "Task", PageSize: 20})
//
//	opts := serialize.DefaultOptions()
//	opts.KeyResolver = store.Schema()
//	w := serialize.New(opts)
//	report, err := w.Stream(context.Background(), sink.NewJSON(os.Stdout, true), serialize.FromPage(page))
//
// # Supporting Packages
//
// [scalar] - Classification and formatting of primitive values.
//
// [cache] - Rendered document cache with null, file and Redis backends.
//
// [config] - TOML configuration for the writer, the server and the cache.
//
// [errors] - Structured error codes shared by every layer.
//
// [observability] - Hooks for stream, cache and HTTP events.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/serialize/   # Specific package
//	go test -run Example       # Examples only
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/graph
// [serialize]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/serialize
// [sink]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/sink
// [io]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/io
// [api]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/api
// [scalar]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/scalar
// [cache]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/graphwriter/pkg/buildinfo
package pkg
