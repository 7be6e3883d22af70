// Package serialize streams object graphs to a [sink.Writer] without building
// the result tree in memory.
//
// # Overview
//
// A [Writer] is configured once with [Options] and can then serve any number of
// [Writer.Stream] and [Writer.StreamSingle] calls, including concurrent ones.
// Every call gets its own traversal state: the visited-identity tracker, the
// warnings list and the open-frame bookkeeping never leak between calls. Only
// the [Registry] lookup cache is shared.
//
//	w := serialize.New(serialize.DefaultOptions())
//	out := sink.NewJSON(os.Stdout, true)
//	report, err := w.Stream(ctx, out, serialize.FromPage(page))
//
// # Traversal
//
// Values are dispatched through the [Registry]: objects implementing
// [graph.Object] go to the entity serializer, [graph.PropertyMap] and maps are
// written as objects, slices, arrays and [graph.Iterable] values as arrays, and
// everything else as a scalar leaf.
//
// Entities emit the keys of the active view in declaration order. Each
// entity-to-property edge increases the depth by one; past [Options.MaxDepth]
// an entity is written as an empty object frame, which is what terminates
// cyclic graphs. With [Options.ReduceRedundancy] set, a property whose value is
// an entity already on the current path is omitted entirely.
//
// # Failures
//
// A property that fails to fetch, convert or emit (including panics raised by
// entity code) is dropped: the frames it opened are closed, its name is never
// written, and a [Warning] is added to the [Report]. Conversion failures keep
// the unconverted value and are reported the same way. Errors from the sink
// itself (code SINK_IO) abort the call.
//
// # Budget
//
// The result loop checks [Options.Budget] and the context after every entity.
// When either runs out, emission stops, all frames are closed, the envelope
// gains "truncated": true (unless [Options.MarkTruncation] is off) and
// [Report.Truncated] is set. Cancellation additionally returns a CANCELED error.
package serialize
