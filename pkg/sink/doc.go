// Package sink provides the format-agnostic output contract used by the
// serializer, and its encodings.
//
// # Overview
//
// A [Writer] receives a flat stream of structural events (begin/end object,
// begin/end array, name) and typed leaves (string, int, uint, float, bool,
// null). The serializer never formats bytes itself, so the same traversal can
// produce any of the supported encodings:
//
//   - [JSON]: indented or compact JSON over a json-iterator stream
//   - [BSON]: binary BSON documents via the MongoDB driver's value writers
//   - [ExtJSON]: MongoDB Extended JSON (relaxed or canonical)
//   - [Recorder]: an in-memory event log for tests and diagnostics
//
// Use [ByFormat] to pick an encoding by name:
//
//	w, err := sink.ByFormat(sink.FormatJSON, os.Stdout, true)
//
// # Errors
//
// Every failure of the underlying io.Writer is returned as an error with code
// SINK_IO. Structural misuse (a value inside an object without a preceding
// name, unbalanced end calls) is reported as INTERNAL_ERROR. Encodings that
// cannot represent a shape, such as a top-level array in BSON, return
// UNSUPPORTED.
//
// Sinks buffer output; nothing is guaranteed to reach the io.Writer before
// [Writer.EndDocument] returns.
package sink
