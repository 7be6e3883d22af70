// Package io reads and writes graph documents: a schema of types and views
// plus the nodes of an in-memory [graph.Store].
//
// # JSON Format
//
// The format has two top-level fields:
//
//	{
//	  "types": {
//	    "Project": {
//	      "keys":  {"budget": {"convert": "decimal:2"}},
//	      "views": {"public": ["id", "name", "tasks"], "ui": ["id", "type", "name", "tasks", "budget"]}
//	    }
//	  },
//	  "nodes": [
//	    {"id": "p1", "type": "Project", "props": {"name": "Apollo", "tasks": [{"$ref": "t1"}]}}
//	  ]
//	}
//
// # Types
//
// Views list property wire names in emission order. The names "id", "type"
// and "name" always refer to the identity keys shared by every type. Other
// names refer to the entry of the same name under "keys", or to a plain
// property of that name.
//
// A key entry may rename the property it reads ("property") and name a
// converter ("convert"). The converters are:
//
//   - upper, lower: change the case of a string
//   - string: the value's string form
//   - decimal:N: a number rendered with N decimal places
//   - seconds: a nanosecond count rendered as seconds
//
// Declaring "name" under "keys" gives the type its own name property. It is
// used by the internal graph view only; every other view reads the plain
// "name" property.
//
// # Nodes
//
// A node without an id gets a random UUID. Property values are any JSON value;
// an object of the form {"$ref": "<id>"} is replaced by the referenced node,
// at any nesting level. References are resolved after all nodes are read, so
// they may point forward and form cycles.
//
// # Import and Export
//
// Use [ImportJSON] to read a file and [ReadJSON] to read from any io.Reader.
// [WriteJSON] and [ExportJSON] write a store back. Converters are written as
// they were read only when the schema came from this package; keys created in
// code export their property rename but not their converter.
package io
