// Package api serves a graph store over HTTP.
//
// Every resource is streamed through a [serialize.Writer]:
//
//	GET /v1/{type}               list nodes of a type (paged)
//	GET /v1/{type}/{id}          one node
//	GET /v1/{type}/{id}/{key}    one property of a node
//	GET /health                  liveness
//	GET /metrics                 Prometheus metrics
//
// Resource endpoints accept the query parameters view, depth, format,
// reduce_redundancy and indent. List endpoints add page, page_size, sort,
// order, search and exact. Collection-valued properties can be windowed with
// range.<key>=offset:limit, e.g. range.tasks=0:10.
//
// Errors are JSON objects carrying the error code, a message and the request
// ID. Rendered documents are stored in a [cache.Cache] keyed by the request
// shape when a cache backend is configured.
package api
