package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/serialize"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

const rangePrefix = "range."

// request holds the rendering parameters shared by every resource endpoint.
type request struct {
	opts   serialize.Options
	format string
	ranges map[string]*graph.Range
}

func (s *Server) parseRequest(r *http.Request) (request, error) {
	q := r.URL.Query()
	req := request{opts: s.base, format: s.cfg.Writer.Format}

	if v := q.Get("view"); v != "" {
		if err := errors.ValidateViewName(v); err != nil {
			return req, err
		}
		req.opts.View = v
	}
	if v := q.Get("format"); v != "" {
		if err := errors.ValidateFormat(v, sink.Formats); err != nil {
			return req, err
		}
		req.format = v
	}

	var err error
	if req.opts.MaxDepth, err = intParam(q, "depth", req.opts.MaxDepth, 0); err != nil {
		return req, err
	}
	if req.opts.ReduceRedundancy, err = boolParam(q, "reduce_redundancy", req.opts.ReduceRedundancy); err != nil {
		return req, err
	}
	if req.opts.Indent, err = boolParam(q, "indent", req.opts.Indent); err != nil {
		return req, err
	}

	for name, values := range q {
		key, ok := strings.CutPrefix(name, rangePrefix)
		if !ok {
			continue
		}
		if err := errors.ValidateKeyName(key); err != nil {
			return req, err
		}
		rng, err := parseRange(values[0])
		if err != nil {
			return req, errors.Wrap(errors.ErrCodeInvalidInput, err, "parameter %s", name)
		}
		if req.ranges == nil {
			req.ranges = make(map[string]*graph.Range)
		}
		req.ranges[key] = rng
	}
	return req, nil
}

// parseQuery reads the list parameters of GET /v1/{type}.
func (s *Server) parseQuery(r *http.Request, typeName string) (graph.Query, error) {
	q := r.URL.Query()
	query := graph.Query{
		Type:      typeName,
		Search:    q.Get("search"),
		SortKey:   q.Get("sort"),
		SortOrder: strings.ToLower(q.Get("order")),
	}

	var err error
	if query.Page, err = intParam(q, "page", 1, 1); err != nil {
		return query, err
	}
	if query.PageSize, err = intParam(q, "page_size", s.cfg.Server.DefaultPageSize, 1); err != nil {
		return query, err
	}
	if query.PageSize > s.cfg.Server.MaxPageSize {
		return query, errors.New(errors.ErrCodeInvalidInput,
			"page_size must be at most %d, got %d", s.cfg.Server.MaxPageSize, query.PageSize)
	}
	if query.Exact, err = boolParam(q, "exact", false); err != nil {
		return query, err
	}
	if query.SortKey != "" {
		if err := errors.ValidateKeyName(query.SortKey); err != nil {
			return query, err
		}
	}
	switch query.SortOrder {
	case "", graph.SortAsc, graph.SortDesc:
	default:
		return query, errors.New(errors.ErrCodeInvalidInput, "order must be %q or %q, got %q",
			graph.SortAsc, graph.SortDesc, query.SortOrder)
	}
	return query, nil
}

// parseRange accepts "offset" or "offset:limit".
func parseRange(v string) (*graph.Range, error) {
	off, lim, hasLimit := strings.Cut(v, ":")
	offset, err := strconv.Atoi(off)
	if err != nil || offset < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid range offset %q", off)
	}
	rng := &graph.Range{Offset: offset}
	if hasLimit {
		limit, err := strconv.Atoi(lim)
		if err != nil || limit < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid range limit %q", lim)
		}
		rng.Limit = limit
	}
	return rng, nil
}

func intParam(q url.Values, name string, def, minimum int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer >= %d, got %q", name, minimum, v)
	}
	return n, nil
}

func boolParam(q url.Values, name string, def bool) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "%s must be a boolean, got %q", name, v)
	}
	return b, nil
}

// echoParam returns the raw value of a parameter that was present in the
// request, even when empty, and nil otherwise.
func echoParam(q url.Values, name string) *string {
	if !q.Has(name) {
		return nil
	}
	return serialize.Ptr(q.Get(name))
}

// canonicalQuery returns the query string with sorted keys, for cache keys.
func canonicalQuery(r *http.Request) string {
	return r.URL.Query().Encode()
}
