package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/graphwriter/pkg/cache"
	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/scalar"
	"github.com/matzehuels/graphwriter/pkg/serialize"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Nodes     int       `json:"nodes"`
	Types     []string  `json:"types"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Nodes:     s.store.Len(),
		Types:     s.store.Schema().Types(),
		Timestamp: time.Now().UTC(),
	}
	data, err := jsonAPI.Marshal(resp)
	if err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode health"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(append(data, '\n'))
}

// handleList serves GET /v1/{type}.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	typeName, err := s.typeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	query, err := s.parseQuery(r, typeName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.render(w, r, req, func() (*serialize.Result, error) {
		start := time.Now()
		page, err := s.store.Query(query)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "query %s", typeName)
		}
		result := serialize.FromPage(page)
		result.QueryTime = scalar.FormatSeconds(time.Since(start))
		q := r.URL.Query()
		result.SearchString = echoParam(q, "search")
		result.SortKey = echoParam(q, "sort")
		if q.Has("order") {
			result.SortOrder = serialize.Ptr(query.SortOrder)
		}
		result.OutputNestingDepth = serialize.Ptr(req.opts.MaxDepth)
		return result, nil
	})
}

// handleGet serves GET /v1/{type}/{id}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.render(w, r, req, func() (*serialize.Result, error) {
		result := serialize.NewSingle(node)
		result.OutputNestingDepth = serialize.Ptr(req.opts.MaxDepth)
		return result, nil
	})
}

// handleAttribute serves GET /v1/{type}/{id}/{key}. Entity values are
// rendered as resources, everything else as a primitive result.
func (s *Server) handleAttribute(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	wire := chi.URLParam(r, "key")
	if err := errors.ValidateKeyName(wire); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key, ok := s.store.Schema().Key(node.TypeName, wire)
	if !ok {
		key = graph.NewKey(wire)
	}
	s.render(w, r, req, func() (*serialize.Result, error) {
		value, err := node.PropertyRange(key, req.ranges[wire])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s.%s", node.ID, wire)
		}
		if convert := key.Converter(); convert != nil && value != nil {
			if converted, err := convert(value); err == nil {
				value = converted
			} else {
				s.requestLogger(r.Context()).Warn("failed to convert attribute",
					"type", node.TypeName, "key", wire, "error", err)
			}
		}
		return attributeResult(value), nil
	})
}

func attributeResult(value any) *serialize.Result {
	switch v := value.(type) {
	case nil:
		return serialize.NewPrimitive()
	case graph.Object:
		return serialize.NewSingle(v)
	case []any:
		if len(v) > 0 && allObjects(v) {
			r := serialize.NewCollection(v...)
			r.RawResultCount = serialize.Ptr(len(v))
			return r
		}
		return serialize.NewPrimitive(v...)
	}
	return serialize.NewPrimitive(value)
}

func allObjects(items []any) bool {
	for _, it := range items {
		if _, ok := it.(graph.Object); !ok {
			return false
		}
	}
	return true
}

func (s *Server) typeParam(r *http.Request) (string, error) {
	typeName := chi.URLParam(r, "type")
	if err := errors.ValidateTypeName(typeName); err != nil {
		return "", err
	}
	if !s.store.Schema().HasType(typeName) {
		return "", errors.New(errors.ErrCodeNotFound, "unknown type %q", typeName)
	}
	return typeName, nil
}

func (s *Server) nodeParam(r *http.Request) (*graph.Node, error) {
	typeName, err := s.typeParam(r)
	if err != nil {
		return nil, err
	}
	id := chi.URLParam(r, "id")
	node, ok := s.store.Get(id)
	if !ok || node.TypeName != typeName {
		return nil, errors.New(errors.ErrCodeNotFound, "%s %q not found", typeName, id)
	}
	return node, nil
}

// =============================================================================
// Rendering
// =============================================================================

// render streams the result built by build. With a cache configured the
// document is rendered into memory, stored and then written; otherwise it is
// streamed straight to the client.
func (s *Server) render(w http.ResponseWriter, r *http.Request, req request, build func() (*serialize.Result, error)) {
	ctx := r.Context()
	logger := s.requestLogger(ctx)

	key := ""
	if s.cacheEnabled {
		key = s.keyer.DocumentKey(cache.DocumentKeyOpts{
			GraphHash:        s.graphHash,
			Path:             r.URL.Path,
			Query:            canonicalQuery(r),
			View:             req.opts.View,
			Format:           req.format,
			MaxDepth:         req.opts.MaxDepth,
			ReduceRedundancy: req.opts.ReduceRedundancy,
			Indent:           req.opts.Indent,
		})
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("cache read failed", "key", key, "error", err)
		}
		if ok {
			writeDocument(w, req.format, "HIT", data)
			return
		}
	}

	result, err := build()
	if err != nil {
		writeError(w, r, err)
		return
	}
	result.BaseURL = s.cfg.Server.BaseURL
	result.Subject = r.URL.Path
	result.Ranges = req.ranges
	writer := serialize.New(req.opts)

	if !s.cacheEnabled {
		rw := newResponseWriter(w)
		rw.Header().Set("Content-Type", sink.ContentType(req.format))
		rw.Header().Set("X-Cache", "BYPASS")
		report, err := s.stream(ctx, writer, req.format, rw, result)
		if err != nil {
			s.streamFailed(rw, r, rw.Written(), err)
			return
		}
		logReport(logger, result.Subject, report)
		return
	}

	var buf bytes.Buffer
	report, err := s.stream(ctx, writer, req.format, &buf, result)
	if err != nil {
		s.streamFailed(w, r, false, err)
		return
	}
	logReport(logger, result.Subject, report)
	if !report.Truncated {
		if err := s.cache.Set(ctx, key, buf.Bytes(), time.Duration(s.cfg.Cache.TTL)); err != nil {
			logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	writeDocument(w, req.format, "MISS", buf.Bytes())
}

func (s *Server) stream(ctx context.Context, writer *serialize.Writer, format string, out io.Writer, result *serialize.Result) (serialize.Report, error) {
	sw, err := writer.NewSink(format, out)
	if err != nil {
		return serialize.Report{}, err
	}
	return writer.Stream(ctx, sw, result)
}

// streamFailed reports a failed stream. Once bytes have reached the client the
// status can no longer change, so the failure is only logged.
func (s *Server) streamFailed(w http.ResponseWriter, r *http.Request, sent bool, err error) {
	logger := s.requestLogger(r.Context())
	switch {
	case errors.Is(err, errors.ErrCodeCanceled):
		logger.Debug("client went away", "path", r.URL.Path)
	case sent:
		logger.Error("stream failed after response started", "path", r.URL.Path, "error", err)
	default:
		writeError(w, r, err)
	}
}

func writeDocument(w http.ResponseWriter, format, cacheStatus string, data []byte) {
	w.Header().Set("Content-Type", sink.ContentType(format))
	w.Header().Set("X-Cache", cacheStatus)
	_, _ = w.Write(data)
}

func logReport(logger *log.Logger, subject string, report serialize.Report) {
	logger.Debug("stream complete",
		"subject", subject,
		"emitted", report.Emitted,
		"truncated", report.Truncated,
		"warnings", len(report.Warnings),
		"elapsed", report.Elapsed.String(),
	)
}
