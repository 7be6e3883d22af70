package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// =============================================================================
// Response Writer
// =============================================================================

// responseWriter records the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.written {
		return
	}
	rw.statusCode = statusCode
	rw.written = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush forwards to the underlying writer so streamed documents reach the
// client while they are being produced.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Status() int { return rw.statusCode }

// Written reports whether the header has been sent.
func (rw *responseWriter) Written() bool { return rw.written }

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// =============================================================================
// Request ID
// =============================================================================

const headerRequestID = "X-Request-Id"

// requestIDMiddleware keeps a client-supplied UUID request ID or generates one.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// Panic Recovery
// =============================================================================

func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			panicRecoveries.Inc()
			s.requestLogger(r.Context()).Error("panic recovered",
				"error", fmt.Sprint(rec), "method", r.Method, "path", r.URL.Path)
			if !rw.Written() {
				writeError(rw, r, errors.New(errors.ErrCodeInternal, "internal server error"))
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// =============================================================================
// Rate Limiting
// =============================================================================

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	clients  map[string]*clientEntry
	lastScan time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idleClient is how long an unused bucket is kept.
const idleClient = 10 * time.Minute

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = max(1, int(math.Ceil(perSecond)))
	}
	return &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*clientEntry),
	}
}

func (c *clientLimiter) get(client string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastScan) > idleClient {
		for k, e := range c.clients {
			if now.Sub(e.lastSeen) > idleClient {
				delete(c.clients, k)
			}
		}
		c.lastScan = now
	}

	e, ok := c.clients[client]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = e
	}
	e.lastSeen = now
	return e.limiter
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		lim := s.limiter.get(clientKey(r), now)
		if !lim.AllowN(now, 1) {
			rateLimitRejects.Inc()
			retry := 1
			if s.limiter.limit > 0 {
				retry = max(1, int(math.Ceil(1/float64(s.limiter.limit))))
			}
			writeError(w, r, &errors.RateLimitedError{RetryAfter: retry})
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(s.limiter.limit), 'f', -1, 64))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.TokensAt(now))))
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Logging
// =============================================================================

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		logger := s.requestLogger(r.Context())

		logger.Debug("request started", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(rw, r)
		logger.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
