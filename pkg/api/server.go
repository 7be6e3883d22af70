package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/graphwriter/pkg/buildinfo"
	"github.com/matzehuels/graphwriter/pkg/cache"
	"github.com/matzehuels/graphwriter/pkg/config"
	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	graphio "github.com/matzehuels/graphwriter/pkg/io"
	"github.com/matzehuels/graphwriter/pkg/serialize"
)

// Server serves one graph store.
type Server struct {
	store  *graph.Store
	cfg    *config.Config
	logger *log.Logger

	// base is the writer configuration before per-request overrides. Its
	// registry is shared so resolved serializers are memoized across requests.
	base serialize.Options

	cache        cache.Cache
	cacheEnabled bool
	keyer        cache.Keyer
	graphHash    string

	limiter *clientLimiter
	handler http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithCache uses c for rendered documents instead of the backend named in the
// configuration. A nil c disables caching.
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		if c == nil {
			c = cache.NewNullCache()
		}
		s.cache = c
	}
}

// WithKeyer replaces the default cache keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(s *Server) { s.keyer = k }
}

// WithGraphHash sets the identity of the served document used in cache keys.
// By default the hash of the exported store is used.
func WithGraphHash(hash string) Option {
	return func(s *Server) { s.graphHash = hash }
}

// New creates a server for store. A nil cfg uses [config.Default] and a nil
// logger uses log.Default().
func New(store *graph.Store, cfg *config.Config, logger *log.Logger, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil store")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{store: store, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	s.base = cfg.Writer.Options()
	s.base.KeyResolver = store.Schema()
	s.base.Registry = serialize.NewRegistry()
	s.base.Logger = logger

	if s.cache == nil {
		c, err := OpenCache(context.Background(), cfg.Cache)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	_, null := s.cache.(*cache.NullCache)
	s.cacheEnabled = !null
	if s.cacheEnabled {
		s.cache = cache.NewInstrumented(s.cache, "document")
		if s.keyer == nil {
			s.keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Scope())
		}
		if s.graphHash == "" {
			var buf bytes.Buffer
			if err := graphio.WriteJSON(store, &buf); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "hash graph")
			}
			s.graphHash = cache.Hash(buf.Bytes())
		}
	}

	if cfg.Server.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.Server.RateLimit, cfg.Server.Burst)
	}

	installHooks()
	s.handler = s.routes()
	return s, nil
}

// OpenCache opens the backend selected by cfg.
func OpenCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.BackendFile:
		dir := cfg.Dir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "no cache directory configured")
			}
			dir = filepath.Join(base, "graphwriter", "documents")
		}
		return cache.NewFileCache(dir)
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	}
	return cache.NewNullCache(), nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.metricsMiddleware)
	r.Use(s.requestIDMiddleware)
	r.Use(s.panicRecoveryMiddleware)
	r.Use(s.loggingMiddleware)

	// System endpoints (no rate limiting)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Get("/{type}", s.handleList)
		r.Get("/{type}/{id}", s.handleGet)
		r.Get("/{type}/{id}/{key}", s.handleAttribute)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errors.New(errors.ErrCodeNotFound, "no route for %s", r.URL.Path))
	})
	return r
}

// routePattern returns the matched chi pattern of r, e.g. "/v1/{type}/{id}".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "listen on %s", s.cfg.Server.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. The cache is closed
// when Serve returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: time.Duration(s.cfg.Server.ReadHeaderTimeout),
	}
	defer s.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving", "addr", ln.Addr().String(), "nodes", s.store.Len())
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Server.ShutdownTimeout))
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the document cache.
func (s *Server) Close() error {
	return s.cache.Close()
}
