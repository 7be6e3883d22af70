// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about serialization runs, document cache operations, and API
// requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The serializer core only ever talks to these interfaces, so it stays free of
// Prometheus or any other backend; pkg/api registers the Prometheus-backed
// implementations when the server starts.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetStreamHooks(&myStreamHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Stream().OnStreamStart(ctx, subject, view)
//	// ... emit entities ...
//	observability.Stream().OnStreamComplete(ctx, subject, emitted, elapsed, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Stream Hooks
// =============================================================================

// StreamHooks receives events from the serializer's stream orchestrator.
//
// Subject is a free-form description of what is being serialized, usually the
// request path or the queried type.
type StreamHooks interface {
	OnStreamStart(ctx context.Context, subject, view string)
	OnStreamComplete(ctx context.Context, subject string, emitted int, duration time.Duration, err error)

	// OnTruncated fires when the serialization budget ran out (or the context
	// was cancelled) after emitted entities.
	OnTruncated(ctx context.Context, subject string, emitted int, budget time.Duration)

	// OnPropertyError fires for every property that was omitted because
	// fetching, converting or emitting it failed.
	OnPropertyError(ctx context.Context, typeName, key string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request for a route pattern.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response status and latency.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)

	// OnError records a request that failed with err.
	OnError(ctx context.Context, method, route string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStreamHooks is a no-op implementation of StreamHooks.
type NoopStreamHooks struct{}

func (NoopStreamHooks) OnStreamStart(context.Context, string, string)                       {}
func (NoopStreamHooks) OnStreamComplete(context.Context, string, int, time.Duration, error) {}
func (NoopStreamHooks) OnTruncated(context.Context, string, int, time.Duration)             {}
func (NoopStreamHooks) OnPropertyError(context.Context, string, string, error)              {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	streamHooks StreamHooks = NoopStreamHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetStreamHooks registers custom stream hooks.
// This should be called once at application startup before any serialization.
func SetStreamHooks(h StreamHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		streamHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving requests.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Stream returns the registered stream hooks.
func Stream() StreamHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return streamHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	streamHooks = NoopStreamHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
