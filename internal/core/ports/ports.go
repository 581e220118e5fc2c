// Package ports declares the interfaces the server and pipeline depend on,
// letting the cache, dialer and framing implementations be swapped or
// mocked independently of core orchestration.
package ports

import (
	"context"
	"net"

	"github.com/flynnbui/go-proxy/internal/core/domain"
)

// Cache is the bounded LRU contract used by the pipeline for GET responses.
type Cache interface {
	Get(key string) (*domain.CacheEntry, bool)
	Put(entry *domain.CacheEntry) bool
	Stats() domain.CacheStats
	Clear()
}

// Dialer resolves and connects to an origin, returning a classified
// *domain.ProxyError on failure.
type Dialer interface {
	Dial(ctx context.Context, hostname string, port int) (net.Conn, error)
}

// EventPublisher is the narrow slice of pkg/eventbus.EventBus the server
// needs, letting it depend on an interface rather than the generic type
// directly.
type EventPublisher interface {
	PublishAsync(event domain.TransactionEvent)
}
