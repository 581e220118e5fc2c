// Package app wires the proxy's components together and owns the
// process-level Start/Stop lifecycle around the raw-socket server.
package app

import (
	"context"
	"fmt"

	"github.com/flynnbui/go-proxy/internal/adapter/cache"
	"github.com/flynnbui/go-proxy/internal/adapter/dialer"
	"github.com/flynnbui/go-proxy/internal/adapter/pipeline"
	"github.com/flynnbui/go-proxy/internal/config"
	"github.com/flynnbui/go-proxy/internal/core/domain"
	"github.com/flynnbui/go-proxy/internal/logger"
	"github.com/flynnbui/go-proxy/internal/server"
	"github.com/flynnbui/go-proxy/pkg/eventbus"
)

// Application owns every long-lived component: cache, dialer, pipeline,
// event bus, server, and the subscriber that logs transaction events.
type Application struct {
	cfg    *config.Config
	log    *logger.StyledLogger
	cache  *cache.Cache
	events *eventbus.EventBus[domain.TransactionEvent]
	stats  *domain.ConnectionStats
	srv    *server.Server

	cancelSubscriber context.CancelFunc
}

// New constructs every component but does not bind the listening socket.
func New(cfg *config.Config, log *logger.StyledLogger) (*Application, error) {
	c := cache.New(cfg.Cache.MaxObjectBytes, cfg.Cache.MaxCacheBytes)
	originDialer := dialer.New(cfg.Server.IdleTimeout, log)
	stats := &domain.ConnectionStats{}
	events := eventbus.New[domain.TransactionEvent]()

	p := pipeline.New(c, originDialer, cfg.Proxy.ProxyID, cfg.Server.ListenPort, cfg.Server.IdleTimeout)

	srv := server.New(server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.ListenPort,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		WorkerPoolSize:  cfg.Proxy.WorkerPoolSize,
	}, p, events, stats, log)

	return &Application{
		cfg:    cfg,
		log:    log,
		cache:  c,
		events: events,
		stats:  stats,
		srv:    srv,
	}, nil
}

// Start subscribes the transaction-event logger and binds the listening
// socket.
func (a *Application) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	a.cancelSubscriber = cancel
	a.runEventLogger(subCtx)

	if err := a.srv.Start(); err != nil {
		cancel()
		return fmt.Errorf("server start: %w", err)
	}

	a.log.Info("go-proxy started", "bind", fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.ListenPort))
	return nil
}

// Stop drains the server within its configured grace period, then shuts
// down the event bus and its logging subscriber.
func (a *Application) Stop(ctx context.Context) error {
	a.srv.Stop()
	if a.cancelSubscriber != nil {
		a.cancelSubscriber()
	}
	a.events.Shutdown()
	return nil
}

// Stats returns a snapshot of connection/request counters.
func (a *Application) Stats() domain.StatsSnapshot {
	return a.stats.Snapshot()
}

// CacheStats returns a snapshot of cache entries/bytes/hits/misses.
func (a *Application) CacheStats() domain.CacheStats {
	return a.cache.Stats()
}

// runEventLogger subscribes to the transaction event bus and logs one line
// per request, coloured by cache tag and status.
func (a *Application) runEventLogger(ctx context.Context) {
	ch, _ := a.events.Subscribe(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				a.logTransaction(ev)
			}
		}
	}()
}

func (a *Application) logTransaction(ev domain.TransactionEvent) {
	msg := a.log.With(
		"client", fmt.Sprintf("%s:%d", ev.ClientIP, ev.ClientPort),
		"request", ev.RequestLine,
		"body_bytes", ev.ResponseBodyBytes,
		"duration", ev.Duration,
	)
	if ev.Origin != "" {
		msg = msg.With("origin", ev.Origin)
	}
	if ev.ErrorKind != "" {
		msg.Warn("request completed with error", "kind", ev.ErrorKind, "status", ev.StatusCode)
		return
	}
	msg.InfoWithCacheTag("request completed", string(ev.CacheTag), "status", ev.StatusCode)
}
