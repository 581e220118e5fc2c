// Package server implements the proxy's acceptor loop, fixed worker pool,
// per-connection request loop and tunnel relay: a fixed goroutine count
// draining a job channel against a stop channel plus WaitGroup.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/flynnbui/go-proxy/internal/adapter/framing"
	"github.com/flynnbui/go-proxy/internal/adapter/pipeline"
	"github.com/flynnbui/go-proxy/internal/adapter/transform"
	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
	"github.com/flynnbui/go-proxy/internal/core/ports"
	"github.com/flynnbui/go-proxy/internal/logger"
)

// Server binds a listening socket and drives the accept -> dispatch ->
// per-connection loop pipeline described by the proxy's concurrency model.
type Server struct {
	host            string
	port            int
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	workerPoolSize  int

	pipeline *pipeline.Pipeline
	events   ports.EventPublisher
	stats    *domain.ConnectionStats
	log      *logger.StyledLogger

	listener net.Listener
	connCh   chan net.Conn
	tunnels  *tunnelPool

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// Config bundles the constructor's scalar parameters.
type Config struct {
	Host            string
	Port            int
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	WorkerPoolSize  int
}

// New constructs a Server. It does not bind a socket until Start is called.
func New(cfg Config, p *pipeline.Pipeline, events ports.EventPublisher, stats *domain.ConnectionStats, log *logger.StyledLogger) *Server {
	workerPoolSize := cfg.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = constants.DefaultWorkerPoolSize
	}

	return &Server{
		host:            cfg.Host,
		port:            cfg.Port,
		idleTimeout:     cfg.IdleTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		workerPoolSize:  workerPoolSize,
		pipeline:        p,
		events:          events,
		stats:           stats,
		log:             log,
		connCh:          make(chan net.Conn, workerPoolSize*4),
		tunnels:         newTunnelPool(log),
		stopCh:          make(chan struct{}),
	}
}

// Start binds the listening socket (reusing the address) and launches the
// acceptor and the fixed worker pool. It returns once the socket is bound;
// the accept loop and workers run in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	ln, err := listenReusable(addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.started = true

	for i := 0; i < s.workerPoolSize; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info("server listening", "addr", addr, "workers", s.workerPoolSize)
	return nil
}

// Stop closes the listener (unblocking Accept), signals workers to drain,
// and waits up to shutdownTimeout for in-flight connections to finish before
// returning regardless.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdownTimeout):
		s.log.Warn("shutdown grace period elapsed, forcing exit", "timeout", s.shutdownTimeout)
	}

	s.tunnels.stop(s.shutdownTimeout)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.log.Warn("accept failed", "error", err)
				continue
			}
		}

		select {
		case s.connCh <- conn:
		case <-s.stopCh:
			_ = conn.Close()
			return
		}
	}
}

func (s *Server) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case conn := <-s.connCh:
			s.serveConnection(conn)
		}
	}
}

// serveConnection runs the per-connection persistent-request loop: read one
// request, dispatch through the pipeline, write the response, emit a
// transaction event, then decide whether to keep the connection open.
func (s *Server) serveConnection(conn net.Conn) {
	s.stats.ActiveConnections.Add(1)
	s.stats.TotalConnections.Add(1)
	tunneled := false
	defer func() {
		s.stats.ActiveConnections.Add(-1)
		// A handed-off tunnel owns conn's lifetime from here; closing it
		// here too would race the relay goroutines still using it.
		if !tunneled {
			_ = conn.Close()
		}
	}()

	sr := framing.NewStreamReader(conn)
	remoteHost, remotePortStr, _ := net.SplitHostPort(conn.RemoteAddr().String())
	remotePort, _ := strconv.Atoi(remotePortStr)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return
		}

		start := time.Now()
		req, parseErr := framing.ParseRequest(sr)
		if parseErr != nil {
			if isTimeoutErr(parseErr) {
				return // idle keep-alive timeout: normal end of connection
			}
			if isEOFErr(parseErr) {
				return // client closed or reset
			}
			s.writeBadRequest(conn)
			s.log.WarnWithOrigin("malformed request", remoteHost, "error", parseErr)
			return
		}
		req.RemoteAddr = conn.RemoteAddr().String()

		s.stats.TotalRequests.Add(1)

		result := s.pipeline.Handle(context.Background(), req)
		if result.ErrorKind != "" {
			s.stats.TotalErrors.Add(1)
		}

		if len(result.Response) > 0 {
			if _, err := conn.Write(result.Response); err != nil {
				return
			}
		}

		s.emitEvent(req, result, remoteHost, remotePort, result.CacheTag, start)

		if result.Tunnel != nil {
			s.stats.TotalTunnels.Add(1)
			tunneled = true
			s.tunnels.relay(conn, result.Tunnel.OriginConn)
			return
		}

		// errorResponse always writes Connection: close regardless of what
		// the request asked for, so the loop must honor that over req's own
		// persistence signal or the wire header and actual behavior diverge.
		if result.ErrorKind != "" || !s.shouldPersist(req) {
			return
		}
	}
}

func (s *Server) shouldPersist(req *domain.Request) bool {
	return transform.DerivePersistence(req) == transform.PersistKeepAlive
}

func (s *Server) emitEvent(req *domain.Request, res *pipeline.Result, remoteHost string, remotePort int, cacheTag domain.CacheTag, start time.Time) {
	if s.events == nil {
		return
	}
	s.events.PublishAsync(domain.TransactionEvent{
		Timestamp:         start,
		ClientIP:          remoteHost,
		ClientPort:        remotePort,
		RequestLine:       req.Method + " " + req.Target + " " + req.Version,
		CacheTag:          cacheTag,
		StatusCode:        statusFromResponse(res.Response),
		ResponseBodyBytes: res.ResponseBodyBytes,
		Duration:          time.Since(start),
		Origin:            res.Origin,
		ErrorKind:         res.ErrorKind,
	})
}

func (s *Server) writeBadRequest(conn net.Conn) {
	body := []byte("Error 400: Bad Request\n\nmalformed request line or headers")
	resp := "HTTP/1.1 400 Bad Request\r\nContent-Type: text/plain\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\nConnection: close\r\n\r\n" + string(body)
	_, _ = conn.Write([]byte(resp))
}

func isTimeoutErr(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func isEOFErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe)
}

// statusFromResponse parses the status code back out of the response's
// first line, defaulting to 502 if parsing fails (per spec).
func statusFromResponse(resp []byte) int {
	idx := bytes.Index(resp, []byte("\r\n"))
	if idx < 0 {
		return 502
	}
	_, status, _, err := framing.ParseStatusLine(string(resp[:idx]))
	if err != nil {
		return 502
	}
	return status
}
