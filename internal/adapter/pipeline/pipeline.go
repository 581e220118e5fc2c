// Package pipeline implements per-request orchestration: method dispatch,
// cache lookup, origin fetch and CONNECT tunnel establishment.
package pipeline

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/flynnbui/go-proxy/internal/adapter/dialer"
	"github.com/flynnbui/go-proxy/internal/adapter/framing"
	"github.com/flynnbui/go-proxy/internal/adapter/transform"
	"github.com/flynnbui/go-proxy/internal/adapter/urltools"
	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
	"github.com/flynnbui/go-proxy/internal/core/ports"
)

// Tunnel carries the established origin connection for a successful CONNECT,
// for the server's relay loop to drive. The pipeline never reads or writes
// tunnel payload bytes itself.
type Tunnel struct {
	OriginConn net.Conn
}

// Result is everything the per-connection loop needs to write a response,
// record a transaction event, and decide whether to enter tunnel mode.
type Result struct {
	// Response is the wire-serialized bytes to write to the client. For a
	// successful CONNECT this is exactly the "200 Connection Established"
	// line; the caller writes it, then hands off to Tunnel.
	Response          []byte
	StatusCode        int
	CacheTag          domain.CacheTag
	ResponseBodyBytes int64
	Origin            string
	ErrorKind         domain.ErrorKind // empty on success
	Tunnel            *Tunnel
}

// Pipeline dispatches one parsed request per call, consulting the cache,
// URL tools, transformer and origin dialer as the method requires.
type Pipeline struct {
	Cache       ports.Cache
	Dialer      ports.Dialer
	ProxyID     string
	ListenPort  int
	IdleTimeout time.Duration

	// coalesce collapses concurrent GET misses for the same cache key into
	// one origin fetch, so a burst of requests for an uncached URL doesn't
	// open one connection per request. Zero value is ready to use.
	coalesce singleflight.Group
}

// New constructs a Pipeline. A *dialer.OriginDialer satisfies ports.Dialer;
// passing the concrete type here keeps callers from having to import it
// themselves just to build one.
func New(cache ports.Cache, originDialer *dialer.OriginDialer, proxyID string, listenPort int, idleTimeout time.Duration) *Pipeline {
	return &Pipeline{
		Cache:       cache,
		Dialer:      originDialer,
		ProxyID:     proxyID,
		ListenPort:  listenPort,
		IdleTimeout: idleTimeout,
	}
}

// Handle dispatches req, enforcing the pipeline's wall-clock deadline of
// IdleTimeout-1s. If the deadline fires, it cancels any in-flight origin
// work by closing the origin socket and yields 504.
func (p *Pipeline) Handle(ctx context.Context, req *domain.Request) *Result {
	deadline := p.IdleTimeout - time.Second
	if deadline <= 0 {
		deadline = time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var connMu sync.Mutex
	var originConn net.Conn
	register := func(c net.Conn) {
		connMu.Lock()
		originConn = c
		connMu.Unlock()
	}

	done := make(chan *Result, 1)
	go func() {
		done <- p.dispatch(dctx, req, register)
	}()

	select {
	case res := <-done:
		return res
	case <-dctx.Done():
		connMu.Lock()
		if originConn != nil {
			_ = originConn.Close()
		}
		connMu.Unlock()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return p.finish(errorResponse(domain.KindOriginTimeout, "request exceeded pipeline deadline"), domain.CacheTagNone, domain.KindOriginTimeout, "")
	}
}

func (p *Pipeline) dispatch(ctx context.Context, req *domain.Request, register func(net.Conn)) *Result {
	switch req.Method {
	case "GET":
		return p.handleGet(ctx, req, register)
	case "HEAD", "POST":
		return p.handleForward(ctx, req, register)
	case "CONNECT":
		return p.handleConnect(ctx, req, register)
	default:
		return p.finish(errorResponse(domain.KindBadRequest, "unsupported method "+req.Method), domain.CacheTagNone, domain.KindBadRequest, "")
	}
}

func (p *Pipeline) handleGet(ctx context.Context, req *domain.Request, register func(net.Conn)) *Result {
	key := urltools.NormalizeURL(req.Target)

	if ce, found := p.Cache.Get(key); found {
		cached := &domain.Response{StatusCode: ce.StatusCode, Reason: "OK", Version: "HTTP/1.1", Header: ce.Header.Clone(), Body: ce.Body}
		out := transform.ForClient(cached, req, p.ProxyID)
		return p.finish(out, domain.CacheTagHit, "", key)
	}

	target, err := urltools.ParseAbsoluteURL(req.Target)
	if err != nil {
		return p.finish(errorResponse(domain.KindBadRequest, "malformed absolute-form target"), domain.CacheTagMiss, domain.KindBadRequest, "")
	}
	if urltools.IsSelfLoop(target.Hostname, target.Port, p.ListenPort) {
		return p.finish(errorResponse(domain.KindSelfLoop, "target resolves to this proxy"), domain.CacheTagMiss, domain.KindSelfLoop, target.Hostname)
	}

	// Concurrent misses for the same key share one origin fetch: the first
	// caller in dials and populates the cache, later callers piggyback on
	// its result instead of each opening their own connection.
	v, err, _ := p.coalesce.Do(key, func() (interface{}, error) {
		resp, ferr := p.fetchFromOrigin(ctx, req, target, register)
		if ferr != nil {
			return nil, ferr
		}
		if isAdmissible(req, resp) {
			p.Cache.Put(&domain.CacheEntry{
				Key:        key,
				StatusCode: resp.StatusCode,
				Header:     resp.Header.Clone(),
				Body:       resp.Body,
				SizeBytes:  int64(len(resp.Body)),
			})
		}
		return resp, nil
	})
	if err != nil {
		return p.finish(errorResponse(domain.KindOf(err), err.Error()), domain.CacheTagMiss, domain.KindOf(err), target.Hostname)
	}

	out := transform.ForClient(v.(*domain.Response), req, p.ProxyID)
	return p.finish(out, domain.CacheTagMiss, "", target.Hostname)
}

// handleForward services HEAD/POST: identical to a GET miss but the cache is
// never consulted and never written to.
func (p *Pipeline) handleForward(ctx context.Context, req *domain.Request, register func(net.Conn)) *Result {
	target, err := urltools.ParseAbsoluteURL(req.Target)
	if err != nil {
		return p.finish(errorResponse(domain.KindBadRequest, "malformed absolute-form target"), domain.CacheTagNone, domain.KindBadRequest, "")
	}
	if urltools.IsSelfLoop(target.Hostname, target.Port, p.ListenPort) {
		return p.finish(errorResponse(domain.KindSelfLoop, "target resolves to this proxy"), domain.CacheTagNone, domain.KindSelfLoop, target.Hostname)
	}

	originResp, err := p.fetchFromOrigin(ctx, req, target, register)
	if err != nil {
		return p.finish(errorResponse(domain.KindOf(err), err.Error()), domain.CacheTagNone, domain.KindOf(err), target.Hostname)
	}

	out := transform.ForClient(originResp, req, p.ProxyID)
	return p.finish(out, domain.CacheTagNone, "", target.Hostname)
}

func (p *Pipeline) handleConnect(ctx context.Context, req *domain.Request, register func(net.Conn)) *Result {
	hostname, port, err := urltools.ParseAuthorityForm(req.Target)
	if err != nil {
		return p.finish(errorResponse(domain.KindBadRequest, "malformed CONNECT target"), domain.CacheTagNone, domain.KindBadRequest, "")
	}
	if urltools.IsSelfLoop(hostname, port, p.ListenPort) {
		return p.finish(errorResponse(domain.KindSelfLoop, "target resolves to this proxy"), domain.CacheTagNone, domain.KindSelfLoop, hostname)
	}
	if port != constants.ConnectAllowedPort {
		return p.finish(errorResponse(domain.KindBadRequest, "CONNECT only permitted to port 443"), domain.CacheTagNone, domain.KindBadRequest, hostname)
	}

	conn, err := p.Dialer.Dial(ctx, hostname, port)
	if err != nil {
		return p.finish(errorResponse(domain.KindOf(err), err.Error()), domain.CacheTagNone, domain.KindOf(err), hostname)
	}
	register(conn)

	return &Result{
		Response:   []byte(constants.ConnectSuccessLine),
		StatusCode: 200,
		CacheTag:   domain.CacheTagNone,
		Origin:     hostname,
		Tunnel:     &Tunnel{OriginConn: conn},
	}
}

// fetchFromOrigin dials target, forwards the transformed request, and reads
// back the transformed-for-wire response. register is invoked with the
// origin connection as soon as it is established so Handle's deadline
// watcher can close it out from under a blocked read/write.
func (p *Pipeline) fetchFromOrigin(ctx context.Context, req *domain.Request, target urltools.Target, register func(net.Conn)) (*domain.Response, error) {
	conn, err := p.Dialer.Dial(ctx, target.Hostname, target.Port)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	register(conn)

	outReq := transform.ForOrigin(req, target, p.ProxyID)
	if err := framing.WriteRequest(conn, outReq); err != nil {
		return nil, domain.NewProxyError(classifyIOErr(err), "pipeline.fetchFromOrigin", err)
	}

	sr := framing.NewStreamReader(conn)
	resp, err := framing.ParseResponse(sr, req.Method)
	if err != nil {
		return nil, domain.NewProxyError(classifyIOErr(err), "pipeline.fetchFromOrigin", err)
	}
	return resp, nil
}

func classifyIOErr(err error) domain.ErrorKind {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return domain.KindOriginTimeout
	}
	return domain.KindOriginIO
}

// isAdmissible mirrors cache.IsAdmissible's status check plus the GET-method
// rule, which only the pipeline, not the cache, has the request to evaluate.
// The max_object_bytes bound is checked by Cache.Put itself.
func isAdmissible(req *domain.Request, resp *domain.Response) bool {
	return req.Method == "GET" && resp.StatusCode == 200
}

func (p *Pipeline) finish(resp *domain.Response, tag domain.CacheTag, kind domain.ErrorKind, origin string) *Result {
	return &Result{
		Response:          framing.SerializeResponse(resp),
		StatusCode:        resp.StatusCode,
		CacheTag:          tag,
		ResponseBodyBytes: int64(len(resp.Body)),
		Origin:            origin,
		ErrorKind:         kind,
	}
}
