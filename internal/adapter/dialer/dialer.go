// Package dialer resolves and connects to proxy origins, classifying
// failures into the proxy's closed ErrorKind set.
package dialer

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
)

// we disable Nagle's algorithm so small request/response frames aren't held
// up waiting for a fuller segment.
const setNoDelay = true

// OriginDialer resolves and connects to an origin with bounded waits and
// classified failures. It does not retry.
type OriginDialer struct {
	idleTimeout time.Duration
	logger      interface {
		Warn(msg string, args ...any)
	}
}

// New constructs an OriginDialer. idleTimeout bounds both the TCP connect
// and the read/write deadline installed on the returned connection.
func New(idleTimeout time.Duration, logger interface {
	Warn(msg string, args ...any)
}) *OriginDialer {
	return &OriginDialer{idleTimeout: idleTimeout, logger: logger}
}

// Dial resolves hostname and connects to hostname:port, returning a
// *domain.ProxyError with a classified Kind on failure.
func (d *OriginDialer) Dial(ctx context.Context, hostname string, port int) (net.Conn, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, constants.DNSResolveTimeout)
	defer cancel()

	if _, err := net.DefaultResolver.LookupHost(resolveCtx, hostname); err != nil {
		return nil, domain.NewProxyError(domain.KindResolveFailure, "dialer.Dial", err)
	}

	netDialer := &net.Dialer{Timeout: d.idleTimeout}
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))

	connectCtx, cancel2 := context.WithTimeout(ctx, d.idleTimeout)
	defer cancel2()

	conn, err := netDialer.DialContext(connectCtx, "tcp", addr)
	if err != nil {
		return nil, domain.NewProxyError(classifyDialError(err), "dialer.Dial", err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if terr := tcpConn.SetNoDelay(setNoDelay); terr != nil && d.logger != nil {
			d.logger.Warn("failed to set NoDelay", "err", terr)
		}
	}

	deadline := time.Now().Add(d.idleTimeout)
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	return conn, nil
}

func classifyDialError(err error) domain.ErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.KindOriginTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.KindConnectionRefused
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return domain.KindNetworkUnreachable
	}
	return domain.KindOriginIO
}
