package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynnbui/go-proxy/internal/adapter/cache"
	"github.com/flynnbui/go-proxy/internal/adapter/pipeline"
	"github.com/flynnbui/go-proxy/internal/core/domain"
	"github.com/flynnbui/go-proxy/internal/core/ports"
	"github.com/flynnbui/go-proxy/internal/logger"
)

func discardLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), logger.GetTheme("default"))
}

// fakeDialer substitutes an in-process TCP listener for a real origin, so
// end-to-end tests exercise the real accept/worker/pipeline/framing chain
// without reaching the network.
type fakeDialer struct {
	addr string
}

func (f *fakeDialer) Dial(ctx context.Context, hostname string, port int) (net.Conn, error) {
	return net.Dial("tcp", f.addr)
}

// startOrigin starts a listener that answers every accepted connection with
// a single canned HTTP/1.1 response, then closes it; it returns the address.
func startOrigin(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				_, _ = c.Read(buf) // drain the forwarded request
				_, _ = c.Write([]byte(response))
			}(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}

type noopEvents struct{}

func (noopEvents) PublishAsync(domain.TransactionEvent) {}

var _ ports.EventPublisher = noopEvents{}

func newTestServer(t *testing.T, originAddr string) (*Server, int) {
	t.Helper()
	c := cache.New(1<<20, 8<<20)
	p := &pipeline.Pipeline{
		Cache:       c,
		Dialer:      &fakeDialer{addr: originAddr},
		ProxyID:     "go-proxy-test",
		ListenPort:  0,
		IdleTimeout: 2 * time.Second,
	}

	srv := New(Config{
		Host:            "127.0.0.1",
		Port:            0,
		IdleTimeout:     2 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		WorkerPoolSize:  4,
	}, p, noopEvents{}, &domain.ConnectionStats{}, discardLogger())

	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	port := srv.listener.Addr().(*net.TCPAddr).Port
	p.ListenPort = port
	return srv, port
}

func dial(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	return conn
}

// readStatusLine reads and returns the status line from r, leaving r
// positioned at the start of the header block. Callers reusing a
// persistent connection must keep using the same *bufio.Reader for the
// whole connection, since bufio buffers ahead of what ReadString consumes.
func readStatusLine(t *testing.T, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSpace(line)
}

// drainHeadersAndBody reads header lines up to the blank line, then
// discards exactly contentLength bytes of body, using r as the single
// buffered view of the connection.
func drainHeadersAndBody(t *testing.T, r *bufio.Reader, contentLength int) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "" {
			break
		}
	}
	if contentLength > 0 {
		body := make([]byte, contentLength)
		_, err := io.ReadFull(r, body)
		require.NoError(t, err)
	}
}

func TestServer_Get_ProxiesToOrigin(t *testing.T) {
	originAddr := startOrigin(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	_, port := newTestServer(t, originAddr)

	conn := dial(t, port)
	defer conn.Close()

	_, err := conn.Write([]byte("GET http://example.com/ HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	status := readStatusLine(t, conn, r)
	assert.Equal(t, "HTTP/1.1 200 OK", status)
}

func TestServer_Get_SecondRequestHitsCache(t *testing.T) {
	originAddr := startOrigin(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	srv, port := newTestServer(t, originAddr)

	for i := 0; i < 2; i++ {
		conn := dial(t, port)
		_, err := conn.Write([]byte("GET http://example.com/cacheme HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
		require.NoError(t, err)
		r := bufio.NewReader(conn)
		status := readStatusLine(t, conn, r)
		assert.Equal(t, "HTTP/1.1 200 OK", status)
		conn.Close()
	}

	stats := srv.pipeline.Cache.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestServer_SelfLoop_Returns421(t *testing.T) {
	_, port := newTestServer(t, "127.0.0.1:1")
	conn := dial(t, port)
	defer conn.Close()

	target := fmt.Sprintf("http://127.0.0.1:%d/", port)
	_, err := conn.Write([]byte(fmt.Sprintf("GET %s HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: close\r\n\r\n", target)))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	status := readStatusLine(t, conn, r)
	assert.Equal(t, "HTTP/1.1 421 Misdirected Request", status)
}

func TestServer_Connect_WrongPort_Returns400(t *testing.T) {
	_, port := newTestServer(t, "127.0.0.1:1")
	conn := dial(t, port)
	defer conn.Close()

	_, err := conn.Write([]byte("CONNECT example.com:8080 HTTP/1.1\r\nHost: example.com:8080\r\n\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	status := readStatusLine(t, conn, r)
	assert.Equal(t, "HTTP/1.1 400 Bad Request", status)
}

func TestServer_UnsupportedMethod_Returns400(t *testing.T) {
	_, port := newTestServer(t, "127.0.0.1:1")
	conn := dial(t, port)
	defer conn.Close()

	_, err := conn.Write([]byte("TRACE http://example.com/ HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	status := readStatusLine(t, conn, r)
	assert.Equal(t, "HTTP/1.1 400 Bad Request", status)
}

func TestServer_KeepAlive_PersistsAcrossRequests(t *testing.T) {
	originAddr := startOrigin(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	_, port := newTestServer(t, originAddr)

	conn := dial(t, port)
	defer conn.Close()

	r := bufio.NewReader(conn)
	for i := 0; i < 2; i++ {
		_, err := conn.Write([]byte(fmt.Sprintf("GET http://example.com/keepalive%d HTTP/1.1\r\nHost: example.com\r\n\r\n", i)))
		require.NoError(t, err)

		status := readStatusLine(t, conn, r)
		assert.Equal(t, "HTTP/1.1 200 OK", status)
		drainHeadersAndBody(t, r, 2)
	}
}
