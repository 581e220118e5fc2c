package dialer

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynnbui/go-proxy/internal/core/domain"
)

type nopLogger struct{}

func (nopLogger) Warn(msg string, args ...any) {}

func TestDial_Succeeds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)

	d := New(2*time.Second, nopLogger{})
	conn, err := d.Dial(context.Background(), host, port)
	require.NoError(t, err)
	defer conn.Close()
}

func TestDial_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // nothing listens here now; connecting must be refused

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)

	d := New(2*time.Second, nopLogger{})
	_, err = d.Dial(context.Background(), host, port)
	require.Error(t, err)

	var pe *domain.ProxyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, domain.KindConnectionRefused, pe.Kind)
}

// fakeTimeoutErr satisfies net.Error with Timeout() true, for exercising
// classifyDialError's branches without depending on real network timing.
type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestClassifyDialError(t *testing.T) {
	assert.Equal(t, domain.KindOriginTimeout, classifyDialError(fakeTimeoutErr{}))
	assert.Equal(t, domain.KindConnectionRefused, classifyDialError(syscall.ECONNREFUSED))
	assert.Equal(t, domain.KindNetworkUnreachable, classifyDialError(syscall.ENETUNREACH))
	assert.Equal(t, domain.KindNetworkUnreachable, classifyDialError(syscall.EHOSTUNREACH))
	assert.Equal(t, domain.KindOriginIO, classifyDialError(errors.New("some unclassified error")))
}
