package server

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/logger"
	"github.com/flynnbui/go-proxy/pkg/pool"
)

// relayBufPool recycles the byte slices copyDirection uses to pump a tunnel
// in each direction, avoiding one allocation per relay per direction.
var relayBufPool = pool.NewLitePool(func() []byte {
	return make([]byte, constants.TunnelBufferSize)
})

// tunnelPool runs CONNECT relay goroutines on their own small pool, distinct
// from the main worker pool, so keep-alive traffic cannot be starved by
// long-lived tunnels.
type tunnelPool struct {
	log *logger.StyledLogger
	sem chan struct{}
	wg  sync.WaitGroup
}

const maxConcurrentTunnels = 256

func newTunnelPool(log *logger.StyledLogger) *tunnelPool {
	return &tunnelPool{
		log: log,
		sem: make(chan struct{}, maxConcurrentTunnels),
	}
}

// relay hands client/origin off to the tunnel pool and returns immediately:
// the main worker that accepted this connection is freed to serve the next
// one, while the actual byte-pumping runs on tunnelPool's own goroutines
// bounded by its semaphore.
func (tp *tunnelPool) relay(client, origin net.Conn) {
	tp.wg.Add(1)
	go func() {
		defer tp.wg.Done()

		tp.sem <- struct{}{}
		defer func() { <-tp.sem }()

		defer client.Close()
		defer origin.Close()

		deadline := time.Now().Add(constants.TunnelTimeout)
		_ = client.SetDeadline(deadline)
		_ = origin.SetDeadline(deadline)

		done := make(chan struct{}, 2)
		go tp.copyDirection(origin, client, done)
		go tp.copyDirection(client, origin, done)

		<-done
		_ = client.Close()
		_ = origin.Close()
		<-done
	}()
}

func (tp *tunnelPool) copyDirection(dst, src net.Conn, done chan<- struct{}) {
	buf := relayBufPool.Get()
	defer relayBufPool.Put(buf)
	_, err := io.CopyBuffer(dst, src, buf)
	if err != nil && tp.log != nil {
		tp.log.Debug("tunnel relay direction closed", "error", err)
	}
	done <- struct{}{}
}

// stop waits up to timeout for any in-flight tunnels to finish relaying.
func (tp *tunnelPool) stop(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		tp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
