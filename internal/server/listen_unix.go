//go:build !windows

package server

import (
	"context"
	"net"
	"syscall"
)

// listenReusable binds addr with SO_REUSEADDR set, so a restarted proxy
// doesn't have to wait out TIME_WAIT on its own listening port.
func listenReusable(addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp", addr)
}
