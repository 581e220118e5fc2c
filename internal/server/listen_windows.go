//go:build windows

package server

import "net"

// listenReusable binds addr. Windows' default SO_EXCLUSIVEADDRUSE-free
// behaviour already permits rebinding a just-closed port in most cases, so
// no extra socket option is set here.
func listenReusable(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
