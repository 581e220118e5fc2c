// Package constants holds wire-level limits and header names shared across
// the framing, transform and pipeline packages.
package constants

import "time"

const (
	// MaxHeaderBytes bounds the header block read from any socket (client or origin).
	MaxHeaderBytes = 65536

	// DNSResolveTimeout bounds name resolution performed by the origin dialer.
	DNSResolveTimeout = 3 * time.Second

	// CloseDelimitedReadTimeout is the reduced read timeout applied while
	// draining a close-delimited response body, so a quiet origin doesn't
	// hang the worker for the full idle timeout.
	CloseDelimitedReadTimeout = 2 * time.Second

	// TunnelTimeout bounds the overall lifetime of a CONNECT tunnel.
	TunnelTimeout = 5 * time.Minute

	// TunnelBufferSize is the per-direction relay buffer size for tunnels.
	TunnelBufferSize = 4 * 1024

	// DefaultWorkerPoolSize is the fixed number of connection-serving workers.
	DefaultWorkerPoolSize = 30

	// ConnectSuccessLine is written verbatim to the client when a CONNECT
	// tunnel is established.
	ConnectSuccessLine = "HTTP/1.1 200 Connection Established\r\n\r\n"

	// SchemeDefaultHTTP and SchemeDefaultHTTPS are the default ports implied
	// by their schemes, used when normalizing Host headers and cache keys.
	SchemeDefaultHTTP  = 80
	SchemeDefaultHTTPS = 443

	// ConnectAllowedPort is the only port a CONNECT target may name.
	ConnectAllowedPort = 443
)

// Header names, canonical casing used when the proxy itself sets a header.
// Lookups against parsed headers are always case-insensitive regardless.
const (
	HeaderHost            = "Host"
	HeaderConnection      = "Connection"
	HeaderProxyConnection = "Proxy-Connection"
	HeaderVia             = "Via"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderTransferEncoding = "Transfer-Encoding"

	ConnectionKeepAlive = "keep-alive"
	ConnectionClose     = "close"

	ChunkedEncoding = "chunked"
)
