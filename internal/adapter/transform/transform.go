// Package transform implements the request/response rewrite rules applied
// when forwarding between client and origin: Via chaining, Host
// normalization, Connection/Proxy-Connection handling and persistence
// derivation.
package transform

import (
	"strconv"
	"strings"

	"github.com/flynnbui/go-proxy/internal/adapter/urltools"
	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
)

// ForOrigin rewrites req for forwarding to the resolved origin.
func ForOrigin(req *domain.Request, target urltools.Target, proxyID string) *domain.Request {
	out := &domain.Request{
		Method:     req.Method,
		Target:     target.PathWithQuery,
		Version:    req.Version,
		Body:       req.Body,
		RemoteAddr: req.RemoteAddr,
	}
	out.Header = req.Header.Clone()
	out.Header.Del(constants.HeaderProxyConnection)
	out.Header.Set(constants.HeaderConnection, constants.ConnectionClose)
	out.Header.Set(constants.HeaderHost, hostHeaderValue(target.Hostname, target.Port, target.Scheme))
	appendVia(out.Header, proxyID)
	return out
}

// ForClient rewrites resp for forwarding back to the client, given the
// triggering client request (used to derive persistence).
func ForClient(resp *domain.Response, clientReq *domain.Request, proxyID string) *domain.Response {
	out := &domain.Response{
		Version:        resp.Version,
		StatusCode:     resp.StatusCode,
		Reason:         resp.Reason,
		Body:           resp.Body,
		CloseDelimited: resp.CloseDelimited,
	}
	out.Header = resp.Header.Clone()
	out.Header.Del(constants.HeaderConnection)
	out.Header.Set(constants.HeaderConnection, string(DerivePersistence(clientReq)))
	appendVia(out.Header, proxyID)
	return out
}

// Persistence is the client-desired connection persistence.
type Persistence string

const (
	PersistKeepAlive Persistence = constants.ConnectionKeepAlive
	PersistClose     Persistence = constants.ConnectionClose
)

// DerivePersistence determines client-desired persistence from the client
// request: explicit Connection: keep-alive -> keep-alive; explicit
// Connection: close -> close; no explicit preference -> keep-alive iff the
// client is HTTP/1.1, else close.
func DerivePersistence(clientReq *domain.Request) Persistence {
	if clientReq == nil || clientReq.Header == nil {
		return PersistClose
	}
	if v, ok := clientReq.Header.Get(constants.HeaderConnection); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case constants.ConnectionKeepAlive:
			return PersistKeepAlive
		case constants.ConnectionClose:
			return PersistClose
		}
	}
	if clientReq.Version == "HTTP/1.1" {
		return PersistKeepAlive
	}
	return PersistClose
}

func hostHeaderValue(hostname string, port int, scheme string) string {
	defaultPort := constants.SchemeDefaultHTTP
	if scheme == "https" {
		defaultPort = constants.SchemeDefaultHTTPS
	}
	if port == defaultPort {
		return hostname
	}
	return hostname + ":" + strconv.Itoa(port)
}

func appendVia(h *domain.Header, proxyID string) {
	if existing, ok := h.Get(constants.HeaderVia); ok && existing != "" {
		h.Set(constants.HeaderVia, existing+", "+proxyID)
		return
	}
	h.Set(constants.HeaderVia, proxyID)
}
