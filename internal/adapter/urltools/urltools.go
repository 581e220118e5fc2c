// Package urltools parses and normalizes request targets: absolute-form
// URLs for GET/HEAD/POST, authority-form targets for CONNECT, and the
// normalized cache-key form used by the cache.
package urltools

import (
	"strconv"
	"strings"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
)

// Target is a parsed (scheme, hostname, port, path_with_query) tuple.
type Target struct {
	Scheme        string
	Hostname      string
	Port          int
	PathWithQuery string
}

// ParseAbsoluteURL parses an absolute-form target ("http://host[:port]/path?query").
// Requires a case-sensitive http:// or https:// prefix.
func ParseAbsoluteURL(target string) (Target, error) {
	var scheme string
	var rest string
	switch {
	case strings.HasPrefix(target, "http://"):
		scheme = "http"
		rest = target[len("http://"):]
	case strings.HasPrefix(target, "https://"):
		scheme = "https"
		rest = target[len("https://"):]
	default:
		return Target{}, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAbsoluteURL", nil)
	}

	// strip fragment
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		rest = rest[:idx]
	}

	hostport := rest
	path := "/"
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		hostport = rest[:idx]
		path = rest[idx:]
	}
	if hostport == "" {
		return Target{}, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAbsoluteURL", nil)
	}

	hostname, port, err := splitHostPort(hostport, defaultPortFor(scheme))
	if err != nil {
		return Target{}, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAbsoluteURL", err)
	}
	if hostname == "" {
		return Target{}, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAbsoluteURL", nil)
	}

	return Target{Scheme: scheme, Hostname: hostname, Port: port, PathWithQuery: path}, nil
}

// ParseAuthorityForm parses a CONNECT target ("host:port"). Rejects inputs
// that look like absolute-form URLs.
func ParseAuthorityForm(target string) (hostname string, port int, err error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return "", 0, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAuthorityForm", nil)
	}
	idx := strings.LastIndexByte(target, ':')
	if idx <= 0 || idx == len(target)-1 {
		return "", 0, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAuthorityForm", nil)
	}
	hostname = target[:idx]
	portStr := target[idx+1:]
	p, convErr := strconv.Atoi(portStr)
	if convErr != nil || p < 1 || p > 65535 {
		return "", 0, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAuthorityForm", convErr)
	}
	if hostname == "" {
		return "", 0, domain.NewProxyError(domain.KindBadRequest, "urltools.ParseAuthorityForm", nil)
	}
	return hostname, p, nil
}

// NormalizeURL produces the cache key for a GET target: lowercased scheme
// and hostname, default port dropped, empty path normalized to "/", query
// preserved verbatim, fragment dropped. Idempotent. On parse failure,
// returns target unchanged so unparseable inputs still have stable keys.
func NormalizeURL(target string) string {
	// The scheme prefix is matched case-insensitively here, unlike in
	// ParseAbsoluteURL, so that it can be lowercased into the key.
	lowered := target
	for _, prefix := range []string{"http://", "https://"} {
		if len(target) >= len(prefix) && strings.EqualFold(target[:len(prefix)], prefix) {
			lowered = prefix + target[len(prefix):]
			break
		}
	}
	t, err := ParseAbsoluteURL(lowered)
	if err != nil {
		return target
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(t.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(t.Hostname))
	if t.Port != defaultPortFor(t.Scheme) {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(t.Port))
	}
	if t.PathWithQuery == "" {
		b.WriteString("/")
	} else {
		b.WriteString(t.PathWithQuery)
	}
	return b.String()
}

// IsSelfLoop reports whether hostname:port names the proxy's own listener.
func IsSelfLoop(hostname string, port, listenPort int) bool {
	if port != listenPort {
		return false
	}
	return strings.EqualFold(hostname, "localhost") || hostname == "127.0.0.1"
}

func defaultPortFor(scheme string) int {
	if scheme == "https" {
		return constants.SchemeDefaultHTTPS
	}
	return constants.SchemeDefaultHTTP
}

// splitHostPort splits "host[:port]" defaulting port when absent.
func splitHostPort(hostport string, defaultPort int) (string, int, error) {
	if idx := strings.LastIndexByte(hostport, ':'); idx >= 0 {
		host := hostport[:idx]
		portStr := hostport[idx+1:]
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 1 || p > 65535 {
			return "", 0, err
		}
		return host, p, nil
	}
	return hostport, defaultPort, nil
}
