package urltools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAbsoluteURL(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		want    Target
		wantErr bool
	}{
		{"http default port", "http://example.com/path?q=1", Target{Scheme: "http", Hostname: "example.com", Port: 80, PathWithQuery: "/path?q=1"}, false},
		{"https default port", "https://example.com/path", Target{Scheme: "https", Hostname: "example.com", Port: 443, PathWithQuery: "/path"}, false},
		{"explicit port", "http://example.com:8080/path", Target{Scheme: "http", Hostname: "example.com", Port: 8080, PathWithQuery: "/path"}, false},
		{"no path defaults to root", "http://example.com", Target{Scheme: "http", Hostname: "example.com", Port: 80, PathWithQuery: "/"}, false},
		{"fragment stripped", "http://example.com/path#section", Target{Scheme: "http", Hostname: "example.com", Port: 80, PathWithQuery: "/path"}, false},
		{"missing scheme", "example.com/path", Target{}, true},
		{"ftp scheme rejected", "ftp://example.com/path", Target{}, true},
		{"empty host", "http:///path", Target{}, true},
		{"bad port", "http://example.com:abc/path", Target{}, true},
		{"uppercase scheme rejected", "HTTP://example.com/path", Target{}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseAbsoluteURL(c.target)
			if c.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseAuthorityForm(t *testing.T) {
	host, port, err := ParseAuthorityForm("example.com:443")
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 443, port)

	_, _, err = ParseAuthorityForm("http://example.com:443")
	assert.Error(t, err, "absolute-form input must be rejected")

	_, _, err = ParseAuthorityForm("example.com")
	assert.Error(t, err, "missing port must be rejected")

	_, _, err = ParseAuthorityForm("example.com:notaport")
	assert.Error(t, err)

	_, _, err = ParseAuthorityForm(":443")
	assert.Error(t, err, "empty hostname must be rejected")
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name   string
		target string
		want   string
	}{
		{"lowercases scheme and host", "HTTP://Example.COM/path", "http://example.com/path"},
		{"drops default http port", "http://example.com:80/path", "http://example.com/path"},
		{"drops default https port", "https://example.com:443/path", "https://example.com/path"},
		{"keeps non-default port", "http://example.com:8080/path", "http://example.com:8080/path"},
		{"empty path becomes root", "http://example.com", "http://example.com/"},
		{"preserves query", "http://example.com/path?a=1&b=2", "http://example.com/path?a=1&b=2"},
		{"unparseable input returned unchanged", "not-a-url", "not-a-url"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, NormalizeURL(c.target))
		})
	}
}

// NormalizeURL must be idempotent: normalizing an already-normalized key
// reproduces it exactly, since the cache uses this as its lookup key.
func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTP://Example.COM:80/path?q=1",
		"https://Example.com:443/",
		"http://example.com:8080/a/b?x=y",
		"not-a-url",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		twice := NormalizeURL(once)
		assert.Equal(t, once, twice, "NormalizeURL(NormalizeURL(%q)) must equal NormalizeURL(%q)", in, in)
	}
}

func TestIsSelfLoop(t *testing.T) {
	assert.True(t, IsSelfLoop("localhost", 8080, 8080))
	assert.True(t, IsSelfLoop("LOCALHOST", 8080, 8080))
	assert.True(t, IsSelfLoop("127.0.0.1", 8080, 8080))
	assert.False(t, IsSelfLoop("127.0.0.1", 9090, 8080), "different port is not a self loop")
	assert.False(t, IsSelfLoop("example.com", 8080, 8080), "different hostname is not a self loop")
}
