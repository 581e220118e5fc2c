package framing

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
)

func TestParseRequestLine(t *testing.T) {
	method, target, version, err := ParseRequestLine("GET http://example.com/ HTTP/1.1")
	require.NoError(t, err)
	assert.Equal(t, "GET", method)
	assert.Equal(t, "http://example.com/", target)
	assert.Equal(t, "HTTP/1.1", version)

	_, _, _, err = ParseRequestLine("GET http://example.com/")
	assert.Error(t, err, "missing version field must be rejected")

	_, _, _, err = ParseRequestLine("get http://example.com/ HTTP/1.1")
	assert.Error(t, err, "lowercase method must be rejected")
}

func TestParseStatusLine(t *testing.T) {
	version, status, reason, err := ParseStatusLine("HTTP/1.1 200 OK")
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1", version)
	assert.Equal(t, 200, status)
	assert.Equal(t, "OK", reason)

	// reason phrase is optional
	_, status, reason, err = ParseStatusLine("HTTP/1.1 204")
	require.NoError(t, err)
	assert.Equal(t, 204, status)
	assert.Equal(t, "", reason)

	_, _, _, err = ParseStatusLine("HTTP/1.1 bad")
	assert.Error(t, err)
}

// Round trip: a request parsed off the wire and re-serialized must produce
// an identical request when parsed again.
func TestRequest_ParseSerializeRoundTrip(t *testing.T) {
	original := &domain.Request{
		Method:  "POST",
		Target:  "http://example.com/submit?x=1",
		Version: "HTTP/1.1",
		Header:  domain.NewHeader(),
		Body:    []byte("field=value"),
	}
	original.Header.Set("Host", "example.com")
	original.Header.Set("Content-Length", "11")
	original.Header.Set("X-Custom", "abc")

	wire := SerializeRequest(original)

	client, server := net.Pipe()
	go func() {
		_, _ = server.Write(wire)
	}()
	defer client.Close()
	defer server.Close()

	sr := NewStreamReader(client)
	reparsed, err := ParseRequest(sr)
	require.NoError(t, err)

	assert.Equal(t, original.Method, reparsed.Method)
	assert.Equal(t, original.Target, reparsed.Target)
	assert.Equal(t, original.Version, reparsed.Version)
	assert.Equal(t, original.Body, reparsed.Body)
	for _, key := range []string{"Host", "Content-Length", "X-Custom"} {
		want, _ := original.Header.Get(key)
		got, ok := reparsed.Header.Get(key)
		require.True(t, ok, "expected header %q to survive the round trip", key)
		assert.Equal(t, want, got)
	}
}

func TestResponse_ParseSerializeRoundTrip(t *testing.T) {
	original := &domain.Response{
		Version:    "HTTP/1.1",
		StatusCode: 200,
		Reason:     "OK",
		Header:     domain.NewHeader(),
		Body:       []byte("hello world"),
	}
	original.Header.Set("Content-Length", "11")
	original.Header.Set("Content-Type", "text/plain")

	wire := SerializeResponse(original)

	client, server := net.Pipe()
	go func() {
		_, _ = server.Write(wire)
	}()
	defer client.Close()
	defer server.Close()

	sr := NewStreamReader(client)
	reparsed, err := ParseResponse(sr, "GET")
	require.NoError(t, err)

	assert.Equal(t, original.StatusCode, reparsed.StatusCode)
	assert.Equal(t, original.Reason, reparsed.Reason)
	assert.Equal(t, original.Body, reparsed.Body)
}

// A header block exceeding MaxHeaderBytes without ever reaching a terminator
// must yield ErrHeaderTooLarge, which the server translates to a 400.
func TestReadHeaderBlock_ExceedsMaxHeaderBytes(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("GET / HTTP/1.1\r\n"))
		// one oversized header line, no terminator, forces the bound to trip
		_, _ = server.Write([]byte("X-Huge: " + strings.Repeat("a", constants.MaxHeaderBytes+1)))
		server.Close()
	}()

	sr := NewStreamReader(client)
	_, err := sr.ReadHeaderBlock()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestReadHeaderBlock_AtBoundaryAccepted(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	// A block whose total length, terminator included, is exactly MaxHeaderBytes.
	prefix := "GET / HTTP/1.1\r\nX-Pad: "
	suffix := "\r\n\r\n"
	block := prefix + strings.Repeat("a", constants.MaxHeaderBytes-len(prefix)-len(suffix)) + suffix
	go func() {
		_, _ = server.Write([]byte(block))
	}()

	sr := NewStreamReader(client)
	got, err := sr.ReadHeaderBlock()
	require.NoError(t, err)
	assert.Equal(t, block, string(got))
}

// Chunked responses have no decoder: the degenerate policy collects raw
// bytes until the origin closes the connection and marks the body close
// delimited.
func TestParseResponse_ChunkedIsCloseDelimited(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"))
		_, _ = server.Write([]byte("5\r\nhello\r\n0\r\n\r\n"))
		server.Close()
	}()
	defer client.Close()

	sr := NewStreamReader(client)
	resp, err := ParseResponse(sr, "GET")
	require.NoError(t, err)

	assert.True(t, resp.CloseDelimited)
	assert.Equal(t, "5\r\nhello\r\n0\r\n\r\n", string(resp.Body), "raw chunk framing is preserved verbatim, not decoded")
}

func TestParseResponse_HeadHasNoBody(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"))
	}()
	defer client.Close()
	defer server.Close()

	sr := NewStreamReader(client)
	resp, err := ParseResponse(sr, "HEAD")
	require.NoError(t, err)
	assert.Empty(t, resp.Body)
}

func TestParseResponse_ConnectionCloseIsCloseDelimited(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nConnection: close\r\n\r\n"))
		_, _ = server.Write([]byte("trailing body bytes"))
		server.Close()
	}()
	defer client.Close()

	sr := NewStreamReader(client)
	resp, err := ParseResponse(sr, "GET")
	require.NoError(t, err)
	assert.True(t, resp.CloseDelimited)
	assert.Equal(t, "trailing body bytes", string(resp.Body))
}

func TestReadUntilClose_RespectsReducedTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	go func() {
		_, _ = client.Write([]byte("partial"))
		// deliberately never close; the reduced timeout must still return.
	}()

	sr := NewStreamReader(server)
	start := time.Now()
	body, err := sr.ReadUntilClose(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(body))
	assert.Less(t, time.Since(start), 2*time.Second)
}
