package framing

import (
	"bufio"
	"fmt"
	"net"
	"strconv"

	"github.com/flynnbui/go-proxy/internal/core/domain"
)

// SerializeRequest renders req to its wire form: strict CRLF line endings,
// headers in insertion order, followed by the body verbatim.
func SerializeRequest(req *domain.Request) []byte {
	var buf []byte
	buf = append(buf, req.Method...)
	buf = append(buf, ' ')
	buf = append(buf, req.Target...)
	buf = append(buf, ' ')
	buf = append(buf, req.Version...)
	buf = append(buf, "\r\n"...)

	if req.Header != nil {
		req.Header.Range(func(k, v string) {
			buf = append(buf, k...)
			buf = append(buf, ": "...)
			buf = append(buf, v...)
			buf = append(buf, "\r\n"...)
		})
	}
	buf = append(buf, "\r\n"...)
	buf = append(buf, req.Body...)
	return buf
}

// SerializeResponse renders resp to its wire form.
func SerializeResponse(resp *domain.Response) []byte {
	var buf []byte
	buf = append(buf, resp.Version...)
	buf = append(buf, ' ')
	buf = append(buf, strconv.Itoa(resp.StatusCode)...)
	buf = append(buf, ' ')
	buf = append(buf, resp.Reason...)
	buf = append(buf, "\r\n"...)

	if resp.Header != nil {
		resp.Header.Range(func(k, v string) {
			buf = append(buf, k...)
			buf = append(buf, ": "...)
			buf = append(buf, v...)
			buf = append(buf, "\r\n"...)
		})
	}
	buf = append(buf, "\r\n"...)
	buf = append(buf, resp.Body...)
	return buf
}

// WriteRequest serializes and flushes req onto conn.
func WriteRequest(conn net.Conn, req *domain.Request) error {
	return writeAll(conn, SerializeRequest(req))
}

// WriteResponse serializes and flushes resp onto conn.
func WriteResponse(conn net.Conn, resp *domain.Response) error {
	return writeAll(conn, SerializeResponse(resp))
}

func writeAll(conn net.Conn, buf []byte) error {
	bw := bufio.NewWriter(conn)
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("framing: write failed: %w", err)
	}
	return bw.Flush()
}
