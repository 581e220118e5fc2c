// Package framing implements byte-accurate HTTP/1.x wire reading, parsing
// and serialization: StreamReader pulls bytes off a socket respecting the
// header/body boundary and idle timeouts, MessageParser turns a header
// block into a structured message, and MessageWriter serializes a message
// back to wire form.
package framing

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"time"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/pkg/pool"
)

// closeBufPool recycles the chunk buffers ReadUntilClose uses to drain a
// close-delimited body, avoiding one allocation per read per request.
var closeBufPool = pool.NewLitePool(func() []byte {
	return make([]byte, constants.TunnelBufferSize)
})

// StreamReader wraps a stream socket with an internal byte buffer and
// exposes the three read primitives the parser needs: a bounded header-block
// read, an exact-count body read, and a close-terminated body read.
type StreamReader struct {
	conn net.Conn
	br   *bufio.Reader
}

// NewStreamReader wraps conn for buffered reading.
func NewStreamReader(conn net.Conn) *StreamReader {
	return &StreamReader{conn: conn, br: bufio.NewReader(conn)}
}

// ReadHeaderBlock reads bytes up to and including the first CRLFCRLF (or
// LFLF, for leniency), bounded by constants.MaxHeaderBytes. The installed
// read deadline governs how long this can take; callers set it via
// conn.SetReadDeadline before calling.
func (r *StreamReader) ReadHeaderBlock() ([]byte, error) {
	var buf []byte
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
		if len(buf) > constants.MaxHeaderBytes {
			return nil, ErrHeaderTooLarge
		}
		if hasHeaderTerminator(buf) {
			return buf, nil
		}
	}
}

// hasHeaderTerminator reports whether buf ends with CRLFCRLF or the lenient LFLF.
func hasHeaderTerminator(buf []byte) bool {
	if bytes.HasSuffix(buf, []byte("\r\n\r\n")) {
		return true
	}
	return bytes.HasSuffix(buf, []byte("\n\n")) && !bytes.HasSuffix(buf, []byte("\r\n\n"))
}

// ReadExact reads exactly n bytes or returns an error (typically io.EOF or
// io.ErrUnexpectedEOF from the underlying io.ReadFull).
func (r *StreamReader) ReadExact(n int64) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUntilClose reads all bytes until EOF or until reducedTimeout elapses
// without progress, whichever comes first, returning whatever was
// accumulated. Before each read it installs a read deadline reducedTimeout
// ahead, so a quiet, never-closing origin doesn't stall the worker for the
// full idle timeout; the last such deadline is left in place on return.
func (r *StreamReader) ReadUntilClose(reducedTimeout time.Duration) ([]byte, error) {
	var buf bytes.Buffer
	chunk := closeBufPool.Get()
	defer closeBufPool.Put(chunk)
	for {
		if reducedTimeout > 0 {
			_ = r.conn.SetReadDeadline(time.Now().Add(reducedTimeout))
		}
		n, err := r.br.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if err == io.EOF || isTimeout(err) {
				return buf.Bytes(), nil
			}
			return buf.Bytes(), err
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
