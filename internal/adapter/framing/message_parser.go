package framing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
)

var (
	methodRe  = regexp.MustCompile(`^[A-Z]+$`)
	versionRe = regexp.MustCompile(`^HTTP/\d+\.\d+$`)
	tokenRe   = regexp.MustCompile(`^[!#$%&'*+\-.0-9A-Z^_` + "`" + `a-z|~]+$`)
)

// ParseRequestLine parses "METHOD SP TARGET SP VERSION".
func ParseRequestLine(line string) (method, target, version string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", "", "", ErrMalformedRequestLine
	}
	method, target, version = parts[0], parts[1], parts[2]
	if !methodRe.MatchString(method) || !versionRe.MatchString(version) {
		return "", "", "", ErrMalformedRequestLine
	}
	return method, target, version, nil
}

// ParseStatusLine parses "VERSION SP STATUS [SP REASON]".
func ParseStatusLine(line string) (version string, status int, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", ErrMalformedStatusLine
	}
	version = parts[0]
	if !versionRe.MatchString(version) {
		return "", 0, "", ErrMalformedStatusLine
	}
	status, convErr := strconv.Atoi(parts[1])
	if convErr != nil || status < 100 || status > 599 {
		return "", 0, "", ErrMalformedStatusLine
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return version, status, reason, nil
}

// splitHeaderLines splits a header block (start line + header lines + blank
// terminator) into its constituent lines, tolerating bare LF as well as CRLF.
func splitHeaderLines(block []byte) []string {
	s := string(block)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	// trailing entries are the blank line(s) that terminated the block
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// parseHeaderLine splits a single header line on the first ':', validating
// the name against the RFC 7230 token charset and trimming surrounding
// whitespace from the value.
func parseHeaderLine(line string) (name, value string, err error) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", ErrMalformedHeader
	}
	name = line[:idx]
	if !tokenRe.MatchString(name) {
		return "", "", ErrMalformedHeader
	}
	value = strings.TrimSpace(line[idx+1:])
	return name, value, nil
}

// ParseHeaderBlock splits a raw header block into its start line and a
// Header container. Duplicate header names: last one wins, matching
// net/http-adjacent observable behaviour this proxy reproduces.
func ParseHeaderBlock(block []byte) (startLine string, header *domain.Header, err error) {
	lines := splitHeaderLines(block)
	if len(lines) == 0 {
		return "", nil, ErrMalformedRequestLine
	}
	startLine = lines[0]
	header = domain.NewHeader()
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, perr := parseHeaderLine(line)
		if perr != nil {
			return "", nil, perr
		}
		header.Set(name, value)
	}
	return startLine, header, nil
}

// ParseRequest reads and parses one complete request from r, including its
// body per the Content-Length rule (chunked request bodies are not
// supported).
func ParseRequest(r *StreamReader) (*domain.Request, error) {
	block, err := r.ReadHeaderBlock()
	if err != nil {
		return nil, err
	}
	startLine, header, err := ParseHeaderBlock(block)
	if err != nil {
		return nil, err
	}
	method, target, version, err := ParseRequestLine(startLine)
	if err != nil {
		return nil, err
	}

	req := &domain.Request{Method: method, Target: target, Version: version, Header: header}

	if cl, ok := header.Get("Content-Length"); ok {
		n, convErr := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if convErr != nil || n < 0 {
			return nil, ErrMalformedHeader
		}
		body, rerr := r.ReadExact(n)
		if rerr != nil {
			return nil, rerr
		}
		req.Body = body
	}

	return req, nil
}

// ParseResponse reads and parses one complete response from r, applying the
// body-framing rule appropriate to requestMethod per spec §4.1.
func ParseResponse(r *StreamReader, requestMethod string) (*domain.Response, error) {
	block, err := r.ReadHeaderBlock()
	if err != nil {
		return nil, err
	}
	startLine, header, err := ParseHeaderBlock(block)
	if err != nil {
		return nil, err
	}
	version, status, reason, err := ParseStatusLine(startLine)
	if err != nil {
		return nil, err
	}

	resp := &domain.Response{Version: version, StatusCode: status, Reason: reason, Header: header}

	switch {
	case requestMethod == "HEAD" || status == 204 || status == 304:
		// no body
	case isChunked(header):
		// degenerate policy: no chunked decoder, collect raw bytes (framing
		// included) until the origin closes the connection.
		body, rerr := r.ReadUntilClose(constants.CloseDelimitedReadTimeout)
		if rerr != nil {
			return nil, rerr
		}
		resp.Body = body
		resp.CloseDelimited = true
	case hasContentLength(header):
		cl, _ := header.Get("Content-Length")
		n, convErr := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if convErr != nil || n < 0 {
			return nil, ErrMalformedHeader
		}
		body, rerr := r.ReadExact(n)
		if rerr != nil {
			return nil, rerr
		}
		resp.Body = body
	case isConnectionClose(header):
		body, rerr := r.ReadUntilClose(constants.CloseDelimitedReadTimeout)
		if rerr != nil {
			return nil, rerr
		}
		resp.Body = body
		resp.CloseDelimited = true
	default:
		// empty body
	}

	return resp, nil
}

func isChunked(h *domain.Header) bool {
	v, ok := h.Get("Transfer-Encoding")
	return ok && strings.EqualFold(strings.TrimSpace(v), "chunked")
}

func hasContentLength(h *domain.Header) bool {
	_, ok := h.Get("Content-Length")
	return ok
}

func isConnectionClose(h *domain.Header) bool {
	v, ok := h.Get("Connection")
	return ok && strings.EqualFold(strings.TrimSpace(v), "close")
}
