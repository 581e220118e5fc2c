package framing

import "errors"

// ErrHeaderTooLarge is returned by StreamReader.ReadHeaderBlock when the
// accumulated header block exceeds constants.MaxHeaderBytes without a
// terminator being found.
var ErrHeaderTooLarge = errors.New("framing: header block exceeds maximum size")

// ErrMalformedRequestLine, ErrMalformedStatusLine and ErrMalformedHeader are
// returned by MessageParser when the wire grammar does not match.
var (
	ErrMalformedRequestLine = errors.New("framing: malformed request line")
	ErrMalformedStatusLine  = errors.New("framing: malformed status line")
	ErrMalformedHeader      = errors.New("framing: malformed header line")
)
