package pipeline

import (
	"strconv"

	"github.com/flynnbui/go-proxy/internal/core/constants"
	"github.com/flynnbui/go-proxy/internal/core/domain"
)

// reasonFor returns the fixed reason phrase for a pipeline-generated error
// status. These are the only statuses the pipeline itself originates;
// origin-supplied statuses pass through verbatim with the origin's reason.
func reasonFor(status int) string {
	switch status {
	case 400:
		return "Bad Request"
	case 421:
		return "Misdirected Request"
	case 502:
		return "Bad Gateway"
	case 504:
		return "Gateway Timeout"
	default:
		return "Error"
	}
}

// errorResponse builds the standard error response for kind: plain text,
// Connection: close, a short "Error <code>: <reason>\n\n<detail>" body.
func errorResponse(kind domain.ErrorKind, detail string) *domain.Response {
	status := kind.StatusCode()
	reason := reasonFor(status)
	body := []byte("Error " + strconv.Itoa(status) + ": " + reason + "\n\n" + detail)

	h := domain.NewHeader()
	h.Set(constants.HeaderContentType, "text/plain")
	h.Set(constants.HeaderContentLength, strconv.Itoa(len(body)))
	h.Set(constants.HeaderConnection, constants.ConnectionClose)

	return &domain.Response{
		Version:    "HTTP/1.1",
		StatusCode: status,
		Reason:     reason,
		Header:     h,
		Body:       body,
	}
}
