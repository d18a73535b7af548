package middleware

import (
	"encoding/json"
	"net/http"
)

// Problem is the RFC 7807 body written by middleware that rejects a request
// before it reaches a handler.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render implements the chi render.Renderer interface
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	writeProblem(w, p)
	return nil
}

func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// ProblemFromStatus creates a Problem from an HTTP status code
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var title, problemType string

	switch status {
	case http.StatusBadRequest:
		title = "Bad Request"
		problemType = "/errors/bad-request"
	case http.StatusUnauthorized:
		title = "Unauthorized"
		problemType = "/errors/unauthorized"
	case http.StatusNotFound:
		title = "Not Found"
		problemType = "/errors/not-found"
	case http.StatusRequestEntityTooLarge:
		title = "Payload Too Large"
		problemType = "/errors/payload-too-large"
	case http.StatusUnsupportedMediaType:
		title = "Unsupported Media Type"
		problemType = "/errors/unsupported-media-type"
	case http.StatusTooManyRequests:
		title = "Too Many Requests"
		problemType = "/errors/rate-limit"
	case http.StatusInternalServerError:
		title = "Internal Server Error"
		problemType = "/errors/internal"
	case http.StatusGatewayTimeout:
		title = "Gateway Timeout"
		problemType = "/errors/timeout"
	default:
		title = http.StatusText(status)
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}
