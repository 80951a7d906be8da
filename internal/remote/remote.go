// Package remote implements the HTTP exchange with a STAC transaction endpoint.
//
// One call to Do is one logical exchange:
// - the request is built once and replayed byte-for-byte on every attempt
// - only transport failures are retried; any HTTP status is returned as-is
// - the shared *http.Client owns the connection pool
package remote

import (
	"context"
	"net/http"
)

// Remote performs a single logical HTTP exchange.
type Remote interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is an immutable description of one HTTP call.
type Request struct {
	Method    string
	URL       string
	Body      []byte
	Bearer    string
	RequestID string
	Header    http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
