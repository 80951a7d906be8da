package remote

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
)

// NewRequestID returns a fresh identifier for one logical exchange.
func NewRequestID() string {
	return uuid.NewString()
}

// applyAuth attaches the bearer credential verbatim. The token is never inspected.
func applyAuth(h http.Header, token string) {
	h.Set(headerAuthorization, "Bearer "+token)
}

// applyRequestID stamps the logical exchange id so retries of the same call
// can be correlated on the server.
func applyRequestID(h http.Header, id string) {
	if id == "" {
		return
	}
	h.Set(headerRequestID, id)
}
