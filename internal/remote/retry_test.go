package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", errors.New("connection refused"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(fmt.Errorf("wrapped: %w", context.Canceled)))

	certErr := &tls.CertificateVerificationError{Err: errors.New("x509: certificate signed by unknown authority")}
	assert.False(t, IsTransient(certErr))
	assert.False(t, IsTransient(&url.Error{Op: "Get", URL: "https://catalog", Err: certErr}))
	assert.False(t, IsTransient(fmt.Errorf("%w: %w", errBuildRequest, errors.New("invalid method"))))
}

func TestRetryPolicyBackoff(t *testing.T) {
	t.Run("attempt budget", func(t *testing.T) {
		b := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}.backoff()
		n := 0
		for {
			if _, stop := b.Next(); stop {
				break
			}
			n++
		}
		assert.Equal(t, 2, n, "three attempts means two waits")
	})

	t.Run("single attempt never waits", func(t *testing.T) {
		b := RetryPolicy{MaxAttempts: 0}.backoff()
		_, stop := b.Next()
		assert.True(t, stop)
	})

	t.Run("delays are capped", func(t *testing.T) {
		b := RetryPolicy{MaxAttempts: 8, InitialDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}.backoff()
		for {
			d, stop := b.Next()
			if stop {
				break
			}
			assert.LessOrEqual(t, d, 40*time.Millisecond)
		}
	})

	t.Run("custom predicate", func(t *testing.T) {
		p := RetryPolicy{Retryable: func(error) bool { return false }}
		assert.False(t, p.retryable(io.EOF))
		assert.True(t, DefaultRetryPolicy().retryable(io.EOF))
	})
}
