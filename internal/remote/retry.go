package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry defaults. Backoff is exponential, capped and jittered.
const (
	DefaultMaxAttempts   = 10
	DefaultInitialDelay  = 100 * time.Millisecond
	DefaultMaxDelay      = 5 * time.Second
	DefaultJitterPercent = 25
)

// RetryPolicy controls how transport failures are retried.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64

	// Retryable decides whether a transport error is worth another attempt.
	// Nil means IsTransient.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   DefaultMaxAttempts,
		InitialDelay:  DefaultInitialDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterPercent: DefaultJitterPercent,
	}
}

// backoff builds a fresh schedule; go-retry backoffs are stateful and must not
// be shared between logical calls.
func (p RetryPolicy) backoff() retry.Backoff {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	b := retry.NewExponential(initial)
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(p.JitterPercent, b)
	}
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// IsTransient reports whether err is a transport failure that may succeed on
// another attempt. Per-attempt timeouts are transient; cancellation is not.
// Caller deadlines are checked against the caller's context before this runs.
// A rejected server certificate or a request that cannot be built fails the
// same way every time.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errBuildRequest) {
		return false
	}
	var certErr *tls.CertificateVerificationError
	return !errors.As(err, &certErr)
}
