package stacsync

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aweris/stacsync/internal/remote"
)

// DefaultCatalogURL is used when no catalog URL is configured.
const DefaultCatalogURL = "http://localhost:8080"

// RetryPolicy controls retries of transport failures.
type RetryPolicy = remote.RetryPolicy

// DefaultRetryPolicy returns 10 attempts with capped, jittered exponential backoff.
func DefaultRetryPolicy() RetryPolicy { return remote.DefaultRetryPolicy() }

// Options configures a Client.
type Options struct {
	CatalogURL string
	// Timeout bounds each physical attempt.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification. It defaults
	// to true so that catalogs on self-signed internal endpoints work out of
	// the box; turn it off for anything reachable from untrusted networks.
	InsecureSkipVerify bool
	HTTPClient         *http.Client
	Retry              RetryPolicy
	Logger             *slog.Logger
	UserAgent          string
}

// Option is a functional option for configuring New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		CatalogURL:         DefaultCatalogURL,
		Timeout:            remote.DefaultTimeout,
		InsecureSkipVerify: true,
		Retry:              remote.DefaultRetryPolicy(),
		UserAgent:          remote.DefaultUserAgent,
	}
}

// WithCatalogURL sets the default catalog base URL.
func WithCatalogURL(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.CatalogURL = url
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithInsecureSkipVerify toggles TLS certificate verification.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(o *Options) { o.InsecureSkipVerify = insecure }
}

// WithHTTPClient shares an existing client. Timeout and TLS options are
// ignored; the caller owns its configuration and lifecycle.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Options) { o.Retry = p }
}

// WithMaxAttempts sets the number of physical attempts per call.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Retry.MaxAttempts = n
		}
	}
}

// WithLogger sets the logger for transaction outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *Options) {
		if ua != "" {
			o.UserAgent = ua
		}
	}
}
