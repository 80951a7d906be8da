package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "stacsync"
)

var logger = slog.Default().WithGroup("remote")

var errBuildRequest = errors.New("build request")

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	// Timeout bounds each physical attempt, not the whole retried exchange.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification. Catalogs
	// behind self-signed internal endpoints need it; it also removes any
	// protection against a man in the middle.
	InsecureSkipVerify bool
}

// NewHTTPClient builds the process-wide client: a fixed per-attempt timeout,
// redirects followed, and TLS verification as configured.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// HTTPRemote executes requests on a shared *http.Client. It is safe for
// concurrent use.
type HTTPRemote struct {
	client    *http.Client
	policy    RetryPolicy
	userAgent string
	log       *slog.Logger
}

var _ Remote = (*HTTPRemote)(nil)

// NewHTTPRemote wraps client. A nil client gets NewHTTPClient defaults.
func NewHTTPRemote(client *http.Client, policy RetryPolicy, log *slog.Logger) *HTTPRemote {
	if client == nil {
		client = NewHTTPClient(ClientConfig{})
	}
	if log == nil {
		log = logger
	}
	return &HTTPRemote{client: client, policy: policy, userAgent: DefaultUserAgent, log: log}
}

// SetUserAgent overrides the User-Agent header.
func (r *HTTPRemote) SetUserAgent(ua string) {
	if ua != "" {
		r.userAgent = ua
	}
}

// Client returns the underlying HTTP client.
func (r *HTTPRemote) Client() *http.Client { return r.client }

// Close releases idle pooled connections.
func (r *HTTPRemote) Close() {
	r.client.CloseIdleConnections()
}

// Do sends req, retrying transport failures according to the policy. A
// response with any status code ends the loop. When the policy is exhausted
// the last transport error is returned.
func (r *HTTPRemote) Do(ctx context.Context, req *Request) (*Response, error) {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = NewRequestID()
	}
	header := r.header(req)
	lg := r.log.With(slog.String("method", req.Method), slog.String("url", req.URL), slog.String("request_id", req.RequestID))

	var resp *Response
	attempts := 0
	err := retry.Do(ctx, r.policy.backoff(), func(ctx context.Context) error {
		attempts++
		out, err := r.attempt(ctx, req, header)
		if err == nil {
			resp = out
			resp.Attempts = attempts
			return nil
		}
		if ctx.Err() != nil || !r.policy.retryable(err) {
			lg.Debug("exchange aborted", slog.Int("attempt", attempts), slog.Any("error", err))
			return err
		}
		lg.Debug("transport failure, retrying", slog.Int("attempt", attempts), slog.Any("error", err))
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, &AttemptsError{Attempts: attempts, Err: err}
	}
	return resp, nil
}

func (r *HTTPRemote) header(req *Request) http.Header {
	h := make(http.Header, len(req.Header)+5)
	for k, v := range req.Header {
		h[k] = append([]string(nil), v...)
	}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", r.userAgent)
	if req.Body != nil {
		h.Set("Content-Type", "application/json")
	}
	applyAuth(h, req.Bearer)
	applyRequestID(h, req.RequestID)
	return h
}

// attempt performs one physical exchange. The body is fully read so that a
// truncated response counts as a transport failure.
func (r *HTTPRemote) attempt(ctx context.Context, req *Request, header http.Header) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBuildRequest, err)
	}
	hreq.Header = header.Clone()

	hresp, err := r.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = hresp.Body.Close() }()

	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       data,
	}, nil
}

// AttemptsError is returned when no response could be obtained.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("no response after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }
