package stacsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aweris/stacsync/internal/remote"
)

var logger = slog.Default().WithGroup("stacsync")

// Operation is one of the three item transactions.
type Operation int

const (
	OpCreate Operation = iota + 1
	OpReplace
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// ParseOperation maps "create", "replace" or "delete" to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return OpCreate, nil
	case "replace":
		return OpReplace, nil
	case "delete":
		return OpDelete, nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

func (op Operation) method() string {
	switch op {
	case OpCreate:
		return http.MethodPost
	case OpReplace:
		return http.MethodPut
	case OpDelete:
		return http.MethodDelete
	}
	return ""
}

// Client executes item transactions against a STAC catalog. It holds the
// shared HTTP client and is safe for concurrent use; build one at startup,
// share it, and Close it at shutdown.
type Client struct {
	remote     *remote.HTTPRemote
	catalogURL string
	log        *slog.Logger
	ownsHTTP   bool
}

var _ Transactor = (*Client)(nil)

// New builds a Client. Without WithLogger, outcomes go to the slog default
// handler captured when the package was loaded; library users should pass
// their own logger.
func New(opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if _, err := url.ParseRequestURI(options.CatalogURL); err != nil {
		return nil, fmt.Errorf("invalid catalog url %q: %w", options.CatalogURL, err)
	}

	log := options.Logger
	if log == nil {
		log = logger
	}

	httpClient := options.HTTPClient
	owns := httpClient == nil
	if owns {
		httpClient = remote.NewHTTPClient(remote.ClientConfig{
			Timeout:            options.Timeout,
			InsecureSkipVerify: options.InsecureSkipVerify,
		})
	}
	r := remote.NewHTTPRemote(httpClient, options.Retry, log)
	r.SetUserAgent(options.UserAgent)

	return &Client{
		remote:     r,
		catalogURL: options.CatalogURL,
		log:        log,
		ownsHTTP:   owns,
	}, nil
}

// CatalogURL returns the default catalog base URL.
func (c *Client) CatalogURL() string { return c.catalogURL }

// HTTPClient returns the shared HTTP client.
func (c *Client) HTTPClient() *http.Client { return c.remote.Client() }

// Close releases pooled connections of a client built by New. An injected
// HTTP client is left alone.
func (c *Client) Close() error {
	if c.ownsHTTP {
		c.remote.Close()
	}
	return nil
}

// Create adds a new item with POST.
//
// A 409 returns ErrAlreadyExists and a 404 ErrCollectionNotFound. A 400 is
// logged at error level and NOT returned: callers relying on errors alone
// will not see rejected payloads.
func (c *Client) Create(ctx context.Context, req TransactionRequest) error {
	return c.Do(ctx, OpCreate, req)
}

// Replace overwrites an existing item with PUT. There is no upsert: a 404
// returns ErrItemNotFound. A 400 is logged and not returned.
func (c *Client) Replace(ctx context.Context, req TransactionRequest) error {
	return c.Do(ctx, OpReplace, req)
}

// Delete removes an item. Deleting a missing item is logged as a warning and
// succeeds. A 400 is logged and not returned.
func (c *Client) Delete(ctx context.Context, req TransactionRequest) error {
	return c.Do(ctx, OpDelete, req)
}

// Do executes op for req and classifies the outcome.
func (c *Client) Do(ctx context.Context, op Operation, req TransactionRequest) error {
	method := op.method()
	if method == "" {
		return fmt.Errorf("unknown operation %d", int(op))
	}
	id, err := req.FeatureID()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if req.CollectionID == "" {
		return fmt.Errorf("%s %q: %w", op, id, ErrEmptyCollection)
	}

	var body []byte
	if op != OpDelete {
		doc, ok := req.Feature.Document()
		if !ok {
			return fmt.Errorf("%s %q: %w", op, id, ErrFeatureDocumentRequired)
		}
		if body, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("%s %q: encode feature: %w", op, id, err)
		}
	}

	target := req.EndpointPath(c.catalogURL)
	if op != OpCreate {
		target += id
	}

	lg := c.log.With(
		slog.String("op", op.String()),
		slog.String("collection", req.CollectionID),
		slog.String("feature_id", id),
	)
	lg.Debug("sending request", slog.String("method", method), slog.String("url", target))

	resp, err := c.remote.Do(ctx, &remote.Request{
		Method: method,
		URL:    target,
		Body:   body,
		Bearer: req.Bearer,
	})
	if err != nil {
		var aerr *remote.AttemptsError
		if errors.As(err, &aerr) {
			lg.Warn("no response from catalog", slog.Int("attempts", aerr.Attempts), slog.Any("error", aerr.Err))
			return &Error{Kind: KindTransport, Op: op, FeatureID: id, Err: err}
		}
		return fmt.Errorf("%s %q: %w", op, id, err)
	}
	return classify(lg, op, id, resp)
}

// classify maps one response to an outcome. It runs once per logical call,
// after transport retries are settled.
func classify(lg *slog.Logger, op Operation, id string, resp *remote.Response) error {
	if resp.IsSuccess() {
		lg.Debug("transaction applied", slog.Int("status", resp.StatusCode), slog.Int("attempts", resp.Attempts))
		return nil
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		lg.Error("catalog rejected the request",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", errorDetail(resp.Body)),
			slog.String("body", string(resp.Body)),
		)
		return nil
	case http.StatusNotFound:
		switch op {
		case OpCreate:
			lg.Warn("item not added, collection probably does not exist")
			return &Error{Kind: KindCollectionNotFound, Op: op, FeatureID: id, StatusCode: resp.StatusCode, Body: resp.Body}
		case OpReplace:
			return &Error{Kind: KindItemNotFound, Op: op, FeatureID: id, StatusCode: resp.StatusCode, Body: resp.Body}
		case OpDelete:
			lg.Warn("item does not exist, nothing to delete")
			return nil
		}
	case http.StatusConflict:
		if op == OpCreate {
			return &Error{Kind: KindAlreadyExists, Op: op, FeatureID: id, StatusCode: resp.StatusCode, Body: resp.Body}
		}
	}
	return &Error{Kind: KindCatalogHTTP, Op: op, FeatureID: id, StatusCode: resp.StatusCode, Body: resp.Body}
}
