package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

// dropConn closes the connection without writing a response.
func dropConn(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	_ = conn.Close()
}

type seen struct {
	method string
	path   string
	header http.Header
	body   string
}

func TestHTTPRemoteRetriesTransportFailures(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []seen
		fails atomic.Int32
	)
	fails.Store(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, seen{r.Method, r.URL.Path, r.Header.Clone(), string(body)})
		mu.Unlock()
		if fails.Add(-1) >= 0 {
			dropConn(t, w)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	r := NewHTTPRemote(srv.Client(), fastPolicy(5), nil)
	resp, err := r.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/collections/c/items/",
		Body:   []byte(`{"id":"a"}`),
		Bearer: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 3, resp.Attempts)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	require.Len(t, calls, 3)
	first := calls[0]
	for _, c := range calls[1:] {
		assert.Equal(t, first.method, c.method)
		assert.Equal(t, first.path, c.path)
		assert.Equal(t, first.body, c.body)
		assert.Equal(t, first.header.Get("Authorization"), c.header.Get("Authorization"))
		assert.Equal(t, first.header.Get("X-Request-ID"), c.header.Get("X-Request-ID"))
	}
	assert.Equal(t, "Bearer tok", first.header.Get("Authorization"))
	assert.Equal(t, "application/json", first.header.Get("Content-Type"))
	assert.NotEmpty(t, first.header.Get("X-Request-ID"))
}

func TestHTTPRemoteExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		dropConn(t, w)
	}))
	defer srv.Close()

	r := NewHTTPRemote(srv.Client(), fastPolicy(3), nil)
	_, err := r.Do(context.Background(), &Request{Method: http.MethodDelete, URL: srv.URL + "/x"})
	require.Error(t, err)

	var aerr *AttemptsError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 3, aerr.Attempts)
	assert.EqualValues(t, 3, hits.Load())
}

func TestHTTPRemoteDoesNotRetryStatusCodes(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(status)
			}))
			defer srv.Close()

			r := NewHTTPRemote(srv.Client(), fastPolicy(5), nil)
			resp, err := r.Do(context.Background(), &Request{Method: http.MethodPut, URL: srv.URL + "/x", Body: []byte(`{}`)})
			require.NoError(t, err)
			assert.Equal(t, status, resp.StatusCode)
			assert.False(t, resp.IsSuccess())
			assert.EqualValues(t, 1, hits.Load())
		})
	}
}

func TestHTTPRemoteOmitsContentTypeWithoutBody(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewHTTPRemote(srv.Client(), fastPolicy(1), nil)
	r.SetUserAgent("custom/1.0")
	resp, err := r.Do(context.Background(), &Request{Method: http.MethodDelete, URL: srv.URL + "/x", Bearer: "t", RequestID: "fixed"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Empty(t, got.Get("Content-Type"))
	assert.Equal(t, "custom/1.0", got.Get("User-Agent"))
	assert.Equal(t, "fixed", got.Get("X-Request-ID"))
}

func TestHTTPRemoteStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewHTTPRemote(srv.Client(), fastPolicy(10), nil)
	start := time.Now()
	_, err := r.Do(ctx, &Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHTTPRemoteRejectsInvalidURL(t *testing.T) {
	r := NewHTTPRemote(nil, fastPolicy(3), nil)
	_, err := r.Do(context.Background(), &Request{Method: http.MethodGet, URL: "::not a url"})
	require.Error(t, err)
	var aerr *AttemptsError
	assert.False(t, errors.As(err, &aerr))
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewHTTPClient(ClientConfig{})
		assert.Equal(t, DefaultTimeout, c.Timeout)
		tr, ok := c.Transport.(*http.Transport)
		require.True(t, ok)
		assert.True(t, tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify)
	})

	t.Run("insecure", func(t *testing.T) {
		c := NewHTTPClient(ClientConfig{Timeout: time.Second, InsecureSkipVerify: true})
		assert.Equal(t, time.Second, c.Timeout)
		tr := c.Transport.(*http.Transport)
		require.NotNil(t, tr.TLSClientConfig)
		assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
	})

	t.Run("talks to self-signed servers", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		r := NewHTTPRemote(NewHTTPClient(ClientConfig{InsecureSkipVerify: true}), fastPolicy(1), nil)
		resp, err := r.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		strict := NewHTTPRemote(NewHTTPClient(ClientConfig{}), fastPolicy(5), nil)
		_, err = strict.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
		require.Error(t, err)

		var aerr *AttemptsError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, 1, aerr.Attempts, "a rejected certificate is not retried")
	})
}

func TestHTTPRemoteDoesNotRetryUnbuildableRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	r := NewHTTPRemote(srv.Client(), fastPolicy(5), nil)
	_, err := r.Do(context.Background(), &Request{Method: "NOT A METHOD", URL: srv.URL})
	require.Error(t, err)

	var aerr *AttemptsError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 1, aerr.Attempts)
	assert.ErrorIs(t, err, errBuildRequest)
	assert.EqualValues(t, 0, hits.Load())
}

func TestHTTPRemoteFollowsRedirects(t *testing.T) {
	var bodies []string
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusPermanentRedirect)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewHTTPRemote(srv.Client(), fastPolicy(1), nil)
	resp, err := r.Do(context.Background(), &Request{Method: http.MethodPut, URL: srv.URL + "/old", Body: []byte(`{"id":"a"}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"id":"a"}`}, bodies)
}
