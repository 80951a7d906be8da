// Package stactest provides an in-memory STAC transaction server for tests.
//
// The Catalog keeps items per collection and answers the transaction API the
// way stac-fastapi does. A script of plays can be queued to override the
// next responses or to drop connections without answering, which the client
// sees as a transport failure.
package stactest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Play overrides the answer to one request.
type Play struct {
	// Drop closes the connection without a response.
	Drop bool
	// Delay holds a dropped connection open first, until it elapses or the
	// client goes away.
	Delay  time.Duration
	Status int
	Body   string
}

// Recorded is a snapshot of a received request.
type Recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Catalog is an http.Handler serving the STAC transaction endpoints. It is
// safe for concurrent use.
type Catalog struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	token       string
	script      []Play
	exchanges   int
	dropped     int
	requests    []Recorded

	router *httprouter.Router
}

// NewCatalog returns a catalog holding the given empty collections.
func NewCatalog(collections ...string) *Catalog {
	c := &Catalog{collections: make(map[string]map[string]json.RawMessage)}
	for _, id := range collections {
		c.collections[id] = make(map[string]json.RawMessage)
	}

	r := httprouter.New()
	r.POST("/collections/:collection/items/", c.createItem)
	r.GET("/collections/:collection/items/:id", c.getItem)
	r.PUT("/collections/:collection/items/:id", c.replaceItem)
	r.DELETE("/collections/:collection/items/:id", c.deleteItem)
	c.router = r
	return c
}

// NewServer starts an httptest server in front of a new catalog.
func NewServer(collections ...string) (*Catalog, *httptest.Server) {
	c := NewCatalog(collections...)
	return c, httptest.NewServer(c)
}

// RequireToken makes every request without "Bearer <token>" fail with 401.
func (c *Catalog) RequireToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// AddCollection creates an empty collection if it does not exist.
func (c *Catalog) AddCollection(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.collections[id]; !ok {
		c.collections[id] = make(map[string]json.RawMessage)
	}
}

// Script queues plays answering the next requests in order.
func (c *Catalog) Script(plays ...Play) {
	c.mu.Lock()
	c.script = append(c.script, plays...)
	c.mu.Unlock()
}

// FailNext drops the next n connections.
func (c *Catalog) FailNext(n int) {
	plays := make([]Play, n)
	for i := range plays {
		plays[i].Drop = true
	}
	c.Script(plays...)
}

// Exchanges counts requests that received a response.
func (c *Catalog) Exchanges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchanges
}

// Dropped counts requests whose connection was closed without a response.
func (c *Catalog) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Requests returns every request received so far.
func (c *Catalog) Requests() []Recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Recorded, len(c.requests))
	copy(out, c.requests)
	return out
}

// Item returns a stored item document.
func (c *Catalog) Item(collection, id string) (map[string]any, bool) {
	c.mu.Lock()
	raw, ok := c.collections[collection][id]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// Len returns the number of items in a collection.
func (c *Catalog) Len(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.collections[collection])
}

func (c *Catalog) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	req.Body = io.NopCloser(bytes.NewReader(body))

	c.mu.Lock()
	c.requests = append(c.requests, Recorded{
		Method: req.Method,
		Path:   req.URL.Path,
		Header: req.Header.Clone(),
		Body:   body,
	})
	var play *Play
	if len(c.script) > 0 {
		p := c.script[0]
		c.script = c.script[1:]
		play = &p
	}
	if play != nil && play.Drop {
		c.dropped++
	} else {
		c.exchanges++
	}
	token := c.token
	c.mu.Unlock()

	switch {
	case play != nil && play.Drop:
		if play.Delay > 0 {
			select {
			case <-time.After(play.Delay):
			case <-req.Context().Done():
			}
		}
		drop(w)
	case play != nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(play.Status)
		_, _ = io.WriteString(w, play.Body)
	case token != "" && req.Header.Get("Authorization") != "Bearer "+token:
		writeError(w, http.StatusUnauthorized, "UnauthorizedError", "missing or invalid bearer token")
	default:
		c.router.ServeHTTP(w, req)
	}
}

func drop(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("stactest: response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	_ = conn.Close()
}

func (c *Catalog) createItem(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	collection := ps.ByName("collection")
	raw, id, ok := decodeItem(w, req)
	if !ok {
		return
	}

	c.mu.Lock()
	items, exists := c.collections[collection]
	if !exists {
		c.mu.Unlock()
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("Collection %s does not exist", collection))
		return
	}
	if _, dup := items[id]; dup {
		c.mu.Unlock()
		writeError(w, http.StatusConflict, "ConflictError", fmt.Sprintf("Item %s in collection %s already exists", id, collection))
		return
	}
	items[id] = raw
	c.mu.Unlock()

	writeJSON(w, http.StatusCreated, raw)
}

func (c *Catalog) replaceItem(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	collection, id := ps.ByName("collection"), ps.ByName("id")
	raw, bodyID, ok := decodeItem(w, req)
	if !ok {
		return
	}
	if bodyID != id {
		writeError(w, http.StatusBadRequest, "RequestValidationError", fmt.Sprintf("item id %s does not match path id %s", bodyID, id))
		return
	}

	c.mu.Lock()
	items, exists := c.collections[collection]
	if !exists {
		c.mu.Unlock()
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("Collection %s does not exist", collection))
		return
	}
	if _, found := items[id]; !found {
		c.mu.Unlock()
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("Item %s does not exist", id))
		return
	}
	items[id] = raw
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, raw)
}

func (c *Catalog) deleteItem(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	collection, id := ps.ByName("collection"), ps.ByName("id")

	c.mu.Lock()
	items, exists := c.collections[collection]
	_, found := items[id]
	if exists && found {
		delete(items, id)
	}
	c.mu.Unlock()

	if !exists || !found {
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("Item %s does not exist", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Catalog) getItem(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	c.mu.Lock()
	raw, ok := c.collections[ps.ByName("collection")][ps.ByName("id")]
	c.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("Item %s does not exist", ps.ByName("id")))
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func decodeItem(w http.ResponseWriter, req *http.Request) (json.RawMessage, string, bool) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "RequestValidationError", err.Error())
		return nil, "", false
	}
	var item struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		writeError(w, http.StatusBadRequest, "RequestValidationError", "body is not a JSON object")
		return nil, "", false
	}
	if item.ID == "" {
		writeError(w, http.StatusBadRequest, "RequestValidationError", "field required: id")
		return nil, "", false
	}
	if item.Type != "" && item.Type != "Feature" {
		writeError(w, http.StatusBadRequest, "RequestValidationError", fmt.Sprintf("type must be Feature, got %s", item.Type))
		return nil, "", false
	}
	return raw, item.ID, true
}

func writeJSON(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	data, _ := json.Marshal(map[string]string{"code": code, "description": description})
	writeJSON(w, status, data)
}
