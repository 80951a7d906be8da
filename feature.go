package stacsync

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Feature is either a STAC item document or a bare item identifier.
// Documents are needed for create and replace; a bare identifier is enough
// for delete.
type Feature struct {
	doc map[string]any
	id  string
}

// NewFeature wraps a decoded item document.
func NewFeature(doc map[string]any) Feature {
	return Feature{doc: doc}
}

// FeatureID wraps a bare identifier.
func FeatureID(id string) Feature {
	return Feature{id: id}
}

// ParseFeature decodes a JSON item document.
func ParseFeature(data []byte) (Feature, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Feature{}, fmt.Errorf("parse feature: %w", err)
	}
	if doc == nil {
		return Feature{}, fmt.Errorf("parse feature: not a JSON object")
	}
	return Feature{doc: doc}, nil
}

// ID resolves the item identifier.
func (f Feature) ID() (string, error) {
	if f.IsZero() {
		return "", ErrMissingFeatureID
	}
	if f.doc == nil {
		return f.id, nil
	}
	id, ok := f.doc["id"].(string)
	if !ok || id == "" {
		return "", ErrMissingFeatureID
	}
	return id, nil
}

// Document returns the item document, if this feature carries one.
func (f Feature) Document() (map[string]any, bool) {
	return f.doc, f.doc != nil
}

// IsZero reports whether f holds neither a document nor an identifier.
func (f Feature) IsZero() bool {
	return f.doc == nil && f.id == ""
}

// MarshalJSON encodes the document, or the bare identifier as a JSON string.
func (f Feature) MarshalJSON() ([]byte, error) {
	if f.doc != nil {
		return json.Marshal(f.doc)
	}
	return json.Marshal(f.id)
}

func (f Feature) String() string {
	id, err := f.ID()
	if err != nil {
		return "<feature without id>"
	}
	if f.doc != nil {
		return "item " + id
	}
	return "id " + id
}

// TransactionRequest addresses one item transaction. It is built per call,
// used once and discarded; retries reuse the request it produced.
type TransactionRequest struct {
	// Bearer is sent verbatim as the Authorization bearer credential.
	Bearer       string
	CollectionID string
	Feature      Feature
	// CatalogURL overrides the client's catalog base URL when set.
	CatalogURL string
}

// FeatureID resolves the item identifier without any I/O.
func (r TransactionRequest) FeatureID() (string, error) {
	return r.Feature.ID()
}

// EndpointPath returns {catalog}/collections/{collection}/items/.
// defaultURL is used when the request carries no CatalogURL.
func (r TransactionRequest) EndpointPath(defaultURL string) string {
	base := r.CatalogURL
	if base == "" {
		base = defaultURL
	}
	return strings.TrimRight(base, "/") + "/collections/" + r.CollectionID + "/items/"
}
