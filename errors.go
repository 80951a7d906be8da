package stacsync

import (
	"errors"
	"fmt"

	"github.com/antonholmquist/jason"
)

// Validation errors returned before any request is sent.
var (
	ErrMissingFeatureID        = errors.New("stacsync: feature has no string id")
	ErrFeatureDocumentRequired = errors.New("stacsync: operation requires a feature document")
	ErrEmptyCollection         = errors.New("stacsync: collection id is empty")
)

// Outcome sentinels, one per ErrorKind. Match with errors.Is.
var (
	ErrAlreadyExists      = errors.New("item already exists")
	ErrItemNotFound       = errors.New("item not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCatalogHTTP        = errors.New("catalog http error")
	ErrTransport          = errors.New("transport failure")
)

// ErrorKind enumerates the ways a transaction can fail after validation.
type ErrorKind uint

const (
	KindAlreadyExists ErrorKind = iota + 1
	KindItemNotFound
	KindCollectionNotFound
	KindCatalogHTTP
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already exists"
	case KindItemNotFound:
		return "item not found"
	case KindCollectionNotFound:
		return "collection not found"
	case KindCatalogHTTP:
		return "catalog http error"
	case KindTransport:
		return "transport error"
	default:
		return "unknown error"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindItemNotFound:
		return ErrItemNotFound
	case KindCollectionNotFound:
		return ErrCollectionNotFound
	case KindCatalogHTTP:
		return ErrCatalogHTTP
	case KindTransport:
		return ErrTransport
	default:
		return nil
	}
}

// Error is a classified transaction failure.
//
// StatusCode and Body are set for KindCatalogHTTP and, for information, on
// the not-found and conflict kinds. Err is set for KindTransport.
type Error struct {
	Kind       ErrorKind
	Op         Operation
	FeatureID  string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadyExists:
		return fmt.Sprintf("%s %q: item already exists", e.Op, e.FeatureID)
	case KindItemNotFound:
		return fmt.Sprintf("%s %q: item does not exist", e.Op, e.FeatureID)
	case KindCollectionNotFound:
		return fmt.Sprintf("%s %q: collection probably does not exist", e.Op, e.FeatureID)
	case KindCatalogHTTP:
		if d := e.Detail(); d != "" {
			return fmt.Sprintf("%s %q: catalog returned %d: %s", e.Op, e.FeatureID, e.StatusCode, d)
		}
		return fmt.Sprintf("%s %q: catalog returned %d", e.Op, e.FeatureID, e.StatusCode)
	case KindTransport:
		return fmt.Sprintf("%s %q: %s: %v", e.Op, e.FeatureID, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %q: %s", e.Op, e.FeatureID, e.Kind)
	}
}

// Is matches the sentinel of the error's kind and anything it wraps.
func (e *Error) Is(target error) bool {
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func (e *Error) Unwrap() error { return e.Err }

// Detail returns the human readable message of a JSON error body, or "".
// The stac-fastapi shape is {"code": ..., "description": ...}.
func (e *Error) Detail() string {
	return errorDetail(e.Body)
}

func errorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return ""
	}
	for _, key := range []string{"description", "detail", "message"} {
		if s, err := obj.GetString(key); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// KindOf returns the kind of a classified error, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
