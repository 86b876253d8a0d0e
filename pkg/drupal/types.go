package drupal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MediaType is the JSON:API content type.
const MediaType = "application/vnd.api+json"

// ErrMalformedDocument is returned when a response body is not the JSON:API
// envelope the caller needs.
var ErrMalformedDocument = errors.New("malformed JSON:API document")

// Document is the top-level JSON:API envelope returned by collection and
// query endpoints.
type Document struct {
	Data json.RawMessage `json:"data"`
	Meta Meta            `json:"meta"`
}

// Meta holds the document metadata the backend's query views emit.
type Meta struct {
	Count *int `json:"count"`
}

// HasData reports whether the document carries a non-null data member.
func (d *Document) HasData() bool {
	trimmed := bytes.TrimSpace(d.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Items decodes data as a resource collection and returns its members.
func (d *Document) Items() ([]json.RawMessage, error) {
	if !d.HasData() {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedDocument)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(d.Data, &items); err != nil {
		return nil, fmt.Errorf("%w: data is not a collection: %v", ErrMalformedDocument, err)
	}
	return items, nil
}

// Resource is a single JSON:API resource object.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// ResourceDocument wraps a single resource for create requests.
type ResourceDocument struct {
	Data Resource `json:"data"`
}

// StatusError reports an unexpected HTTP status from the backend.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status from %s: %d %s", e.URL, e.StatusCode, e.Status)
}

// Response is the outcome of a write request. Writes do not treat any status
// as an error; the caller decides what counts as success.
type Response struct {
	StatusCode int
	Status     string // reason phrase without the code, e.g. "Created"
	Body       []byte
}
