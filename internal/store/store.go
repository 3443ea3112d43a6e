// Package store defines the document-store contract the sync layer is
// written against: named collections of JSON documents with point
// reads, full-replace and merge-patch writes, ordered list queries,
// and push-based change notification per collection.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when the addressed document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a stored record together with its store-assigned id.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Query controls list ordering. OrderBy names a top-level string field
// of the document payload.
type Query struct {
	OrderBy string
	Desc    bool
}

// Store is a document store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the payload of a single document.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)

	// Set writes a document under a known id, inserting or fully
	// replacing it (upsert, no field merging).
	Set(ctx context.Context, collection, id string, data json.RawMessage) error

	// Add inserts a document and returns the newly allocated id.
	// Ids are assigned exactly once, at creation, by the store.
	Add(ctx context.Context, collection string, data json.RawMessage) (string, error)

	// Patch merges the given fields into an existing document.
	Patch(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a single document.
	Delete(ctx context.Context, collection, id string) error

	// List returns every document in the collection ordered per q.
	List(ctx context.Context, collection string, q Query) ([]Document, error)

	// Watch registers a change listener on a collection. The returned
	// channel receives a tick after every write to the collection;
	// ticks coalesce under load. The release function must be called
	// when the caller is no longer interested.
	Watch(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}
