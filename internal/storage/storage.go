// Package storage persists generated store documents. The pipeline itself
// is stateless; the server and CLI save results here when a backend is
// configured.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/storeforge/storeforge/internal/store"
)

// ErrNotFound is returned by Get and Delete when no document has the
// requested ID.
var ErrNotFound = errors.New("storage: document not found")

// Filter narrows a List call. Zero fields are ignored.
type Filter struct {
	BrandName   string
	Marketplace string
	Since       *time.Time
	Limit       int
	Offset      int
}

// Backend defines the interface for storing and querying store documents.
type Backend interface {
	Save(ctx context.Context, doc *store.StoreDocument) error
	Get(ctx context.Context, id string) (*store.StoreDocument, error)
	List(ctx context.Context, filter Filter) ([]*store.StoreDocument, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
