// Package ndjson stores documents as newline-delimited JSON in a single
// append file. Saves append; reads scan the whole file and keep the last
// version of each document ID. Suited to small local runs, not servers.
package ndjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/storeforge/storeforge/internal/storage"
	"github.com/storeforge/storeforge/internal/store"
)

// ensure ndjsonBackend implements storage.Backend
var _ storage.Backend = (*ndjsonBackend)(nil)

type ndjsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// envelope wraps a document with a tombstone marker so deletes can be
// appended too.
type envelope struct {
	Deleted  bool                 `json:"deleted,omitempty"`
	ID       string               `json:"id"`
	Document *store.StoreDocument `json:"document,omitempty"`
}

// New creates an NDJSON-backed storage.Backend at filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("ndjson: open file: %w", err)
	}
	return &ndjsonBackend{file: f}, nil
}

func (b *ndjsonBackend) Save(ctx context.Context, doc *store.StoreDocument) error {
	data, err := json.Marshal(envelope{ID: doc.ID, Document: doc})
	if err != nil {
		return fmt.Errorf("ndjson: marshal document: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ndjson: append document: %w", err)
	}
	return nil
}

func (b *ndjsonBackend) Get(ctx context.Context, id string) (*store.StoreDocument, error) {
	docs, err := b.readAll()
	if err != nil {
		return nil, err
	}
	doc, ok := docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (b *ndjsonBackend) List(ctx context.Context, filter storage.Filter) ([]*store.StoreDocument, error) {
	byID, err := b.readAll()
	if err != nil {
		return nil, err
	}

	var docs []*store.StoreDocument
	for _, doc := range byID {
		if filter.BrandName != "" && doc.BrandName != filter.BrandName {
			continue
		}
		if filter.Marketplace != "" && doc.Marketplace != filter.Marketplace {
			continue
		}
		if filter.Since != nil && doc.CreatedAt.Before(*filter.Since) {
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(docs) {
			return nil, nil
		}
		docs = docs[filter.Offset:]
	}
	if filter.Limit > 0 && len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

func (b *ndjsonBackend) Delete(ctx context.Context, id string) error {
	docs, err := b.readAll()
	if err != nil {
		return err
	}
	if _, ok := docs[id]; !ok {
		return storage.ErrNotFound
	}

	data, err := json.Marshal(envelope{ID: id, Deleted: true})
	if err != nil {
		return fmt.Errorf("ndjson: marshal tombstone: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ndjson: append tombstone: %w", err)
	}
	return nil
}

func (b *ndjsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

// readAll replays the append log into the latest live document per ID.
func (b *ndjsonBackend) readAll() (map[string]*store.StoreDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ndjson: seek: %w", err)
	}

	docs := make(map[string]*store.StoreDocument)
	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, fmt.Errorf("ndjson: decode line: %w", err)
		}
		if env.Deleted {
			delete(docs, env.ID)
			continue
		}
		if env.Document != nil {
			docs[env.ID] = env.Document
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ndjson: scan file: %w", err)
	}

	// Restore append position for future writes.
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("ndjson: seek end: %w", err)
	}
	return docs, nil
}
