package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/storeforge/storeforge/internal/storage"
	"github.com/storeforge/storeforge/internal/store"
)

func testDoc(id, brand string, created time.Time) *store.StoreDocument {
	return &store.StoreDocument{
		ID:          id,
		BrandName:   brand,
		Marketplace: "de",
		Profile:     store.BrandProfile{BrandName: brand, Categories: []string{"Gear"}},
		Pages: []store.Page{{
			ID:   "home",
			Name: "Homepage",
			Tiles: []store.Tile{
				{Type: store.TileHeroImage, ImageBriefing: "Alpine sunrise, 1920x800, brand colors, bold headline."},
			},
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	backend, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSaveAndGet(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	doc := testDoc("doc-1", "Acme", time.Now().UTC().Truncate(time.Second))
	if err := backend.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := backend.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.BrandName != "Acme" || len(got.Pages) != 1 || got.Pages[0].Tiles[0].Type != store.TileHeroImage {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestSaveUpserts(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	doc := testDoc("doc-1", "Acme", time.Now().UTC())
	if err := backend.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	doc.BrandName = "Acme Outdoor"
	doc.UpdatedAt = time.Now().UTC()
	if err := backend.Save(ctx, doc); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	docs, err := backend.List(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want upsert not insert", len(docs))
	}
	if docs[0].BrandName != "Acme Outdoor" {
		t.Errorf("BrandName = %q", docs[0].BrandName)
	}
}

func TestListFilters(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, brand := range []string{"Acme", "Acme", "Globex"} {
		doc := testDoc(string(rune('a'+i)), brand, now.Add(time.Duration(i)*time.Minute))
		if err := backend.Save(ctx, doc); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	docs, err := backend.List(ctx, storage.Filter{BrandName: "Acme"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Acme documents = %d, want 2", len(docs))
	}

	docs, err = backend.List(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List with limit: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("limited documents = %d, want 1", len(docs))
	}
	if docs[0].ID != "c" {
		t.Errorf("newest first: got %q", docs[0].ID)
	}
}

func TestGetNotFound(t *testing.T) {
	backend := newTestBackend(t)
	_, err := backend.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	doc := testDoc("doc-1", "Acme", time.Now().UTC())
	if err := backend.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := backend.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := backend.Get(ctx, "doc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := backend.Delete(ctx, "doc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
