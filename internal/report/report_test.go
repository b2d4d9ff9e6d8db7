package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/storeforge/storeforge/internal/store"
)

func sampleDoc() *store.StoreDocument {
	return &store.StoreDocument{
		BrandName:   "Acme",
		Marketplace: "de",
		Profile: store.BrandProfile{
			Type:     store.BrandPremium,
			Products: []store.ProductRecord{{ASIN: "B01"}, {ASIN: "B02"}},
		},
		Pages: []store.Page{
			{ID: "home", Tiles: []store.Tile{
				{Type: store.TileHeroImage},
				{Type: store.TileProductGrid},
			}},
			{ID: "about", Tiles: []store.Tile{
				{Type: store.TileText},
				{Type: store.TileText},
			}},
		},
		Warnings: []string{"Homepage: truncated to 20 tiles"},
	}
}

func TestGenerateSummary(t *testing.T) {
	s := GenerateSummary(sampleDoc(), 42*time.Second)

	if s.Pages != 2 || s.Tiles != 4 || s.Products != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.TilesByType["text"] != 2 {
		t.Errorf("text tiles = %d, want 2", s.TilesByType["text"])
	}
	if s.Duration != 42*time.Second {
		t.Errorf("duration = %v", s.Duration)
	}
}

func TestGenerateSummaryNilDoc(t *testing.T) {
	s := GenerateSummary(nil, 0)
	if s.Pages != 0 || s.Tiles != 0 {
		t.Errorf("nil doc summary = %+v", s)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(sampleDoc(), time.Second)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Acme", "premium", "Pages:        2", "product_grid: 1", "truncated to 20 tiles"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, GenerateSummary(sampleDoc(), time.Second)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.BrandName != "Acme" || decoded.Tiles != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
}
