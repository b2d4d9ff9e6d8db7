package store

import (
	"encoding/json"
	"testing"
)

func TestNormalizeBrandType(t *testing.T) {
	cases := map[string]BrandType{
		"premium":     BrandPremium,
		" Premium ":   BrandPremium,
		"d2c":         BrandD2C,
		"mission":     BrandMission,
		"mass_market": BrandMassMarket,
		"luxury":      BrandMassMarket,
		"":            BrandMassMarket,
	}
	for in, want := range cases {
		if got := NormalizeBrandType(in); got != want {
			t.Errorf("NormalizeBrandType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDedupeProducts(t *testing.T) {
	a := []ProductRecord{
		{ASIN: "B000000001", Name: "First"},
		{ASIN: "B000000002", Name: "Second"},
	}
	b := []ProductRecord{
		{ASIN: "B000000001", Name: "Duplicate"},
		{Name: "No ASIN"},
		{ASIN: "B000000003", Name: "Third"},
	}

	out := DedupeProducts(a, b)
	if len(out) != 4 {
		t.Fatalf("expected 4 products, got %d", len(out))
	}
	if out[0].Name != "First" {
		t.Errorf("expected first occurrence to win, got %q", out[0].Name)
	}
	for _, p := range out {
		if p.Name == "Duplicate" {
			t.Errorf("duplicate ASIN survived dedupe")
		}
	}
}

func TestStripImages(t *testing.T) {
	doc := StoreDocument{
		Pages: []Page{
			{Tiles: []Tile{
				{Type: TileHeroImage, Image: "data:image/png;base64,AAAA"},
				{Type: TileText},
			}},
			{Tiles: []Tile{
				{Type: TileImage, Image: "data:image/jpeg;base64,BBBB", ImageBriefing: "keep me"},
			}},
		},
	}

	StripImages(&doc)

	for _, p := range doc.Pages {
		for _, tile := range p.Tiles {
			if tile.Image != "" {
				t.Errorf("tile %s still carries image payload", tile.Type)
			}
		}
	}
	if doc.Pages[1].Tiles[0].ImageBriefing != "keep me" {
		t.Errorf("briefing should survive image stripping")
	}
}

func TestDecodeContentVariants(t *testing.T) {
	tests := []struct {
		tile Tile
		want string
	}{
		{Tile{Type: TileHeroImage, Content: json.RawMessage(`{"headline":"Hi"}`)}, "hero"},
		{Tile{Type: TileImageWithText, Content: json.RawMessage(`{"layout":"text_over","headline":"H","body":"B"}`)}, "imagetext"},
		{Tile{Type: TileProductGrid, Content: json.RawMessage(`{"asins":["B000000001"]}`)}, "product"},
		{Tile{Type: "carousel_3000", Content: json.RawMessage(`{"whatever":true}`)}, "unknown"},
		{Tile{Type: TileText}, "text"},
	}

	for _, tt := range tests {
		c, err := tt.tile.DecodeContent()
		if err != nil {
			t.Fatalf("DecodeContent(%s): %v", tt.tile.Type, err)
		}
		switch tt.want {
		case "hero":
			if h, ok := c.(HeroContent); !ok || h.Headline != "Hi" {
				t.Errorf("expected HeroContent with headline, got %#v", c)
			}
		case "imagetext":
			if it, ok := c.(ImageTextContent); !ok || it.Layout != "text_over" {
				t.Errorf("expected ImageTextContent, got %#v", c)
			}
		case "product":
			if p, ok := c.(ProductContent); !ok || len(p.ASINs) != 1 {
				t.Errorf("expected ProductContent with one ASIN, got %#v", c)
			}
		case "unknown":
			if _, ok := c.(UnknownContent); !ok {
				t.Errorf("expected UnknownContent fallback, got %#v", c)
			}
		case "text":
			if _, ok := c.(TextContent); !ok {
				t.Errorf("expected TextContent for empty payload, got %#v", c)
			}
		}
	}
}

func TestDecodeContentMalformed(t *testing.T) {
	tile := Tile{Type: TileText, Content: json.RawMessage(`{"headline":`)}
	if _, err := tile.DecodeContent(); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
