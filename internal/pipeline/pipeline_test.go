package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/storeforge/storeforge/internal/store"
)

// scriptedGenerator returns canned responses in call order.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	searches  []bool
}

func (g *scriptedGenerator) Complete(ctx context.Context, system, user string, webSearch bool) (string, error) {
	i := g.calls
	g.calls++
	g.searches = append(g.searches, webSearch)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.responses) {
		return "", fmt.Errorf("no scripted response for call %d", i)
	}
	return g.responses[i], nil
}

const researchJSON = `{
	"brandName": "Acme",
	"description": "Outdoor gear for alpine conditions.",
	"type": "premium",
	"tone": "confident",
	"colors": {"primary": "#1a2b3c", "secondary": "#ffffff", "accent": "#e63946"},
	"categories": ["Jackets", "Backpacks"],
	"usps": ["Lifetime repairs"],
	"targetAudience": "Alpinists",
	"products": [{"asin": "B0R1", "name": "Acme Shell Jacket"}]
}`

const architectureJSON = `{
	"pages": [
		{"id": "home", "name": "Homepage", "purpose": "entry", "tileSequence": ["hero_image", "product_grid"]},
		{"id": "jackets", "name": "Jackets", "purpose": "category", "tileSequence": ["image", "product_grid"]}
	]
}`

func contentJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"tiles": [
			{"type": "hero_image", "imageBriefing": "Wide alpine panorama at dawn, 1920x800, brand red accents, bold headline."},
			{"type": "product_grid", "content": {"headline": "Best of %s"}}
		]
	}`, id, name, name)
}

func newTestRunner(t *testing.T, gen Generator) *Runner {
	t.Helper()
	r, err := NewRunner(Config{Generator: gen})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestGenerateFullRun(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		researchJSON,
		architectureJSON,
		contentJSON("home", "Homepage"),
		contentJSON("jackets", "Jackets"),
	}}
	r := newTestRunner(t, gen)

	doc, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gen.calls != 4 {
		t.Errorf("generator calls = %d, want 4", gen.calls)
	}
	if !gen.searches[0] {
		t.Error("research stage must enable web search")
	}
	for i, s := range gen.searches[1:] {
		if s {
			t.Errorf("call %d must not enable web search", i+1)
		}
	}

	if doc.BrandName != "Acme" {
		t.Errorf("BrandName = %q", doc.BrandName)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(doc.Pages))
	}
	if doc.Pages[0].ID != "home" {
		t.Errorf("first page = %q, want home", doc.Pages[0].ID)
	}
	if doc.ID == "" {
		t.Error("document needs an ID")
	}
	if doc.Profile.Type != store.BrandPremium {
		t.Errorf("profile type = %q", doc.Profile.Type)
	}

	allowed := make(map[store.TileType]bool)
	for _, tt := range store.TileTypes() {
		allowed[tt] = true
	}
	for _, page := range doc.Pages {
		if len(page.Tiles) > store.DefaultLimits().MaxTilesPerPage {
			t.Errorf("page %s exceeds tile cap", page.ID)
		}
		for _, tile := range page.Tiles {
			if !allowed[tile.Type] {
				t.Errorf("page %s has invalid tile type %q", page.ID, tile.Type)
			}
		}
	}
}

func TestGenerateReordersHomepage(t *testing.T) {
	archBackwards := `{
		"pages": [
			{"id": "jackets", "name": "Jackets", "tileSequence": ["image"]},
			{"id": "home", "name": "Homepage", "tileSequence": ["hero_image"]}
		]
	}`
	gen := &scriptedGenerator{responses: []string{
		researchJSON,
		archBackwards,
		contentJSON("home", "Homepage"),
		contentJSON("jackets", "Jackets"),
	}}
	r := newTestRunner(t, gen)

	doc, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.Pages[0].ID != "home" {
		t.Errorf("first page = %q, homepage must be moved to the front", doc.Pages[0].ID)
	}
	if doc.Pages[1].ID != "jackets" {
		t.Errorf("second page = %q", doc.Pages[1].ID)
	}
}

func TestGenerateWarnsBelowPageMinimum(t *testing.T) {
	oneArch := `{"pages": [{"id": "home", "name": "Homepage", "purpose": "entry", "tileSequence": ["hero_image"]}]}`
	gen := &scriptedGenerator{responses: []string{
		researchJSON,
		oneArch,
		contentJSON("home", "Homepage"),
	}}
	r := newTestRunner(t, gen)

	doc, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(doc.Pages))
	}
	found := false
	for _, w := range doc.Warnings {
		if strings.Contains(w, "below the configured minimum") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a page-minimum warning", doc.Warnings)
	}
}

func TestGenerateDuplicateSingletonsRepaired(t *testing.T) {
	tripleGrid := `{
		"id": "home",
		"name": "Homepage",
		"tiles": [
			{"type": "product_grid"},
			{"type": "product_grid"},
			{"type": "product_grid"}
		]
	}`
	singlePageArch := `{"pages": [{"id": "home", "name": "Homepage", "tileSequence": ["product_grid"]}]}`
	gen := &scriptedGenerator{responses: []string{researchJSON, singlePageArch, tripleGrid}}
	r := newTestRunner(t, gen)

	doc, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	grids := 0
	for _, tile := range doc.Pages[0].Tiles {
		if tile.Type == store.TileProductGrid {
			grids++
		}
	}
	if grids != 1 {
		t.Errorf("product_grid tiles = %d, want exactly 1 after repair", grids)
	}

	found := false
	for _, w := range doc.Warnings {
		if strings.Contains(w, "Homepage") && strings.Contains(w, "product_grid") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning naming the page, got %v", doc.Warnings)
	}
}

type stubProvider struct {
	products []store.ProductRecord
	err      error
}

func (p *stubProvider) Search(ctx context.Context, keyword, marketplace string, limit int) ([]store.ProductRecord, error) {
	return p.products, p.err
}

func TestGenerateMergesDiscoveredProducts(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		researchJSON,
		architectureJSON,
		contentJSON("home", "Homepage"),
		contentJSON("jackets", "Jackets"),
	}}
	provider := &stubProvider{products: []store.ProductRecord{
		{ASIN: "B0D1", Name: "Acme Down Parka"},
		{ASIN: "B0R1", Name: "Acme Shell Jacket (duplicate)"},
	}}
	r, err := NewRunner(Config{Generator: gen, Provider: provider})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	doc, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(doc.Profile.Products) != 2 {
		t.Fatalf("products = %d, want discovered+researched deduped by ASIN", len(doc.Profile.Products))
	}
	if doc.Profile.Products[0].ASIN != "B0D1" {
		t.Errorf("discovered products must lead: %q", doc.Profile.Products[0].ASIN)
	}
}

func TestGenerateDiscoveryFailureDegrades(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		researchJSON,
		architectureJSON,
		contentJSON("home", "Homepage"),
		contentJSON("jackets", "Jackets"),
	}}
	provider := &stubProvider{err: fmt.Errorf("snapshot expired")}
	r, err := NewRunner(Config{Generator: gen, Provider: provider})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	doc, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	if err != nil {
		t.Fatalf("discovery failure must not abort the run: %v", err)
	}
	found := false
	for _, w := range doc.Warnings {
		if strings.Contains(w, "discovery") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected discovery warning, got %v", doc.Warnings)
	}
	if len(doc.Profile.Products) != 1 {
		t.Errorf("expected researched products to survive, got %d", len(doc.Profile.Products))
	}
}

func TestGenerateEmptyBrandName(t *testing.T) {
	r := newTestRunner(t, &scriptedGenerator{})
	_, err := r.Generate(context.Background(), Request{BrandName: "  "})
	if !errors.Is(err, ErrInputInvalid) {
		t.Fatalf("err = %v, want ErrInputInvalid", err)
	}
}

func TestGenerateAbortsOnContentFailure(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{researchJSON, architectureJSON, contentJSON("home", "Homepage"), ""},
		errs:      []error{nil, nil, nil, fmt.Errorf("gateway exploded")},
	}
	r := newTestRunner(t, gen)

	_, err := r.Generate(context.Background(), Request{BrandName: "Acme", Marketplace: "de"})
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if !strings.HasPrefix(se.Stage, "content") {
		t.Errorf("Stage = %q, want content stage", se.Stage)
	}
}

func TestStepResearchExcerptOnBadJSON(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"I could not find anything about that brand, sorry."}}
	r := newTestRunner(t, gen)

	_, err := r.StepResearch(context.Background(), Request{BrandName: "Acme"})
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if se.Stage != "research" {
		t.Errorf("Stage = %q", se.Stage)
	}
	if !strings.Contains(se.Excerpt, "could not find") {
		t.Errorf("Excerpt = %q, want raw response excerpt", se.Excerpt)
	}
}

func TestStageErrExcerptKeepsRunesIntact(t *testing.T) {
	raw := strings.Repeat("x", 199) + strings.Repeat("ä", 50)
	se := stageErr("research", errors.New("no json"), raw)
	if !utf8.ValidString(se.Excerpt) {
		t.Errorf("excerpt is not valid UTF-8: %q", se.Excerpt)
	}
	if len(se.Excerpt) > excerptLen {
		t.Errorf("excerpt too long: %d bytes", len(se.Excerpt))
	}
}

func TestStepResearchRequiresCategories(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"brandName": "Acme", "categories": []}`}}
	r := newTestRunner(t, gen)

	_, err := r.StepResearch(context.Background(), Request{BrandName: "Acme"})
	if err == nil || !strings.Contains(err.Error(), "categories") {
		t.Fatalf("expected category error, got %v", err)
	}
}

func TestStepDispatch(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{researchJSON}}
	r := newTestRunner(t, gen)

	out, err := r.Step(context.Background(), StageResearch, json.RawMessage(`{"brandName": "Acme", "marketplace": "de"}`))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	profile, ok := out.(store.BrandProfile)
	if !ok {
		t.Fatalf("output type %T", out)
	}
	if profile.BrandName != "Acme" {
		t.Errorf("BrandName = %q", profile.BrandName)
	}

	if _, err := r.Step(context.Background(), "publish", nil); !errors.Is(err, ErrInputInvalid) {
		t.Errorf("unknown stage err = %v", err)
	}
}

func TestRefineReplacesDocument(t *testing.T) {
	refined := `{
		"brandName": "Acme",
		"pages": [
			{"id": "home", "name": "Homepage", "tiles": [
				{"type": "hero_image", "imageBriefing": "Night-time alpine scene, 1920x800, headline in white, moody."},
				{"type": "text", "content": {"text": "Now with winter collection"}}
			]}
		]
	}`
	gen := &scriptedGenerator{responses: []string{refined}}
	r := newTestRunner(t, gen)

	original := &store.StoreDocument{
		ID:        "doc-1",
		BrandName: "Acme",
		Pages: []store.Page{{
			ID:   "home",
			Name: "Homepage",
			Tiles: []store.Tile{
				{Type: store.TileHeroImage, Image: "data:image/png;base64,AAAA", ImageBriefing: "Original daytime hero with mountain ridge, 1920x800."},
			},
		}},
	}

	doc, err := r.Refine(context.Background(), original, "make it feel wintery")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Errorf("ID = %q, identity must survive refine", doc.ID)
	}
	if len(doc.Pages[0].Tiles) != 2 {
		t.Errorf("tiles = %d, want replacement document", len(doc.Pages[0].Tiles))
	}
	if original.Pages[0].Tiles[0].Image == "" {
		t.Error("refine must not mutate the caller's document")
	}
}

func TestRefineRequiresInstruction(t *testing.T) {
	r := newTestRunner(t, &scriptedGenerator{})
	doc := &store.StoreDocument{Pages: []store.Page{{ID: "home"}}}
	if _, err := r.Refine(context.Background(), doc, ""); !errors.Is(err, ErrInputInvalid) {
		t.Fatalf("err = %v, want ErrInputInvalid", err)
	}
}
