// Package pipeline orchestrates store generation: a research stage grounds a
// brand profile in live search, an architecture stage plans the page set,
// a content stage fills each page with tiles, and a validation pass repairs
// whatever the model got structurally wrong. Stages are independently
// invokable so callers can drive progress across separate requests.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/storeforge/storeforge/internal/discovery"
	"github.com/storeforge/storeforge/internal/extract"
	"github.com/storeforge/storeforge/internal/metrics"
	"github.com/storeforge/storeforge/internal/prompt"
	"github.com/storeforge/storeforge/internal/store"
	"github.com/storeforge/storeforge/internal/validate"
)

// Generator is the completion boundary. webSearch asks the provider to
// ground the answer in live results; only the research stage enables it.
type Generator interface {
	Complete(ctx context.Context, system, user string, webSearch bool) (string, error)
}

// ErrInputInvalid marks missing or unusable caller input.
var ErrInputInvalid = errors.New("pipeline: invalid input")

// StageError reports which stage failed, with a bounded excerpt of the raw
// model output when parsing was the problem.
type StageError struct {
	Stage   string
	Excerpt string
	Err     error
}

func (e *StageError) Error() string {
	if e.Excerpt != "" {
		return fmt.Sprintf("pipeline: %s stage failed: %v (response excerpt: %q)", e.Stage, e.Err, e.Excerpt)
	}
	return fmt.Sprintf("pipeline: %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

const excerptLen = 200

func stageErr(stage string, err error, raw string) *StageError {
	excerpt := raw
	if len(excerpt) > excerptLen {
		cut := excerptLen
		// Back off to a rune boundary so the excerpt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	return &StageError{Stage: stage, Excerpt: excerpt, Err: err}
}

// Request is the input to a full generation run.
type Request struct {
	BrandName      string `json:"brandName"`
	Marketplace    string `json:"marketplace"`
	Category       string `json:"category,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// Config assembles a Runner. Generator is required; Provider is optional and
// enables the separate product discovery step.
type Config struct {
	Generator Generator
	Provider  discovery.Provider
	Limits    store.Limits
	Logger    *slog.Logger
}

// Runner drives the generation pipeline. A Runner is stateless across runs;
// every run's intermediate data lives on the call stack.
type Runner struct {
	gen      Generator
	provider discovery.Provider
	limits   store.Limits
	prompts  *prompt.Builder
	vcfg     validate.Config
	logger   *slog.Logger
}

// NewRunner creates a Runner from cfg.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("pipeline: generator is required")
	}
	if cfg.Limits == (store.Limits{}) {
		cfg.Limits = store.DefaultLimits()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		gen:      cfg.Generator,
		provider: cfg.Provider,
		limits:   cfg.Limits,
		prompts:  prompt.NewBuilder(cfg.Limits),
		vcfg:     validate.Default(cfg.Limits),
		logger:   cfg.Logger.With("component", "pipeline"),
	}, nil
}

// Generate runs the full pipeline for one brand and returns the validated
// document. A failure in research, architecture or any single content page
// aborts the run; product discovery failures degrade to the products the
// research stage found, with a warning on the document.
func (r *Runner) Generate(ctx context.Context, req Request) (*store.StoreDocument, error) {
	if strings.TrimSpace(req.BrandName) == "" {
		return nil, fmt.Errorf("%w: brand name is required", ErrInputInvalid)
	}

	started := time.Now()
	r.logger.Info("generation started", "brand", req.BrandName, "marketplace", req.Marketplace)

	profile, err := r.StepResearch(ctx, req)
	if err != nil {
		return nil, err
	}

	var warnings []string
	products := profile.Products
	if r.provider != nil {
		discovered, err := r.StepSearch(ctx, req.BrandName, req.Marketplace, r.limits.MaxProductsInPrompt)
		if err != nil {
			r.logger.Warn("product discovery failed, continuing with researched products", "error", err)
			warnings = append(warnings, fmt.Sprintf("product discovery unavailable: %v", err))
		} else {
			products = store.DedupeProducts(discovered, profile.Products)
		}
	}
	profile.Products = products

	arch, err := r.StepArchitecture(ctx, profile, products, req.Marketplace)
	if err != nil {
		return nil, err
	}
	if len(arch.Pages) < r.limits.MinPages {
		r.logger.Warn("architecture below page minimum", "pages", len(arch.Pages), "min", r.limits.MinPages)
		warnings = append(warnings, fmt.Sprintf("architecture has %d pages, below the configured minimum of %d", len(arch.Pages), r.limits.MinPages))
	}

	pages := make([]store.Page, 0, len(arch.Pages))
	for _, spec := range arch.Pages {
		page, err := r.StepContent(ctx, spec, profile, products, req.Marketplace)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	repaired, repairWarnings := validate.Run(pages, r.vcfg)
	warnings = append(warnings, repairWarnings...)
	recordDropped(pages, repaired)

	now := time.Now().UTC()
	doc := &store.StoreDocument{
		ID:          uuid.New().String(),
		BrandName:   profile.BrandName,
		Marketplace: req.Marketplace,
		Profile:     profile,
		Pages:       repaired,
		Warnings:    warnings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.logger.Info("generation finished",
		"brand", req.BrandName,
		"pages", len(doc.Pages),
		"tiles", doc.TileCount(),
		"warnings", len(warnings),
		"duration", time.Since(started))
	return doc, nil
}

// StepResearch produces a BrandProfile for the request, with web search
// enabled so the model works from live brand information.
func (r *Runner) StepResearch(ctx context.Context, req Request) (store.BrandProfile, error) {
	if strings.TrimSpace(req.BrandName) == "" {
		return store.BrandProfile{}, fmt.Errorf("%w: brand name is required", ErrInputInvalid)
	}

	start := time.Now()
	system, user := r.prompts.Research(req.BrandName, req.Marketplace, req.Category, req.AdditionalInfo)

	raw, err := r.gen.Complete(ctx, system, user, true)
	if err != nil {
		metrics.RecordStage("research", start, err)
		return store.BrandProfile{}, stageErr("research", err, "")
	}

	var profile store.BrandProfile
	if err := extract.Decode(raw, &profile); err != nil {
		metrics.RecordStage("research", start, err)
		return store.BrandProfile{}, stageErr("research", err, raw)
	}
	if len(profile.Categories) == 0 {
		err := fmt.Errorf("profile has no product categories")
		metrics.RecordStage("research", start, err)
		return store.BrandProfile{}, stageErr("research", err, raw)
	}

	if profile.BrandName == "" {
		profile.BrandName = req.BrandName
	}
	profile.Type = store.NormalizeBrandType(string(profile.Type))
	profile.Products = store.DedupeProducts(profile.Products)

	metrics.RecordStage("research", start, nil)
	return profile, nil
}

// StepSearch runs product discovery through the configured provider.
func (r *Runner) StepSearch(ctx context.Context, keyword, marketplace string, limit int) ([]store.ProductRecord, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("%w: no discovery provider configured", ErrInputInvalid)
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: search keyword is required", ErrInputInvalid)
	}

	start := time.Now()
	products, err := r.provider.Search(ctx, keyword, marketplace, limit)
	metrics.RecordStage("search", start, err)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// StepArchitecture plans the page set for a profile. The home page is moved
// to the front if the model put it elsewhere; document order is this
// orchestrator's guarantee, not the model's.
func (r *Runner) StepArchitecture(ctx context.Context, profile store.BrandProfile, products []store.ProductRecord, marketplace string) (store.Architecture, error) {
	start := time.Now()
	system, user := r.prompts.Architecture(profile, products, marketplace)

	raw, err := r.gen.Complete(ctx, system, user, false)
	if err != nil {
		metrics.RecordStage("architecture", start, err)
		return store.Architecture{}, stageErr("architecture", err, "")
	}

	var arch store.Architecture
	if err := extract.Decode(raw, &arch); err != nil {
		metrics.RecordStage("architecture", start, err)
		return store.Architecture{}, stageErr("architecture", err, raw)
	}
	if len(arch.Pages) == 0 {
		err := fmt.Errorf("architecture contains no pages")
		metrics.RecordStage("architecture", start, err)
		return store.Architecture{}, stageErr("architecture", err, raw)
	}

	arch.Pages = homepageFirst(arch.Pages)
	if len(arch.Pages) > r.limits.MaxPages {
		arch.Pages = arch.Pages[:r.limits.MaxPages]
	}

	metrics.RecordStage("architecture", start, nil)
	return arch, nil
}

// StepContent fills one planned page with tiles.
func (r *Runner) StepContent(ctx context.Context, spec store.PageSpec, profile store.BrandProfile, products []store.ProductRecord, marketplace string) (store.Page, error) {
	start := time.Now()
	system, user := r.prompts.Content(spec, profile, products, marketplace)

	raw, err := r.gen.Complete(ctx, system, user, false)
	if err != nil {
		metrics.RecordStage("content", start, err)
		return store.Page{}, stageErr("content:"+spec.ID, err, "")
	}

	var page store.Page
	if err := extract.Decode(raw, &page); err != nil {
		metrics.RecordStage("content", start, err)
		return store.Page{}, stageErr("content:"+spec.ID, err, raw)
	}

	if page.ID == "" {
		page.ID = spec.ID
	}
	if page.Name == "" {
		page.Name = spec.Name
	}

	metrics.RecordStage("content", start, nil)
	return page, nil
}

// Refine submits an existing document plus a change instruction and replaces
// the document wholesale with the model's edited version. Embedded tile
// images are stripped before transmission; they are large and irrelevant to
// the model.
func (r *Runner) Refine(ctx context.Context, doc *store.StoreDocument, instruction string) (*store.StoreDocument, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: document with at least one page is required", ErrInputInvalid)
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: refine instruction is required", ErrInputInvalid)
	}

	start := time.Now()

	stripped := cloneDocument(doc)
	store.StripImages(stripped)

	system, user := r.prompts.Refine(stripped, instruction)
	raw, err := r.gen.Complete(ctx, system, user, false)
	if err != nil {
		metrics.RecordStage("refine", start, err)
		return nil, stageErr("refine", err, "")
	}

	var replacement store.StoreDocument
	if err := extract.Decode(raw, &replacement); err != nil {
		metrics.RecordStage("refine", start, err)
		return nil, stageErr("refine", err, raw)
	}
	if len(replacement.Pages) == 0 {
		err := fmt.Errorf("refined document contains no pages")
		metrics.RecordStage("refine", start, err)
		return nil, stageErr("refine", err, raw)
	}

	repaired, warnings := validate.Run(replacement.Pages, r.vcfg)
	recordDropped(replacement.Pages, repaired)
	replacement.Pages = repaired
	replacement.Warnings = warnings

	// Identity and provenance stay with the original document.
	replacement.ID = doc.ID
	replacement.Marketplace = doc.Marketplace
	replacement.CreatedAt = doc.CreatedAt
	replacement.UpdatedAt = time.Now().UTC()
	if replacement.BrandName == "" {
		replacement.BrandName = doc.BrandName
	}

	metrics.RecordStage("refine", start, nil)
	return &replacement, nil
}

func recordDropped(before, after []store.Page) {
	b, a := 0, 0
	for _, p := range before {
		b += len(p.Tiles)
	}
	for _, p := range after {
		a += len(p.Tiles)
	}
	if b > a {
		metrics.TilesDroppedTotal.WithLabelValues("validation").Add(float64(b - a))
	}
}

func cloneDocument(doc *store.StoreDocument) *store.StoreDocument {
	data, err := json.Marshal(doc)
	if err != nil {
		c := *doc
		return &c
	}
	var clone store.StoreDocument
	if err := json.Unmarshal(data, &clone); err != nil {
		c := *doc
		return &c
	}
	return &clone
}

// homepageFirst reorders specs so the entry page leads. When no page is
// recognizably the home page the original first page keeps that role.
func homepageFirst(specs []store.PageSpec) []store.PageSpec {
	for i, spec := range specs {
		if isHomePage(spec) {
			if i == 0 {
				return specs
			}
			reordered := make([]store.PageSpec, 0, len(specs))
			reordered = append(reordered, spec)
			reordered = append(reordered, specs[:i]...)
			reordered = append(reordered, specs[i+1:]...)
			return reordered
		}
	}
	return specs
}

func isHomePage(spec store.PageSpec) bool {
	id := strings.ToLower(strings.TrimSpace(spec.ID))
	if id == "home" || id == "homepage" || id == "start" {
		return true
	}
	name := strings.ToLower(spec.Name)
	return strings.Contains(name, "home") || strings.Contains(name, "start")
}
