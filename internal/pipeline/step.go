package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storeforge/storeforge/internal/store"
)

// Stage names accepted by Step.
const (
	StageResearch     = "research"
	StageSearch       = "search"
	StageArchitecture = "architecture"
	StageContent      = "content"
)

type searchInput struct {
	Keyword     string `json:"keyword"`
	Marketplace string `json:"marketplace"`
	Limit       int    `json:"limit"`
}

type architectureInput struct {
	Profile     store.BrandProfile    `json:"profile"`
	Products    []store.ProductRecord `json:"products"`
	Marketplace string                `json:"marketplace"`
}

type contentInput struct {
	Page        store.PageSpec        `json:"page"`
	Profile     store.BrandProfile    `json:"profile"`
	Products    []store.ProductRecord `json:"products"`
	Marketplace string                `json:"marketplace"`
}

// Step invokes a single stage by name with JSON-encoded inputs and returns
// that stage's structured output. Callers hold all intermediate state; no
// run state survives between Step calls.
func (r *Runner) Step(ctx context.Context, stage string, inputs json.RawMessage) (any, error) {
	switch stage {
	case StageResearch:
		var req Request
		if err := json.Unmarshal(inputs, &req); err != nil {
			return nil, fmt.Errorf("%w: decode research inputs: %v", ErrInputInvalid, err)
		}
		return r.StepResearch(ctx, req)

	case StageSearch:
		var in searchInput
		if err := json.Unmarshal(inputs, &in); err != nil {
			return nil, fmt.Errorf("%w: decode search inputs: %v", ErrInputInvalid, err)
		}
		if in.Limit <= 0 {
			in.Limit = store.DefaultLimits().MaxProductsInPrompt
		}
		return r.StepSearch(ctx, in.Keyword, in.Marketplace, in.Limit)

	case StageArchitecture:
		var in architectureInput
		if err := json.Unmarshal(inputs, &in); err != nil {
			return nil, fmt.Errorf("%w: decode architecture inputs: %v", ErrInputInvalid, err)
		}
		return r.StepArchitecture(ctx, in.Profile, in.Products, in.Marketplace)

	case StageContent:
		var in contentInput
		if err := json.Unmarshal(inputs, &in); err != nil {
			return nil, fmt.Errorf("%w: decode content inputs: %v", ErrInputInvalid, err)
		}
		return r.StepContent(ctx, in.Page, in.Profile, in.Products, in.Marketplace)

	default:
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInputInvalid, stage)
	}
}
