// Package prompt renders the fixed per-stage instructions and the
// data-dependent user message for each generation call. Everything here is
// deterministic: no network, no randomness, no ambient state.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storeforge/storeforge/internal/store"
)

// Marketplace describes the language and currency conventions of one Amazon
// marketplace, keyed by its TLD code ("de", "com", "co.uk", ...).
type Marketplace struct {
	Code     string
	Language string
	Currency string
}

// marketplaces is the closed lookup table. Unrecognized codes fall back to
// the German marketplace (German / EUR) — an explicit product decision, not
// an inference: the tool's primary market is Amazon.de.
var marketplaces = map[string]Marketplace{
	"de":    {Code: "de", Language: "German", Currency: "€ (EUR)"},
	"com":   {Code: "com", Language: "English", Currency: "$ (USD)"},
	"co.uk": {Code: "co.uk", Language: "English", Currency: "£ (GBP)"},
	"fr":    {Code: "fr", Language: "French", Currency: "€ (EUR)"},
	"it":    {Code: "it", Language: "Italian", Currency: "€ (EUR)"},
	"es":    {Code: "es", Language: "Spanish", Currency: "€ (EUR)"},
}

// MarketplaceFor resolves a marketplace code, applying the documented
// German/EUR default for unknown codes.
func MarketplaceFor(code string) Marketplace {
	if m, ok := marketplaces[strings.ToLower(strings.TrimSpace(code))]; ok {
		return m
	}
	m := marketplaces["de"]
	m.Code = "de"
	return m
}

// Builder renders stage prompts from pipeline state.
type Builder struct {
	limits store.Limits
}

// NewBuilder returns a Builder using the given store limits for product
// truncation in the content stage.
func NewBuilder(limits store.Limits) *Builder {
	return &Builder{limits: limits}
}

// Research renders the research-stage prompt. The research call is the only
// one made with web search enabled.
func (b *Builder) Research(brandName, marketplace, categoryHint, additionalInfo string) (system, user string) {
	mp := MarketplaceFor(marketplace)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Research the brand %q for marketplace Amazon.%s.\n", brandName, mp.Code)
	if categoryHint != "" {
		fmt.Fprintf(&sb, "Category hint: %s\n", categoryHint)
	}
	if additionalInfo != "" {
		fmt.Fprintf(&sb, "Additional info: %s\n", additionalInfo)
	}
	fmt.Fprintf(&sb, "Respond in English for JSON structure, brand content in %s.", mp.Language)

	return researchSystem, sb.String()
}

// Architecture renders the architecture-stage prompt from the researched
// profile and the discovered products.
func (b *Builder) Architecture(profile store.BrandProfile, products []store.ProductRecord, marketplace string) (system, user string) {
	mp := MarketplaceFor(marketplace)
	profileJSON, _ := json.MarshalIndent(profile, "", "  ")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create store architecture for:\n\nBRAND PROFILE:\n%s\n\n", profileJSON)
	fmt.Fprintf(&sb, "PRODUCT DATA:\n- %d products\n", len(products))
	if cats := categoryNames(products); len(cats) > 0 {
		fmt.Fprintf(&sb, "- Categories: %s\n", strings.Join(cats, ", "))
	}
	fmt.Fprintf(&sb, "\nMarketplace: Amazon.%s, Language: %s", mp.Code, mp.Language)

	return architectureSystem, sb.String()
}

// Content renders the content-stage prompt for one page. Products are
// truncated to the configured maximum; the model does not need the full
// catalog to pick a handful of ASINs, and oversized prompts burn the token
// budget the response needs.
func (b *Builder) Content(spec store.PageSpec, profile store.BrandProfile, products []store.ProductRecord, marketplace string) (system, user string) {
	mp := MarketplaceFor(marketplace)

	max := b.limits.MaxProductsInPrompt
	if max > 0 && len(products) > max {
		products = products[:max]
	}

	specJSON, _ := json.Marshal(spec)
	profileJSON, _ := json.Marshal(profile)
	productsJSON, _ := json.Marshal(products)
	colorsJSON, _ := json.Marshal(profile.Colors)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create content for this store page:\n\nPAGE: %s\n\n", specJSON)
	fmt.Fprintf(&sb, "BRAND PROFILE:\n%s\n\n", profileJSON)
	fmt.Fprintf(&sb, "PRODUCTS (use real ASINs!):\n%s\n\n", productsJSON)
	fmt.Fprintf(&sb, "Marketplace: Amazon.%s\nLanguage: %s\nCurrency: %s\nBrand colors: %s",
		mp.Code, mp.Language, mp.Currency, colorsJSON)

	return contentSystem, sb.String()
}

// Refine renders the refine prompt: the complete current document plus one
// natural-language change instruction. The caller must strip embedded image
// payloads first (store.StripImages).
func (b *Builder) Refine(doc *store.StoreDocument, instruction string) (system, user string) {
	docJSON, _ := json.MarshalIndent(doc, "", "  ")

	var sb strings.Builder
	fmt.Fprintf(&sb, "CURRENT STORE:\n%s\n\n", docJSON)
	fmt.Fprintf(&sb, "CHANGE: %s\n\n", instruction)
	sb.WriteString("Return complete updated JSON with all pages and tiles.")

	return refineSystem, sb.String()
}

func categoryNames(products []store.ProductRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		for _, c := range p.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
