package store

import (
	"strings"
	"time"
)

// BrandType classifies a brand into one of the positioning archetypes the
// architecture stage keys its page layouts off.
type BrandType string

const (
	BrandPremium    BrandType = "premium"
	BrandD2C        BrandType = "d2c"
	BrandMission    BrandType = "mission"
	BrandMassMarket BrandType = "mass_market"
)

// NormalizeBrandType maps free-form model output onto the closed BrandType
// set, falling back to mass_market for anything unrecognized.
func NormalizeBrandType(s string) BrandType {
	switch BrandType(strings.ToLower(strings.TrimSpace(s))) {
	case BrandPremium:
		return BrandPremium
	case BrandD2C:
		return BrandD2C
	case BrandMission:
		return BrandMission
	default:
		return BrandMassMarket
	}
}

// Colors is the brand color triple used in image briefings.
type Colors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

// BrandProfile holds the research-stage facts about a brand. It is created
// once per generation run and read by every later stage; only a full
// regeneration replaces it.
type BrandProfile struct {
	BrandName        string          `json:"brandName"`
	Description      string          `json:"description"`
	Type             BrandType       `json:"type"`
	Tone             string          `json:"tone"`
	Colors           Colors          `json:"colors"`
	Categories       []string        `json:"categories"`
	USPs             []string        `json:"usps"`
	FounderStory     string          `json:"founderStory,omitempty"`
	TargetAudience   string          `json:"targetAudience"`
	PriceRange       string          `json:"priceRange,omitempty"`
	CompetitorBrands []string        `json:"competitorBrands,omitempty"`
	Products         []ProductRecord `json:"products,omitempty"`
}

// ProductRecord is one discovered marketplace product. Records are never
// mutated after creation, only filtered or merged.
type ProductRecord struct {
	ASIN         string   `json:"asin"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	Reviews      int      `json:"reviews,omitempty"`
	Image        string   `json:"image,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	URL          string   `json:"url,omitempty"`
	Availability string   `json:"availability,omitempty"`
}

// DedupeProducts merges product lists, keeping the first record seen for each
// ASIN. Records without an ASIN are kept as-is since they cannot collide.
func DedupeProducts(lists ...[]ProductRecord) []ProductRecord {
	seen := make(map[string]struct{})
	var out []ProductRecord
	for _, list := range lists {
		for _, p := range list {
			if p.ASIN != "" {
				if _, ok := seen[p.ASIN]; ok {
					continue
				}
				seen[p.ASIN] = struct{}{}
			}
			out = append(out, p)
		}
	}
	return out
}

// PageSpec is the architecture-stage plan for one page: what it is for and
// which tile types it should carry, without real copy.
type PageSpec struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Purpose      string   `json:"purpose"`
	TileSequence []string `json:"tileSequence"`
}

// Architecture is the full architecture-stage output.
type Architecture struct {
	Pages           []PageSpec `json:"pages"`
	NavigationOrder []string   `json:"navigationOrder,omitempty"`
}

// Page is one populated store page.
type Page struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	HeroImageBriefing string `json:"heroImageBriefing,omitempty"`
	Tiles             []Tile `json:"tiles"`
}

// StoreDocument is the final artifact: the brand profile plus the ordered,
// validated page tree. The first page is always the home page.
type StoreDocument struct {
	ID          string       `json:"id,omitempty"`
	BrandName   string       `json:"brandName"`
	Marketplace string       `json:"marketplace,omitempty"`
	Profile     BrandProfile `json:"brandProfile"`
	Pages       []Page       `json:"pages"`
	Warnings    []string     `json:"warnings,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// TileCount returns the total number of tiles across all pages.
func (d *StoreDocument) TileCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Tiles)
	}
	return n
}

// StripImages removes editor-attached image payloads from every tile. These
// are base64 data URLs that can dwarf the rest of the document and carry no
// information the refine stage can use.
func StripImages(d *StoreDocument) {
	for pi := range d.Pages {
		for ti := range d.Pages[pi].Tiles {
			d.Pages[pi].Tiles[ti].Image = ""
		}
	}
}

// Limits bounds the structural size of a generated store. The zero value is
// not usable; call DefaultLimits.
type Limits struct {
	MinPages            int
	MaxPages            int
	MaxTilesPerPage     int
	MaxBackgroundVideos int
	MinBriefingLen      int
	MaxProductsInPrompt int
}

// DefaultLimits returns the standard store size bounds.
func DefaultLimits() Limits {
	return Limits{
		MinPages:            4,
		MaxPages:            15,
		MaxTilesPerPage:     20,
		MaxBackgroundVideos: 4,
		MinBriefingLen:      30,
		MaxProductsInPrompt: 20,
	}
}
