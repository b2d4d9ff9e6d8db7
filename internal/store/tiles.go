package store

import "encoding/json"

// TileType identifies one of the visual module kinds a page can carry.
type TileType string

const (
	TileHeroImage       TileType = "hero_image"
	TileImage           TileType = "image"
	TileImageWithText   TileType = "image_with_text"
	TileShoppableImage  TileType = "shoppable_image"
	TileText            TileType = "text"
	TileVideo           TileType = "video"
	TileBackgroundVideo TileType = "background_video"
	TileGallery         TileType = "gallery"
	TileProduct         TileType = "product"
	TileProductGrid     TileType = "product_grid"
	TileBestSellers     TileType = "best_sellers"
	TileRecommended     TileType = "recommended"
	TileFeaturedDeals   TileType = "featured_deals"
)

// TileTypes is the full enumeration of allowed tile types, in display order.
func TileTypes() []TileType {
	return []TileType{
		TileHeroImage, TileImage, TileImageWithText, TileShoppableImage,
		TileText, TileVideo, TileBackgroundVideo, TileGallery,
		TileProduct, TileProductGrid, TileBestSellers, TileRecommended,
		TileFeaturedDeals,
	}
}

// ImageTileTypes lists the tile types that require a designer image briefing.
func ImageTileTypes() []TileType {
	return []TileType{
		TileHeroImage, TileImage, TileImageWithText, TileShoppableImage,
		TileVideo, TileGallery,
	}
}

// SingletonTileTypes lists the tile types allowed at most once per page.
func SingletonTileTypes() []TileType {
	return []TileType{
		TileProductGrid, TileGallery, TileFeaturedDeals, TileRecommended,
	}
}

// Tile is one visual content module. The content payload is model-shaped and
// kept raw until a caller asks for the typed variant via DecodeContent.
// Image holds an editor-attached data URL and never crosses the gateway
// boundary (see StripImages).
type Tile struct {
	Type          TileType        `json:"type"`
	Size          string          `json:"size,omitempty"`
	Content       json.RawMessage `json:"content,omitempty"`
	ImageBriefing string          `json:"imageBriefing,omitempty"`
	Image         string          `json:"image,omitempty"`
}

// TileContent is the typed view of a tile's payload. Exactly one concrete
// variant exists per recognized tile type; UnknownContent is the fallback the
// validator strips.
type TileContent interface {
	tileContent()
}

// HeroContent backs hero_image and background_video tiles.
type HeroContent struct {
	Headline string `json:"headline,omitempty"`
	Subline  string `json:"subline,omitempty"`
	CTAText  string `json:"ctaText,omitempty"`
}

// ImageContent backs image, shoppable_image and gallery tiles.
type ImageContent struct {
	Caption string   `json:"caption,omitempty"`
	AltText string   `json:"altText,omitempty"`
	ASINs   []string `json:"asins,omitempty"`
}

// ImageTextContent backs image_with_text tiles.
type ImageTextContent struct {
	Layout   string `json:"layout,omitempty"`
	Headline string `json:"headline,omitempty"`
	Body     string `json:"body,omitempty"`
	LinkText string `json:"linkText,omitempty"`
}

// TextContent backs text tiles.
type TextContent struct {
	Headline string `json:"headline,omitempty"`
	Body     string `json:"body,omitempty"`
}

// VideoContent backs video tiles.
type VideoContent struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// ProductContent backs product, product_grid, best_sellers, recommended and
// featured_deals tiles.
type ProductContent struct {
	Headline string   `json:"headline,omitempty"`
	ASINs    []string `json:"asins,omitempty"`
}

// UnknownContent is the fallback variant for unrecognized tile types. It
// preserves the raw payload so nothing is lost before validation strips the
// tile.
type UnknownContent struct {
	Raw json.RawMessage
}

func (HeroContent) tileContent()      {}
func (ImageContent) tileContent()     {}
func (ImageTextContent) tileContent() {}
func (TextContent) tileContent()      {}
func (VideoContent) tileContent()     {}
func (ProductContent) tileContent()   {}
func (UnknownContent) tileContent()   {}

// DecodeContent returns the typed variant for the tile's payload. Unknown
// tile types decode to UnknownContent rather than an error; malformed JSON in
// a recognized type is an error.
func (t Tile) DecodeContent() (TileContent, error) {
	raw := t.Content
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	switch t.Type {
	case TileHeroImage, TileBackgroundVideo:
		var c HeroContent
		return c, json.Unmarshal(raw, &c)
	case TileImage, TileShoppableImage, TileGallery:
		var c ImageContent
		return c, json.Unmarshal(raw, &c)
	case TileImageWithText:
		var c ImageTextContent
		return c, json.Unmarshal(raw, &c)
	case TileText:
		var c TextContent
		return c, json.Unmarshal(raw, &c)
	case TileVideo:
		var c VideoContent
		return c, json.Unmarshal(raw, &c)
	case TileProduct, TileProductGrid, TileBestSellers, TileRecommended, TileFeaturedDeals:
		var c ProductContent
		return c, json.Unmarshal(raw, &c)
	default:
		return UnknownContent{Raw: raw}, nil
	}
}
