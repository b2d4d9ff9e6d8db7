// Package discovery resolves a brand or keyword into product records from an
// Amazon marketplace. Two providers exist: the Bright Data dataset API and a
// direct search-page scraper.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/storeforge/storeforge/internal/store"
)

// Provider abstracts a product discovery backend. Implementations may use
// third-party dataset APIs or direct scraping. The limit parameter caps the
// number of products returned.
type Provider interface {
	Search(ctx context.Context, keyword, marketplace string, limit int) ([]store.ProductRecord, error)
}

// MarketplaceURL maps a marketplace suffix ("de", "com", "co.uk", ...) to the
// storefront base URL.
func MarketplaceURL(marketplace string) string {
	m := strings.TrimSpace(strings.ToLower(marketplace))
	if m == "" {
		m = "de"
	}
	return fmt.Sprintf("https://www.amazon.%s", m)
}
