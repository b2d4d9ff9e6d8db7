package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/storeforge/storeforge/internal/scraper"
	"github.com/storeforge/storeforge/internal/store"
)

const (
	resultsPerPage = 16
	maxSearchPages = 3
	maxConcurrency = 2
)

// AmazonScrape discovers products by fetching marketplace search result
// pages directly and parsing the result grid. It is the fallback when no
// dataset API token is configured.
type AmazonScrape struct {
	fetcher *scraper.Fetcher
}

// NewAmazonScrape wraps a fetcher.
func NewAmazonScrape(fetcher *scraper.Fetcher) *AmazonScrape {
	return &AmazonScrape{fetcher: fetcher}
}

func (a *AmazonScrape) Search(ctx context.Context, keyword, marketplace string, limit int) ([]store.ProductRecord, error) {
	return a.searchBase(ctx, keyword, MarketplaceURL(marketplace), limit)
}

func (a *AmazonScrape) searchBase(ctx context.Context, keyword, base string, limit int) ([]store.ProductRecord, error) {
	if limit <= 0 {
		limit = resultsPerPage
	}
	pages := (limit + resultsPerPage - 1) / resultsPerPage
	if pages > maxSearchPages {
		pages = maxSearchPages
	}

	var mu sync.Mutex
	byPage := make(map[int][]store.ProductRecord)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for page := 1; page <= pages; page++ {
		g.Go(func() error {
			target := fmt.Sprintf("%s/s?k=%s&page=%d", base, url.QueryEscape(keyword), page)
			result, err := a.fetcher.Fetch(gctx, target)
			if err != nil {
				return err
			}
			if result.Error != "" {
				return fmt.Errorf("discovery: fetch page %d: %s", page, result.Error)
			}
			if result.Blocked {
				return fmt.Errorf("discovery: page %d blocked by %s", page, result.BlockSrc)
			}
			if result.StatusCode != 200 {
				return fmt.Errorf("discovery: page %d returned status %d", page, result.StatusCode)
			}

			products, err := ParseSearchPage(result.Body, base)
			if err != nil {
				return err
			}
			mu.Lock()
			byPage[page] = products
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Reassemble in page order so results stay ranked.
	pageNums := make([]int, 0, len(byPage))
	for p := range byPage {
		pageNums = append(pageNums, p)
	}
	sort.Ints(pageNums)

	var all []store.ProductRecord
	for _, p := range pageNums {
		all = append(all, byPage[p]...)
	}
	all = store.DedupeProducts(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ParseSearchPage extracts product records from a search results page body.
// Sponsored placeholders carry an empty data-asin and are skipped.
func ParseSearchPage(body []byte, baseURL string) ([]store.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("discovery: parse search page: %w", err)
	}

	var products []store.ProductRecord
	doc.Find("div[data-asin]").Each(func(_ int, s *goquery.Selection) {
		asin, _ := s.Attr("data-asin")
		if strings.TrimSpace(asin) == "" {
			return
		}

		name := strings.TrimSpace(s.Find("h2 span").First().Text())
		if name == "" {
			return
		}

		p := store.ProductRecord{
			ASIN:     asin,
			Name:     name,
			Currency: "EUR",
		}

		if priceText := s.Find(".a-price .a-offscreen").First().Text(); priceText != "" {
			p.Price = parsePrice(priceText)
		}
		if alt := s.Find(".a-icon-alt").First().Text(); alt != "" {
			p.Rating = parseRating(alt)
		}
		if reviews := s.Find(".a-size-base.s-underline-text").First().Text(); reviews != "" {
			p.Reviews = parseCount(reviews)
		}
		if img, ok := s.Find("img.s-image").First().Attr("src"); ok {
			p.Image = img
		}
		if href, ok := s.Find("h2 a").First().Attr("href"); ok {
			p.URL = absoluteURL(baseURL, href)
		}

		products = append(products, p)
	})

	return products, nil
}

// parsePrice handles both "1.234,56 €" and "$1,234.56" formats.
func parsePrice(text string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	if lastComma > lastDot {
		// European format: comma is the decimal separator.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRating reads the leading number from strings like "4,5 von 5 Sternen"
// or "4.5 out of 5 stars".
func parseRating(text string) float64 {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(fields[0], ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseCount(text string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return v
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + href
}
