// Package brightdata wraps the Bright Data datasets API for keyword-driven
// Amazon product discovery. A search is asynchronous on their side: a trigger
// call starts a collection job and returns a snapshot ID, which is then
// polled until the dataset is ready.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storeforge/storeforge/internal/store"
)

const (
	defaultBaseURL      = "https://api.brightdata.com"
	defaultDataset      = "gd_l7q7dkf244hwjntr0"
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 30
)

// Config configures a Client. Token is required; the rest default to the
// Amazon products dataset and a 90 second polling window.
type Config struct {
	Token        string
	BaseURL      string
	Dataset      string
	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration
}

// Client triggers and polls Bright Data collection jobs.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("brightdata: API token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Dataset == "" {
		cfg.Dataset = defaultDataset
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().With("component", "brightdata"),
	}, nil
}

// Result is the outcome of a search. When the polling window elapsed before
// the dataset was ready, Processing is true and SnapshotID lets the caller
// resume with Poll later.
type Result struct {
	Products   []store.ProductRecord
	SnapshotID string
	Processing bool
}

// rawProduct mirrors the dataset record shape. Bright Data is inconsistent
// across collections, so several fields have fallback twins.
type rawProduct struct {
	ASIN            string   `json:"asin"`
	Title           string   `json:"title"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand"`
	Description     string   `json:"description"`
	ProductOverview string   `json:"product_overview"`
	FinalPrice      float64  `json:"final_price"`
	InitialPrice    float64  `json:"initial_price"`
	Currency        string   `json:"currency"`
	Rating          float64  `json:"rating"`
	ReviewsCount    int      `json:"reviews_count"`
	Image           string   `json:"image"`
	MainImage       string   `json:"main_image"`
	Categories      []string `json:"categories"`
	URL             string   `json:"url"`
	Availability    string   `json:"availability"`
}

// Search triggers a keyword discovery job against domain (e.g.
// "https://www.amazon.de") and polls until products arrive or the polling
// window runs out.
func (c *Client) Search(ctx context.Context, keyword, domain string, limit int) (*Result, error) {
	snapshotID, err := c.trigger(ctx, keyword, domain, limit)
	if err != nil {
		return nil, err
	}
	c.logger.Info("search triggered", "keyword", keyword, "snapshot_id", snapshotID)
	return c.Poll(ctx, snapshotID)
}

// Poll fetches the snapshot and waits for it to finish, up to the configured
// attempt limit. It is safe to call again with the SnapshotID of a Result
// that came back still processing.
func (c *Client) Poll(ctx context.Context, snapshotID string) (*Result, error) {
	for attempt := 1; attempt <= c.config.MaxPolls; attempt++ {
		products, ready, err := c.fetchSnapshot(ctx, snapshotID)
		if err != nil {
			return nil, err
		}
		if ready {
			c.logger.Info("snapshot ready", "snapshot_id", snapshotID, "products", len(products))
			return &Result{Products: products, SnapshotID: snapshotID}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}

	c.logger.Warn("snapshot still processing after polling window", "snapshot_id", snapshotID)
	return &Result{SnapshotID: snapshotID, Processing: true}, nil
}

func (c *Client) trigger(ctx context.Context, keyword, domain string, limit int) (string, error) {
	q := url.Values{}
	q.Set("dataset_id", c.config.Dataset)
	q.Set("type", "discover_new")
	q.Set("discover_by", "keyword")
	q.Set("limit_per_input", fmt.Sprintf("%d", limit))

	payload, err := json.Marshal([]map[string]string{{"keyword": keyword, "url": domain}})
	if err != nil {
		return "", fmt.Errorf("brightdata: marshal trigger: %w", err)
	}

	endpoint := c.config.BaseURL + "/datasets/v3/trigger?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("brightdata: create trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brightdata: trigger request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("brightdata: read trigger response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("brightdata: trigger failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var out struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("brightdata: decode trigger response: %w", err)
	}
	if out.SnapshotID == "" {
		return "", fmt.Errorf("brightdata: trigger response missing snapshot_id")
	}
	return out.SnapshotID, nil
}

func (c *Client) fetchSnapshot(ctx context.Context, snapshotID string) ([]store.ProductRecord, bool, error) {
	endpoint := fmt.Sprintf("%s/datasets/v3/snapshot/%s?format=json", c.config.BaseURL, snapshotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("brightdata: create snapshot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("brightdata: snapshot request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("brightdata: read snapshot: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil, false, nil
	case http.StatusOK:
		var raw []rawProduct
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, false, fmt.Errorf("brightdata: decode snapshot: %w", err)
		}
		return normalize(raw), true, nil
	default:
		return nil, false, fmt.Errorf("brightdata: snapshot %s failed with status %d: %s", snapshotID, resp.StatusCode, truncate(string(body), 200))
	}
}

func normalize(raw []rawProduct) []store.ProductRecord {
	products := make([]store.ProductRecord, 0, len(raw))
	for _, r := range raw {
		p := store.ProductRecord{
			ASIN:         r.ASIN,
			Name:         firstNonEmpty(r.Title, r.Name),
			Brand:        r.Brand,
			Description:  firstNonEmpty(r.Description, r.ProductOverview),
			Price:        r.FinalPrice,
			Currency:     firstNonEmpty(r.Currency, "EUR"),
			Rating:       r.Rating,
			Reviews:      r.ReviewsCount,
			Image:        firstNonEmpty(r.Image, r.MainImage),
			Categories:   r.Categories,
			URL:          r.URL,
			Availability: r.Availability,
		}
		if p.Price == 0 {
			p.Price = r.InitialPrice
		}
		products = append(products, p)
	}
	return products
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
