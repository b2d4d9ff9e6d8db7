package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/storeforge/storeforge/internal/anthropic"
	"github.com/storeforge/storeforge/internal/brightdata"
	"github.com/storeforge/storeforge/internal/config"
	"github.com/storeforge/storeforge/internal/discovery"
	"github.com/storeforge/storeforge/internal/fingerprint"
	"github.com/storeforge/storeforge/internal/pipeline"
	"github.com/storeforge/storeforge/internal/scraper"
	"github.com/storeforge/storeforge/internal/storage"
	"github.com/storeforge/storeforge/internal/storage/ndjson"
	"github.com/storeforge/storeforge/internal/storage/postgres"
	"github.com/storeforge/storeforge/internal/storage/sqlite"
	"github.com/storeforge/storeforge/pkg/proxy"
	"github.com/storeforge/storeforge/pkg/ratelimit"
	"github.com/storeforge/storeforge/pkg/retry"
)

var (
	cfgFile string
	verbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storeforge",
		Short: "Generate Amazon brand stores from a brand name",
		Long: `storeforge researches a brand, plans a store architecture, writes
page content tile by tile and validates the result into a render-safe
store document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; environment wins either way.
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newRefineCmd())
	root.AddCommand(newSearchCmd())

	return root
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// buildRunner assembles the pipeline from configuration: the generation
// gateway, plus whichever discovery provider the config enables. A Bright
// Data token selects the dataset API; otherwise the direct scraper is used.
func buildRunner(cfg *config.Config) (*pipeline.Runner, error) {
	gen, err := anthropic.New(anthropic.Config{
		APIKey:    cfg.Anthropic.APIKey,
		BaseURL:   cfg.Anthropic.BaseURL,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseWait:    cfg.Retry.BaseWait,
			MaxWait:     cfg.Retry.MaxWait,
		},
	})
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	return pipeline.NewRunner(pipeline.Config{
		Generator: gen,
		Provider:  provider,
		Limits:    cfg.Store.Limits(),
	})
}

func buildProvider(cfg *config.Config) (discovery.Provider, error) {
	if cfg.BrightData.Token != "" {
		client, err := brightdata.New(brightdata.Config{
			Token:        cfg.BrightData.Token,
			Dataset:      cfg.BrightData.Dataset,
			PollInterval: cfg.BrightData.PollInterval,
			MaxPolls:     cfg.BrightData.MaxPolls,
		})
		if err != nil {
			return nil, err
		}
		return discovery.NewBrightData(client), nil
	}

	fetchCfg := scraper.FetchConfig{
		Timeout:     30 * time.Second,
		Fingerprint: fingerprint.Profile(cfg.Scrape.Fingerprint),
	}
	if cfg.Scrape.RPS > 0 {
		fetchCfg.Limiter = ratelimit.NewLimiter(cfg.Scrape.RPS, cfg.Scrape.Jitter)
	}
	if cfg.Scrape.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(cfg.Scrape.ProxyFile); err != nil {
			return nil, fmt.Errorf("load proxy file: %w", err)
		}
		fetchCfg.ProxyPool = pool
	}

	fetcher, err := scraper.NewFetcher(fetchCfg)
	if err != nil {
		return nil, err
	}
	return discovery.NewAmazonScrape(fetcher), nil
}

// openBackend opens the configured storage backend, or nil for "none".
func openBackend(cmd *cobra.Command, cfg *config.Config) (storage.Backend, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.Storage.DSN)
	case "postgres":
		return postgres.New(cmd.Context(), cfg.Storage.DSN)
	case "ndjson":
		return ndjson.New(cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
