package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/storeforge/storeforge/internal/pipeline"
	"github.com/storeforge/storeforge/internal/report"
)

func newGenerateCmd() *cobra.Command {
	var (
		marketplace string
		category    string
		info        string
		output      string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "generate <brand-name>",
		Short: "Generate a complete store document for a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if marketplace == "" {
				marketplace = cfg.Store.Marketplace
			}

			runner, err := buildRunner(cfg)
			if err != nil {
				return err
			}

			backend, err := openBackend(cmd, cfg)
			if err != nil {
				return err
			}
			if backend != nil {
				defer backend.Close()
			}

			start := time.Now()
			doc, err := runner.Generate(cmd.Context(), pipeline.Request{
				BrandName:      args[0],
				Marketplace:    marketplace,
				Category:       category,
				AdditionalInfo: info,
			})
			if err != nil {
				return err
			}

			if backend != nil {
				if err := backend.Save(cmd.Context(), doc); err != nil {
					return fmt.Errorf("save document: %w", err)
				}
			}

			if output != "" {
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal document: %w", err)
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			}

			summary := report.GenerateSummary(doc, time.Since(start))
			if asJSON {
				return report.WriteJSON(os.Stdout, summary)
			}
			return report.WriteText(os.Stdout, summary)
		},
	}

	cmd.Flags().StringVarP(&marketplace, "marketplace", "m", "", "marketplace suffix (de, com, co.uk, fr, it, es)")
	cmd.Flags().StringVar(&category, "category", "", "product category hint")
	cmd.Flags().StringVar(&info, "info", "", "additional brand context")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the document JSON to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}
