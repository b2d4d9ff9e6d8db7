package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/storeforge/storeforge/internal/report"
	"github.com/storeforge/storeforge/internal/store"
)

func newRefineCmd() *cobra.Command {
	var (
		input  string
		docID  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "refine <instruction>",
		Short: "Apply a change instruction to an existing store document",
		Long: `Refine submits a full document plus a natural-language instruction and
replaces the document with the model's edited version. The source document
comes from --input (a JSON file) or --id (a stored document).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
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

			var doc *store.StoreDocument
			switch {
			case input != "":
				data, err := os.ReadFile(input)
				if err != nil {
					return fmt.Errorf("read %s: %w", input, err)
				}
				doc = &store.StoreDocument{}
				if err := json.Unmarshal(data, doc); err != nil {
					return fmt.Errorf("decode %s: %w", input, err)
				}
			case docID != "":
				if backend == nil {
					return fmt.Errorf("--id requires a storage backend")
				}
				doc, err = backend.Get(cmd.Context(), docID)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --input or --id is required")
			}

			start := time.Now()
			refined, err := runner.Refine(cmd.Context(), doc, args[0])
			if err != nil {
				return err
			}

			if backend != nil {
				if err := backend.Save(cmd.Context(), refined); err != nil {
					return fmt.Errorf("save document: %w", err)
				}
			}

			if output != "" {
				data, err := json.MarshalIndent(refined, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal document: %w", err)
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			}

			return report.WriteText(os.Stdout, report.GenerateSummary(refined, time.Since(start)))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "document JSON file to refine")
	cmd.Flags().StringVar(&docID, "id", "", "stored document ID to refine")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the refined document JSON to this file")

	return cmd
}
