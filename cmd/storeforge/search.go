package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		marketplace string
		limit       int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Discover marketplace products for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if marketplace == "" {
				marketplace = cfg.Store.Marketplace
			}

			provider, err := buildProvider(cfg)
			if err != nil {
				return err
			}

			products, err := provider.Search(cmd.Context(), args[0], marketplace, limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(products)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ASIN\tNAME\tPRICE\tRATING\tREVIEWS")
			for _, p := range products {
				fmt.Fprintf(w, "%s\t%s\t%.2f %s\t%.1f\t%d\n",
					p.ASIN, p.Name, p.Price, p.Currency, p.Rating, p.Reviews)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&marketplace, "marketplace", "m", "", "marketplace suffix (de, com, co.uk, fr, it, es)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum products to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print products as JSON")

	return cmd
}
