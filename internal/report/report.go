// Package report aggregates a finished generation run into a printable
// summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/storeforge/storeforge/internal/store"
)

// Summary contains aggregated metrics about one generation or refine run.
type Summary struct {
	BrandName   string
	Marketplace string
	BrandType   string
	Pages       int
	Tiles       int
	TilesByType map[string]int
	Products    int
	Warnings    []string
	CreatedAt   time.Time
	Duration    time.Duration
}

// GenerateSummary builds a Summary from a finished document. duration is
// wall time of the run as measured by the caller.
func GenerateSummary(doc *store.StoreDocument, duration time.Duration) Summary {
	s := Summary{
		TilesByType: make(map[string]int),
		Duration:    duration,
	}
	if doc == nil {
		return s
	}

	s.BrandName = doc.BrandName
	s.Marketplace = doc.Marketplace
	s.BrandType = string(doc.Profile.Type)
	s.Pages = len(doc.Pages)
	s.Products = len(doc.Profile.Products)
	s.Warnings = doc.Warnings
	s.CreatedAt = doc.CreatedAt

	for _, page := range doc.Pages {
		for _, tile := range page.Tiles {
			s.Tiles++
			s.TilesByType[string(tile.Type)]++
		}
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Store Generation Summary
------------------------
Brand:        {{.BrandName}}{{if .BrandType}} ({{.BrandType}}){{end}}
Marketplace:  {{.Marketplace}}
Duration:     {{.Duration}}
Pages:        {{.Pages}}
Tiles:        {{.Tiles}}
Products:     {{.Products}}

Tiles by type:
{{- range $type, $count := .TilesByType}}
  {{$type}}: {{$count}}
{{- else}}
  None
{{- end}}

Warnings: {{len .Warnings}}
{{- range .Warnings}}
  - {{.}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render summary: %w", err)
	}

	return nil
}
