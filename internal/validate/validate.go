// Package validate repairs model-generated page trees so they always satisfy
// the structural store invariants, without re-invoking the generator. The
// generator's output is untrusted: unknown tile types, duplicated singleton
// tiles and oversized pages are all expected inputs here, not errors.
package validate

import (
	"fmt"

	"github.com/storeforge/storeforge/internal/store"
)

// Config bounds what a repaired page may contain. Use Default unless a
// marketplace imposes different limits.
type Config struct {
	Allowed             map[store.TileType]struct{}
	Singleton           []store.TileType
	ImageTypes          map[store.TileType]struct{}
	MaxTilesPerPage     int
	MaxBackgroundVideos int
	MinBriefingLen      int
}

// Default returns the standard validation config derived from the limits.
func Default(limits store.Limits) Config {
	allowed := make(map[store.TileType]struct{})
	for _, tt := range store.TileTypes() {
		allowed[tt] = struct{}{}
	}
	imageTypes := make(map[store.TileType]struct{})
	for _, tt := range store.ImageTileTypes() {
		imageTypes[tt] = struct{}{}
	}
	return Config{
		Allowed:             allowed,
		Singleton:           store.SingletonTileTypes(),
		ImageTypes:          imageTypes,
		MaxTilesPerPage:     limits.MaxTilesPerPage,
		MaxBackgroundVideos: limits.MaxBackgroundVideos,
		MinBriefingLen:      limits.MinBriefingLen,
	}
}

// Run repairs the given pages and reports what it changed. It is a pure
// function: no I/O, deterministic, and idempotent — a repaired page list
// passes through unchanged (and warning-free except for advisory briefing
// and content notes, which are re-reported).
//
// Repairs are applied per page, in fixed order: tile-type whitelist, singleton
// dedup, tile-count truncation, background-video cap. Surviving tiles keep
// their relative order; earlier tiles always win.
func Run(pages []store.Page, cfg Config) ([]store.Page, []string) {
	var warnings []string
	out := make([]store.Page, len(pages))

	for i, page := range pages {
		repaired := page
		repaired.Tiles = append([]store.Tile(nil), page.Tiles...)

		repaired.Tiles, warnings = filterAllowed(repaired, warnings, cfg)
		repaired.Tiles, warnings = dedupeSingletons(repaired, warnings, cfg)

		if cfg.MaxTilesPerPage > 0 && len(repaired.Tiles) > cfg.MaxTilesPerPage {
			repaired.Tiles = repaired.Tiles[:cfg.MaxTilesPerPage]
			warnings = append(warnings, fmt.Sprintf("%s: truncated to %d tiles", page.Name, cfg.MaxTilesPerPage))
		}

		repaired.Tiles, warnings = capBackgroundVideos(repaired, warnings, cfg)
		warnings = checkBriefings(repaired, warnings, cfg)
		warnings = checkContent(repaired, warnings)

		out[i] = repaired
	}

	return out, warnings
}

func filterAllowed(page store.Page, warnings []string, cfg Config) ([]store.Tile, []string) {
	kept := page.Tiles[:0]
	removed := 0
	for _, t := range page.Tiles {
		if _, ok := cfg.Allowed[t.Type]; ok {
			kept = append(kept, t)
		} else {
			removed++
		}
	}
	if removed > 0 {
		warnings = append(warnings, fmt.Sprintf("%s: removed %d tiles with invalid type", page.Name, removed))
	}
	return kept, warnings
}

func dedupeSingletons(page store.Page, warnings []string, cfg Config) ([]store.Tile, []string) {
	tiles := page.Tiles
	for _, singleton := range cfg.Singleton {
		count := 0
		for _, t := range tiles {
			if t.Type == singleton {
				count++
			}
		}
		if count <= 1 {
			continue
		}
		kept := tiles[:0]
		found := false
		for _, t := range tiles {
			if t.Type == singleton {
				if found {
					continue
				}
				found = true
			}
			kept = append(kept, t)
		}
		tiles = kept
		warnings = append(warnings, fmt.Sprintf("%s: removed duplicate %s (max 1 per page)", page.Name, singleton))
	}
	return tiles, warnings
}

func capBackgroundVideos(page store.Page, warnings []string, cfg Config) ([]store.Tile, []string) {
	if cfg.MaxBackgroundVideos <= 0 {
		return page.Tiles, warnings
	}
	count := 0
	for _, t := range page.Tiles {
		if t.Type == store.TileBackgroundVideo {
			count++
		}
	}
	if count <= cfg.MaxBackgroundVideos {
		return page.Tiles, warnings
	}
	kept := page.Tiles[:0]
	seen := 0
	for _, t := range page.Tiles {
		if t.Type == store.TileBackgroundVideo {
			seen++
			if seen > cfg.MaxBackgroundVideos {
				continue
			}
		}
		kept = append(kept, t)
	}
	warnings = append(warnings, fmt.Sprintf("%s: background videos capped at %d", page.Name, cfg.MaxBackgroundVideos))
	return kept, warnings
}

// checkBriefings is advisory only: a missing or thin image briefing is a
// content-quality problem, not a structural one, so the tile stays.
func checkBriefings(page store.Page, warnings []string, cfg Config) []string {
	for _, t := range page.Tiles {
		if _, ok := cfg.ImageTypes[t.Type]; !ok {
			continue
		}
		if len(t.ImageBriefing) < cfg.MinBriefingLen {
			warnings = append(warnings, fmt.Sprintf("%s: %s has missing or too-short image briefing", page.Name, t.Type))
		}
	}
	return warnings
}

// checkContent is advisory like checkBriefings: a content payload that does
// not decode into the tile type's schema is flagged but the tile stays.
func checkContent(page store.Page, warnings []string) []string {
	for _, t := range page.Tiles {
		if _, err := t.DecodeContent(); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %s has malformed content payload", page.Name, t.Type))
		}
	}
	return warnings
}
