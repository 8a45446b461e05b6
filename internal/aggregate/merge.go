// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate merges listings from all sources, samples candidates
// for relevance scoring, and assembles the final ranked result.
package aggregate

import (
	"strconv"
	"strings"

	"github.com/pdiddy/shopmate/internal/source"
	"github.com/pdiddy/shopmate/pkg/types"
)

// dedupTitlePrefix is the number of leading characters of the lowercased
// title that participate in the duplicate key. Two listings sharing the
// prefix and the exact price are treated as the same product even across
// stores; the first occurrence wins.
const dedupTitlePrefix = 50

// LinkStats counts direct versus redirector links in a merged set.
type LinkStats struct {
	Direct   int
	Redirect int
}

// Merge drops invalid listings, removes duplicates, and tallies link
// provenance. It returns the surviving products in first-seen order,
// the link stats over the survivors, and the number of duplicates
// removed.
func Merge(items []types.Product) ([]types.Product, LinkStats, int) {
	seen := make(map[string]struct{}, len(items))
	var merged []types.Product
	var stats LinkStats
	removed := 0

	for _, p := range items {
		if !p.Valid() {
			continue
		}
		key := dedupKey(p)
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, p)
		if source.IsDirectLink(p.Link) {
			stats.Direct++
		} else {
			stats.Redirect++
		}
	}
	return merged, stats, removed
}

// dedupKey builds the title-prefix + price identity. The prefix is taken
// before trimming, so leading whitespace differences survive into the key.
func dedupKey(p types.Product) string {
	title := strings.ToLower(p.Title)
	if r := []rune(title); len(r) > dedupTitlePrefix {
		title = string(r[:dedupTitlePrefix])
	}
	return strings.TrimSpace(title) + "_" + strconv.Itoa(p.Price)
}
