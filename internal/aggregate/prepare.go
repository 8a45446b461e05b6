// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"sort"
	"strings"

	"github.com/pdiddy/shopmate/pkg/types"
)

// highValueKeywords mark queries for expensive product categories where
// the cheapest listings are usually accessories or counterfeits, so the
// candidate sample must span the price distribution instead of just the
// bottom.
var highValueKeywords = []string{
	"phone", "iphone", "samsung", "oneplus", "pixel", "smartphone",
	"laptop", "macbook", "notebook", "computer", "pc",
	"tablet", "ipad",
	"tv", "television", "smart tv",
	"camera", "dslr", "mirrorless",
	"watch", "smartwatch", "apple watch",
	"console", "playstation", "xbox", "ps5",
	"refrigerator", "fridge", "washing machine", "ac", "air conditioner",
}

// accessoryKeywords flag listings that are add-ons rather than the
// product itself. A query containing one of these is an accessory query
// and disables the filter.
var accessoryKeywords = []string{"case", "cover", "charger", "cable", "protector", "stand"}

// Price-segment sampling parameters for high-value queries: the cheapest
// block plus three smaller blocks starting at the quartile boundaries,
// capped at maxCandidates after identity dedup.
const (
	cheapestBlock  = 8
	quartileBlock  = 5
	medianBlock    = 4
	upperBlock     = 3
	maxCandidates  = 20
	lowValueSample = 30
)

// IsHighValue reports whether the query names an expensive category.
func IsHighValue(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range highValueKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// IsPrimaryQuery reports whether the query is for a primary product
// rather than an accessory.
func IsPrimaryQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range accessoryKeywords {
		if strings.Contains(q, kw) {
			return false
		}
	}
	return true
}

// FilterAccessories drops accessory listings when the query is for a
// primary product. Accessory queries pass everything through unchanged.
func FilterAccessories(query string, items []types.Product) []types.Product {
	if !IsPrimaryQuery(query) {
		return items
	}
	kept := items[:0:0]
	for _, p := range items {
		title := strings.ToLower(p.Title)
		accessory := false
		for _, kw := range accessoryKeywords {
			if strings.Contains(title, kw) {
				accessory = true
				break
			}
		}
		if !accessory {
			kept = append(kept, p)
		}
	}
	return kept
}

// PrepareForScoring selects the candidate subset sent for relevance
// scoring. High-value queries are sampled across price segments so the
// scorer sees genuine products, not just cheap accessories; everything
// else takes the cheapest listings after accessory filtering. When the
// accessory filter removes every listing, the first 20 unfiltered items
// are used instead so the scorer always has input when products exist.
func PrepareForScoring(query string, items []types.Product) []types.Product {
	if len(items) == 0 {
		return nil
	}

	filtered := FilterAccessories(query, items)
	if len(filtered) == 0 {
		if len(items) > maxCandidates {
			return items[:maxCandidates]
		}
		return items
	}

	byPrice := make([]types.Product, len(filtered))
	copy(byPrice, filtered)
	sort.SliceStable(byPrice, func(i, j int) bool { return byPrice[i].Price < byPrice[j].Price })

	if !IsHighValue(query) {
		if len(byPrice) > lowValueSample {
			byPrice = byPrice[:lowValueSample]
		}
		return byPrice
	}

	n := len(byPrice)
	segments := []struct{ start, count int }{
		{0, cheapestBlock},
		{n / 4, quartileBlock},
		{n / 2, medianBlock},
		{n * 3 / 4, upperBlock},
	}

	seen := make(map[string]struct{}, maxCandidates)
	var candidates []types.Product
	for _, seg := range segments {
		for i := seg.start; i < seg.start+seg.count && i < n; i++ {
			p := byPrice[i]
			if _, ok := seen[p.Key()]; ok {
				continue
			}
			seen[p.Key()] = struct{}{}
			candidates = append(candidates, p)
			if len(candidates) >= maxCandidates {
				return candidates
			}
		}
	}
	return candidates
}
