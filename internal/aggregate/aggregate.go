// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pdiddy/shopmate/pkg/types"
)

// fallbackNote discloses a degraded ranking in the summary. Appended
// verbatim so users know the order is a price sort, not an AI ranking.
const fallbackNote = " (Note: AI ranking temporarily unavailable, results filtered and sorted by price.)"

// Gatherer collects raw listings and per-source provenance reports.
// Implemented by source.Coordinator.
type Gatherer interface {
	Gather(ctx context.Context, query string) ([]types.Product, []types.SourceReport)
}

// Ranker orders candidates by relevance. Implemented by rank.Ranker.
type Ranker interface {
	Rank(ctx context.Context, query string, products []types.Product) types.RankOutput
}

// Advisor writes the result summary. Implemented by advisor.Advisor.
type Advisor interface {
	Verdict(ctx context.Context, products []types.ScoredProduct, note string) string
}

// Pipeline runs one query end to end: gather, merge, sample, rank,
// summarize, assemble. Run never returns an error; every stage failure
// degrades to a well-defined fallback so a query with any products at
// all always yields a usable result.
type Pipeline struct {
	gatherer Gatherer
	ranker   Ranker
	advisor  Advisor
	cfg      types.PipelineConfig
	w        io.Writer
}

// New builds a pipeline over the given stages.
func New(g Gatherer, r Ranker, a Advisor, cfg types.PipelineConfig, w io.Writer) *Pipeline {
	return &Pipeline{gatherer: g, ranker: r, advisor: a, cfg: cfg, w: w}
}

// Run executes the pipeline for one query.
func (p *Pipeline) Run(ctx context.Context, query string) types.AggregationResult {
	start := time.Now()
	fmt.Fprintf(p.w, "aggregating products for %q\n", query)

	raw, reports := p.gatherer.Gather(ctx, query)

	merged, stats, removed := Merge(raw)
	if removed > 0 {
		fmt.Fprintf(p.w, "removed %d duplicates\n", removed)
	}
	fmt.Fprintf(p.w, "found %d products (%d direct links, %d redirects) in %v\n",
		len(merged), stats.Direct, stats.Redirect, time.Since(start).Round(time.Millisecond))

	if len(merged) == 0 {
		return types.AggregationResult{
			Products: []types.ScoredProduct{},
			Summary:  p.setupMessage(),
			Metadata: p.metadata(nil, reports, stats, start, false),
		}
	}

	candidates := PrepareForScoring(query, merged)
	out := p.ranker.Rank(ctx, query, candidates)

	var final []types.ScoredProduct
	rankedByAI := len(out.Ranked) > 0 && !out.AllScoresFailed

	if rankedByAI {
		final = out.Ranked
		// A sampled ranking covers a subset; everything unsampled keeps
		// its merged order after the ranked block.
		if len(candidates) < len(merged) {
			rankedKeys := make(map[string]struct{}, len(out.Ranked))
			for _, sp := range out.Ranked {
				rankedKeys[sp.Key()] = struct{}{}
			}
			appended := 0
			for _, prod := range merged {
				if _, ok := rankedKeys[prod.Key()]; !ok {
					final = append(final, types.ScoredProduct{Product: prod})
					appended++
				}
			}
			fmt.Fprintf(p.w, "AI ranking applied to top %d products, %d kept at end\n", len(out.Ranked), appended)
		}
	} else {
		fmt.Fprintln(p.w, "AI ranking unavailable, falling back to filtered price sort")
		fallback := FilterAccessories(query, merged)
		sort.SliceStable(fallback, func(i, j int) bool { return fallback[i].Price < fallback[j].Price })
		final = make([]types.ScoredProduct, len(fallback))
		for i, prod := range fallback {
			final[i] = types.ScoredProduct{Product: prod}
		}
	}

	note := ""
	if !rankedByAI {
		note = fallbackNote
	}
	top := final
	if len(top) > 5 {
		top = top[:5]
	}
	summary := p.advisor.Verdict(ctx, top, note)

	return types.AggregationResult{
		Products: final,
		Summary:  summary,
		Metadata: p.metadata(final, reports, stats, start, rankedByAI),
	}
}

func (p *Pipeline) metadata(final []types.ScoredProduct, reports []types.SourceReport, stats LinkStats, start time.Time, rankedByAI bool) types.Metadata {
	md := types.Metadata{
		TotalResults:  len(final),
		RankedByAI:    rankedByAI,
		FetchTimeMS:   time.Since(start).Milliseconds(),
		DirectLinks:   stats.Direct,
		RedirectLinks: stats.Redirect,
		Sources:       reports,
		Strategy: types.StrategyFlags{
			DirectScrapers: p.cfg.Sources.EnableDirect,
			SerpAPI:        p.cfg.Sources.EnableSerpAPI,
		},
	}
	if len(final) > 0 {
		md.TopPrice = final[0].Price
		md.TopStore = final[0].Store
	}
	return md
}

// setupMessage explains an empty result in terms of what the user must
// configure, most actionable cause first.
func (p *Pipeline) setupMessage() string {
	src := p.cfg.Sources
	if !src.EnableSerpAPI && !src.EnableDirect {
		return "No data sources enabled. Set sources.enable_serpapi and/or sources.enable_direct in the config."
	}
	if src.EnableSerpAPI && src.SerpAPIKey == "" {
		return "A SerpAPI key is required. Add serpapi-api-key to the secrets directory or set sources.serpapi_key. Get a free key at https://serpapi.com/users/sign_up"
	}
	return "No products found. Try a different search term."
}
