// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores product candidates for relevance and orders them
// by a composite score. Scoring calls an AI backend in batches; every
// failure degrades to neutral scores rather than an error.
package rank

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/shopmate/pkg/types"
)

// Composite rank score weights. Relevance dominates, price breaks ties,
// and a confirmed accessory mismatch is pushed to the bottom.
const (
	weightRelevance = 5.0
	weightPrice     = 2.0
	weightPenalty   = 8.0
)

const (
	defaultBatchSize   = 25
	defaultBatchPacing = 500 * time.Millisecond
)

// neutralRScore is assumed for candidates the backend did not score.
const neutralRScore = 0.5

// accessoryTitleKeywords flag listings whose title reads like an add-on.
// The flag is advisory input to the scorer, not a verdict.
var accessoryTitleKeywords = []string{
	"case", "cover", "charger", "cable", "protector", "stand", "adapter",
}

// Candidate is one listing as presented to the scoring backend.
type Candidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	IsAccessory bool   `json:"is_accessory"`
}

// Score is one backend verdict. RScore is the relevance estimate in
// [0, 1]; IrrelevancePenalty is 0.9 for an accessory mismatched to a
// primary-product query and 0 otherwise.
type Score struct {
	ID                 string  `json:"id"`
	RScore             float64 `json:"R_Score"`
	IrrelevancePenalty float64 `json:"Irrelevance_Penalty"`
}

// Backend scores one batch of candidates against the query.
type Backend interface {
	Name() string
	Score(ctx context.Context, query string, batch []Candidate) ([]Score, error)
}

// Ranker batches candidates through a Backend and orders the results.
// Batch calls are paced by a rate limiter so bursts of batches do not
// trip the provider's rate limits.
type Ranker struct {
	backend Backend
	cfg     types.RankerConfig
	limiter *rate.Limiter
	w       io.Writer
}

// New builds a Ranker. A nil backend is valid and means AI scoring is
// disabled; Rank then returns the input unscored with AllScoresFailed
// set.
func New(backend Backend, cfg types.RankerConfig, w io.Writer) *Ranker {
	pacing := cfg.BatchPacing
	if pacing <= 0 {
		pacing = defaultBatchPacing
	}
	return &Ranker{
		backend: backend,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(pacing), 1),
		w:       w,
	}
}

// Rank scores the products and returns them ordered by descending
// composite score. Candidates the backend did not score get a neutral
// relevance of 0.5 and no penalty. The ordering among equal scores is
// stable with respect to the input. AllScoresFailed is set only when
// not a single score was obtained; partial coverage is still a ranking.
func (r *Ranker) Rank(ctx context.Context, query string, products []types.Product) types.RankOutput {
	if len(products) == 0 {
		return types.RankOutput{AllScoresFailed: true}
	}
	if r.backend == nil || !r.cfg.Configured() {
		fmt.Fprintln(r.w, "AI ranking disabled (no API key configured)")
		return types.RankOutput{Ranked: wrapUnscored(products), AllScoresFailed: true}
	}

	candidates := make([]Candidate, len(products))
	for i, p := range products {
		candidates[i] = Candidate{
			ID:          p.Key(),
			Title:       p.Title,
			Price:       p.Price,
			IsAccessory: isAccessoryTitle(p.Title),
		}
	}

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	totalBatches := (len(candidates) + batchSize - 1) / batchSize

	scores := make(map[string]Score)
	for start, batch := 0, 1; start < len(candidates); start, batch = start+batchSize, batch+1 {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		if err := r.limiter.Wait(ctx); err != nil {
			fmt.Fprintf(r.w, "warning: scoring aborted at batch %d/%d: %v\n", batch, totalBatches, err)
			break
		}

		got, err := r.backend.Score(ctx, query, candidates[start:end])
		if err != nil {
			// One bad batch costs its scores, never the whole ranking.
			fmt.Fprintf(r.w, "warning: scoring batch %d/%d failed: %v\n", batch, totalBatches, err)
			continue
		}
		for _, s := range got {
			scores[s.ID] = s
		}
	}

	ranked := make([]types.ScoredProduct, len(products))
	for i, p := range products {
		rScore, penalty := neutralRScore, 0.0
		if s, ok := scores[candidates[i].ID]; ok {
			rScore, penalty = s.RScore, s.IrrelevancePenalty
		}
		pScore := PScore(p.Price)

		crs := weightRelevance*rScore + weightPrice*pScore - weightPenalty*penalty
		if crs < 0 {
			crs = 0
		}
		ranked[i] = types.ScoredProduct{
			Product:            p,
			RScore:             rScore,
			PScore:             pScore,
			IrrelevancePenalty: penalty,
			CRS:                crs,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].CRS > ranked[j].CRS })

	return types.RankOutput{Ranked: ranked, AllScoresFailed: len(scores) == 0}
}

// PScore estimates price competitiveness in [0, 1] from the price alone.
// The reference price is a category-scale markup: high-ticket items
// (above ₹10,000) compete in a narrow band, cheap items in a wide one.
func PScore(price int) float64 {
	if price <= 0 {
		return 0
	}
	reference := float64(price) * 2
	if price > 10000 {
		reference = float64(price) * 1.15
	}
	score := 1 - float64(price)/reference
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func isAccessoryTitle(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range accessoryTitleKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

func wrapUnscored(products []types.Product) []types.ScoredProduct {
	out := make([]types.ScoredProduct, len(products))
	for i, p := range products {
		out[i] = types.ScoredProduct{Product: p}
	}
	return out
}
