// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the shopmate pipeline.
package types

// Product is one listing as returned by a source adapter. Prices are in
// whole rupees. A Product with Price <= 0, an empty Title, or an empty
// Link is invalid and is dropped before deduplication.
type Product struct {
	// ID is unique within its source (e.g. "amazon_B0ABC123_...").
	ID string `json:"id" yaml:"id"`

	// Title is the listing title as shown by the store.
	Title string `json:"title" yaml:"title"`

	// Subtitle and Description are optional display fields.
	Subtitle    string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Image is a thumbnail URL, possibly empty.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`

	// Store is the retailer name (e.g. "Amazon", "Flipkart", or a store
	// resolved from a Google Shopping result).
	Store string `json:"store" yaml:"store"`

	// Price is the current price. OriginalPrice is the pre-discount price,
	// 0 when unknown. Discount is the derived percentage (0-100).
	Price         int `json:"price" yaml:"price"`
	OriginalPrice int `json:"originalPrice" yaml:"original_price"`
	Discount      int `json:"discount" yaml:"discount"`

	// Rating is the average review score, 0 when unknown. Reviews is the
	// review count, 0 when unknown.
	Rating  float64 `json:"rating" yaml:"rating"`
	Reviews int     `json:"reviews" yaml:"reviews"`

	// Stock reports whether the listing appeared purchasable.
	Stock bool `json:"stock" yaml:"stock"`

	// Link is the absolute product URL.
	Link string `json:"link" yaml:"link"`
}

// Valid reports whether the product satisfies the validity invariant.
func (p Product) Valid() bool {
	return p.Price > 0 && p.Title != "" && p.Link != ""
}

// Key returns the identity used for subset membership checks: the ID when
// present, otherwise the link.
func (p Product) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Link
}

// ScoredProduct is a Product plus its ranking scores. Values are never
// mutated after creation; re-ranking produces new ScoredProducts. Items
// that were not sampled for scoring carry zero score fields.
type ScoredProduct struct {
	Product

	// RScore is the externally supplied relevance estimate (0.0-1.0).
	RScore float64 `json:"R_Score,omitempty" yaml:"r_score,omitempty"`

	// PScore is the locally computed price-competitiveness estimate (0.0-1.0).
	PScore float64 `json:"P_Score,omitempty" yaml:"p_score,omitempty"`

	// IrrelevancePenalty is 0.9 when the item looks like an accessory
	// mismatched to a primary-product query, else 0.0.
	IrrelevancePenalty float64 `json:"Irrelevance_Penalty,omitempty" yaml:"irrelevance_penalty,omitempty"`

	// CRS is the composite rank score, clamped to a minimum of 0.
	CRS float64 `json:"CRS,omitempty" yaml:"crs,omitempty"`
}

// RankOutput is the relevance scorer's result, always returned in this
// tagged shape. AllScoresFailed means zero scores were obtained across
// every batch; callers must then discard the order and fall back to the
// deterministic price sort rather than trust an all-neutral ranking.
type RankOutput struct {
	Ranked          []ScoredProduct
	AllScoresFailed bool
}

// SourceType classifies a source's outcome for provenance reporting.
type SourceType string

const (
	SourceDirect  SourceType = "direct"
	SourceSerpAPI SourceType = "serpapi"
	SourceFailed  SourceType = "failed"
)

// SourceReport is the provenance record for one source invocation.
// Immutable after creation; used only for result metadata.
type SourceReport struct {
	Name          string     `json:"name" yaml:"name"`
	Count         int        `json:"count" yaml:"count"`
	Type          SourceType `json:"type" yaml:"type"`
	DirectLinks   int        `json:"directLinks,omitempty" yaml:"direct_links,omitempty"`
	RedirectLinks int        `json:"redirectLinks,omitempty" yaml:"redirect_links,omitempty"`
	Error         string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// StrategyFlags records which source strategies were enabled for a run.
type StrategyFlags struct {
	DirectScrapers bool `json:"directScrapers" yaml:"direct_scrapers"`
	SerpAPI        bool `json:"serpApi" yaml:"serpapi"`
}

// Metadata describes one aggregation run.
type Metadata struct {
	TotalResults  int            `json:"totalResults" yaml:"total_results"`
	TopPrice      int            `json:"topPrice,omitempty" yaml:"top_price,omitempty"`
	TopStore      string         `json:"topStore,omitempty" yaml:"top_store,omitempty"`
	RankedByAI    bool           `json:"rankedByAI" yaml:"ranked_by_ai"`
	FetchTimeMS   int64          `json:"fetchTime" yaml:"fetch_time_ms"`
	DirectLinks   int            `json:"directLinks" yaml:"direct_links"`
	RedirectLinks int            `json:"redirectLinks" yaml:"redirect_links"`
	Sources       []SourceReport `json:"sources" yaml:"sources"`
	Strategy      StrategyFlags  `json:"strategy" yaml:"strategy"`
}

// AggregationResult is the pipeline's sole output: the ordered product
// list, a human-readable summary, and run metadata. Constructed once per
// query and never cached by the pipeline itself.
type AggregationResult struct {
	Products []ScoredProduct `json:"products" yaml:"products"`
	Summary  string          `json:"summary" yaml:"summary"`
	Metadata Metadata        `json:"metadata" yaml:"metadata"`
}
