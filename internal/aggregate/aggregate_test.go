// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/pdiddy/shopmate/pkg/types"
)

// --- mock stages ---

type mockGatherer struct {
	items   []types.Product
	reports []types.SourceReport
}

func (m *mockGatherer) Gather(_ context.Context, _ string) ([]types.Product, []types.SourceReport) {
	return m.items, m.reports
}

type mockRanker struct {
	out        types.RankOutput
	candidates []types.Product
}

func (m *mockRanker) Rank(_ context.Context, _ string, products []types.Product) types.RankOutput {
	m.candidates = products
	return m.out
}

// scoreAll returns every candidate scored in reverse input order so the
// test can tell a ranked order from the merged order.
type reverseRanker struct{}

func (reverseRanker) Rank(_ context.Context, _ string, products []types.Product) types.RankOutput {
	ranked := make([]types.ScoredProduct, 0, len(products))
	for i := len(products) - 1; i >= 0; i-- {
		ranked = append(ranked, types.ScoredProduct{
			Product: products[i],
			RScore:  1.0,
			CRS:     float64(len(products) - i),
		})
	}
	return types.RankOutput{Ranked: ranked}
}

type mockAdvisor struct {
	note    string
	gotTop  []types.ScoredProduct
	verdict string
}

func (m *mockAdvisor) Verdict(_ context.Context, products []types.ScoredProduct, note string) string {
	m.gotTop = products
	m.note = note
	if m.verdict != "" {
		return m.verdict
	}
	return "test verdict"
}

func testPipelineCfg() types.PipelineConfig {
	return types.PipelineConfig{
		Sources: types.SourcesConfig{
			EnableDirect:  true,
			EnableSerpAPI: true,
			SerpAPIKey:    "test-key",
		},
	}
}

func newTestPipeline(g Gatherer, r Ranker, a Advisor) *Pipeline {
	return New(g, r, a, testPipelineCfg(), io.Discard)
}

// --- ranked path ---

func TestRunRankedOrder(t *testing.T) {
	gatherer := &mockGatherer{
		items: []types.Product{
			product("a", "Widget Alpha", 100, "https://example.com/a"),
			product("b", "Widget Beta", 200, "https://example.com/b"),
			product("c", "Widget Gamma", 300, "https://example.com/c"),
		},
		reports: []types.SourceReport{{Name: "Amazon", Count: 3, Type: types.SourceDirect}},
	}
	advisor := &mockAdvisor{}
	p := newTestPipeline(gatherer, reverseRanker{}, advisor)

	result := p.Run(context.Background(), "widget")

	if len(result.Products) != 3 {
		t.Fatalf("len(products) = %d, want 3", len(result.Products))
	}
	if result.Products[0].ID != "c" {
		t.Errorf("top product = %q, want c (ranked order, not merged order)", result.Products[0].ID)
	}
	if !result.Metadata.RankedByAI {
		t.Error("RankedByAI = false, want true")
	}
	if result.Metadata.TopPrice != 300 || result.Metadata.TopStore != "Test" {
		t.Errorf("top price/store = %d/%q", result.Metadata.TopPrice, result.Metadata.TopStore)
	}
	if advisor.note != "" {
		t.Errorf("note = %q, want empty on a successful ranking", advisor.note)
	}
	if result.Summary != "test verdict" {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestRunSubsetKeepsUnrankedAtEnd(t *testing.T) {
	// 60 low-value items: only the cheapest 30 get ranked, the rest must
	// follow in merged order.
	var items []types.Product
	for i := 0; i < 60; i++ {
		items = append(items, product(
			fmt.Sprintf("p%d", i),
			fmt.Sprintf("Coffee Mug Style %d", i),
			100+i,
			fmt.Sprintf("https://example.com/%d", i),
		))
	}
	gatherer := &mockGatherer{items: items}
	p := newTestPipeline(gatherer, reverseRanker{}, &mockAdvisor{})

	result := p.Run(context.Background(), "coffee mug")

	if len(result.Products) != 60 {
		t.Fatalf("len(products) = %d, want 60 (no item dropped)", len(result.Products))
	}
	// Ranked block first (reverse of cheapest 30), unranked afterwards in
	// merged order.
	if result.Products[0].ID != "p29" {
		t.Errorf("first product = %q, want p29", result.Products[0].ID)
	}
	if result.Products[30].ID != "p30" {
		t.Errorf("first unranked product = %q, want p30", result.Products[30].ID)
	}
	if result.Products[59].ID != "p59" {
		t.Errorf("last product = %q, want p59", result.Products[59].ID)
	}
	if result.Products[30].CRS != 0 {
		t.Errorf("unranked product CRS = %f, want 0", result.Products[30].CRS)
	}
}

// --- fallback path ---

func TestRunAllScoresFailedFallsBackToPriceSort(t *testing.T) {
	gatherer := &mockGatherer{
		items: []types.Product{
			product("a", "Galaxy S24 Ultra", 110000, "https://example.com/a"),
			product("b", "Galaxy S24 Case", 499, "https://example.com/b"),
			product("c", "Galaxy S24", 65000, "https://example.com/c"),
		},
	}
	ranker := &mockRanker{out: types.RankOutput{AllScoresFailed: true}}
	advisor := &mockAdvisor{}
	p := newTestPipeline(gatherer, ranker, advisor)

	result := p.Run(context.Background(), "galaxy s24")

	// Accessory filtered out, remainder ascending by price.
	if len(result.Products) != 2 {
		t.Fatalf("len(products) = %d, want 2", len(result.Products))
	}
	if result.Products[0].ID != "c" || result.Products[1].ID != "a" {
		t.Errorf("order = %q, %q; want c, a", result.Products[0].ID, result.Products[1].ID)
	}
	if result.Metadata.RankedByAI {
		t.Error("RankedByAI = true, want false")
	}
	if !strings.Contains(advisor.note, "AI ranking temporarily unavailable") {
		t.Errorf("note = %q, want degradation disclosure", advisor.note)
	}
}

func TestRunAdvisorSeesTopFive(t *testing.T) {
	var items []types.Product
	for i := 0; i < 10; i++ {
		items = append(items, product(
			fmt.Sprintf("p%d", i),
			fmt.Sprintf("Desk Lamp %d", i),
			500+i,
			fmt.Sprintf("https://example.com/%d", i),
		))
	}
	advisor := &mockAdvisor{}
	p := newTestPipeline(&mockGatherer{items: items}, reverseRanker{}, advisor)

	p.Run(context.Background(), "desk lamp")

	if len(advisor.gotTop) != 5 {
		t.Errorf("advisor saw %d products, want 5", len(advisor.gotTop))
	}
}

// --- empty results ---

func TestRunEmptyResultSetupMessages(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.SourcesConfig
		want string
	}{
		{
			"no sources enabled",
			types.SourcesConfig{},
			"No data sources enabled",
		},
		{
			"serpapi without key",
			types.SourcesConfig{EnableSerpAPI: true},
			"SerpAPI key is required",
		},
		{
			"configured but nothing found",
			types.SourcesConfig{EnableSerpAPI: true, SerpAPIKey: "k"},
			"Try a different search term",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.PipelineConfig{Sources: tt.cfg}
			p := New(&mockGatherer{}, &mockRanker{}, &mockAdvisor{}, cfg, io.Discard)

			result := p.Run(context.Background(), "anything")

			if len(result.Products) != 0 {
				t.Fatalf("len(products) = %d, want 0", len(result.Products))
			}
			if !strings.Contains(result.Summary, tt.want) {
				t.Errorf("summary = %q, want substring %q", result.Summary, tt.want)
			}
			if result.Metadata.RankedByAI {
				t.Error("RankedByAI = true, want false")
			}
		})
	}
}

// --- metadata ---

func TestRunMetadataCarriesReportsAndStats(t *testing.T) {
	gatherer := &mockGatherer{
		items: []types.Product{
			product("a", "Widget Alpha", 100, "https://amazon.in/a"),
			product("b", "Widget Beta", 200, "https://www.google.com/shopping/product/2"),
		},
		reports: []types.SourceReport{
			{Name: "Amazon", Count: 1, Type: types.SourceDirect},
			{Name: "SerpAPI (Other Stores)", Count: 1, Type: types.SourceSerpAPI},
		},
	}
	p := newTestPipeline(gatherer, reverseRanker{}, &mockAdvisor{})

	result := p.Run(context.Background(), "widget")

	md := result.Metadata
	if md.DirectLinks != 1 || md.RedirectLinks != 1 {
		t.Errorf("links = %d direct / %d redirect, want 1/1", md.DirectLinks, md.RedirectLinks)
	}
	if len(md.Sources) != 2 {
		t.Errorf("len(sources) = %d, want 2", len(md.Sources))
	}
	if !md.Strategy.DirectScrapers || !md.Strategy.SerpAPI {
		t.Errorf("strategy = %+v, want both enabled", md.Strategy)
	}
	if md.TotalResults != len(result.Products) {
		t.Errorf("TotalResults = %d, want %d", md.TotalResults, len(result.Products))
	}
}
