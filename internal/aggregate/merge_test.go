// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"strings"
	"testing"

	"github.com/pdiddy/shopmate/pkg/types"
)

func product(id, title string, price int, link string) types.Product {
	return types.Product{ID: id, Title: title, Price: price, Link: link, Store: "Test"}
}

// --- Merge ---

func TestMergeDropsInvalid(t *testing.T) {
	items := []types.Product{
		product("a", "Widget", 100, "https://example.com/a"),
		product("b", "", 100, "https://example.com/b"),
		product("c", "No price", 0, "https://example.com/c"),
		product("d", "No link", 100, ""),
	}

	merged, _, removed := Merge(items)
	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}
	if merged[0].ID != "a" {
		t.Errorf("survivor = %q, want a", merged[0].ID)
	}
	// Invalid items are dropped, not counted as duplicates.
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestMergeFirstOccurrenceWins(t *testing.T) {
	items := []types.Product{
		product("amazon_1", "Samsung Galaxy S24 5G", 59999, "https://amazon.in/1"),
		product("serp_1", "Samsung Galaxy S24 5G", 59999, "https://flipkart.com/1"),
		product("serp_2", "Samsung Galaxy S24 5G", 58999, "https://flipkart.com/2"),
	}

	merged, _, removed := Merge(items)
	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	if merged[0].ID != "amazon_1" {
		t.Errorf("first survivor = %q, want amazon_1 (first occurrence)", merged[0].ID)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestMergeSamePrefixDifferentPrice(t *testing.T) {
	items := []types.Product{
		product("a", "USB-C Hub", 999, "https://example.com/a"),
		product("b", "USB-C Hub", 1099, "https://example.com/b"),
	}

	merged, _, _ := Merge(items)
	if len(merged) != 2 {
		t.Errorf("len(merged) = %d, want 2 (different prices are distinct)", len(merged))
	}
}

func TestMergeTitleCaseInsensitive(t *testing.T) {
	items := []types.Product{
		product("a", "iPhone 15 Pro", 120000, "https://example.com/a"),
		product("b", "IPHONE 15 PRO", 120000, "https://example.com/b"),
	}

	merged, _, removed := Merge(items)
	if len(merged) != 1 || removed != 1 {
		t.Errorf("merged = %d, removed = %d; want 1, 1", len(merged), removed)
	}
}

func TestMergeLongTitlesShareKeyPrefix(t *testing.T) {
	base := strings.Repeat("x", dedupTitlePrefix)
	items := []types.Product{
		product("a", base+" variant one", 500, "https://example.com/a"),
		product("b", base+" variant two", 500, "https://example.com/b"),
	}

	merged, _, _ := Merge(items)
	if len(merged) != 1 {
		t.Errorf("len(merged) = %d, want 1 (titles identical within %d-char prefix)", len(merged), dedupTitlePrefix)
	}
}

func TestMergeLinkStats(t *testing.T) {
	items := []types.Product{
		product("a", "Direct A", 100, "https://amazon.in/a"),
		product("b", "Direct B", 200, "https://flipkart.com/b"),
		product("c", "Redirect C", 300, "https://www.google.com/shopping/product/1"),
	}

	_, stats, _ := Merge(items)
	if stats.Direct != 2 {
		t.Errorf("stats.Direct = %d, want 2", stats.Direct)
	}
	if stats.Redirect != 1 {
		t.Errorf("stats.Redirect = %d, want 1", stats.Redirect)
	}
}

func TestMergeIdempotent(t *testing.T) {
	items := []types.Product{
		product("amazon_1", "Samsung Galaxy S24 5G", 59999, "https://amazon.in/1"),
		product("serp_1", "Samsung Galaxy S24 5G", 59999, "https://flipkart.com/1"),
		product("b", "", 100, "https://example.com/b"),
		product("c", "Widget", 100, "https://example.com/c"),
		product("d", "Redirect", 300, "https://www.google.com/shopping/product/1"),
	}

	once, onceStats, _ := Merge(items)
	twice, twiceStats, removed := Merge(once)

	if removed != 0 {
		t.Errorf("removed = %d, want 0 on already-merged input", removed)
	}
	if len(twice) != len(once) {
		t.Fatalf("len = %d after second pass, want %d", len(twice), len(once))
	}
	for i := range once {
		if twice[i] != once[i] {
			t.Errorf("item %d changed on second pass: %+v != %+v", i, twice[i], once[i])
		}
	}
	if twiceStats != onceStats {
		t.Errorf("stats changed on second pass: %+v != %+v", twiceStats, onceStats)
	}
}

func TestMergeEmpty(t *testing.T) {
	merged, stats, removed := Merge(nil)
	if len(merged) != 0 || removed != 0 || stats.Direct != 0 || stats.Redirect != 0 {
		t.Errorf("Merge(nil) = %v, %v, %d; want empty", merged, stats, removed)
	}
}
