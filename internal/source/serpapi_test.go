// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serpTestServer(t *testing.T, body string) *SerpAPISource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("engine"); got != "google_shopping" {
			t.Errorf("engine = %q, want google_shopping", got)
		}
		if got := r.URL.Query().Get("gl"); got != "in" {
			t.Errorf("gl = %q, want in", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	oldBase := serpAPIBase
	serpAPIBase = srv.URL
	t.Cleanup(func() { serpAPIBase = oldBase })

	return &SerpAPISource{APIKey: "test-key", MaxResults: 15, Client: srv.Client()}
}

// --- Fetch ---

func TestSerpAPIFetch(t *testing.T) {
	s := serpTestServer(t, `{
		"shopping_results": [
			{
				"title": "Sony WH-1000XM5",
				"source": "Headphone Zone",
				"product_link": "https://www.headphonezone.in/sony",
				"extracted_price": 29990,
				"extracted_original_price": 34990,
				"rating": 4.7,
				"reviews": 812,
				"thumbnail": "https://img.example.com/1.jpg"
			},
			{
				"title": "Sony WH-CH520",
				"link": "https://www.croma.com/sony-ch520",
				"price": "₹4,490.00",
				"rating": "4.2"
			},
			{
				"title": "No price item",
				"link": "https://example.com/x"
			}
		]
	}`)

	products, err := s.Fetch(context.Background(), "sony headphones")
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("len(products) = %d, want 2 (priceless item dropped)", len(products))
	}

	first := products[0]
	if first.Price != 29990 {
		t.Errorf("price = %d, want 29990", first.Price)
	}
	if first.OriginalPrice != 34990 {
		t.Errorf("originalPrice = %d, want 34990", first.OriginalPrice)
	}
	if first.Discount != 14 {
		t.Errorf("discount = %d, want 14", first.Discount)
	}
	if first.Rating != 4.7 || first.Reviews != 812 {
		t.Errorf("rating/reviews = %f/%d", first.Rating, first.Reviews)
	}
	if first.Link != "https://www.headphonezone.in/sony" {
		t.Errorf("link = %q", first.Link)
	}

	second := products[1]
	if second.Price != 4490 {
		t.Errorf("string price = %d, want 4490", second.Price)
	}
	if second.Store != "Croma" {
		t.Errorf("store = %q, want Croma (detected from link)", second.Store)
	}
	if second.Rating != 4.2 {
		t.Errorf("string rating = %f, want 4.2", second.Rating)
	}
}

func TestSerpAPIFetchError(t *testing.T) {
	s := serpTestServer(t, `{"error": "Invalid API key"}`)

	_, err := s.Fetch(context.Background(), "anything")
	if err == nil {
		t.Fatal("want error for API error response")
	}
}

func TestSerpAPIFetchNoKey(t *testing.T) {
	s := &SerpAPISource{}
	if _, err := s.Fetch(context.Background(), "anything"); err == nil {
		t.Fatal("want error with no API key")
	}
}

// --- link handling ---

func TestBestLink(t *testing.T) {
	tests := []struct {
		name string
		item serpItem
		want string
	}{
		{
			"product link preferred",
			serpItem{ProductLink: "https://store.example.com/p", Link: "https://www.google.com/url?q=x"},
			"https://store.example.com/p",
		},
		{
			"plain link passes through",
			serpItem{Link: "https://www.croma.com/p"},
			"https://www.croma.com/p",
		},
		{
			"google redirect unwrapped via q",
			serpItem{Link: "https://www.google.com/url?q=https%3A%2F%2Fwww.croma.com%2Fp"},
			"https://www.croma.com/p",
		},
		{
			"google shopping unwrapped via adurl",
			serpItem{Link: "https://www.google.com/shopping/product/1?adurl=https%3A%2F%2Fstore.example.com%2Fx"},
			"https://store.example.com/x",
		},
		{
			"unwrappable redirect kept",
			serpItem{Link: "https://www.google.com/shopping/product/1"},
			"https://www.google.com/shopping/product/1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestLink(tt.item); got != tt.want {
				t.Errorf("bestLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectStore(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.amazon.in/dp/B0", "Amazon"},
		{"https://www.flipkart.com/p", "Flipkart"},
		{"https://www.myntra.com/p", "Myntra"},
		{"https://www.ebay.in/itm/1", "eBay"},
		{"https://www.jiomart.com/p", "JioMart"},
		{"https://www.tatacliq.com/p", "Tata CLiQ"},
		{"https://www.croma.com/p", "Croma"},
		{"https://www.reliancedigital.in/p", "Reliance Digital"},
		{"https://www.unknownshop.example/p", ""},
	}
	for _, tt := range tests {
		if got := detectStore(tt.link); got != tt.want {
			t.Errorf("detectStore(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}

// --- value coercion ---

func TestParsePriceString(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{"₹1,999.00", 1999},
		{"₹59,999", 59999},
		{float64(450), 450},
		{"no digits", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := parsePriceString(tt.in); got != tt.want {
			t.Errorf("parsePriceString(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// --- FetchAccount ---

func TestFetchAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}
		w.Write([]byte(`{
			"plan_name": "Developer",
			"total_searches_left": 4200,
			"this_month_usage": 800,
			"next_reset_date": "2026-09-15"
		}`))
	}))
	defer srv.Close()

	oldBase := serpAPIAccountBase
	serpAPIAccountBase = srv.URL
	defer func() { serpAPIAccountBase = oldBase }()

	s := &SerpAPISource{APIKey: "test-key", Client: srv.Client()}
	info, err := s.FetchAccount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Plan != "Developer" || info.SearchesLeft != 4200 || info.SearchesUsed != 800 {
		t.Errorf("info = %+v", info)
	}
	if info.NextResetDate != "2026-09-15" {
		t.Errorf("reset date = %q", info.NextResetDate)
	}
}

func TestFetchAccountDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_searches_left": 100}`))
	}))
	defer srv.Close()

	oldBase := serpAPIAccountBase
	serpAPIAccountBase = srv.URL
	defer func() { serpAPIAccountBase = oldBase }()

	s := &SerpAPISource{APIKey: "k", Client: srv.Client()}
	info, err := s.FetchAccount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Plan != "Free" {
		t.Errorf("plan = %q, want Free default", info.Plan)
	}
	if info.NextResetDate != "Unknown" {
		t.Errorf("reset date = %q, want Unknown default", info.NextResetDate)
	}
}
