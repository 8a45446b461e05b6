// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/shopmate/pkg/types"
)

// serpAPIBase is the SerpAPI search endpoint. Declared as a var so tests
// can substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search.json"

// serpAPIAccountBase is the SerpAPI account-info endpoint.
var serpAPIAccountBase = "https://serpapi.com/account.json"

// storePatterns maps link substrings to canonical store names, checked in
// order. Hits that match none fall back to the result's source field.
var storePatterns = []struct {
	substr string
	store  string
}{
	{"amazon", "Amazon"},
	{"flipkart", "Flipkart"},
	{"myntra", "Myntra"},
	{"ebay", "eBay"},
	{"jiomart", "JioMart"},
	{"tatacliq", "Tata CLiQ"},
	{"croma", "Croma"},
	{"reliance", "Reliance Digital"},
}

// SerpAPISource queries Google Shopping through SerpAPI. Store names are
// resolved per item from the product link where possible.
type SerpAPISource struct {
	APIKey     string
	MaxResults int
	UserAgent  string
	Client     *http.Client
}

// Name returns the source identifier used in provenance reports.
func (s *SerpAPISource) Name() string { return "SerpAPI (Other Stores)" }

type serpResponse struct {
	Error           string     `json:"error"`
	ShoppingResults []serpItem `json:"shopping_results"`
}

// serpItem uses loosely typed fields where SerpAPI alternates between
// numbers and formatted strings (e.g. price "₹1,999" vs extracted_price).
type serpItem struct {
	Title                  string  `json:"title"`
	Source                 string  `json:"source"`
	Snippet                string  `json:"snippet"`
	Thumbnail              string  `json:"thumbnail"`
	Link                   string  `json:"link"`
	ProductLink            string  `json:"product_link"`
	Price                  any     `json:"price"`
	ExtractedPrice         float64 `json:"extracted_price"`
	ExtractedOriginalPrice float64 `json:"extracted_original_price"`
	Rating                 any     `json:"rating"`
	Reviews                any     `json:"reviews"`
	ReviewsOriginalText    string  `json:"reviews_original_text"`
}

// Fetch queries Google Shopping and maps the results to Products. Items
// without a positive price or a link are dropped at the adapter boundary.
func (s *SerpAPISource) Fetch(ctx context.Context, query string) ([]types.Product, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("serpapi key not configured")
	}

	maxResults := s.MaxResults
	if maxResults <= 0 {
		maxResults = 15
	}

	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", query)
	params.Set("api_key", s.APIKey)
	params.Set("num", strconv.Itoa(maxResults))
	params.Set("gl", "in")
	params.Set("hl", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned HTTP %d", resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing serpapi response: %w", err)
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", sr.Error)
	}

	var products []types.Product
	for i, item := range sr.ShoppingResults {
		price := int(item.ExtractedPrice + 0.5)
		if price == 0 {
			price = parsePriceString(item.Price)
		}

		link := bestLink(item)
		store := detectStore(link)
		if store == "" {
			store = item.Source
		}
		if store == "" {
			store = "Google Shopping"
		}

		rating := coerceFloat(item.Rating)
		reviews := coerceCount(item.Reviews)
		if rating == 0 && item.ReviewsOriginalText != "" {
			rating = firstFloat(item.ReviewsOriginalText)
		}

		originalPrice, discount := 0, 0
		if op := int(item.ExtractedOriginalPrice + 0.5); op > price {
			originalPrice = op
			discount = int(float64(originalPrice-price)/float64(originalPrice)*100 + 0.5)
		}

		title := item.Title
		if title == "" {
			title = "Unknown Product"
		}

		p := types.Product{
			ID:            fmt.Sprintf("serp_%d_%s", i, uuid.NewString()[:8]),
			Title:         title,
			Subtitle:      store,
			Description:   item.Snippet,
			Image:         item.Thumbnail,
			Store:         store,
			Price:         price,
			OriginalPrice: originalPrice,
			Discount:      discount,
			Rating:        rating,
			Reviews:       reviews,
			Stock:         true,
			Link:          link,
		}
		if p.Price > 0 && p.Link != "" {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *SerpAPISource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// bestLink prefers the direct product_link; a google.com redirect link is
// unwrapped via its url/q/adurl parameters when possible.
func bestLink(item serpItem) string {
	if item.ProductLink != "" {
		return item.ProductLink
	}
	if item.Link == "" {
		return ""
	}
	if !strings.Contains(item.Link, "google.com/url") && !strings.Contains(item.Link, "google.com/shopping") {
		return item.Link
	}

	u, err := url.Parse(item.Link)
	if err != nil {
		return item.Link
	}
	for _, key := range []string{"url", "q", "adurl"} {
		if target := u.Query().Get(key); target != "" {
			if decoded, err := url.QueryUnescape(target); err == nil {
				return decoded
			}
			return target
		}
	}
	return item.Link
}

// detectStore resolves a canonical store name from the product link.
func detectStore(link string) string {
	linkLower := strings.ToLower(link)
	for _, sp := range storePatterns {
		if strings.Contains(linkLower, sp.substr) {
			return sp.store
		}
	}
	return ""
}

var floatPattern = regexp.MustCompile(`\d+\.?\d*`)

// parsePriceString extracts a whole-rupee price from a formatted string
// like "₹1,999.00".
func parsePriceString(v any) int {
	s, ok := v.(string)
	if !ok {
		if f, ok := v.(float64); ok {
			return int(f + 0.5)
		}
		return 0
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return int(f + 0.5)
}

// coerceFloat accepts a float or numeric string.
func coerceFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		return firstFloat(x)
	default:
		return 0
	}
}

// coerceCount accepts a count as a number or a formatted string ("1,234").
func coerceCount(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		var b strings.Builder
		for _, r := range x {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		n, _ := strconv.Atoi(b.String())
		return n
	default:
		return 0
	}
}

// firstFloat returns the first decimal number embedded in s, or 0.
func firstFloat(s string) float64 {
	m := floatPattern.FindString(s)
	if m == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(m, 64)
	return f
}

// AccountInfo summarizes SerpAPI plan usage for the account subcommand
// and the health endpoint.
type AccountInfo struct {
	Plan          string `json:"plan"`
	SearchesLeft  int    `json:"searchesLeft"`
	SearchesUsed  int    `json:"searchesUsed"`
	NextResetDate string `json:"resetDate"`
}

// FetchAccount retrieves plan and usage stats for the configured key.
func (s *SerpAPISource) FetchAccount(ctx context.Context) (*AccountInfo, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("serpapi key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIAccountBase+"?api_key="+url.QueryEscape(s.APIKey), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi account request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi account returned HTTP %d", resp.StatusCode)
	}

	var raw struct {
		PlanName          string `json:"plan_name"`
		AccountType       string `json:"account_type"`
		TotalSearchesLeft int    `json:"total_searches_left"`
		ThisMonthUsage    int    `json:"this_month_usage"`
		NextResetDate     string `json:"next_reset_date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing account response: %w", err)
	}

	info := &AccountInfo{
		Plan:          raw.PlanName,
		SearchesLeft:  raw.TotalSearchesLeft,
		SearchesUsed:  raw.ThisMonthUsage,
		NextResetDate: raw.NextResetDate,
	}
	if info.Plan == "" {
		info.Plan = raw.AccountType
	}
	if info.Plan == "" {
		info.Plan = "Free"
	}
	if info.NextResetDate == "" {
		info.NextResetDate = "Unknown"
	}
	return info, nil
}
