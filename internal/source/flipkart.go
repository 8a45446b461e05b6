// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/shopmate/pkg/types"
)

// flipkartBase is the Flipkart storefront. Var for test substitution.
var flipkartBase = "https://www.flipkart.com"

// flipkartCardSelectors are tried in order; Flipkart rotates result-card
// class names frequently.
var flipkartCardSelectors = []string{
	"[data-id]",
	"._1AtVbE",
	"._2kHMtA",
	".cPHDOP",
	"._13oc-S",
	".s1Q9rs",
	"._4rR01T",
}

const maxFlipkartResults = 40

// FlipkartSource scrapes the Flipkart search results page directly.
// Blocked or near-empty pages report zero results rather than an error.
type FlipkartSource struct {
	UserAgent string
	Client    *http.Client
}

// Name returns the source identifier used in provenance reports.
func (f *FlipkartSource) Name() string { return "Flipkart" }

// Fetch loads the search results page and extracts up to 40 products.
func (f *FlipkartSource) Fetch(ctx context.Context, query string) ([]types.Product, error) {
	pageURL := flipkartBase + "/search?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setBrowserHeaders(req, f.UserAgent)
	req.Header.Set("Referer", "https://www.google.com/")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flipkart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flipkart returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading flipkart page: %w", err)
	}
	html := string(body)
	if len(html) < 1000 || strings.Contains(html, "Access Denied") || strings.Contains(strings.ToLower(html), "blocked") {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing flipkart page: %w", err)
	}

	return parseFlipkartCards(doc), nil
}

func parseFlipkartCards(doc *goquery.Document) []types.Product {
	var cards *goquery.Selection
	for _, s := range flipkartCardSelectors {
		cards = doc.Find(s)
		if cards.Length() > 0 {
			break
		}
	}
	if cards == nil || cards.Length() == 0 {
		return nil
	}

	var items []types.Product
	cards.EachWithBreak(func(i int, el *goquery.Selection) bool {
		if len(items) >= maxFlipkartResults {
			return false
		}

		title := firstText(el, "._4rR01T", ".s1Q9rs", "._2WkVRV", ".IRpwTGD")
		if title == "" {
			title = firstAttr(el, "title", "a[title]")
		}
		if title == "" {
			return true
		}

		link, _ := el.Find("a").First().Attr("href")
		if link == "" {
			return true
		}
		if !strings.HasPrefix(link, "http") {
			link = flipkartBase + link
		}

		image := firstAttr(el, "src", "img")
		if image == "" {
			image = firstAttr(el, "data-src", "img")
		}

		price := parseDigits(firstText(el, "._30jeq3", "._1_WHN1", "._3I9_wc", `div[class*="price"]`))
		if price == 0 {
			return true
		}

		origPrice := parseDigits(firstText(el, "._3I9_wc", "._11B7B", "._3auQ3N"))

		discount := parseDigits(firstText(el, "._3Ay6Sb", "._1uv9Cb"))
		if origPrice > price && discount == 0 {
			discount = int(float64(origPrice-price)/float64(origPrice)*100 + 0.5)
		}

		rating := firstFloat(firstText(el, "._3LWZlK", "._1lRcqv", `div[class*="rating"]`))
		reviews := parseDigits(el.Find("._2_R_DZ").First().Text())

		items = append(items, types.Product{
			ID:            fmt.Sprintf("flipkart_%d", i),
			Title:         title,
			Image:         image,
			Store:         "Flipkart",
			Price:         price,
			OriginalPrice: origPrice,
			Discount:      discount,
			Rating:        rating,
			Reviews:       reviews,
			Stock:         true,
			Link:          link,
		})
		return true
	})

	return items
}
