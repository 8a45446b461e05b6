// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/shopmate/pkg/types"
)

// amazonBase is the Amazon India storefront. Var for test substitution.
var amazonBase = "https://www.amazon.in"

const maxDirectResults = 20

// amazonProductSelectors are tried in order; Amazon rotates its result
// markup between these layouts.
var amazonProductSelectors = []string{
	`[data-component-type="s-search-result"]`,
	`.s-result-item[data-asin]`,
	`div[data-asin]:not([data-asin=""])`,
}

// AmazonSource scrapes the Amazon search results page directly, which
// yields guaranteed direct links. It reports zero results rather than an
// error when bot detection triggers.
type AmazonSource struct {
	UserAgent string
	Client    *http.Client
}

// Name returns the source identifier used in provenance reports.
func (a *AmazonSource) Name() string { return "Amazon" }

// Fetch loads the search results page and extracts up to 20 products.
func (a *AmazonSource) Fetch(ctx context.Context, query string) ([]types.Product, error) {
	pageURL := amazonBase + "/s?k=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setBrowserHeaders(req, a.UserAgent)

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amazon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amazon returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing amazon page: %w", err)
	}

	if isAmazonBlocked(doc) {
		return nil, nil
	}

	var sel *goquery.Selection
	for _, s := range amazonProductSelectors {
		sel = doc.Find(s)
		if sel.Length() > 0 {
			break
		}
	}
	if sel == nil || sel.Length() == 0 {
		return nil, nil
	}

	var items []types.Product
	sel.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if len(items) >= maxDirectResults {
			return false
		}

		asin, _ := el.Attr("data-asin")
		if asin == "" {
			return true
		}

		title := firstText(el,
			"h2 a span",
			"h2 span",
			".a-text-normal",
		)
		if title == "" {
			return true
		}

		link := ""
		if href := firstAttr(el, "href", "h2 a", "a.a-link-normal"); href != "" {
			if strings.HasPrefix(href, "http") {
				link = href
			} else {
				link = amazonBase + href
			}
		} else {
			link = amazonBase + "/dp/" + asin
		}

		image := firstAttr(el, "src", "img")
		if image == "" {
			image = firstAttr(el, "data-src", "img")
		}

		price := parseDigits(firstText(el,
			".a-price-whole",
			".a-price .a-offscreen",
			".a-color-price",
		))
		if price == 0 {
			return true
		}

		origPrice := parseDigits(el.Find(".a-text-price .a-offscreen").First().Text())
		discount := 0
		if origPrice > price {
			discount = int(float64(origPrice-price)/float64(origPrice)*100 + 0.5)
		}

		ratingText := el.Find(".a-icon-alt").First().Text()
		if ratingText == "" {
			ratingText = firstAttr(el, "aria-label", `[aria-label*="stars"]`)
		}
		rating := firstFloat(ratingText)

		reviewsText := el.Find(".a-size-base.s-underline-text").First().Text()
		if reviewsText == "" {
			reviewsText = firstAttr(el, "aria-label", `[aria-label*="ratings"]`)
		}
		reviews := parseDigits(reviewsText)

		items = append(items, types.Product{
			ID:            "amazon_" + asin,
			Title:         title,
			Image:         image,
			Store:         "Amazon",
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

	return items, nil
}

// isAmazonBlocked detects the captcha interstitial.
func isAmazonBlocked(doc *goquery.Document) bool {
	text := doc.Text()
	return strings.Contains(text, "Robot Check") || strings.Contains(strings.ToLower(text), "captcha")
}

// setBrowserHeaders mimics a desktop browser request; the storefront
// serves a stripped page (or a captcha) to obvious bots.
func setBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Cache-Control", "max-age=0")
}

// firstText returns the trimmed text of the first selector that matches.
func firstText(el *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := strings.TrimSpace(el.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr returns the named attribute of the first selector that has it.
func firstAttr(el *goquery.Selection, attr string, selectors ...string) string {
	for _, s := range selectors {
		if v, ok := el.Find(s).First().Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

// parseDigits strips everything but digits and parses the remainder.
func parseDigits(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, _ := strconv.Atoi(b.String())
	return n
}
