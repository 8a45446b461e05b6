// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package advisor produces the buying-advice summary for a ranked
// result. The summary endorses the top-ranked product; when the AI call
// fails or is disabled, a deterministic template takes over so the
// pipeline always has a summary.
package advisor

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/shopmate/internal/genai"
	"github.com/pdiddy/shopmate/pkg/types"
)

// maxVerdictProducts is how many top-ranked items the model sees.
const maxVerdictProducts = 5

const verdictSystem = `You are ShopMate, an AI shopping assistant. Your ONLY job is to write a compelling endorsement for whichever product is listed as "#1". You MUST recommend the #1 product - do NOT choose a different product. Explain why the #1 product is the best choice in 6-8 sentences. Be enthusiastic and concise.`

// Advisor generates the result summary through an AI text generator.
type Advisor struct {
	gen genai.TextGenerator
	cfg types.AdvisorConfig
	w   io.Writer
}

// New builds an Advisor. A nil generator means AI summaries are disabled
// and every verdict uses the deterministic fallback.
func New(gen genai.TextGenerator, cfg types.AdvisorConfig, w io.Writer) *Advisor {
	return &Advisor{gen: gen, cfg: cfg, w: w}
}

// Verdict returns the summary for the ranked products. The note, when
// non-empty, is carried into the output verbatim so degraded-ranking
// runs disclose the degradation. Verdict never fails: any AI error
// falls back to the template.
func (a *Advisor) Verdict(ctx context.Context, products []types.ScoredProduct, note string) string {
	if len(products) == 0 {
		return "No products available to analyze."
	}
	if a.gen == nil || !a.cfg.Configured() {
		fmt.Fprintln(a.w, "AI advisor disabled (no API key configured), using fallback summary")
		return FallbackSummary(products, note)
	}

	top := products
	if len(top) > maxVerdictProducts {
		top = top[:maxVerdictProducts]
	}

	text, err := a.gen.Generate(ctx, genai.Request{
		System:      verdictSystem,
		Prompt:      buildVerdictPrompt(top, note),
		Temperature: 0.7,
		MaxTokens:   512,
		TopP:        0.95,
		TopK:        40,
	})
	if err != nil {
		fmt.Fprintf(a.w, "warning: AI verdict failed: %v\n", err)
		return FallbackSummary(products, note)
	}
	verdict := strings.TrimSpace(text)
	if verdict == "" {
		return FallbackSummary(products, note)
	}
	return verdict
}

// buildVerdictPrompt lays out the top pick with its alternatives so the
// model endorses the ranking rather than re-ranking.
func buildVerdictPrompt(top []types.ScoredProduct, note string) string {
	first := top[0]

	var b strings.Builder
	b.WriteString("Write an enthusiastic endorsement for this product (which is our #1 ranked choice):\n\n")
	b.WriteString("**TOP RECOMMENDATION:**\n")
	fmt.Fprintf(&b, "%s - ₹%s from %s\n", first.Title, FormatINR(first.Price), first.Store)
	if first.Rating > 0 {
		fmt.Fprintf(&b, "Rating: %.1f/5\n", first.Rating)
	}
	if first.Reviews > 0 {
		fmt.Fprintf(&b, "Reviews: %s\n", FormatINR(first.Reviews))
	}
	if first.Discount > 0 {
		fmt.Fprintf(&b, "Discount: %d%% off\n", first.Discount)
	}

	if len(top) > 1 {
		b.WriteString("\n**Alternatives for comparison:**\n")
		for i, p := range top[1:] {
			fmt.Fprintf(&b, "#%d. %s - ₹%s from %s\n", i+2, p.Title, FormatINR(p.Price), p.Store)
		}
	}

	if note != "" {
		fmt.Fprintf(&b, "\nNote:%s\n", note)
	}
	b.WriteString("\nWrite your endorsement for the #1 product:")
	return b.String()
}

// FallbackSummary builds the deterministic summary from the top-ranked
// product's own fields. The note is appended verbatim.
func FallbackSummary(products []types.ScoredProduct, note string) string {
	if len(products) == 0 {
		return "No products available to analyze."
	}
	top := products[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Our **#1 top recommendation** is the **%s** from **%s** for ₹%s.",
		top.Title, top.Store, FormatINR(top.Price))

	if top.Discount > 0 {
		fmt.Fprintf(&b, " This fantastic deal includes a huge **%d%% off** the original price, making it an excellent value choice.", top.Discount)
	} else {
		b.WriteString(" It stands out as the best choice based on its competitive price and overall value.")
	}

	if top.Rating > 0 {
		fmt.Fprintf(&b, " Customers love this product, giving it a high rating of **%.1f/5**.", top.Rating)
		if top.Reviews > 0 {
			fmt.Fprintf(&b, " With %s verified reviews, you can shop with confidence.", FormatINR(top.Reviews))
		}
	} else if top.Reviews > 0 {
		fmt.Fprintf(&b, " This product has been widely purchased and reviewed by %s customers.", FormatINR(top.Reviews))
	}

	if len(products) > 1 {
		second := products[1]
		diff := second.Price - top.Price
		if diff > 0 {
			fmt.Fprintf(&b, " Compared to the #2 option at ₹%s, you're **saving ₹%s** with this choice!",
				FormatINR(second.Price), FormatINR(diff))
		} else if diff < 0 {
			b.WriteString(" While there are cheaper options available, this product offers the best overall **value for money** based on quality, features, and customer satisfaction.")
		}
	}

	if note != "" {
		b.WriteString(" " + strings.TrimSpace(note))
	}
	return b.String()
}

// FormatINR renders an integer with comma grouping ("129999" -> "129,999").
func FormatINR(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
