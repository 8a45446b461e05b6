// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/shopmate/internal/advisor"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stores for a product and rank the results",
	Long: `Search runs one aggregation query: it gathers listings from the enabled
sources, deduplicates them, ranks them with AI relevance scoring, and prints
the ranked list with a buying-advice summary.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Bool("json", false, "output the full result as JSON")
	searchCmd.Flags().Bool("yaml", false, "output the full result as YAML")
	searchCmd.Flags().Int("top", 10, "number of products to print (text output)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	cfg := loadPipelineConfig()
	warnMissingConfig(cfg, os.Stderr)

	pipeline, _, err := buildPipeline(cfg, os.Stderr)
	if err != nil {
		return err
	}

	result := pipeline.Run(cmd.Context(), query)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(result)
	}

	top, _ := cmd.Flags().GetInt("top")
	if top <= 0 || top > len(result.Products) {
		top = len(result.Products)
	}

	fmt.Printf("%d products for %q (%dms)\n\n", result.Metadata.TotalResults, query, result.Metadata.FetchTimeMS)
	for i, p := range result.Products[:top] {
		fmt.Printf("%2d. %s\n", i+1, p.Title)
		fmt.Printf("    ₹%s at %s", advisor.FormatINR(p.Price), p.Store)
		if p.Discount > 0 {
			fmt.Printf(" (%d%% off)", p.Discount)
		}
		if p.Rating > 0 {
			fmt.Printf("  %.1f/5", p.Rating)
		}
		if p.CRS > 0 {
			fmt.Printf("  [score %.2f]", p.CRS)
		}
		fmt.Printf("\n    %s\n", p.Link)
	}

	fmt.Printf("\n%s\n", result.Summary)
	return nil
}
