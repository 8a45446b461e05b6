// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show SerpAPI plan and remaining searches",
	RunE:  runAccount,
}

func init() {
	accountCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(accountCmd)
}

func runAccount(cmd *cobra.Command, args []string) error {
	cfg := loadPipelineConfig()

	_, serp, err := buildPipeline(cfg, os.Stderr)
	if err != nil {
		return err
	}
	if serp == nil {
		return fmt.Errorf("no SerpAPI key configured (add serpapi-api-key to .secrets/)")
	}

	info, err := serp.FetchAccount(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("Plan:           %s\n", info.Plan)
	fmt.Printf("Searches left:  %d\n", info.SearchesLeft)
	fmt.Printf("Used this month: %d\n", info.SearchesUsed)
	fmt.Printf("Next reset:     %s\n", info.NextResetDate)
	return nil
}
