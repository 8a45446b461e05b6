// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the shopmate CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/shopmate/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// configOrSecret returns the configured value when set, falling back to
// the named key from .secrets/ otherwise.
func configOrSecret(configured, secretKey string) string {
	if configured != "" {
		return configured
	}
	if v, ok := loadedSecrets[secretKey]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the shopmate CLI.
var rootCmd = &cobra.Command{
	Use:   "shopmate",
	Short: "Product search aggregation and AI-assisted ranking",
	Long: `shopmate searches Indian e-commerce stores for a product, merges and
deduplicates the listings, ranks them with AI relevance scoring, and writes a
buying-advice summary for the top pick.

Listings come from direct Amazon/Flipkart scrapers and from Google Shopping
via SerpAPI. Every stage degrades gracefully: a blocked scraper, a rate-limited
AI call, or a missing API key narrows the result instead of failing the query.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./shopmate.yaml or ~/.config/shopmate/config.yaml)")
}

func initConfig() {
	// .env is optional; real deployments use the config file or secrets.
	godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("shopmate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "shopmate"))
		}
	}

	viper.SetEnvPrefix("SHOPMATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
