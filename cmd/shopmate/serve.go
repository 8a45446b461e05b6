// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shopmate/internal/cache"
	"github.com/pdiddy/shopmate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the aggregation pipeline over HTTP:

  GET    /api/health           liveness probe
  GET    /api/products?q=...   run a search (cached per query)
  GET    /api/serpapi/account  SerpAPI plan and usage
  GET    /api/cache/stats      cache occupancy
  DELETE /api/cache/clear      drop all cached results

Requests are rate limited globally. The server shuts down gracefully on
SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default 4000)")
	serveCmd.Flags().Bool("no-cache", false, "disable the query-result cache")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadPipelineConfig()
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	warnMissingConfig(cfg, os.Stderr)

	pipeline, serp, err := buildPipeline(cfg, os.Stderr)
	if err != nil {
		return err
	}

	var store *cache.Store
	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		store, err = cache.NewStore(cfg.Cache)
		if err != nil {
			return fmt.Errorf("opening result cache: %w", err)
		}
		defer store.Close()
	}

	var account server.AccountFetcher
	if serp != nil {
		account = serp
	}

	srv := server.New(pipeline, store, account, cfg.Server, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
