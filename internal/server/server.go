// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the aggregation pipeline over HTTP with a
// small JSON API, a query-result cache, and global rate limiting.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pdiddy/shopmate/internal/cache"
	"github.com/pdiddy/shopmate/internal/source"
	"github.com/pdiddy/shopmate/pkg/types"
)

// Query length bounds for /api/products.
const (
	minQueryLen = 2
	maxQueryLen = 100
)

const (
	defaultPort            = 4000
	defaultRateLimitWindow = 15 * time.Minute
	defaultRateLimitMax    = 100
)

// Searcher runs one aggregation query. Implemented by aggregate.Pipeline.
type Searcher interface {
	Run(ctx context.Context, query string) types.AggregationResult
}

// AccountFetcher reports broad-market API usage. Implemented by
// source.SerpAPISource; nil when SerpAPI is not configured.
type AccountFetcher interface {
	FetchAccount(ctx context.Context) (*source.AccountInfo, error)
}

// Server is the HTTP front end. The cache may be nil, in which case
// every request runs the full pipeline and the cache endpoints report
// it as disabled.
type Server struct {
	pipeline Searcher
	cache    *cache.Store
	account  AccountFetcher
	cfg      types.ServerConfig
	w        io.Writer
	limiter  *rate.Limiter
	mux      *http.ServeMux
}

// New builds a server over the given pipeline.
func New(pipeline Searcher, c *cache.Store, account AccountFetcher, cfg types.ServerConfig, w io.Writer) *Server {
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	maxReqs := cfg.RateLimitMax
	if maxReqs <= 0 {
		maxReqs = defaultRateLimitMax
	}

	s := &Server{
		pipeline: pipeline,
		cache:    c,
		account:  account,
		cfg:      cfg,
		w:        w,
		limiter:  rate.NewLimiter(rate.Every(window/time.Duration(maxReqs)), maxReqs),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/products", s.handleProducts)
	s.mux.HandleFunc("GET /api/serpapi/account", s.handleAccount)
	s.mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /api/cache/clear", s.handleCacheClear)
	return s
}

// ServeHTTP applies rate limiting before dispatching to the API mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(s.w, "listening on http://localhost:%d\n", port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if n := utf8.RuneCountInString(query); n < minQueryLen || n > maxQueryLen {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("query must be between %d and %d characters", minQueryLen, maxQueryLen))
		return
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(query); err != nil {
			fmt.Fprintf(s.w, "warning: cache read failed: %v\n", err)
		} else if ok {
			fmt.Fprintf(s.w, "cache hit for %q\n", query)
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result := s.pipeline.Run(r.Context(), query)

	if s.cache != nil && len(result.Products) > 0 {
		if err := s.cache.Put(query, &result); err != nil {
			fmt.Fprintf(s.w, "warning: cache write failed: %v\n", err)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if s.account == nil {
		writeError(w, http.StatusServiceUnavailable, "SerpAPI is not configured")
		return
	}
	info, err := s.account.FetchAccount(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is disabled")
		return
	}
	stats, err := s.cache.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is disabled")
		return
	}
	n, err := s.cache.Clear()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
