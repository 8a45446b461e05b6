// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source gathers product listings from direct-store scrapers and
// the broad-market search API under per-source time budgets.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/shopmate/pkg/types"
)

// redirectorDomain marks links routed through the broad-market provider's
// redirector rather than pointing straight at a store.
const redirectorDomain = "google.com"

const defaultSourceTimeout = 6 * time.Second

// IsDirectLink reports whether a product URL points straight at a store.
func IsDirectLink(link string) bool {
	return !strings.Contains(link, redirectorDomain)
}

// Source fetches product listings for a query. Implementations should
// catch their own internal errors where possible, but the coordinator
// wraps every call in a deadline and treats any error or expiry as an
// empty contribution.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]types.Product, error)
}

// Coordinator fans a query out to the enabled sources. It never returns
// an error: every source failure degrades to a zero-result report.
type Coordinator struct {
	direct []Source
	broad  Source
	cfg    types.SourcesConfig
	w      io.Writer
}

// NewCoordinator builds a coordinator over the given direct-store sources
// and broad-market source. The declaration order of direct sources fixes
// the order of their reports.
func NewCoordinator(direct []Source, broad Source, cfg types.SourcesConfig, w io.Writer) *Coordinator {
	return &Coordinator{direct: direct, broad: broad, cfg: cfg, w: w}
}

// Gather invokes all enabled sources and returns the combined items plus
// one provenance report per source. Direct sources run concurrently, each
// under its own deadline; the broad-market source runs afterwards so its
// hits for directly scraped stores can be filtered out. Product order
// across sources carries no meaning; ordering is established downstream.
func (c *Coordinator) Gather(ctx context.Context, query string) ([]types.Product, []types.SourceReport) {
	var items []types.Product
	var reports []types.SourceReport

	if c.cfg.EnableDirect && len(c.direct) > 0 {
		type outcome struct {
			items []types.Product
			err   error
		}
		results := make([]outcome, len(c.direct))

		var wg sync.WaitGroup
		for i, s := range c.direct {
			wg.Add(1)
			go func(i int, s Source) {
				defer wg.Done()
				got, err := c.fetchWithDeadline(ctx, s, query)
				results[i] = outcome{items: got, err: err}
			}(i, s)
		}
		wg.Wait()

		for i, s := range c.direct {
			res := results[i]
			if res.err != nil {
				fmt.Fprintf(c.w, "warning: %s failed: %v\n", s.Name(), res.err)
				reports = append(reports, types.SourceReport{Name: s.Name(), Type: types.SourceFailed})
				continue
			}
			if len(res.items) == 0 {
				fmt.Fprintf(c.w, "warning: %s returned no products (scraper may be blocked)\n", s.Name())
				reports = append(reports, types.SourceReport{Name: s.Name(), Type: types.SourceFailed})
				continue
			}
			items = append(items, res.items...)
			reports = append(reports, types.SourceReport{
				Name:  s.Name(),
				Count: len(res.items),
				Type:  types.SourceDirect,
			})
		}
	}

	if c.cfg.EnableSerpAPI && c.broad != nil {
		got, err := c.fetchWithDeadline(ctx, c.broad, query)
		if err != nil {
			fmt.Fprintf(c.w, "warning: %s failed: %v\n", c.broad.Name(), err)
			reports = append(reports, types.SourceReport{
				Name:  c.broad.Name(),
				Type:  types.SourceFailed,
				Error: err.Error(),
			})
			return items, reports
		}

		if c.cfg.EnableDirect {
			got = c.filterDirectStores(got)
		}

		direct, redirect := 0, 0
		for _, p := range got {
			if IsDirectLink(p.Link) {
				direct++
			} else {
				redirect++
			}
		}

		items = append(items, got...)
		reports = append(reports, types.SourceReport{
			Name:          c.broad.Name(),
			Count:         len(got),
			Type:          types.SourceSerpAPI,
			DirectLinks:   direct,
			RedirectLinks: redirect,
		})
	}

	return items, reports
}

// fetchWithDeadline runs one source call under the configured timeout.
// Expiry is a first-class outcome, not a propagated panic or raced error:
// the in-flight call is abandoned and its eventual result discarded.
func (c *Coordinator) fetchWithDeadline(ctx context.Context, s Source, query string) ([]types.Product, error) {
	timeout := c.cfg.SourceTimeout
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		items []types.Product
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		items, err := s.Fetch(ctx, query)
		ch <- outcome{items: items, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out after %v", timeout)
	case o := <-ch:
		return o.items, o.err
	}
}

// filterDirectStores drops broad-market hits for stores the direct
// scrapers already cover, matching on a store-name substring, so the same
// listing does not arrive through two pipelines.
func (c *Coordinator) filterDirectStores(items []types.Product) []types.Product {
	if len(c.direct) == 0 {
		return items
	}
	names := make([]string, 0, len(c.direct))
	for _, s := range c.direct {
		names = append(names, strings.ToLower(s.Name()))
	}

	kept := items[:0:0]
	for _, p := range items {
		store := strings.ToLower(p.Store)
		dup := false
		for _, name := range names {
			if strings.Contains(store, name) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
		}
	}
	if removed := len(items) - len(kept); removed > 0 {
		fmt.Fprintf(c.w, "filtered %d duplicate direct-store items from %s\n", removed, c.broad.Name())
	}
	return kept
}
