// Package aggregator fans a query out to every registered storefront and
// merges the results into a single SearchResult.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/pricehunt/models"
	"github.com/use-agent/pricehunt/storefront"
)

// Aggregator runs all registered extractors concurrently for each query.
// It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	extractors []storefront.Extractor
}

// New creates an Aggregator. Registration order is the order items appear
// in every SearchResult.
func New(extractors ...storefront.Extractor) *Aggregator {
	return &Aggregator{extractors: extractors}
}

// Sources lists the registered sources in registration order.
func (a *Aggregator) Sources() []models.Source {
	out := make([]models.Source, len(a.extractors))
	for i, e := range a.extractors {
		out[i] = e.Source()
	}
	return out
}

// Source returns the extractor registered for name.
func (a *Aggregator) Source(name string) (storefront.Extractor, bool) {
	for _, e := range a.extractors {
		if string(e.Source()) == name {
			return e, true
		}
	}
	return nil, false
}

type sourceRun struct {
	items    []models.Product
	duration time.Duration
}

// Search queries every source in parallel and merges the outcome. A failing
// source contributes zero items; the only error is an empty query.
func (a *Aggregator) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewPipelineError(models.ErrCodeInvalidInput, "query is required", nil)
	}

	start := time.Now()
	runs := make([]sourceRun, len(a.extractors))

	// ── 1. Fan out ──────────────────────────────────────────────────
	// Tasks never return an error, so one failing source cannot cancel
	// the others.
	var g errgroup.Group
	for i, e := range a.extractors {
		g.Go(func() error {
			t0 := time.Now()
			runs[i] = sourceRun{items: runExtractor(ctx, e, query), duration: time.Since(t0)}
			return nil
		})
	}
	_ = g.Wait()

	// ── 2. Merge ────────────────────────────────────────────────────
	result := merge(a.extractors, runs)

	slog.Info("search complete",
		"query", query,
		"total", result.Stats.Total,
		"by_source", result.Stats.BySource,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// runExtractor shields the fan-out from a misbehaving adapter.
func runExtractor(ctx context.Context, e storefront.Extractor, query string) (items []models.Product) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extractor panicked", "store", e.Source(), "panic", fmt.Sprint(r))
			items = nil
		}
	}()
	return e.Extract(ctx, query)
}

func merge(extractors []storefront.Extractor, runs []sourceRun) *models.SearchResult {
	result := &models.SearchResult{
		Items:   []models.Product{},
		Stats:   models.Stats{BySource: make(map[models.Source]int, len(extractors))},
		Sources: make([]models.SourceReport, 0, len(extractors)),
	}

	for i, e := range extractors {
		src := e.Source()
		run := runs[i]
		result.Items = append(result.Items, run.items...)
		result.Stats.BySource[src] += len(run.items)
		result.Sources = append(result.Sources, models.SourceReport{
			Source:     src,
			Count:      len(run.items),
			DurationMs: run.duration.Milliseconds(),
		})
	}
	result.Stats.Total = len(result.Items)
	result.Cheapest = Cheapest(result.Items)
	return result
}

// Cheapest returns a copy of the first item with the minimum price, or nil
// for an empty list. Later items replace the current pick only when
// strictly cheaper.
func Cheapest(items []models.Product) *models.Product {
	if len(items) == 0 {
		return nil
	}
	best := items[0]
	for _, p := range items[1:] {
		if p.Price.LessThan(best.Price) {
			best = p
		}
	}
	return &best
}
