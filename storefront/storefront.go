// Package storefront holds the per-storefront source adapters. Each adapter
// turns one storefront's search page into normalized products and never
// returns an error to its caller: every failure degrades to fewer items.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/use-agent/pricehunt/engine"
	"github.com/use-agent/pricehunt/models"
)

// Extractor is a source adapter.
type Extractor interface {
	// Source is the provenance tag stamped on every emitted product.
	Source() models.Source

	// Extract returns at most the configured cap of products for query,
	// in first-encountered page order. It always returns a non-nil slice.
	Extract(ctx context.Context, query string) []models.Product
}

// Reporter is implemented by adapters that can explain an extraction,
// for the diagnostics endpoint.
type Reporter interface {
	ExtractReport(ctx context.Context, query string) ([]models.Product, *models.ExtractStats)
}

// Fetcher is the slice of engine.Guard the adapters depend on.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL, referer string) (*engine.Page, error)
}

// ErrSchemaDrift means the page no longer carries the anchor an adapter
// navigates by (JSON island, result markers). The whole page is abandoned.
var ErrSchemaDrift = errors.New("storefront: schema drift")

const (
	defaultMaxItems = 10
	defaultCurrency = "COP"
)

// Rejection reasons reported in models.ExtractStats.
const (
	rejectTitle       = "title"
	rejectUnavailable = "unavailable"
	rejectFutureModel = "future_model"
	rejectURL         = "url"
	rejectPrice       = "price"
	rejectParse       = "parse_error"
)

// RecordError is a failure scoped to a single candidate record or node.
type RecordError struct {
	Index  int
	Reason string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storefront: candidate %d rejected (%s): %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("storefront: candidate %d rejected (%s)", e.Index, e.Reason)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func reject(index int, reason string, err error) *RecordError {
	return &RecordError{Index: index, Reason: reason, Err: err}
}

// candidateFunc inspects one candidate and returns the product it yields.
type candidateFunc func() (models.Product, *RecordError)

// tryCandidate runs fn, converting a panic on malformed third-party data
// into a parse-error rejection.
func tryCandidate(index int, fn candidateFunc) (p models.Product, rerr *RecordError) {
	defer func() {
		if r := recover(); r != nil {
			rerr = reject(index, rejectParse, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

// logRejection logs gate rejections at debug level and genuine parse
// failures at warn level.
func logRejection(source models.Source, rerr *RecordError) {
	switch rerr.Reason {
	case rejectPrice, rejectParse:
		slog.Warn("candidate dropped", "store", source, "index", rerr.Index, "reason", rerr.Reason, "error", rerr.Err)
	default:
		slog.Debug("candidate dropped", "store", source, "index", rerr.Index, "reason", rerr.Reason, "error", rerr.Err)
	}
}

// failure records a page-level failure on stats and logs it.
func failure(source models.Source, stats *models.ExtractStats, err error) {
	reason := string(engine.ReasonOf(err))
	if reason == "" {
		reason = "schema_drift"
		if !errors.Is(err, ErrSchemaDrift) {
			reason = "error"
		}
	}
	stats.Failure = reason
	slog.Warn("extraction abandoned", "store", source, "url", stats.URL, "reason", reason, "error", err)
}

// cleanText collapses runs of whitespace, which markup text is full of.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleOK rejects placeholder and fragment titles.
func titleOK(title string, minLen int) bool {
	return title != "" && utf8.RuneCountInString(title) >= minLen
}

// absoluteURL resolves ref against base. It returns "" when ref is empty or
// cannot be resolved to an http(s) URL.
func absoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	u, err := b.Parse(ref)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// newProduct is the only way adapters build products; it enforces the
// invariants every emitted product must satisfy.
func newProduct(source models.Source, currency, title string, price decimal.Decimal, link, image string) (models.Product, error) {
	switch {
	case title == "":
		return models.Product{}, errors.New("empty title")
	case link == "":
		return models.Product{}, errors.New("empty url")
	case !price.IsPositive():
		return models.Product{}, fmt.Errorf("non-positive price %s", price)
	}
	return models.Product{
		Title:    title,
		Price:    price,
		Currency: currency,
		URL:      link,
		Image:    image,
		Source:   source,
	}, nil
}
