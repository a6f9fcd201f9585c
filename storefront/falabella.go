package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/use-agent/pricehunt/config"
	"github.com/use-agent/pricehunt/models"
	"github.com/use-agent/pricehunt/pricefmt"
)

// Falabella extracts products from the JSON island Falabella's search page
// embeds for client-side hydration. The island mirrors the catalog model,
// including per-variant availability that the rendered markup hides.
type Falabella struct {
	fetcher      Fetcher
	cfg          config.FalabellaConfig
	futureModels []string
}

// NewFalabella creates the structured-data adapter.
func NewFalabella(f Fetcher, cfg config.FalabellaConfig) *Falabella {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	denied := make([]string, 0, len(cfg.FutureModels))
	for _, m := range cfg.FutureModels {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			denied = append(denied, m)
		}
	}
	return &Falabella{fetcher: f, cfg: cfg, futureModels: denied}
}

var errNoPrice = errors.New("no price entry")

func (s *Falabella) Source() models.Source { return models.SourceFalabella }

// SearchURL builds the search page URL for query.
func (s *Falabella) SearchURL(query string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + s.cfg.SearchPath + "?Ntt=" + url.QueryEscape(query)
}

// Extract implements Extractor.
func (s *Falabella) Extract(ctx context.Context, query string) []models.Product {
	items, _ := s.ExtractReport(ctx, query)
	return items
}

// ExtractReport runs the extraction and explains what happened to every
// candidate.
//
// Flow:
//  1. Fetch the search page through the guard.
//  2. Locate the JSON island by script id and decode it.
//  3. Walk the results array, applying the gates in order
//     (title, availability, future model, url, price) until the cap is hit.
func (s *Falabella) ExtractReport(ctx context.Context, query string) ([]models.Product, *models.ExtractStats) {
	target := s.SearchURL(query)
	stats := &models.ExtractStats{URL: target}
	items := []models.Product{}

	slog.Info("store search", "store", s.Source(), "query", query)

	// ── 1. Fetch ────────────────────────────────────────────────────
	page, err := s.fetcher.Fetch(ctx, target, strings.TrimRight(s.cfg.BaseURL, "/")+"/")
	if err != nil {
		failure(s.Source(), stats, err)
		return items, stats
	}
	stats.PageBytes = len(page.Body)

	// ── 2. JSON island ──────────────────────────────────────────────
	root, err := s.island(page.Body)
	if err != nil {
		failure(s.Source(), stats, err)
		return items, stats
	}

	// ── 3. Candidates ───────────────────────────────────────────────
	results := root.RecordsAt(s.cfg.ResultsPath)
	stats.Candidates = len(results)

	for i, rec := range results {
		if len(items) >= s.cfg.MaxItems {
			break
		}
		p, rerr := tryCandidate(i, func() (models.Product, *RecordError) {
			return s.candidate(i, rec)
		})
		if rerr != nil {
			stats.Reject(rerr.Reason)
			logRejection(s.Source(), rerr)
			continue
		}
		items = append(items, p)
	}

	stats.Accepted = len(items)
	slog.Info("store search done",
		"store", s.Source(),
		"query", query,
		"candidates", stats.Candidates,
		"accepted", stats.Accepted,
	)
	return items, stats
}

// island finds the hydration <script> and decodes it.
func (s *Falabella) island(body []byte) (Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrSchemaDrift, err)
	}

	script := doc.Find(fmt.Sprintf("script[id=%q]", s.cfg.DataIslandID)).First()
	if script.Length() == 0 {
		return nil, fmt.Errorf("%w: no script#%s", ErrSchemaDrift, s.cfg.DataIslandID)
	}

	var root Record
	if err := json.Unmarshal([]byte(script.Text()), &root); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSchemaDrift, s.cfg.DataIslandID, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %s is not an object", ErrSchemaDrift, s.cfg.DataIslandID)
	}
	return root, nil
}

func (s *Falabella) candidate(i int, rec Record) (models.Product, *RecordError) {
	title := cleanText(rec.Text("displayName"))
	if !titleOK(title, s.cfg.MinTitleLength) {
		return models.Product{}, reject(i, rejectTitle, nil)
	}

	if !purchasable(rec) {
		return models.Product{}, reject(i, rejectUnavailable, fmt.Errorf("no purchasable variant: %.50s", title))
	}

	if model := s.futureModel(title); model != "" {
		return models.Product{}, reject(i, rejectFutureModel, fmt.Errorf("matches %q: %.50s", model, title))
	}

	link := absoluteURL(s.cfg.BaseURL, rec.Text("url"))
	if link == "" {
		return models.Product{}, reject(i, rejectURL, nil)
	}

	amount, err := mainPrice(rec)
	if err != nil {
		return models.Product{}, reject(i, rejectPrice, err)
	}

	p, err := newProduct(s.Source(), s.cfg.Currency, title, amount, link, s.image(rec))
	if err != nil {
		return models.Product{}, reject(i, rejectParse, err)
	}
	return p, nil
}

// purchasable reports whether any variant option is buyable, either flagged
// purchasable itself or carrying at least one available size.
func purchasable(rec Record) bool {
	for _, variant := range rec.Records("variants") {
		for _, option := range variant.Records("options") {
			if option.Bool("isPurchaseable") {
				return true
			}
			for _, size := range option.Records("sizes") {
				if size.Bool("available") {
					return true
				}
			}
		}
	}
	return false
}

// futureModel returns the denylisted model name contained in title, if any.
func (s *Falabella) futureModel(title string) string {
	lower := strings.ToLower(title)
	for _, m := range s.futureModels {
		if strings.Contains(lower, m) {
			return m
		}
	}
	return ""
}

// mainPrice picks the internet price entry, falling back to the first one,
// and reads its first value. Display strings go through the peso grammar;
// bare JSON numbers are already machine values and are taken as-is.
func mainPrice(rec Record) (decimal.Decimal, error) {
	prices := rec.Records("prices")
	if len(prices) == 0 {
		return decimal.Zero, errNoPrice
	}
	chosen := prices[0]
	for _, p := range prices {
		if p.Text("type") == "internetPrice" {
			chosen = p
			break
		}
	}

	values, _ := chosen["price"].([]any)
	if len(values) == 0 {
		return decimal.Zero, errNoPrice
	}
	switch v := values[0].(type) {
	case string:
		return pricefmt.Parse(v, pricefmt.COPWhole)
	case float64:
		amount := decimal.NewFromFloat(v)
		if !amount.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: %v", pricefmt.ErrNotPositive, v)
		}
		return amount, nil
	}
	return decimal.Zero, fmt.Errorf("%w: price is %T", pricefmt.ErrMalformed, values[0])
}

// image returns the first media URL, prefixed with the media host when the
// island carries a host-relative path.
func (s *Falabella) image(rec Record) string {
	media := rec.Texts("mediaUrls")
	if len(media) == 0 {
		return ""
	}
	img := strings.TrimSpace(media[0])
	switch {
	case img == "":
		return ""
	case strings.HasPrefix(img, "http"):
		return img
	case strings.HasPrefix(img, "//"):
		return "https:" + img
	}
	return strings.TrimRight(s.cfg.MediaHost, "/") + "/" + strings.TrimLeft(img, "/")
}
