package storefront

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/pricehunt/config"
	"github.com/use-agent/pricehunt/models"
	"github.com/use-agent/pricehunt/pricefmt"
)

var (
	listItemSel = cascadia.MustCompile("li")
	anchorSel   = cascadia.MustCompile("a[href]")
	headingSel  = cascadia.MustCompile("h2")
	imageSel    = cascadia.MustCompile("img")
)

// MercadoLibre extracts products from MercadoLibre's server-rendered listing
// page. The page has no reliable structured data, so results are located by
// class markers on the result list items.
type MercadoLibre struct {
	fetcher      Fetcher
	cfg          config.MercadoLibreConfig
	priceSel     cascadia.Selector
	domainAnchor cascadia.Selector
}

// NewMercadoLibre creates the markup adapter. It fails only when the
// configured price selector or domain marker do not compile.
func NewMercadoLibre(f Fetcher, cfg config.MercadoLibreConfig) (*MercadoLibre, error) {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}

	priceSel, err := cascadia.Compile(cfg.PriceSelector)
	if err != nil {
		return nil, fmt.Errorf("storefront: price selector %q: %w", cfg.PriceSelector, err)
	}
	domainAnchor, err := cascadia.Compile(fmt.Sprintf("a[href*=%q]", cfg.DomainMarker))
	if err != nil {
		return nil, fmt.Errorf("storefront: domain marker %q: %w", cfg.DomainMarker, err)
	}

	return &MercadoLibre{
		fetcher:      f,
		cfg:          cfg,
		priceSel:     priceSel,
		domainAnchor: domainAnchor,
	}, nil
}

func (s *MercadoLibre) Source() models.Source { return models.SourceMercadoLibre }

// SearchURL builds the listing URL; the query becomes a hyphenated path segment.
func (s *MercadoLibre) SearchURL(query string) string {
	slug := strings.Join(strings.Fields(query), "-")
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + url.PathEscape(slug)
}

// Extract implements Extractor.
func (s *MercadoLibre) Extract(ctx context.Context, query string) []models.Product {
	items, _ := s.ExtractReport(ctx, query)
	return items
}

// ExtractReport runs the extraction and explains what happened to every
// candidate node.
func (s *MercadoLibre) ExtractReport(ctx context.Context, query string) ([]models.Product, *models.ExtractStats) {
	target := s.SearchURL(query)
	stats := &models.ExtractStats{URL: target}
	items := []models.Product{}

	slog.Info("store search", "store", s.Source(), "query", query)

	page, err := s.fetcher.Fetch(ctx, target, s.cfg.Referer)
	if err != nil {
		failure(s.Source(), stats, err)
		return items, stats
	}
	stats.PageBytes = len(page.Body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		failure(s.Source(), stats, fmt.Errorf("%w: parse html: %v", ErrSchemaDrift, err))
		return items, stats
	}

	base := page.FinalURL
	if base == "" {
		base = target
	}

	nodes := s.resultNodes(doc)
	stats.Candidates = nodes.Length()
	if stats.Candidates == 0 {
		failure(s.Source(), stats, fmt.Errorf("%w: no li.%s nodes", ErrSchemaDrift, s.cfg.ItemMarker))
		return items, stats
	}

	nodes.EachWithBreak(func(i int, node *goquery.Selection) bool {
		if len(items) >= s.cfg.MaxItems {
			return false
		}
		p, rerr := tryCandidate(i, func() (models.Product, *RecordError) {
			return s.candidate(i, node, base)
		})
		if rerr != nil {
			stats.Reject(rerr.Reason)
			logRejection(s.Source(), rerr)
			return true
		}
		items = append(items, p)
		return true
	})

	stats.Accepted = len(items)
	slog.Info("store search done",
		"store", s.Source(),
		"query", query,
		"candidates", stats.Candidates,
		"accepted", stats.Accepted,
	)
	return items, stats
}

// resultNodes keeps the list items carrying the result marker, minus
// sponsored/intervention slots.
func (s *MercadoLibre) resultNodes(doc *goquery.Document) *goquery.Selection {
	return doc.FindMatcher(listItemSel).FilterFunction(func(_ int, li *goquery.Selection) bool {
		cls := li.AttrOr("class", "")
		if !strings.Contains(cls, s.cfg.ItemMarker) {
			return false
		}
		return s.cfg.ExcludeMarker == "" || !strings.Contains(cls, s.cfg.ExcludeMarker)
	})
}

func (s *MercadoLibre) candidate(i int, node *goquery.Selection, base string) (models.Product, *RecordError) {
	anchor := node.FindMatcher(s.domainAnchor).First()
	if anchor.Length() == 0 {
		anchor = node.FindMatcher(anchorSel).First()
	}
	if anchor.Length() == 0 {
		return models.Product{}, reject(i, rejectURL, fmt.Errorf("no anchor"))
	}

	title := cleanText(anchor.Text())
	if !titleOK(title, s.cfg.MinTitleLength) {
		title = cleanText(node.FindMatcher(headingSel).First().Text())
	}
	if !titleOK(title, s.cfg.MinTitleLength) {
		return models.Product{}, reject(i, rejectTitle, nil)
	}

	link := absoluteURL(base, anchor.AttrOr("href", ""))
	if link == "" {
		return models.Product{}, reject(i, rejectURL, nil)
	}

	priceNode := node.FindMatcher(s.priceSel).First()
	if priceNode.Length() == 0 {
		return models.Product{}, reject(i, rejectPrice, fmt.Errorf("no price node"))
	}
	amount, err := pricefmt.Parse(priceNode.Text(), pricefmt.COP)
	if err != nil {
		return models.Product{}, reject(i, rejectPrice, err)
	}

	p, err := newProduct(s.Source(), s.cfg.Currency, title, amount, link, s.image(node, base))
	if err != nil {
		return models.Product{}, reject(i, rejectParse, err)
	}
	return p, nil
}

// image prefers the lazy-load source over src.
func (s *MercadoLibre) image(node *goquery.Selection, base string) string {
	img := node.FindMatcher(imageSel).First()
	if img.Length() == 0 {
		return ""
	}
	if src := absoluteURL(base, img.AttrOr("data-src", "")); src != "" {
		return src
	}
	return absoluteURL(base, img.AttrOr("src", ""))
}
