package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/pricehunt/config"
	"golang.org/x/net/html"
)

// Reason classifies why the guard rejected a fetch.
type Reason string

const (
	ReasonTransport     Reason = "transport"
	ReasonTimeout       Reason = "timeout"
	ReasonHTTPStatus    Reason = "http_status"
	ReasonLikelyBlocked Reason = "likely_blocked"
)

// FetchError is returned by Guard.Fetch for every rejected fetch.
type FetchError struct {
	Reason Reason
	URL    string
	Status int   // set for ReasonHTTPStatus and ReasonLikelyBlocked
	Bytes  int   // body size, when a body was received
	Err    error // underlying transport error, if any
}

func (e *FetchError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("guard: HTTP %d for %s", e.Status, e.URL)
	case ReasonLikelyBlocked:
		return fmt.Sprintf("guard: likely blocked, %d bytes from %s", e.Bytes, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("guard: %s for %s: %v", e.Reason, e.URL, e.Err)
	}
	return fmt.Sprintf("guard: %s for %s", e.Reason, e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReasonOf returns the guard reason carried by err, or "" if err did not
// come from the guard.
func ReasonOf(err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

// Page is a fetched page that passed every guard check.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Guard wraps every outbound storefront request with the shared policy:
// browser headers, a per-fetch timeout, a 2xx status check and the
// minimum-size bot-block heuristic.
type Guard struct {
	engine Engine
	cfg    config.FetchConfig
}

// NewGuard creates a Guard over the given engine.
func NewGuard(e Engine, cfg config.FetchConfig) *Guard {
	return &Guard{engine: e, cfg: cfg}
}

// Fetch retrieves targetURL. referer is sent as the Referer header when set.
// Every failure is a *FetchError.
func (g *Guard) Fetch(ctx context.Context, targetURL, referer string) (*Page, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.engine.Fetch(ctx, &FetchRequest{
		URL:     targetURL,
		Headers: g.headers(referer),
	})
	if err != nil {
		reason := ReasonTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		slog.Warn("fetch failed",
			"url", targetURL,
			"reason", reason,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, &FetchError{Reason: reason, URL: targetURL, Err: err}
	}

	size := len(result.Body)
	if result.StatusCode < 200 || result.StatusCode > 299 {
		slog.Warn("fetch rejected",
			"url", targetURL,
			"reason", ReasonHTTPStatus,
			"status", result.StatusCode,
			"bytes", size,
		)
		return nil, &FetchError{Reason: ReasonHTTPStatus, URL: targetURL, Status: result.StatusCode, Bytes: size}
	}

	if size < g.cfg.MinBodyBytes {
		slog.Warn("fetch rejected",
			"url", targetURL,
			"reason", ReasonLikelyBlocked,
			"status", result.StatusCode,
			"bytes", size,
			"min_bytes", g.cfg.MinBodyBytes,
			"title", pageTitle(result.Body),
		)
		return nil, &FetchError{Reason: ReasonLikelyBlocked, URL: targetURL, Status: result.StatusCode, Bytes: size}
	}

	slog.Info("fetch ok",
		"url", targetURL,
		"engine", result.EngineName,
		"status", result.StatusCode,
		"bytes", size,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Page{
		URL:        targetURL,
		FinalURL:   result.FinalURL,
		StatusCode: result.StatusCode,
		Body:       result.Body,
	}, nil
}

func (g *Guard) headers(referer string) map[string]string {
	h := map[string]string{
		"User-Agent":      g.cfg.UserAgent,
		"Accept":          g.cfg.Accept,
		"Accept-Language": g.cfg.AcceptLanguage,
	}
	if referer != "" {
		h["Referer"] = referer
	}
	for k, v := range h {
		if v == "" {
			delete(h, k)
		}
	}
	return h
}

// pageTitle returns the <title> of a (usually tiny) rejected page, which is
// often enough to tell a captcha wall from an empty shell.
func pageTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
