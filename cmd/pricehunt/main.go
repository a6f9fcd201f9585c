package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/pricehunt/aggregator"
	"github.com/use-agent/pricehunt/api"
	"github.com/use-agent/pricehunt/config"
	"github.com/use-agent/pricehunt/engine"
	"github.com/use-agent/pricehunt/storefront"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pricehunt starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"fetchTimeout", cfg.Fetch.Timeout,
		"minBodyBytes", cfg.Fetch.MinBodyBytes,
	)

	// ── 3. Fetch engine + guard ─────────────────────────────────────
	httpEngine := engine.NewHTTPEngine(engine.HTTPOptions{
		ChromeTLS:    cfg.Fetch.ChromeTLS,
		Proxy:        cfg.Fetch.Proxy,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})
	guard := engine.NewGuard(httpEngine, cfg.Fetch)

	// ── 4. Storefronts, in result order ─────────────────────────────
	agg, err := buildAggregator(cfg, guard)
	if err != nil {
		slog.Error("failed to initialise storefronts", "error", err)
		os.Exit(1)
	}
	slog.Info("storefronts registered", "sources", agg.Sources())

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(agg, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A search can take up to one fetch timeout; let it finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("pricehunt stopped")
}

// buildAggregator registers the enabled storefronts. MercadoLibre goes first
// so its items lead the merged list.
func buildAggregator(cfg *config.Config, f storefront.Fetcher) (*aggregator.Aggregator, error) {
	var extractors []storefront.Extractor
	if cfg.MercadoLibre.Enabled {
		ml, err := storefront.NewMercadoLibre(f, cfg.MercadoLibre)
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, ml)
	}
	if cfg.Falabella.Enabled {
		extractors = append(extractors, storefront.NewFalabella(f, cfg.Falabella))
	}
	return aggregator.New(extractors...), nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
