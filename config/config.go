package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Fetch        FetchConfig
	Falabella    FalabellaConfig
	MercadoLibre MercadoLibreConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Log          LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls the outbound fetch guard shared by every storefront.
type FetchConfig struct {
	// Timeout is the per-fetch deadline.
	Timeout time.Duration // default: 15s

	// MinBodyBytes is the size under which a 2xx page is treated as a bot-block shell.
	MinBodyBytes int // default: 50000

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MiB

	// UserAgent impersonates a desktop browser.
	UserAgent string

	// Accept and AcceptLanguage complete the browser header set.
	Accept         string
	AcceptLanguage string // default: "es-CO,es;q=0.9"

	// Proxy is an optional outbound proxy ("http://host:port" or "socks5://host:port").
	Proxy string

	// ChromeTLS dials HTTPS with a Chrome ClientHello fingerprint.
	ChromeTLS bool // default: true
}

// FalabellaConfig tunes the structured-data (JSON island) storefront.
type FalabellaConfig struct {
	Enabled bool // default: true

	// BaseURL is the storefront origin; the search path is appended to it.
	BaseURL string // default: "https://www.falabella.com.co"

	// SearchPath is the search endpoint; the query goes into the Ntt parameter.
	SearchPath string // default: "/falabella-co/search"

	// MediaHost prefixes relative media URLs.
	MediaHost string // default: "https://media.falabella.com.co"

	// DataIslandID is the id of the <script> carrying the JSON island.
	DataIslandID string // default: "__NEXT_DATA__"

	// ResultsPath is the dotted path to the results array inside the island.
	ResultsPath string // default: "props.pageProps.results"

	// FutureModels are lower-case title fragments of unreleased models to drop.
	FutureModels []string

	MaxItems       int // default: 10
	MinTitleLength int // default: 10
	Currency       string
}

// MercadoLibreConfig tunes the markup-traversal storefront.
type MercadoLibreConfig struct {
	Enabled bool // default: true

	// BaseURL is the listing host; the slugified query is appended as a path.
	BaseURL string // default: "https://listado.mercadolibre.com.co"

	// Referer is sent with every search request.
	Referer string // default: "https://www.mercadolibre.com.co/"

	// DomainMarker identifies the storefront's own product anchors.
	DomainMarker string // default: "mercadolibre"

	// ItemMarker and ExcludeMarker filter result <li> classes.
	ItemMarker    string // default: "ui-search-layout__item"
	ExcludeMarker string // default: "intervention"

	// PriceSelector locates the integer part of the price.
	PriceSelector string // default: `[class*="andes-money-amount__fraction"]`

	MaxItems       int // default: 10
	MinTitleLength int // default: 10
	Currency       string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per identity.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultFutureModels is the maintained denylist of unreleased model names that
// retailers pre-list before launch.
var DefaultFutureModels = []string{
	"iphone 17", "iphone air", "iphone 16e",
	"iphone 18", "iphone 19", "iphone 20",
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRICEHUNT_HOST", "0.0.0.0"),
			Port: envIntOr("PRICEHUNT_PORT", 8080),
			Mode: envOr("PRICEHUNT_MODE", "release"),
		},
		Fetch: FetchConfig{
			Timeout:        envDurationOr("PRICEHUNT_FETCH_TIMEOUT", 15*time.Second),
			MinBodyBytes:   envIntOr("PRICEHUNT_MIN_BODY_BYTES", 50000),
			MaxBodyBytes:   int64(envIntOr("PRICEHUNT_MAX_BODY_BYTES", 10<<20)),
			UserAgent:      envOr("PRICEHUNT_USER_AGENT", defaultUserAgent),
			Accept:         envOr("PRICEHUNT_ACCEPT", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
			AcceptLanguage: envOr("PRICEHUNT_ACCEPT_LANGUAGE", "es-CO,es;q=0.9"),
			Proxy:          os.Getenv("PRICEHUNT_PROXY"),
			ChromeTLS:      envBoolOr("PRICEHUNT_CHROME_TLS", true),
		},
		Falabella: FalabellaConfig{
			Enabled:        envBoolOr("PRICEHUNT_FALABELLA_ENABLED", true),
			BaseURL:        envOr("PRICEHUNT_FALABELLA_URL", "https://www.falabella.com.co"),
			SearchPath:     envOr("PRICEHUNT_FALABELLA_SEARCH_PATH", "/falabella-co/search"),
			MediaHost:      envOr("PRICEHUNT_FALABELLA_MEDIA_HOST", "https://media.falabella.com.co"),
			DataIslandID:   envOr("PRICEHUNT_FALABELLA_ISLAND_ID", "__NEXT_DATA__"),
			ResultsPath:    envOr("PRICEHUNT_FALABELLA_RESULTS_PATH", "props.pageProps.results"),
			FutureModels:   envSliceOr("PRICEHUNT_FALABELLA_FUTURE_MODELS", DefaultFutureModels),
			MaxItems:       envIntOr("PRICEHUNT_FALABELLA_MAX_ITEMS", 10),
			MinTitleLength: envIntOr("PRICEHUNT_FALABELLA_MIN_TITLE", 10),
			Currency:       envOr("PRICEHUNT_FALABELLA_CURRENCY", "COP"),
		},
		MercadoLibre: MercadoLibreConfig{
			Enabled:        envBoolOr("PRICEHUNT_MERCADOLIBRE_ENABLED", true),
			BaseURL:        envOr("PRICEHUNT_MERCADOLIBRE_URL", "https://listado.mercadolibre.com.co"),
			Referer:        envOr("PRICEHUNT_MERCADOLIBRE_REFERER", "https://www.mercadolibre.com.co/"),
			DomainMarker:   envOr("PRICEHUNT_MERCADOLIBRE_DOMAIN", "mercadolibre"),
			ItemMarker:     envOr("PRICEHUNT_MERCADOLIBRE_ITEM_MARKER", "ui-search-layout__item"),
			ExcludeMarker:  envOr("PRICEHUNT_MERCADOLIBRE_EXCLUDE_MARKER", "intervention"),
			PriceSelector:  envOr("PRICEHUNT_MERCADOLIBRE_PRICE_SELECTOR", `[class*="andes-money-amount__fraction"]`),
			MaxItems:       envIntOr("PRICEHUNT_MERCADOLIBRE_MAX_ITEMS", 10),
			MinTitleLength: envIntOr("PRICEHUNT_MERCADOLIBRE_MIN_TITLE", 10),
			Currency:       envOr("PRICEHUNT_MERCADOLIBRE_CURRENCY", "COP"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRICEHUNT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PRICEHUNT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRICEHUNT_RATE_RPS", 2.0),
			Burst:             envIntOr("PRICEHUNT_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("PRICEHUNT_LOG_LEVEL", "info"),
			Format: envOr("PRICEHUNT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
