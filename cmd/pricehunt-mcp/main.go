package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"
)

// product mirrors the pricehunt API product model.
type product struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	URL      string          `json:"url"`
	Image    string          `json:"image"`
	Source   string          `json:"source"`

	MatchScore *int `json:"match_score"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// searchResponse mirrors GET /api/v1/search.
type searchResponse struct {
	Success  bool      `json:"success"`
	Query    string    `json:"query"`
	Items    []product `json:"items"`
	Cheapest *product  `json:"cheapest"`
	Stats    struct {
		Total    int            `json:"total"`
		BySource map[string]int `json:"by_source"`
	} `json:"stats"`
	Error *apiError `json:"error"`
}

// sourceResponse mirrors GET /api/v1/sources/:source/search.
type sourceResponse struct {
	Success bool      `json:"success"`
	Source  string    `json:"source"`
	Query   string    `json:"query"`
	Total   int       `json:"total"`
	Items   []product `json:"items"`
	Report  *struct {
		URL        string         `json:"url"`
		PageBytes  int            `json:"page_bytes"`
		Candidates int            `json:"candidates"`
		Accepted   int            `json:"accepted"`
		Rejected   map[string]int `json:"rejected"`
		Failure    string         `json:"failure"`
	} `json:"report"`
	Error *apiError `json:"error"`
}

func main() {
	apiURL := os.Getenv("PRICEHUNT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PRICEHUNT_API_KEY")

	s := server.NewMCPServer(
		"pricehunt",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	client := &apiClient{
		http:   &http.Client{Timeout: 60 * time.Second},
		base:   strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
	}

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search Colombian storefronts (MercadoLibre and Falabella) for a product and return the listings with prices in COP, plus the cheapest offer."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text product search, e.g. 'iphone 15 pro 256gb'"),
		),
		mcp.WithString("sort",
			mcp.Description("Optional ordering of the returned listings"),
			mcp.Enum("price_asc", "price_desc", "az", "za", "relevance"),
		),
	)
	s.AddTool(searchTool, handleSearchProducts(client))

	storeTool := mcp.NewTool("search_store",
		mcp.WithDescription("Search a single storefront and report how the extraction went (candidates, rejections, failure reason). Useful when one store returns nothing."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Storefront to query"),
			mcp.Enum("mercadolibre", "falabella"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text product search"),
		),
	)
	s.AddTool(storeTool, handleSearchStore(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiClient calls the pricehunt HTTP API.
type apiClient struct {
	http   *http.Client
	base   string
	apiKey string
}

// get sends a GET request and decodes the JSON body into out regardless of
// status, since error responses share the success envelope.
func (c *apiClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	return nil
}

func handleSearchProducts(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		params := url.Values{"q": {query}}
		if sort := request.GetString("sort", ""); sort != "" {
			params.Set("sort", sort)
		}

		var resp searchResponse
		if err := client.get(ctx, "/api/v1/search", params, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("search failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# Results for %q\n\n", resp.Query)
		fmt.Fprintf(&sb, "%d listings", resp.Stats.Total)
		for _, src := range []string{"mercadolibre", "falabella"} {
			if n, ok := resp.Stats.BySource[src]; ok {
				fmt.Fprintf(&sb, " · %s: %d", src, n)
			}
		}
		sb.WriteString("\n\n")

		if resp.Cheapest != nil {
			fmt.Fprintf(&sb, "**Cheapest:** %s\n\n", formatProduct(*resp.Cheapest))
		}
		writeProducts(&sb, resp.Items)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleSearchStore(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := request.RequireString("source")
		if err != nil {
			return mcp.NewToolResultError("source is required"), nil
		}
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		var resp sourceResponse
		path := "/api/v1/sources/" + url.PathEscape(source) + "/search"
		if err := client.get(ctx, path, url.Values{"q": {query}}, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("store search failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s: %q\n\n", resp.Source, resp.Query)
		if r := resp.Report; r != nil {
			fmt.Fprintf(&sb, "- url: %s\n- page bytes: %d\n- candidates: %d\n- accepted: %d\n",
				r.URL, r.PageBytes, r.Candidates, r.Accepted)
			for reason, n := range r.Rejected {
				fmt.Fprintf(&sb, "- rejected (%s): %d\n", reason, n)
			}
			if r.Failure != "" {
				fmt.Fprintf(&sb, "- failure: %s\n", r.Failure)
			}
			sb.WriteString("\n")
		}
		writeProducts(&sb, resp.Items)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func writeProducts(sb *strings.Builder, items []product) {
	if len(items) == 0 {
		sb.WriteString("No listings found.\n")
		return
	}
	for i, p := range items {
		fmt.Fprintf(sb, "%d. %s\n", i+1, formatProduct(p))
	}
}

func formatProduct(p product) string {
	line := fmt.Sprintf("[%s](%s) · %s %s · %s", p.Title, p.URL, p.Price.StringFixed(0), p.Currency, p.Source)
	if p.MatchScore != nil {
		line += fmt.Sprintf(" · match %d", *p.MatchScore)
	}
	return line
}

func errorText(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
