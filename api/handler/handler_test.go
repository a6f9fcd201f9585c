package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricehunt/aggregator"
	"github.com/use-agent/pricehunt/models"
)

type fakeStore struct {
	source models.Source
	items  []models.Product
}

func (f *fakeStore) Source() models.Source { return f.source }

func (f *fakeStore) Extract(context.Context, string) []models.Product { return f.items }

// reportingStore also implements storefront.Reporter.
type reportingStore struct{ fakeStore }

func (f *reportingStore) ExtractReport(context.Context, string) ([]models.Product, *models.ExtractStats) {
	return f.items, &models.ExtractStats{URL: "https://store.example/q", Candidates: 4, Accepted: len(f.items)}
}

func item(source models.Source, title string, price int64) models.Product {
	return models.Product{
		Title:    title,
		Price:    decimal.NewFromInt(price),
		Currency: "COP",
		URL:      "https://store.example/" + title,
		Source:   source,
	}
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	agg := aggregator.New(
		&fakeStore{source: models.SourceMercadoLibre, items: []models.Product{
			item(models.SourceMercadoLibre, "Bravo", 300),
			item(models.SourceMercadoLibre, "alfa", 100),
		}},
		&reportingStore{fakeStore{source: models.SourceFalabella, items: []models.Product{
			item(models.SourceFalabella, "Charlie", 200),
		}}},
	)

	r := gin.New()
	r.GET("/search", Search(agg))
	r.GET("/sources/:source/search", SourceSearch(agg))
	r.GET("/health", Health(agg, time.Now()))
	return r
}

func get(t *testing.T, r *gin.Engine, target string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	return w.Code
}

func titlesOf(items []models.Product) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Title
	}
	return out
}

func TestSearch_OK(t *testing.T) {
	var resp models.SearchResponse
	code := get(t, newTestEngine(), "/search?q=%20televisor%20", &resp)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "televisor", resp.Query)
	assert.Equal(t, []string{"Bravo", "alfa", "Charlie"}, titlesOf(resp.Items))
	require.NotNil(t, resp.Cheapest)
	assert.Equal(t, "alfa", resp.Cheapest.Title)
	assert.True(t, resp.Cheapest.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 3, resp.Stats.Total)
	assert.Equal(t, 2, resp.Stats.BySource[models.SourceMercadoLibre])
	assert.Len(t, resp.Sources, 2)
}

func TestSearch_PriceIsJSONNumber(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=tv", nil))

	var raw struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.NotEmpty(t, raw.Items)
	assert.IsType(t, float64(0), raw.Items[0]["price"])
}

func TestSearch_Sort(t *testing.T) {
	tests := []struct {
		sort string
		want []string
	}{
		{"price_asc", []string{"alfa", "Charlie", "Bravo"}},
		{"price_desc", []string{"Bravo", "Charlie", "alfa"}},
		{"az", []string{"alfa", "Bravo", "Charlie"}},
		{"za", []string{"Charlie", "Bravo", "alfa"}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			var resp models.SearchResponse
			code := get(t, newTestEngine(), "/search?q=tv&sort="+tt.sort, &resp)

			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.want, titlesOf(resp.Items))
			assert.Equal(t, "alfa", resp.Cheapest.Title)
		})
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	for _, target := range []string{"/search", "/search?q=", "/search?q=%20%20", "/search?q=tv&sort=random"} {
		var resp models.SearchResponse
		code := get(t, newTestEngine(), target, &resp)

		assert.Equal(t, http.StatusBadRequest, code, target)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error, target)
		assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
	}
}

func TestSortItems_DoesNotMutateInput(t *testing.T) {
	items := []models.Product{
		item(models.SourceFalabella, "b", 2),
		item(models.SourceFalabella, "a", 1),
	}
	sorted := sortItems(items, models.SortPriceAsc, "tv")

	assert.Equal(t, []string{"a", "b"}, titlesOf(sorted))
	assert.Equal(t, []string{"b", "a"}, titlesOf(items))
}

func TestSortItems_Relevance(t *testing.T) {
	items := []models.Product{
		item(models.SourceMercadoLibre, "Funda para Samsung Galaxy S24", 50),
		item(models.SourceMercadoLibre, "Samsung Galaxy S24 Ultra 512GB", 5000),
		item(models.SourceFalabella, "Samsung Galaxy S24 256GB Negro", 3000),
	}

	sorted := sortItems(items, models.SortRelevance, "samsung galaxy s24")

	assert.Equal(t, []string{
		"Samsung Galaxy S24 256GB Negro",
		"Samsung Galaxy S24 Ultra 512GB",
		"Funda para Samsung Galaxy S24",
	}, titlesOf(sorted), "score first, then price")
	require.NotNil(t, sorted[0].MatchScore)
	assert.Equal(t, 100, *sorted[0].MatchScore)
	assert.Equal(t, 60, *sorted[2].MatchScore)

	for _, p := range items {
		assert.Nil(t, p.MatchScore, "input items are not stamped")
	}
}

func TestSearch_RelevanceKeepsCheapest(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=bravo&sort=relevance", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var raw struct {
		Items    []map[string]any `json:"items"`
		Cheapest map[string]any   `json:"cheapest"`
		Stats    struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))

	require.Len(t, raw.Items, 3, "scoring never drops items")
	assert.Equal(t, 3, raw.Stats.Total)
	assert.Equal(t, "Bravo", raw.Items[0]["title"])
	for _, it := range raw.Items {
		assert.Contains(t, it, "match_score")
	}
	assert.Equal(t, "alfa", raw.Cheapest["title"])
	assert.NotContains(t, raw.Cheapest, "match_score")

	plain := httptest.NewRecorder()
	newTestEngine().ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/search?q=bravo", nil))
	assert.NotContains(t, plain.Body.String(), "match_score")
}

func TestSourceSearch(t *testing.T) {
	var resp models.SourceSearchResponse
	code := get(t, newTestEngine(), "/sources/falabella/search?q=tv", &resp)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, models.SourceFalabella, resp.Source)
	assert.Equal(t, 1, resp.Total)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 4, resp.Report.Candidates)

	var plain models.SourceSearchResponse
	code = get(t, newTestEngine(), "/sources/mercadolibre/search?q=tv", &plain)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, plain.Total)
	assert.Nil(t, plain.Report)
}

func TestSourceSearch_Errors(t *testing.T) {
	var resp models.SourceSearchResponse
	code := get(t, newTestEngine(), "/sources/amazon/search?q=tv", &resp)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeUnknownSource, resp.Error.Code)

	resp = models.SourceSearchResponse{}
	code = get(t, newTestEngine(), "/sources/falabella/search?q=%20", &resp)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
}

func TestHealth(t *testing.T) {
	var resp models.HealthResponse
	code := get(t, newTestEngine(), "/health", &resp)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, []models.Source{models.SourceMercadoLibre, models.SourceFalabella}, resp.Sources)
}
