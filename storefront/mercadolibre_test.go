package storefront

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricehunt/config"
	"github.com/use-agent/pricehunt/engine"
	"github.com/use-agent/pricehunt/models"
)

func testMercadoLibreConfig() config.MercadoLibreConfig {
	return config.MercadoLibreConfig{
		Enabled:        true,
		BaseURL:        "https://listado.mercadolibre.com.co",
		Referer:        "https://www.mercadolibre.com.co/",
		DomainMarker:   "mercadolibre",
		ItemMarker:     "ui-search-layout__item",
		ExcludeMarker:  "intervention",
		PriceSelector:  `[class*="andes-money-amount__fraction"]`,
		MaxItems:       10,
		MinTitleLength: 10,
		Currency:       "COP",
	}
}

func newTestMercadoLibre(t *testing.T, f Fetcher) *MercadoLibre {
	t.Helper()
	s, err := NewMercadoLibre(f, testMercadoLibreConfig())
	require.NoError(t, err)
	return s
}

func mlItem(title, href, price string) string {
	return fmt.Sprintf(`<li class="ui-search-layout__item">
  <div class="poly-card">
    <img data-src="https://http2.mlstatic.com/%[3]s.webp" src="data:image/gif;base64,R0lGOD">
    <a class="poly-component__title" href="%[2]s">%[1]s</a>
    <span class="andes-money-amount__fraction" aria-hidden="true">%[3]s</span>
  </div>
</li>`, title, href, price)
}

func mlPage(items ...string) string {
	return `<!DOCTYPE html><html><head><title>Listado</title></head><body><ol class="ui-search-layout">` +
		strings.Join(items, "\n") + `</ol></body></html>`
}

func TestMercadoLibre_SearchURL(t *testing.T) {
	s := newTestMercadoLibre(t, &stubFetcher{})

	assert.Equal(t, "https://listado.mercadolibre.com.co/samsung-galaxy-s24", s.SearchURL("samsung galaxy s24"))
	assert.Equal(t, "https://listado.mercadolibre.com.co/tv-55", s.SearchURL("  tv   55 "))
}

func TestNewMercadoLibre_BadSelector(t *testing.T) {
	cfg := testMercadoLibreConfig()
	cfg.PriceSelector = "[[["
	_, err := NewMercadoLibre(&stubFetcher{}, cfg)
	assert.Error(t, err)
}

func TestMercadoLibre_Extract(t *testing.T) {
	page := mlPage(
		mlItem("Samsung Galaxy S24 256GB Negro", "https://articulo.mercadolibre.com.co/MCO-1", "3.299.900"),
		`<li class="ui-search-layout__item ui-search-layout__item--intervention">
		   <a href="https://articulo.mercadolibre.com.co/MCO-AD">Publicidad Samsung Galaxy patrocinado</a>
		   <span class="andes-money-amount__fraction">1.000</span>
		 </li>`,
		`<li class="some-other-item"><a href="https://articulo.mercadolibre.com.co/MCO-X">Producto sin marcador de resultado</a>
		   <span class="andes-money-amount__fraction">9.999</span></li>`,
		// tracking anchor first, domain anchor second
		`<li class="ui-search-layout__item">
		   <a href="https://click.example.net/track?id=9">Rastreo de clic patrocinado largo</a>
		   <a href="https://articulo.mercadolibre.com.co/MCO-2">Funda silicona para Galaxy S24</a>
		   <span class="andes-money-amount__fraction">39.900</span>
		   <img src="https://http2.mlstatic.com/funda.webp">
		 </li>`,
		// short anchor text falls back to h2
		`<li class="ui-search-layout__item">
		   <h2 class="poly-box">Cargador Samsung 45W USB-C original</h2>
		   <a href="/MCO-3-cargador">Ver</a>
		   <span class="andes-money-amount__fraction">119.900</span>
		 </li>`,
		`<li class="ui-search-layout__item"><h2>Producto sin enlace alguno aquí</h2>
		   <span class="andes-money-amount__fraction">10.000</span></li>`,
		mlItem("Samsung Galaxy S24 Ultra 512GB", "https://articulo.mercadolibre.com.co/MCO-4", "0"),
		`<li class="ui-search-layout__item"><a href="https://articulo.mercadolibre.com.co/MCO-5">Galaxy Buds FE sin precio visible</a></li>`,
		`<li class="ui-search-layout__item"><a href="https://articulo.mercadolibre.com.co/MCO-6">Corto</a>
		   <span class="andes-money-amount__fraction">5.000</span></li>`,
	)

	f := &stubFetcher{body: page, finalURL: "https://listado.mercadolibre.com.co/samsung-galaxy-s24"}
	s := newTestMercadoLibre(t, f)

	items, stats := s.ExtractReport(context.Background(), "samsung galaxy s24")

	require.Equal(t, []string{
		"Samsung Galaxy S24 256GB Negro",
		"Funda silicona para Galaxy S24",
		"Cargador Samsung 45W USB-C original",
	}, titles(items))

	assert.Equal(t, "3299900", items[0].Price.String())
	assert.Equal(t, "https://http2.mlstatic.com/3.299.900.webp", items[0].Image, "data-src wins over src")

	assert.Equal(t, "https://articulo.mercadolibre.com.co/MCO-2", items[1].URL, "domain anchor preferred")
	assert.Equal(t, "https://http2.mlstatic.com/funda.webp", items[1].Image)

	assert.Equal(t, "https://listado.mercadolibre.com.co/MCO-3-cargador", items[2].URL, "resolved against the final URL")
	assert.Equal(t, "", items[2].Image)

	for _, p := range items {
		assert.Equal(t, models.SourceMercadoLibre, p.Source)
		assert.Equal(t, "COP", p.Currency)
		assert.True(t, p.Price.IsPositive())
	}

	assert.Equal(t, "https://listado.mercadolibre.com.co/samsung-galaxy-s24", f.gotURL)
	assert.Equal(t, "https://www.mercadolibre.com.co/", f.gotReferer)

	assert.Equal(t, 7, stats.Candidates, "intervention and unmarked items are not candidates")
	assert.Equal(t, 3, stats.Accepted)
	assert.Equal(t, map[string]int{
		rejectURL:   1,
		rejectPrice: 2,
		rejectTitle: 1,
	}, stats.Rejected)
}

func TestMercadoLibre_Cap(t *testing.T) {
	nodes := make([]string, 50)
	for i := range nodes {
		nodes[i] = mlItem(
			fmt.Sprintf("Producto listado número %02d", i),
			fmt.Sprintf("https://articulo.mercadolibre.com.co/MCO-%d", i),
			fmt.Sprintf("%d.900", 10+i),
		)
	}

	items := newTestMercadoLibre(t, &stubFetcher{body: mlPage(nodes...)}).Extract(context.Background(), "producto")

	require.Len(t, items, 10)
	for i, p := range items {
		assert.Equal(t, fmt.Sprintf("Producto listado número %02d", i), p.Title)
	}
}

func TestMercadoLibre_SchemaDrift(t *testing.T) {
	items, stats := newTestMercadoLibre(t, &stubFetcher{body: `<html><body><div class="captcha">Verifica</div></body></html>`}).
		ExtractReport(context.Background(), "tv")

	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, "schema_drift", stats.Failure)
}

func TestMercadoLibre_FetchFailure(t *testing.T) {
	f := &stubFetcher{err: &engine.FetchError{Reason: engine.ReasonHTTPStatus, Status: 403}}

	items, stats := newTestMercadoLibre(t, f).ExtractReport(context.Background(), "tv")

	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, string(engine.ReasonHTTPStatus), stats.Failure)
}
