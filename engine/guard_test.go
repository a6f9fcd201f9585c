package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricehunt/config"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:        2 * time.Second,
		MinBodyBytes:   50000,
		UserAgent:      "Mozilla/5.0 test-browser",
		Accept:         "text/html",
		AcceptLanguage: "es-CO,es;q=0.9",
	}
}

func bigPage(n int) string {
	return "<html><head><title>ok</title></head><body>" + strings.Repeat("x", n) + "</body></html>"
}

func TestGuard_FetchOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0 test-browser", r.Header.Get("User-Agent"))
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		assert.Equal(t, "es-CO,es;q=0.9", r.Header.Get("Accept-Language"))
		assert.Equal(t, "https://shop.example/", r.Header.Get("Referer"))
		w.Write([]byte(bigPage(60000)))
	}))
	defer server.Close()

	g := NewGuard(NewHTTPEngine(HTTPOptions{}), testFetchConfig())
	page, err := g.Fetch(context.Background(), server.URL+"/search?q=tv", "https://shop.example/")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Greater(t, len(page.Body), 60000)
	assert.Equal(t, server.URL+"/search?q=tv", page.FinalURL)
}

func TestGuard_SmallBodyIsLikelyBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Just a moment...</title></head><body></body></html>"))
	}))
	defer server.Close()

	g := NewGuard(NewHTTPEngine(HTTPOptions{}), testFetchConfig())
	page, err := g.Fetch(context.Background(), server.URL, "")

	assert.Nil(t, page)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ReasonLikelyBlocked, fe.Reason)
	assert.Equal(t, http.StatusOK, fe.Status)
	assert.Less(t, fe.Bytes, 50000)
}

func TestGuard_ThresholdBoundary(t *testing.T) {
	body := strings.Repeat("a", 50000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	g := NewGuard(NewHTTPEngine(HTTPOptions{}), testFetchConfig())
	_, err := g.Fetch(context.Background(), server.URL, "")
	assert.NoError(t, err, "a body of exactly the threshold size passes")
}

func TestGuard_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(bigPage(60000)))
	}))
	defer server.Close()

	g := NewGuard(NewHTTPEngine(HTTPOptions{}), testFetchConfig())
	_, err := g.Fetch(context.Background(), server.URL, "")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ReasonHTTPStatus, fe.Reason)
	assert.Equal(t, http.StatusForbidden, fe.Status)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestGuard_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testFetchConfig()
	cfg.Timeout = 100 * time.Millisecond
	g := NewGuard(NewHTTPEngine(HTTPOptions{}), cfg)

	start := time.Now()
	_, err := g.Fetch(context.Background(), server.URL, "")

	assert.Equal(t, ReasonTimeout, ReasonOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuard_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	g := NewGuard(NewHTTPEngine(HTTPOptions{}), testFetchConfig())
	_, err := g.Fetch(context.Background(), url, "")

	assert.Equal(t, ReasonTransport, ReasonOf(err))
}

func TestGuard_ParentCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	g := NewGuard(NewHTTPEngine(HTTPOptions{}), testFetchConfig())
	_, err := g.Fetch(ctx, server.URL, "")

	assert.Equal(t, ReasonTransport, ReasonOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPEngine_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("z", 4096)))
	}))
	defer server.Close()

	e := NewHTTPEngine(HTTPOptions{MaxBodyBytes: 1024})
	res, err := e.Fetch(context.Background(), &FetchRequest{URL: server.URL})

	require.NoError(t, err)
	assert.Len(t, res.Body, 1024)
	assert.Equal(t, "http", res.EngineName)
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Access Denied", pageTitle([]byte("<html><head><title> Access Denied </title></head></html>")))
	assert.Equal(t, "", pageTitle([]byte("<html><body>no title</body></html>")))
}

func TestReasonOf_ForeignError(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(errors.New("boom")))
}
