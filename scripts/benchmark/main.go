package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "pricehunt API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per query for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Queries covering the product shapes the storefronts see most.
var testQueries = []struct {
	Label string
	Query string
}{
	{"Phone", "iphone 15 pro"},
	{"TV", "televisor 55 pulgadas"},
	{"Laptop", "portatil lenovo"},
	{"Apparel", "tenis nike air max"},
	{"Appliance", "nevera mabe"},
}

// --- Response types (mirrors models package) ---

type searchResponse struct {
	Success bool `json:"success"`
	Items   []struct {
		Price  float64 `json:"price"`
		Source string  `json:"source"`
	} `json:"items"`
	Cheapest *struct {
		Price float64 `json:"price"`
	} `json:"cheapest"`
	Stats struct {
		Total    int            `json:"total"`
		BySource map[string]int `json:"by_source"`
	} `json:"stats"`
	Sources []struct {
		Source     string `json:"source"`
		DurationMs int64  `json:"duration_ms"`
	} `json:"sources"`
	Timing struct {
		TotalMs int64 `json:"total_ms"`
	} `json:"timing"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// --- Benchmark result types ---

type runResult struct {
	Run           int              `json:"run"`
	TotalMs       int64            `json:"total_ms"`
	SourceMs      map[string]int64 `json:"source_ms"`
	Items         int              `json:"items"`
	BySource      map[string]int   `json:"by_source"`
	CheapestPrice float64          `json:"cheapest_price"`
	Success       bool             `json:"success"`
	Error         string           `json:"error,omitempty"`
}

type queryAverages struct {
	TotalMs  float64            `json:"total_ms"`
	SourceMs map[string]float64 `json:"source_ms"`
	Items    float64            `json:"items"`
	// EmptySources counts runs where each source returned nothing, the
	// usual symptom of a block or markup drift.
	EmptySources map[string]int `json:"empty_sources"`
}

type queryResult struct {
	Query    string         `json:"query"`
	Label    string         `json:"label"`
	Runs     []runResult    `json:"runs"`
	Averages *queryAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp    string        `json:"timestamp"`
	APIURL       string        `json:"api_url"`
	RunsPerQuery int           `json:"runs_per_query"`
	Results      []queryResult `json:"results"`
}

var sources = []string{"mercadolibre", "falabella"}

func main() {
	flag.Parse()

	fmt.Println("=== pricehunt Benchmark Suite ===")
	fmt.Printf("API URL:     %s\n", *apiURL)
	fmt.Printf("Runs/query:  %d\n", *runs)
	fmt.Printf("Output:      %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure pricehunt is running (go run ./cmd/pricehunt)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		APIURL:       *apiURL,
		RunsPerQuery: *runs,
	}

	client := &http.Client{Timeout: 60 * time.Second}
	for _, t := range testQueries {
		fmt.Printf("Benchmarking [%s] %q ...\n", t.Label, t.Query)
		qr := queryResult{Query: t.Query, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkQuery(client, t.Query, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d items %v\n", rr.TotalMs, rr.Items, rr.BySource)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			qr.Runs = append(qr.Runs, rr)
		}

		qr.Averages = computeAverages(qr.Runs)
		report.Results = append(report.Results, qr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkQuery(client *http.Client, query string, run int) runResult {
	rr := runResult{Run: run}

	req, err := http.NewRequest(http.MethodGet, *apiURL+"/api/v1/search?q="+url.QueryEscape(query), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.TotalMs = sr.Timing.TotalMs
	rr.Items = sr.Stats.Total
	rr.BySource = sr.Stats.BySource
	rr.SourceMs = make(map[string]int64, len(sr.Sources))
	for _, s := range sr.Sources {
		rr.SourceMs[s.Source] = s.DurationMs
	}
	if sr.Cheapest != nil {
		rr.CheapestPrice = sr.Cheapest.Price
	}
	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}
	return rr
}

func computeAverages(runs []runResult) *queryAverages {
	var successCount int
	avg := queryAverages{
		SourceMs:     map[string]float64{},
		EmptySources: map[string]int{},
	}

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Items += float64(r.Items)
		for _, s := range sources {
			avg.SourceMs[s] += float64(r.SourceMs[s])
			if r.BySource[s] == 0 {
				avg.EmptySources[s]++
			}
		}
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Items /= n
	for s := range avg.SourceMs {
		avg.SourceMs[s] /= n
	}
	return &avg
}

func printTable(results []queryResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Query\tAvg Latency\tMercadoLibre\tFalabella\tAvg Items\tEmpty ML/FLB\n")
	fmt.Fprintf(w, "─────\t───────────\t────────────\t─────────\t─────────\t────────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t-\n", truncate(r.Query, 30))
			continue
		}
		a := r.Averages
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%.1f\t%d/%d\n",
			truncate(r.Query, 30),
			int64(a.TotalMs),
			int64(a.SourceMs["mercadolibre"]),
			int64(a.SourceMs["falabella"]),
			a.Items,
			a.EmptySources["mercadolibre"],
			a.EmptySources["falabella"],
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
