package models

// SearchResponse is the response for GET /api/v1/search.
type SearchResponse struct {
	// Success is false only when the request itself was rejected.
	Success bool `json:"success"`

	Query    string         `json:"query,omitempty"`
	Items    []Product      `json:"items"`
	Cheapest *Product       `json:"cheapest"`
	Stats    Stats          `json:"stats"`
	Sources  []SourceReport `json:"sources,omitempty"`
	Timing   TimingInfo     `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// SourceSearchResponse is the diagnostics response for
// GET /api/v1/sources/:source/search.
type SourceSearchResponse struct {
	Success bool          `json:"success"`
	Source  Source        `json:"source,omitempty"`
	Query   string        `json:"query,omitempty"`
	Total   int           `json:"total"`
	Items   []Product     `json:"items"`
	Report  *ExtractStats `json:"report,omitempty"`
	Timing  TimingInfo    `json:"timing"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// ExtractStats describes how a single extraction went: how many candidates
// the page offered and why each rejected one was dropped.
type ExtractStats struct {
	URL        string         `json:"url"`
	PageBytes  int            `json:"page_bytes"`
	Candidates int            `json:"candidates"`
	Accepted   int            `json:"accepted"`
	Rejected   map[string]int `json:"rejected,omitempty"`

	// Failure names the reason the whole page was abandoned, if it was.
	Failure string `json:"failure,omitempty"`
}

// Reject counts one dropped candidate under reason.
func (s *ExtractStats) Reject(reason string) {
	if s.Rejected == nil {
		s.Rejected = make(map[string]int)
	}
	s.Rejected[reason]++
}

// TimingInfo breaks down the time spent serving a request.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Sources []Source `json:"sources"`
	Version string   `json:"version"`
}
