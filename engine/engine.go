package engine

import (
	"context"
	"time"
)

// Engine is the transport the fetch guard sits on top of.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch performs a single GET. Non-2xx responses are returned as results,
	// not errors; policy is the guard's job.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// FetchResult is the raw output of an engine fetch.
type FetchResult struct {
	Body       []byte
	StatusCode int
	FinalURL   string
	EngineName string
	Duration   time.Duration
}
