// Package provider talks to the external flight-search service.
package provider

import (
	"context"
	"errors"

	"github.com/jtomic/farewatch/internal/flights"
)

// Provider answers route/date queries with raw itineraries plus
// price-insight statistics.
type Provider interface {
	Search(ctx context.Context, q flights.Query) (*flights.SearchResult, error)
}

var (
	// ErrAuthRequired means the API key is missing or rejected.
	ErrAuthRequired = errors.New("provider authentication required")
	// ErrRateLimited means the provider throttled the request.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient provider error")
	// ErrProvider wraps error payloads returned inside a 200 response.
	ErrProvider = errors.New("provider error")
)
