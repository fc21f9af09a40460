package provider

import (
	"context"

	"finfetch/internal/errs"
	"finfetch/internal/model"
)

// Request names one raw fetch: which ticker, which slice of data, and
// any provider-specific parameters (interval, day window, ...).
// Market-wide requests leave Ticker empty.
type Request struct {
	Ticker   string
	DataType model.DataType
	Params   map[string]string
}

// Client fetches the raw payload for a request. Implementations map
// transport and HTTP failures onto the errs taxonomy; they never parse
// payloads beyond what is needed to detect a provider-level error.
type Client interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// StatusError maps an HTTP status to the right failure kind.
// 429 is its own kind because it calls for a different backoff.
func StatusError(name string, status int) error {
	switch {
	case status == 429:
		return errs.E(errs.RateLimit, "%s throttled the request (429)", name)
	case status >= 500:
		return errs.E(errs.Network, "%s returned %d", name, status)
	case status == 401 || status == 403:
		return errs.E(errs.Provider, "%s rejected credentials (%d)", name, status)
	default:
		return errs.E(errs.Provider, "%s returned unexpected status %d", name, status)
	}
}
