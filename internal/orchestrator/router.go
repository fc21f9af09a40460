package orchestrator

import (
	"context"

	"finfetch/internal/cache"
	"finfetch/internal/coordinator"
	"finfetch/internal/errs"
	"finfetch/internal/model"
	"finfetch/internal/provider"
)

// marketTicker keys market-wide payloads, which belong to no symbol.
const marketTicker = "_MARKET_"

// Router is the default Source: it assigns each data type to a
// provider client and derives the cache key from the request shape.
type Router struct {
	// Clients by provider name.
	Clients map[string]provider.Client
	// Assign maps each data type to the provider that serves it.
	// Missing entries fall back to DefaultAssign.
	Assign map[model.DataType]string
	// Ranges carries the time-range component of the cache key per
	// data type ("5d", "7d", ...). Missing entries use "-".
	Ranges map[model.DataType]string
	// Params are extra fetch parameters per data type (interval,
	// news count, ...). They feed both the provider call and the key.
	Params map[model.DataType]map[string]string
}

// DefaultAssign routes chart, news and statement data to yahoo and
// sentiment plus market-wide news to finnhub.
func DefaultAssign() map[model.DataType]string {
	return map[model.DataType]string{
		model.DTPrices:       "yahoo",
		model.DTNews:         "yahoo",
		model.DTFundamentals: "yahoo",
		model.DTFinancials:   "yahoo",
		model.DTSentiment:    "finnhub",
		model.DTMarketNews:   "finnhub",
	}
}

func (r *Router) providerFor(dt model.DataType) (provider.Client, error) {
	assign := r.Assign
	if assign == nil {
		assign = DefaultAssign()
	}
	name, ok := assign[dt]
	if !ok {
		return nil, errs.E(errs.Validation, "no provider assigned for data type %q", dt)
	}
	client, ok := r.Clients[name]
	if !ok {
		return nil, errs.E(errs.Validation, "provider %q is not configured", name)
	}
	return client, nil
}

// Plan builds the cache key and fetch closure for one pair. The same
// inputs always yield the same key, which is what makes resolution
// idempotent across runs.
func (r *Router) Plan(ticker model.Ticker, dt model.DataType) (cache.Key, coordinator.FetchFunc, error) {
	client, err := r.providerFor(dt)
	if err != nil {
		return cache.Key{}, nil, err
	}

	symbol := model.NormalizeSymbol(ticker.Symbol)
	keyTicker := symbol
	reqTicker := symbol
	if dt == model.DTMarketNews {
		keyTicker = marketTicker
		reqTicker = ""
	} else if symbol == "" {
		return cache.Key{}, nil, errs.E(errs.Validation, "empty ticker symbol for data type %q", dt)
	}

	timeRange := r.Ranges[dt]
	if timeRange == "" {
		timeRange = "-"
	}
	params := r.Params[dt]

	key := cache.NewKey(client.Name(), keyTicker, dt, timeRange, params)
	fetch := func(ctx context.Context) ([]byte, error) {
		return client.Fetch(ctx, provider.Request{Ticker: reqTicker, DataType: dt, Params: params})
	}
	return key, fetch, nil
}
