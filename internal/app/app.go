// Package app wires the configured stack: cache store, provider
// clients with rate limiting, resolver and worker pool. Both commands
// build from here so they agree on defaults.
package app

import (
	"time"

	"finfetch/internal/cache"
	"finfetch/internal/config"
	"finfetch/internal/coordinator"
	"finfetch/internal/errs"
	"finfetch/internal/httpx"
	"finfetch/internal/model"
	"finfetch/internal/orchestrator"
	"finfetch/internal/provider"
	"finfetch/internal/provider/finnhub"
	"finfetch/internal/provider/ratelimit"
	"finfetch/internal/provider/yahoo"
)

// Stack is the assembled runtime.
type Stack struct {
	Config   config.Config
	Store    *cache.Store
	Resolver *coordinator.Resolver
	Router   *orchestrator.Router
	Pool     *orchestrator.Pool
}

// Build opens the cache and constructs the provider plan from cfg.
// Finnhub-backed data types are only routed when a key is configured.
func Build(cfg config.Config) (*Stack, error) {
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	policy := cache.Policy{
		cache.TTLShort: cfg.Cache.ShortTTL(),
		cache.TTLLong:  cfg.Cache.LongTTL(),
	}

	resolver := coordinator.New(store, policy)
	resolver.MaxAttempts = cfg.Fetch.MaxAttempts
	resolver.Timeout = cfg.Fetch.Timeout()

	httpClient := httpx.New(cfg.Fetch.Timeout())

	var yc provider.Client = yahoo.New(yahoo.Config{
		Name:    "yahoo",
		BaseURL: cfg.Yahoo.BaseURL,
	}, httpClient)
	if cfg.Yahoo.MinIntervalMS > 0 {
		yc = &ratelimit.MinInterval{
			C:        yc,
			Interval: time.Duration(cfg.Yahoo.MinIntervalMS) * time.Millisecond,
		}
	}

	clients := map[string]provider.Client{"yahoo": yc}
	assign := orchestrator.DefaultAssign()

	if cfg.Finnhub.Enabled && cfg.Finnhub.APIKey != "" {
		fc, err := finnhub.NewClient(cfg.Finnhub.APIKey,
			finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
			finnhub.WithHTTPClient(httpClient.HTTP),
		)
		if err != nil {
			store.Close()
			return nil, err
		}
		var adapter provider.Client = finnhub.NewAdapter(fc, finnhub.AdapterConfig{
			NewsDays: cfg.Finnhub.NewsDays,
		})
		if cfg.Finnhub.MaxRequestsPerMinute > 0 {
			rate := float64(cfg.Finnhub.MaxRequestsPerMinute) / 60.0
			burst := cfg.Finnhub.Burst
			if burst <= 0 {
				burst = 1
			}
			adapter = &ratelimit.TokenBucketClient{C: adapter, TB: ratelimit.NewTokenBucket(rate, burst)}
		}
		clients["finnhub"] = adapter
	} else {
		// Without a key, finnhub-only data types fall back to nothing:
		// drop them from the plan so they gap cleanly.
		delete(assign, model.DTSentiment)
		delete(assign, model.DTMarketNews)
	}

	router := &orchestrator.Router{
		Clients: clients,
		Assign:  assign,
		Ranges: map[model.DataType]string{
			model.DTPrices: cfg.Yahoo.Range,
			model.DTNews:   "latest",
		},
		Params: map[model.DataType]map[string]string{
			model.DTPrices: {
				"range":    cfg.Yahoo.Range,
				"interval": cfg.Yahoo.Interval,
			},
		},
	}

	return &Stack{
		Config:   cfg,
		Store:    store,
		Resolver: resolver,
		Router:   router,
		Pool:     orchestrator.New(resolver, router),
	}, nil
}

func (s *Stack) Close() error {
	return s.Store.Close()
}

// ParseDataTypes maps CSV names onto data types, rejecting unknowns.
func ParseDataTypes(names []string) ([]model.DataType, error) {
	known := map[string]model.DataType{
		"prices":       model.DTPrices,
		"news":         model.DTNews,
		"fundamentals": model.DTFundamentals,
		"financials":   model.DTFinancials,
		"sentiment":    model.DTSentiment,
		"market_news":  model.DTMarketNews,
	}
	out := make([]model.DataType, 0, len(names))
	for _, n := range names {
		dt, ok := known[n]
		if !ok {
			return nil, errs.E(errs.Validation, "unknown data type %q", n)
		}
		out = append(out, dt)
	}
	return out, nil
}
