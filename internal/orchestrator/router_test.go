package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"finfetch/internal/errs"
	"finfetch/internal/model"
	"finfetch/internal/provider"
)

type fakeClient struct {
	name    string
	lastReq provider.Request
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Fetch(ctx context.Context, req provider.Request) ([]byte, error) {
	f.lastReq = req
	return []byte(`{}`), nil
}

func TestRouter_PlanDefaults(t *testing.T) {
	yahoo := &fakeClient{name: "yahoo"}
	finnhub := &fakeClient{name: "finnhub"}
	r := &Router{
		Clients: map[string]provider.Client{"yahoo": yahoo, "finnhub": finnhub},
		Ranges:  map[model.DataType]string{model.DTPrices: "5d"},
		Params:  map[model.DataType]map[string]string{model.DTPrices: {"interval": "1d"}},
	}

	key, fetch, err := r.Plan(model.Ticker{Symbol: "aapl"}, model.DTPrices)
	require.NoError(t, err)
	require.Equal(t, "yahoo", key.Provider)
	require.Equal(t, "AAPL", key.Ticker, "symbols are normalized before keying")
	require.Equal(t, "5d", key.TimeRange)

	_, err = fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AAPL", yahoo.lastReq.Ticker)
	require.Equal(t, "1d", yahoo.lastReq.Params["interval"])
}

func TestRouter_PlanMarketNews(t *testing.T) {
	finnhub := &fakeClient{name: "finnhub"}
	r := &Router{Clients: map[string]provider.Client{"yahoo": &fakeClient{name: "yahoo"}, "finnhub": finnhub}}

	key, fetch, err := r.Plan(model.Ticker{}, model.DTMarketNews)
	require.NoError(t, err)
	require.Equal(t, "finnhub", key.Provider)
	require.Equal(t, marketTicker, key.Ticker, "market payloads key under the sentinel ticker")

	_, err = fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, finnhub.lastReq.Ticker)
}

func TestRouter_PlanErrors(t *testing.T) {
	r := &Router{Clients: map[string]provider.Client{"yahoo": &fakeClient{name: "yahoo"}}}

	_, _, err := r.Plan(model.Ticker{}, model.DTPrices)
	require.Error(t, err, "per-ticker data needs a symbol")
	require.Equal(t, errs.Validation, errs.KindOf(err))

	_, _, err = r.Plan(model.Ticker{Symbol: "AAPL"}, model.DTSentiment)
	require.Error(t, err, "assigned provider must be configured")
	require.Equal(t, errs.Validation, errs.KindOf(err))
}
