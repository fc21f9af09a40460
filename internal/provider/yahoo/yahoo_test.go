package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finfetch/internal/errs"
	"finfetch/internal/httpx"
	"finfetch/internal/model"
	"finfetch/internal/provider"
)

func TestFetch_PricesRequestShape(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"chart":{"result":[]}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	body, err := c.Fetch(context.Background(), provider.Request{
		Ticker:   "AAPL",
		DataType: model.DTPrices,
		Params:   map[string]string{"range": "5d", "interval": "1d"},
	})
	require.NoError(t, err)
	require.Contains(t, string(body), "chart")
	require.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	require.Contains(t, gotQuery, "interval=1d")
	require.Contains(t, gotQuery, "range=5d")
}

func TestFetch_RateLimitMapsToTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	_, err := c.Fetch(context.Background(), provider.Request{Ticker: "AAPL", DataType: model.DTNews})
	require.Error(t, err)
	require.Equal(t, errs.RateLimit, errs.KindOf(err))
}

func TestFetch_UnsupportedDataType(t *testing.T) {
	c := New(Config{}, httpx.New(time.Second))
	_, err := c.Fetch(context.Background(), provider.Request{Ticker: "AAPL", DataType: model.DTSentiment})
	require.Error(t, err)
	require.Equal(t, errs.Validation, errs.KindOf(err))
}
