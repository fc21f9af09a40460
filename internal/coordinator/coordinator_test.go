package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finfetch/internal/cache"
	"finfetch/internal/errs"
	"finfetch/internal/model"
)

const chartPayload = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL"},
      "timestamp": [1769385600, 1769472000],
      "indicators": {
        "quote": [{
          "open":   [100.0, 101.5],
          "high":   [102.0, 103.0],
          "low":    [99.0, 100.5],
          "close":  [101.0, 102.5],
          "volume": [1000000, 1100000]
        }]
      }
    }],
    "error": null
  }
}`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	store, err := cache.Open(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := New(store, cache.DefaultPolicy())
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func pricesKey(t *testing.T) cache.Key {
	t.Helper()
	return cache.NewKey("yahoo", "AAPL", model.DTPrices, "5d", map[string]string{"interval": "1d"})
}

func countingFetch(calls *int, raw []byte, err error) FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
}

func TestResolve_MissFetchesAndCaches(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	calls := 0
	rec, err := r.Resolve(context.Background(), key, countingFetch(&calls, []byte(chartPayload), nil))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Len(t, rec.Bars, 2)

	entry, err := r.Store.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry, "successful resolve writes through")
	require.NotEmpty(t, entry.Normalized)
}

func TestResolve_FreshHitSkipsFetch(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	calls := 0
	fetch := countingFetch(&calls, []byte(chartPayload), nil)
	_, err := r.Resolve(context.Background(), key, fetch)
	require.NoError(t, err)

	rec, err := r.Resolve(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls, "fresh entry must not trigger a second fetch")
	require.Len(t, rec.Bars, 2)
}

func TestResolve_StaleEntryRefetched(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	// Seed an entry fetched well past the short TTL.
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, r.Store.Put(key, []byte(chartPayload), nil, cache.TTLShort, stale))

	calls := 0
	_, err := r.Resolve(context.Background(), key, countingFetch(&calls, []byte(chartPayload), nil))
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	entry, err := r.Store.Get(key)
	require.NoError(t, err)
	require.True(t, entry.FetchedAt.After(stale), "refetch refreshes fetched_at")
}

func TestResolve_RetriesTransientThenSucceeds(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	calls := 0
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errs.E(errs.Network, "connection reset")
		}
		return []byte(chartPayload), nil
	}

	rec, err := r.Resolve(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Len(t, rec.Bars, 2)
}

func TestResolve_NonRetryableFailsFast(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	calls := 0
	_, err := r.Resolve(context.Background(), key, countingFetch(&calls, nil, errs.E(errs.Provider, "bad api key")))
	require.Error(t, err)
	require.Equal(t, 1, calls, "provider errors are not retried")
	require.Equal(t, errs.Provider, errs.KindOf(err))
}

func TestResolve_ExhaustedRetriesKeepKind(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	calls := 0
	_, err := r.Resolve(context.Background(), key, countingFetch(&calls, nil, errs.E(errs.RateLimit, "429")))
	require.Error(t, err)
	require.Equal(t, DefaultAttempts, calls)
	require.Equal(t, errs.RateLimit, errs.KindOf(err))
}

func TestResolve_FailureNeverEvicts(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, r.Store.Put(key, []byte(chartPayload), nil, cache.TTLShort, stale))

	_, err := r.Resolve(context.Background(), key, countingFetch(new(int), nil, errs.E(errs.Network, "down")))
	require.Error(t, err)

	entry, getErr := r.Store.Get(key)
	require.NoError(t, getErr)
	require.NotNil(t, entry, "failed refetch must leave the stale entry intact")
	require.Equal(t, []byte(chartPayload), entry.Raw)
	require.True(t, entry.FetchedAt.Equal(stale.UTC().Truncate(time.Second)) || entry.FetchedAt.Before(time.Now().Add(-time.Hour)),
		"failed refetch must not refresh the entry")
}

func TestResolve_NormalizationFailureNotCached(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	_, err := r.Resolve(context.Background(), key, countingFetch(new(int), []byte(`{"chart":{"result":[],"error":null}}`), nil))
	require.Error(t, err)
	require.Equal(t, errs.Normalization, errs.KindOf(err))

	has, err := r.Store.Has(key)
	require.NoError(t, err)
	require.False(t, has, "payloads that fail to normalize are not written")
}

func TestResolveCached(t *testing.T) {
	r := newTestResolver(t)
	key := pricesKey(t)

	rec, err := r.ResolveCached(key)
	require.NoError(t, err)
	require.Nil(t, rec, "absence is a gap, not an error")

	// Stale beats absent in cache-only mode.
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, r.Store.Put(key, []byte(chartPayload), nil, cache.TTLShort, stale))

	rec, err = r.ResolveCached(key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Bars, 2)

	// The raw-only entry gets its normalized form backfilled.
	entry, err := r.Store.Get(key)
	require.NoError(t, err)
	require.NotEmpty(t, entry.Normalized)
}

func TestResolve_TimeoutIsTransient(t *testing.T) {
	r := newTestResolver(t)
	r.Timeout = 10 * time.Millisecond
	r.MaxAttempts = 2
	key := pricesKey(t)

	calls := 0
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := r.Resolve(context.Background(), key, fetch)
	require.Error(t, err)
	require.Equal(t, 2, calls, "per-call timeouts retry like network failures")
	require.Equal(t, errs.Network, errs.KindOf(err))
}
