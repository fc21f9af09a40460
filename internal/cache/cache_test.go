package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finfetch/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHashParams_Deterministic(t *testing.T) {
	a := HashParams(map[string]string{"interval": "1d", "range": "5d"})
	b := HashParams(map[string]string{"range": "5d", "interval": "1d"})
	require.Equal(t, a, b)

	c := HashParams(map[string]string{"interval": "1wk", "range": "5d"})
	require.NotEqual(t, a, c, "distinct parameterizations must not collide")

	require.Equal(t, "-", HashParams(nil))
}

func TestKey_Validate(t *testing.T) {
	k := NewKey("yahoo", "AAPL", model.DTPrices, "5d", map[string]string{"interval": "1d"})
	require.NoError(t, k.Validate())

	bad := Key{Ticker: "AAPL"}
	require.Error(t, bad.Validate())
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	s := testStore(t)
	k := NewKey("yahoo", "AAPL", model.DTPrices, "5d", map[string]string{"interval": "1d"})

	e, err := s.Get(k)
	require.NoError(t, err)
	require.Nil(t, e, "cold cache must report absent, not error")

	fetched := time.Date(2026, 1, 25, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(k, []byte(`{"raw":true}`), []byte(`{"norm":true}`), TTLShort, fetched))

	e, err = s.Get(k)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, []byte(`{"raw":true}`), e.Raw)
	require.Equal(t, []byte(`{"norm":true}`), e.Normalized)
	require.Equal(t, TTLShort, e.TTLClass)
	require.True(t, e.FetchedAt.Equal(fetched))
}

func TestStore_PutOverwritesWholesale(t *testing.T) {
	s := testStore(t)
	k := NewKey("yahoo", "AAPL", model.DTFundamentals, "", nil)

	require.NoError(t, s.Put(k, []byte(`v1`), []byte(`n1`), TTLLong, time.Now()))
	require.NoError(t, s.Put(k, []byte(`v2`), nil, TTLLong, time.Now()))

	e, err := s.Get(k)
	require.NoError(t, err)
	require.Equal(t, []byte(`v2`), e.Raw)
	require.Empty(t, e.Normalized, "replace is wholesale, never a merge")
}

func TestStore_DistinctKeysDoNotCollide(t *testing.T) {
	s := testStore(t)
	k1 := NewKey("yahoo", "AAPL", model.DTPrices, "5d", map[string]string{"interval": "1d"})
	k2 := NewKey("yahoo", "AAPL", model.DTPrices, "5d", map[string]string{"interval": "1wk"})

	require.NoError(t, s.Put(k1, []byte(`daily`), nil, TTLShort, time.Now()))
	require.NoError(t, s.Put(k2, []byte(`weekly`), nil, TTLShort, time.Now()))

	e1, err := s.Get(k1)
	require.NoError(t, err)
	e2, err := s.Get(k2)
	require.NoError(t, err)
	require.Equal(t, []byte(`daily`), e1.Raw)
	require.Equal(t, []byte(`weekly`), e2.Raw)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	k := NewKey("finnhub", "", model.DTMarketNews, "general", nil)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(k, []byte(`[]`), nil, TTLShort, time.Now()))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	e, err := s2.Get(k)
	require.NoError(t, err)
	require.NotNil(t, e, "entries persist across process invocations")
}

func TestStore_ConcurrentWritersDistinctKeys(t *testing.T) {
	s := testStore(t)
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		i := i
		go func() {
			k := NewKey("yahoo", model.NormalizeSymbol(string(rune('A'+i))), model.DTPrices, "5d", nil)
			done <- s.Put(k, []byte(`{}`), nil, TTLShort, time.Now())
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}

func TestPolicy_Freshness(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()

	fresh := &Entry{TTLClass: TTLShort, FetchedAt: now.Add(-time.Minute)}
	stale := &Entry{TTLClass: TTLShort, FetchedAt: now.Add(-time.Hour)}
	require.True(t, p.IsFresh(fresh, now))
	require.False(t, p.IsFresh(stale, now))

	longLived := &Entry{TTLClass: TTLLong, FetchedAt: now.Add(-time.Hour)}
	require.True(t, p.IsFresh(longLived, now), "fundamentals tolerate hours-old data")

	require.False(t, p.IsFresh(nil, now))
	unknown := &Entry{TTLClass: TTLClass("bogus"), FetchedAt: now}
	require.False(t, p.IsFresh(unknown, now))
}

func TestClassFor(t *testing.T) {
	require.Equal(t, TTLShort, ClassFor(model.DTPrices))
	require.Equal(t, TTLShort, ClassFor(model.DTNews))
	require.Equal(t, TTLLong, ClassFor(model.DTFundamentals))
	require.Equal(t, TTLLong, ClassFor(model.DTFinancials))
}
