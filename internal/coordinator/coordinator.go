// Package coordinator decides, per cache key, whether cached data
// suffices or a fresh fetch is required, and owns the retry budget for
// transient provider failures.
package coordinator

import (
	"context"
	"errors"
	"time"

	"finfetch/internal/cache"
	"finfetch/internal/errs"
	"finfetch/internal/model"
	"finfetch/internal/normalize"
)

// FetchFunc is the provider call boundary: it returns the raw payload
// for one key. The coordinator wraps it with timeout and retries.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Resolver resolves keys against the cache store, fetching through on
// miss or staleness. All dependencies are injected so tests can swap
// in an in-memory store and a scripted fetch.
type Resolver struct {
	Store  *cache.Store
	Policy cache.Policy

	// MaxAttempts bounds the fetch loop; zero means DefaultAttempts.
	MaxAttempts int
	// Timeout applies per fetch call; zero means DefaultTimeout.
	Timeout time.Duration
	// Backoff is the base delay before the second attempt; it doubles
	// each retry. Rate-limit failures start from RateLimitBackoff.
	Backoff          time.Duration
	RateLimitBackoff time.Duration

	// sleep is swapped in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultAttempts         = 3
	DefaultTimeout          = 10 * time.Second
	DefaultBackoff          = 500 * time.Millisecond
	DefaultRateLimitBackoff = 2 * time.Second
)

func New(store *cache.Store, policy cache.Policy) *Resolver {
	return &Resolver{Store: store, Policy: policy}
}

// Resolve returns the normalized record for key, from cache when fresh
// and via fetch otherwise. The cache is only written after a fully
// successful fetch+normalize, so a failure can never evict or corrupt
// an existing entry.
func (r *Resolver) Resolve(ctx context.Context, key cache.Key, fetch FetchFunc) (*model.Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	entry, err := r.Store.Get(key)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if entry != nil && r.Policy.IsFresh(entry, now) {
		return r.normalizeEntry(entry)
	}

	raw, err := r.fetchWithRetry(ctx, key, fetch)
	if err != nil {
		return nil, err
	}

	rec, err := normalize.Normalize(key.Provider, key.DataType, raw)
	if err != nil {
		return nil, err
	}
	encoded, err := normalize.Encode(rec)
	if err != nil {
		return nil, err
	}
	if err := r.Store.Put(key, raw, encoded, cache.ClassFor(key.DataType), time.Now()); err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveCached resolves strictly from the cache: no provider calls.
// Stale entries still count — present beats absent in cache-only mode.
// Absence is reported as (nil, nil) so callers can record a gap rather
// than an error.
func (r *Resolver) ResolveCached(key cache.Key) (*model.Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	entry, err := r.Store.Get(key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return r.normalizeEntry(entry)
}

// normalizeEntry prefers the stored normalized form and falls back to
// re-normalizing the raw payload, backfilling the entry when it does.
func (r *Resolver) normalizeEntry(entry *cache.Entry) (*model.Record, error) {
	if len(entry.Normalized) > 0 {
		return normalize.Decode(entry.Normalized)
	}
	rec, err := normalize.Normalize(entry.Key.Provider, entry.Key.DataType, entry.Raw)
	if err != nil {
		return nil, err
	}
	if encoded, encErr := normalize.Encode(rec); encErr == nil {
		// Best effort: a failed backfill only costs a renormalize later.
		r.Store.SetNormalized(entry.Key, encoded)
	}
	return rec, nil
}

// fetchWithRetry is an explicit attempt loop: transient kinds retry
// with doubling delay, everything else returns immediately as a typed
// failure for this one key.
func (r *Resolver) fetchWithRetry(ctx context.Context, key cache.Key, fetch FetchFunc) ([]byte, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	rlBackoff := r.RateLimitBackoff
	if rlBackoff <= 0 {
		rlBackoff = DefaultRateLimitBackoff
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoff
			if errs.KindOf(lastErr) == errs.RateLimit {
				delay = rlBackoff
			}
			delay <<= attempt - 1
			if err := sleep(ctx, delay); err != nil {
				return nil, errs.Wrap(errs.Network, err, "fetch canceled for %s", key)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, err := fetch(callCtx)
		cancel()
		if err == nil {
			if len(raw) == 0 {
				return nil, errs.E(errs.Provider, "empty payload for %s", key)
			}
			return raw, nil
		}

		// Per-call timeouts are just another transient network failure.
		if errors.Is(err, context.DeadlineExceeded) {
			err = errs.Wrap(errs.Network, err, "fetch timed out for %s", key)
		}
		lastErr = err
		if !errs.Retryable(errs.KindOf(err)) {
			return nil, err
		}
	}
	return nil, errs.Wrap(errs.KindOf(lastErr), lastErr, "fetch failed after %d attempts for %s", attempts, key)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
