package cache

import (
	"time"

	"finfetch/internal/model"
)

// TTLClass names a freshness policy. Classes are stored with each entry
// so a policy change reinterprets existing entries without rewrites.
type TTLClass string

const (
	TTLShort TTLClass = "short" // prices, news: recency matters
	TTLLong  TTLClass = "long"  // fundamentals, statements: quarterly cadence
)

// Policy maps TTL classes to durations. The zero Policy is unusable;
// build one with DefaultPolicy or from config.
type Policy map[TTLClass]time.Duration

// DefaultPolicy mirrors the cadence of the underlying data: price and
// news payloads go stale within the hour, fundamentals and statements
// only move with filings.
func DefaultPolicy() Policy {
	return Policy{
		TTLShort: 15 * time.Minute,
		TTLLong:  24 * time.Hour,
	}
}

// ClassFor picks the TTL class for a data type.
func ClassFor(dt model.DataType) TTLClass {
	switch dt {
	case model.DTFundamentals, model.DTFinancials:
		return TTLLong
	default:
		return TTLShort
	}
}

// IsFresh reports whether the entry is still usable at now. Unknown
// classes are treated as expired so a refetch is preferred over serving
// data under a policy that no longer exists.
func (p Policy) IsFresh(e *Entry, now time.Time) bool {
	if e == nil {
		return false
	}
	ttl, ok := p[e.TTLClass]
	if !ok {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}
