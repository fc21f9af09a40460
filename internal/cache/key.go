package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"finfetch/internal/errs"
	"finfetch/internal/model"
)

// Key identifies one cached payload. Two requests that differ in any
// fetch parameter must map to different keys, which is what ParamsHash
// is for: it digests the parameters not covered by the other fields.
type Key struct {
	Provider   string
	Ticker     string
	DataType   model.DataType
	TimeRange  string
	ParamsHash string
}

// HashParams produces a deterministic digest of fetch parameters.
// Pairs are sorted by key so map iteration order never leaks into the
// hash. An empty map hashes to "-" to keep keys readable.
func HashParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum[:8])
}

// NewKey builds a key with a hashed parameter set.
func NewKey(provider, ticker string, dt model.DataType, timeRange string, params map[string]string) Key {
	return Key{
		Provider:   provider,
		Ticker:     ticker,
		DataType:   dt,
		TimeRange:  timeRange,
		ParamsHash: HashParams(params),
	}
}

// Validate rejects structurally broken keys. A bad key is a programmer
// error and treated as fatal by callers, not as a retryable gap.
func (k Key) Validate() error {
	if k.Provider == "" || k.DataType == "" || k.ParamsHash == "" {
		return errs.E(errs.Validation, "invalid cache key %q", k.String())
	}
	return nil
}

func (k Key) String() string {
	return strings.Join([]string{k.Provider, string(k.DataType), k.Ticker, k.TimeRange, k.ParamsHash}, ":")
}
