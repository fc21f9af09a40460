// Package orchestrator fans hydration work out over a bounded worker
// pool: one task per (ticker, data type) pair, partial failures
// collected as gaps, results returned in request order regardless of
// completion order.
package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"finfetch/internal/cache"
	"finfetch/internal/coordinator"
	"finfetch/internal/errs"
	"finfetch/internal/model"
)

// Source plans one fetch: the cache key a (ticker, data type) pair
// resolves under, and the provider call that produces its raw payload.
type Source interface {
	Plan(ticker model.Ticker, dt model.DataType) (cache.Key, coordinator.FetchFunc, error)
}

// Options tunes one batch run.
type Options struct {
	// MaxWorkers bounds concurrently running tasks; zero means
	// DefaultWorkers.
	MaxWorkers int
	// FetchMissing permits network calls. When false the run is
	// cache-only: absent entries become gaps, never fetches.
	FetchMissing bool
}

const DefaultWorkers = 4

// Status summarizes a batch: every task succeeded, some did, or none.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// Outcome is one task's result. Record is nil when the task gapped.
type Outcome struct {
	Symbol   string
	DataType model.DataType
	Record   *model.Record
}

// Gap marks a (ticker, data type) pair that could not be resolved.
// Kind is empty for plain cache misses in cache-only mode.
type Gap struct {
	Symbol   string
	DataType model.DataType
	Kind     errs.Kind
	Reason   string
}

// BatchResult is the aggregate a digest run consumes. Outcomes and
// Gaps both follow request order: ticker list order first, data-type
// declaration order second.
type BatchResult struct {
	Outcomes []Outcome
	Gaps     []Gap
	Status   Status
}

// Record returns the resolved record for a (symbol, data type) pair,
// or nil when that task gapped.
func (b *BatchResult) Record(symbol string, dt model.DataType) *model.Record {
	for i := range b.Outcomes {
		o := &b.Outcomes[i]
		if o.Symbol == symbol && o.DataType == dt {
			return o.Record
		}
	}
	return nil
}

// Pool runs batches against one resolver and one source plan.
type Pool struct {
	Resolver *coordinator.Resolver
	Source   Source
}

func New(resolver *coordinator.Resolver, source Source) *Pool {
	return &Pool{Resolver: resolver, Source: source}
}

// Run hydrates every (ticker, data type) pair. One task's failure
// never aborts the batch: it becomes a gap and the rest proceed. The
// returned outcomes are indexed by request order, so two runs over the
// same cache state produce identically ordered results.
func (p *Pool) Run(ctx context.Context, tickers []model.Ticker, dataTypes []model.DataType, opts Options) *BatchResult {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	type task struct {
		ticker model.Ticker
		dt     model.DataType
	}
	tasks := make([]task, 0, len(tickers)*len(dataTypes))
	for _, t := range tickers {
		for _, dt := range dataTypes {
			tasks = append(tasks, task{ticker: t, dt: dt})
		}
	}

	// Each worker writes only its own slot; the slice shape is the
	// request order, so no re-sort is needed afterwards.
	outcomes := make([]Outcome, len(tasks))
	gapReasons := make([]*Gap, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, tk := range tasks {
		i, tk := i, tk
		g.Go(func() error {
			out := Outcome{Symbol: tk.ticker.Symbol, DataType: tk.dt}
			rec, err := p.resolveOne(gctx, tk.ticker, tk.dt, opts.FetchMissing)
			switch {
			case err != nil:
				gapReasons[i] = &Gap{
					Symbol:   tk.ticker.Symbol,
					DataType: tk.dt,
					Kind:     errs.KindOf(err),
					Reason:   err.Error(),
				}
			case rec == nil:
				gapReasons[i] = &Gap{
					Symbol:   tk.ticker.Symbol,
					DataType: tk.dt,
					Reason:   "not cached",
				}
			default:
				out.Record = rec
			}
			outcomes[i] = out
			return nil
		})
	}
	g.Wait()

	result := &BatchResult{Outcomes: outcomes}
	for _, gap := range gapReasons {
		if gap != nil {
			result.Gaps = append(result.Gaps, *gap)
		}
	}
	switch {
	case len(result.Gaps) == 0:
		result.Status = StatusSuccess
	case len(result.Gaps) == len(tasks):
		result.Status = StatusFailure
	default:
		result.Status = StatusPartial
	}
	return result
}

func (p *Pool) resolveOne(ctx context.Context, ticker model.Ticker, dt model.DataType, fetchMissing bool) (*model.Record, error) {
	key, fetch, err := p.Source.Plan(ticker, dt)
	if err != nil {
		return nil, err
	}
	if !fetchMissing {
		return p.Resolver.ResolveCached(key)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Network, err, "batch canceled")
	}
	return p.Resolver.Resolve(ctx, key, fetch)
}
