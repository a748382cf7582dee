package eta

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
)

const maxBatchGoroutines = 16

// ETAJob pairs a vehicle with the destination row on its trip.
type ETAJob struct {
	Vehicle     livefeed.Vehicle
	Destination schedule.JoinRow
}

type indexed[T any] struct {
	i int
	v T
}

// mapOrdered runs fn over n items on a bounded pool and returns results in
// input order. fn must not panic; predictor panics are already contained by
// model.SafePredict.
func mapOrdered[T any](n int, fn func(i int) T) []T {
	if n == 0 {
		return nil
	}

	p := pool.NewWithResults[indexed[T]]().WithMaxGoroutines(maxBatchGoroutines)
	for i := 0; i < n; i++ {
		i := i
		p.Go(func() indexed[T] {
			return indexed[T]{i: i, v: fn(i)}
		})
	}
	results := p.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].i < results[b].i })
	out := make([]T, len(results))
	for k, r := range results {
		out[k] = r.v
	}
	return out
}

// DelayBatch computes SegmentDelay for every vehicle. One vehicle's failure
// only affects its own result.
func (e *Estimator) DelayBatch(ctx context.Context, vehicles []livefeed.Vehicle) []DelayResult {
	return mapOrdered(len(vehicles), func(i int) DelayResult {
		return e.SegmentDelay(ctx, vehicles[i])
	})
}

// ETABatch computes PredictETA for every job.
func (e *Estimator) ETABatch(ctx context.Context, jobs []ETAJob) []ETAResult {
	return mapOrdered(len(jobs), func(i int) ETAResult {
		return e.PredictETA(ctx, jobs[i].Vehicle, jobs[i].Destination)
	})
}
