package dynamo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an ensemble.
type Job[T any] func(ctx context.Context) (T, error)

// Ensemble runs jobs concurrently with at most limit in flight (limit <= 0
// means unbounded). Results keep the order of jobs. The first error cancels
// the remaining jobs.
func Ensemble[T any](ctx context.Context, limit int, jobs []Job[T]) ([]T, error) {
	results := make([]T, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			r, err := job(ctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
