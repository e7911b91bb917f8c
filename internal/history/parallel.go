package history

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"triage/internal/reconcile"
)

// ReconcileBuilds runs fn once per build with bounded parallelism and
// returns the per-build results keyed by build tag. The first error
// cancels the remaining work.
func ReconcileBuilds(ctx context.Context, builds []string, parallelism int, fn func(ctx context.Context, build string) (*reconcile.Result, error)) (map[string]*reconcile.Result, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	results := make(map[string]*reconcile.Result, len(builds))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, build := range builds {
		g.Go(func() error {
			res, err := fn(gctx, build)
			if err != nil {
				return err
			}
			mu.Lock()
			results[build] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FailingTests lists failing test names across the given results,
// deduplicated by full name.
func FailingTests(results map[string]*reconcile.Result) []string {
	seen := map[string]bool{}
	var names []string
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, rec := range res.Records {
			if rec.IsFailure() && !seen[rec.FullName()] {
				seen[rec.FullName()] = true
				names = append(names, rec.FullName())
			}
		}
	}
	return names
}
