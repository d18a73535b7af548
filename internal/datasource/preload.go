package datasource

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"companywise/internal/problems"
)

// Preload fetches every window of company concurrently. It fails with the
// first error and cancels the remaining fetches.
func Preload(ctx context.Context, src Source, company string) (map[string][]byte, error) {
	if err := ValidateCompany(company); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	tables := make(map[string][]byte, len(problems.Windows()))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for _, w := range problems.Windows() {
		w := w
		g.Go(func() error {
			data, err := src.Table(gctx, company, w)
			if err != nil {
				return err
			}
			mu.Lock()
			tables[w.ID] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
