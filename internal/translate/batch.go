package translate

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

type batchFunc func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error)

// translateInBatches splits items into batches of batchSize and runs up to
// concurrency of them at once. The first failing batch cancels the rest.
// Results come back sorted by item index.
func translateInBatches(
	ctx context.Context,
	items []TranslationItem,
	batchSize, concurrency int,
	fn batchFunc,
) ([]TranslationResult, error) {
	if len(items) == 0 {
		return []TranslationResult{}, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	batches := splitBatches(items, batchSize)
	if len(batches) == 1 {
		return fn(ctx, batches[0])
	}

	perBatch := make([][]TranslationResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			results, err := fn(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d failed: %w", i, err)
			}
			perBatch[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]TranslationResult, 0, len(items))
	for _, results := range perBatch {
		all = append(all, results...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})

	return all, nil
}

func splitBatches(items []TranslationItem, size int) [][]TranslationItem {
	batches := make([][]TranslationItem, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
