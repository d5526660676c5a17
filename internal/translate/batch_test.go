package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) []TranslationItem {
	items := make([]TranslationItem, n)
	for i := range items {
		items[i] = TranslationItem{Index: i, Text: fmt.Sprintf("line %d", i)}
	}
	return items
}

func echoBatch(_ context.Context, items []TranslationItem) ([]TranslationResult, error) {
	out := make([]TranslationResult, len(items))
	// reversed so ordering has to be restored by the caller
	for i, it := range items {
		out[len(items)-1-i] = TranslationResult{Index: it.Index, Text: "t:" + it.Text}
	}
	return out, nil
}

func TestSplitBatches(t *testing.T) {
	batches := splitBatches(makeItems(5), 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, 4, batches[2][0].Index)
}

func TestTranslateInBatchesOrdersResults(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error) {
		calls.Add(1)
		return echoBatch(ctx, items)
	}

	results, err := translateInBatches(context.Background(), makeItems(7), 3, 2, fn)
	require.NoError(t, err)
	require.Len(t, results, 7)
	assert.EqualValues(t, 3, calls.Load())
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("t:line %d", i), r.Text)
	}
}

func TestTranslateInBatchesEmpty(t *testing.T) {
	results, err := translateInBatches(context.Background(), nil, 10, 2, func(context.Context, []TranslationItem) ([]TranslationResult, error) {
		t.Fatal("batch func should not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTranslateInBatchesRespectsLimit(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	fn := func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return echoBatch(ctx, items)
	}

	_, err := translateInBatches(context.Background(), makeItems(10), 1, 2, fn)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2)
}

func TestTranslateInBatchesFailsFast(t *testing.T) {
	boom := errors.New("boom")
	fn := func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error) {
		if items[0].Index == 2 {
			return nil, boom
		}
		return echoBatch(ctx, items)
	}

	_, err := translateInBatches(context.Background(), makeItems(6), 2, 1, fn)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch 1 failed")
}

func TestTranslateInBatchesDefaults(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error) {
		calls.Add(1)
		return echoBatch(ctx, items)
	}

	results, err := translateInBatches(context.Background(), makeItems(DefaultBatchSize+1), 0, 0, fn)
	require.NoError(t, err)
	assert.Len(t, results, DefaultBatchSize+1)
	assert.EqualValues(t, 2, calls.Load())
}
