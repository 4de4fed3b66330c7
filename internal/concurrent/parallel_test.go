package concurrent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapKeepsInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results := Map(context.Background(), items, 0, func(ctx context.Context, n int) (string, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("n%d", n), nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.NoError(t, r.Error)
		assert.Equal(t, fmt.Sprintf("n%d", items[i]), r.Value)
	}
}

func TestMapRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)

	Map(context.Background(), items, 3, func(ctx context.Context, _ int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestMapCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Map(ctx, []int{1, 2, 3}, 1, func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	assert.Zero(t, calls.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}
