package workers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 3, arbor.NewLogger())
	pool.Start()

	var done atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(context.Context) error {
			done.Add(1)
			return nil
		}))
	}
	pool.Wait()

	assert.Equal(t, int32(20), done.Load())
	assert.Empty(t, pool.Errors())
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(context.Background(), 3, arbor.NewLogger())
	pool.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(func(context.Context) error {
			if i%2 == 0 {
				return fmt.Errorf("job %d failed", i)
			}
			return nil
		}))
	}
	pool.Wait()

	assert.Len(t, pool.Errors(), 3)
}

func TestPoolSubmitAfterParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1, arbor.NewLogger())
	pool.Start()

	// Occupy the single worker and fill the queue so a later Submit
	// cannot sneak onto the buffered channel.
	gate := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) error {
		<-gate
		return nil
	}))
	require.NoError(t, pool.Submit(func(context.Context) error { return nil }))
	require.NoError(t, pool.Submit(func(context.Context) error { return nil }))

	cancel()
	err := pool.Submit(func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutting down")

	close(gate)
	pool.Wait()
}

func TestPoolShutdownAfterWait(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())
	pool.Start()

	require.NoError(t, pool.Submit(func(context.Context) error { return nil }))
	pool.Wait()

	// Shutdown after Wait must not double close the queue
	pool.Shutdown()
}

func TestPoolDefaultWorkerCount(t *testing.T) {
	pool := NewPool(context.Background(), 0, arbor.NewLogger())

	assert.Equal(t, 4, pool.workers)
}
