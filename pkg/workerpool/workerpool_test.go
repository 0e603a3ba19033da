package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AndrewPiroli/NOS-MCT/pkg/workerpool"
)

func TestPoolProcessesEverything(t *testing.T) {
	var mu sync.Mutex
	got := make(map[int]bool)

	pool := workerpool.New(4, func(_ context.Context, n int) {
		mu.Lock()
		got[n] = true
		mu.Unlock()
	})
	pool.Start(context.Background())
	for i := 0; i < 100; i++ {
		pool.Submit(i)
	}
	pool.Close()

	assert.Len(t, got, 100)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const limit = 3
	var active, peak int32

	pool := workerpool.New(limit, func(_ context.Context, _ int) {
		n := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	})
	pool.Start(context.Background())
	for i := 0; i < 20; i++ {
		pool.Submit(i)
	}
	pool.Close()

	assert.LessOrEqual(t, peak, int32(limit))
	assert.Equal(t, int32(0), pool.Active())
}

func TestPoolDefaultSize(t *testing.T) {
	pool := workerpool.New(0, func(_ context.Context, _ struct{}) {})
	pool.Start(context.Background())
	pool.Submit(struct{}{})
	pool.Close()
	assert.Equal(t, int32(0), pool.Active())
}
