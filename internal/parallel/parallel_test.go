package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinChunkSize = 16

	var counter int64
	n := 1000
	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)
	assert.Equal(t, int64(n), counter)
}

func TestForChunksCoverRangeOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}
	n := 103
	seen := make([]int32, n)

	var mu sync.Mutex
	var chunks int
	ForChunks(n, func(start, end int) {
		mu.Lock()
		chunks++
		mu.Unlock()
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	}, cfg)

	assert.Equal(t, 4, chunks)
	for i, c := range seen {
		assert.Equal(t, int32(1), c, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	For(100, func(i int) {
		order = append(order, i)
	}, Sequential())
	assert.Len(t, order, 100)
	assert.Equal(t, 99, order[99])
}

func TestFor_SmallInputRunsInline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 8

	calls := 0
	ForChunks(cfg.MinChunkSize, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, cfg.MinChunkSize, end)
	}, cfg)
	assert.Equal(t, 1, calls)

	ForChunks(0, func(_, _ int) { t.Fatal("called for empty range") }, cfg)
}
