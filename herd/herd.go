package herd

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rabbitson87/atomic-http/internal/pool"
)

// DefaultShardCapacity limits how many idle arenas a single shard retains.
// Arenas released into a full shard are dropped for the GC to collect.
const DefaultShardCapacity = 64

// Herd hands out exclusively-owned arenas to connections. It is striped
// into GOMAXPROCS shards so that concurrent acquires mostly hit different
// locks; a shard's mutex is held only for the push or pop itself.
type Herd struct {
	shards  []shard
	counter atomic.Uint64

	chunkSize int
}

type shard struct {
	mu   sync.Mutex
	pool pool.ObjectPool[*Arena]
}

// NewHerd builds a herd whose arenas use chunks of chunkSize bytes and
// whose shards retain up to perShard idle arenas each. Zero values pick
// the defaults.
func NewHerd(chunkSize, perShard int) *Herd {
	if perShard <= 0 {
		perShard = DefaultShardCapacity
	}

	shards := make([]shard, runtime.GOMAXPROCS(0))
	for i := range shards {
		shards[i].pool = pool.NewObjectPool[*Arena](perShard)
	}

	return &Herd{
		shards:    shards,
		chunkSize: chunkSize,
	}
}

// Acquire returns an arena owned exclusively by the caller until it is
// passed back via Release. The arena arrives reset.
func (h *Herd) Acquire() *Arena {
	s := h.next()
	s.mu.Lock()
	a := s.pool.Acquire()
	s.mu.Unlock()

	if a == nil {
		a = NewArena(h.chunkSize)
	}

	return a
}

// Release resets the arena and returns it to the herd. The caller must not
// touch the arena, nor any memory allocated from it, afterwards.
func (h *Herd) Release(a *Arena) {
	a.Reset()

	s := h.next()
	s.mu.Lock()
	s.pool.Release(a)
	s.mu.Unlock()
}

func (h *Herd) next() *shard {
	return &h.shards[h.counter.Add(1)%uint64(len(h.shards))]
}
