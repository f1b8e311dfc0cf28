package herd

import "unsafe"

// DefaultChunkSize is the granularity an Arena requests memory from the
// runtime with. Allocations larger than it get a dedicated chunk.
const DefaultChunkSize = 64 * 1024

// Arena is a chunked bump allocator. Allocations are carved off the active
// chunk and never move: when the chunk runs out, a new one is appended and
// the old ones stay untouched until Reset. This is what makes it legal to
// keep views (subslices, unsafely-cast strings) into arena memory across
// further allocations.
//
// An Arena is not thread-safe. It belongs to exactly one connection between
// Acquire and Release.
type Arena struct {
	// chunks[len-1] is the active chunk. Each chunk's length is the number
	// of bytes bumped off it so far, its capacity never changes.
	chunks    [][]byte
	chunkSize int

	// lastOff is the offset of the most recent allocation within the active
	// chunk, or -1 right after a reset. Used to extend the tail allocation
	// in place.
	lastOff int

	// gen is incremented on every Reset. Views stamped with an older
	// generation are dangling.
	gen uint64
}

func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Arena{
		chunkSize: chunkSize,
		lastOff:   -1,
	}
}

// Alloc returns a zeroed block of exactly n bytes (cap(block) == n). The
// block stays valid until Reset.
func (a *Arena) Alloc(n int) []byte {
	c := a.active()
	if c == nil || cap(*c)-len(*c) < n {
		a.chunks = append(a.chunks, make([]byte, 0, max(a.chunkSize, n)))
		c = a.active()
	}

	off := len(*c)
	*c = (*c)[:off+n]
	a.lastOff = off

	return (*c)[off : off+n : off+n]
}

// Copy allocates a block and fills it with src.
func (a *Arena) Copy(src []byte) []byte {
	block := a.Alloc(len(src))
	copy(block, src)
	return block
}

// Grow returns a block with the same contents and length as block, but with
// at least the wanted capacity. If block is the arena's most recent
// allocation and the active chunk has room behind it, it is extended in
// place and no copying happens. Otherwise a fresh block is allocated and
// block's bytes are copied over; the old block stays readable, so views into
// it survive.
func (a *Arena) Grow(block []byte, capacity int) []byte {
	if cap(block) >= capacity {
		return block
	}

	if c := a.active(); c != nil && a.lastOff >= 0 && cap(block) > 0 {
		tail := (*c)[a.lastOff:]
		if unsafe.SliceData(block) == unsafe.SliceData(tail) &&
			a.lastOff+cap(block) == len(*c) &&
			a.lastOff+capacity <= cap(*c) {
			*c = (*c)[:a.lastOff+capacity]
			return (*c)[a.lastOff : a.lastOff+len(block) : a.lastOff+capacity]
		}
	}

	grown := a.Alloc(capacity)
	copy(grown, block)

	return grown[:len(block)]
}

// Reset drops all chunks except the largest one in O(1) per chunk, keeping
// it for reuse, and advances the generation. All outstanding blocks and
// views become invalid.
func (a *Arena) Reset() {
	if len(a.chunks) > 0 {
		largest := 0
		for i := range a.chunks {
			if cap(a.chunks[i]) > cap(a.chunks[largest]) {
				largest = i
			}
		}

		a.chunks[0] = a.chunks[largest][:0]
		for i := 1; i < len(a.chunks); i++ {
			a.chunks[i] = nil
		}
		a.chunks = a.chunks[:1]
	}

	a.lastOff = -1
	a.gen++
}

// Generation identifies the current reset epoch. Stamp it next to any
// long-lived reference into arena memory and compare before dereferencing.
func (a *Arena) Generation() uint64 {
	return a.gen
}

// Footprint reports the total capacity held by the arena's chunks.
func (a *Arena) Footprint() (total int) {
	for _, c := range a.chunks {
		total += cap(c)
	}

	return total
}

func (a *Arena) active() *[]byte {
	if len(a.chunks) == 0 {
		return nil
	}

	return &a.chunks[len(a.chunks)-1]
}
