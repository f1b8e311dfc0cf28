package buffer

// Buffer accumulates a connection's raw request bytes in memory taken from
// its arena. It behaves like built-in append() with a hard ceiling: Append
// reports false instead of growing past maxSize, and data isn't written.
//
// Growth goes through the arena, which either extends the block in place or
// copies it to a fresh block while leaving the old one readable. Views taken
// from Bytes() therefore stay valid even across growth, they just may point
// at a superseded copy. Callers take final views only once the message is
// fully framed.
type Buffer struct {
	arena   allocator
	mem     []byte
	maxSize int
}

type allocator interface {
	Alloc(n int) []byte
	Grow(block []byte, capacity int) []byte
}

func New(arena allocator, initialSpace, maxSize int) *Buffer {
	return &Buffer{
		arena:   arena,
		mem:     arena.Alloc(initialSpace)[:0],
		maxSize: maxSize,
	}
}

// Append appends data to the buffer. In case of exceeding the maximal size,
// false is returned and data isn't written.
func (b *Buffer) Append(data []byte) (ok bool) {
	if !b.Reserve(len(data)) {
		return false
	}

	b.mem = append(b.mem, data...)

	return true
}

// Reserve makes sure there's room for n more bytes, growing the underlying
// block if needed. It reports false when that would cross maxSize.
func (b *Buffer) Reserve(n int) (ok bool) {
	need := len(b.mem) + n
	if need > b.maxSize {
		return false
	}

	if need > cap(b.mem) {
		capacity := min(max(2*cap(b.mem), need), b.maxSize)
		b.mem = b.arena.Grow(b.mem, capacity)
	}

	return true
}

// Bytes returns a view of everything appended so far.
func (b *Buffer) Bytes() []byte {
	return b.mem
}

func (b *Buffer) Len() int {
	return len(b.mem)
}

// Write implements io.Writer on top of Append, so encoders can stream
// straight into arena memory. Overflow surfaces as an error instead of a
// flag.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if !b.Append(p) {
		return 0, ErrOverflow
	}

	return len(p), nil
}
