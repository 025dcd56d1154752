package columndb

// MemBuffer is a fixed-capacity RAM mirror of the currently active blob
// file. BlobWriter appends every record to both the blob file and the
// mirror so that recent writes can be read back with zero I/O; rotation
// truncates the mirror for reuse against the next blob.
//
// MemBuffer is not internally synchronized — BlobWriter serializes all
// access to it under the engine lock.
type memBuffer struct {
	buf  []byte
	free int
}

// newMemBuffer allocates a mirror of the given fixed capacity.
func newMemBuffer(capacity int) *memBuffer {
	return &memBuffer{
		buf:  make([]byte, capacity),
		free: capacity,
	}
}

func (m *memBuffer) capacity() int { return len(m.buf) }

// hasRoom reports whether n more bytes fit before the mirror is full.
func (m *memBuffer) hasRoom(n int) bool {
	return n <= m.free
}

// append writes p at the current write position and returns that
// position. It fails with ErrBufferFull if p does not fit; callers are
// expected to have already checked hasRoom and rotated if necessary, so
// this is a defensive check, not the primary control path.
func (m *memBuffer) append(p []byte) (int, error) {
	if len(p) > m.free {
		return 0, Class.Wrap(ErrBufferFull)
	}
	loc := len(m.buf) - m.free
	copy(m.buf[loc:], p)
	m.free -= len(p)
	return loc, nil
}

// read copies min(size, capacity-offset) bytes starting at offset into
// out, growing out if necessary, and returns the written slice. An
// offset at or beyond capacity is an I/O error; a read that runs past
// capacity is silently truncated rather than treated as an error — the
// caller discovers the true extent of the record from its header.
func (m *memBuffer) read(offset, size int, out []byte) ([]byte, error) {
	if offset < 0 || offset >= len(m.buf) {
		return nil, Class.Wrap(ErrIOError)
	}
	n := size
	if offset+n > len(m.buf) {
		n = len(m.buf) - offset
	}
	if cap(out) < n {
		out = make([]byte, n)
	}
	out = out[:n]
	copy(out, m.buf[offset:offset+n])
	return out, nil
}

// truncate resets the mirror to empty. Contents become logically
// undefined until the next append; the backing array is reused rather
// than reallocated so rotation does not churn the allocator.
func (m *memBuffer) truncate() {
	m.free = len(m.buf)
}
