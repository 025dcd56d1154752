package columndb

// ColumnIterator wraps an IndexDB iterator and resolves payloads lazily
// on Value(), reusing a growable scratch buffer across calls instead of
// allocating one per visited key.
type ColumnIterator struct {
	db    *ColumnDB
	inner Iterator

	scratch []byte

	valueLoaded bool
	value       []byte
	lastErr     error
}

func newColumnIterator(db *ColumnDB, inner Iterator) *ColumnIterator {
	return &ColumnIterator{
		db:      db,
		inner:   inner,
		scratch: make([]byte, 0, 4096),
	}
}

func (it *ColumnIterator) invalidate() {
	it.valueLoaded = false
	it.value = nil
	it.lastErr = nil
}

func (it *ColumnIterator) Valid() bool   { return it.inner.Valid() }
func (it *ColumnIterator) Status() error { return it.inner.Status() }
func (it *ColumnIterator) Key() []byte   { return it.inner.Key() }

func (it *ColumnIterator) Next() { it.inner.Next(); it.invalidate() }
func (it *ColumnIterator) Prev() { it.inner.Prev(); it.invalidate() }

func (it *ColumnIterator) Seek(key []byte) { it.inner.Seek(key); it.invalidate() }
func (it *ColumnIterator) SeekFirst()      { it.inner.SeekFirst(); it.invalidate() }
func (it *ColumnIterator) SeekLast()       { it.inner.SeekLast(); it.invalidate() }

func (it *ColumnIterator) Close() error { return it.inner.Close() }

// InternalKey exposes the raw inner iterator key for inspection.
func (it *ColumnIterator) InternalKey() []byte { return it.inner.Key() }

// InternalValue exposes the raw inner iterator value (the encoded
// locator) for inspection, without resolving the payload.
func (it *ColumnIterator) InternalValue() []byte { return it.inner.Value() }

// Value decodes the current position's locator and resolves its
// payload from the mirror or handle cache, caching the result until the
// position next changes.
//
// A resolution failure is returned as an empty slice and the iterator
// remains Valid — Status() continues to reflect only the inner IndexDB
// iterator's own state. The failure is still recorded and available
// via LastValueError for callers that want to notice it. See DESIGN.md,
// open question 4.
func (it *ColumnIterator) Value() []byte {
	if it.valueLoaded {
		return it.value
	}
	it.valueLoaded = true
	it.lastErr = nil

	loc, err := decodeLocatorBytes(it.inner.Value())
	if err != nil {
		it.lastErr = err
		it.value = nil
		return nil
	}
	if int(loc.size) > it.db.opts.MaxValueSize {
		it.lastErr = Class.Wrap(ErrInvalidArgument)
		it.value = nil
		return nil
	}

	if int(loc.size) > cap(it.scratch) {
		it.scratch = make([]byte, 0, loc.size)
	}

	v, err := it.db.internalGet(loc, it.scratch)
	if err != nil {
		it.lastErr = err
		it.value = nil
		return nil
	}
	it.value = v
	return v
}

// LastValueError returns the error, if any, from the most recent Value()
// call at the current position. It is nil after a successful Value()
// and is cleared when the iterator moves.
func (it *ColumnIterator) LastValueError() error {
	return it.lastErr
}
