package columndb

// IndexDB is the external LSM-backed key-value store consumed by
// ColumnDB. The LSM's own internals (skiplist, WAL, compaction, value
// log) stay behind this interface; internal/badgerindex adapts
// github.com/dgraph-io/badger/v2 to this contract as the one concrete
// backend this repository ships.
type IndexDB interface {
	Put(opts WriteOptions, key, value []byte) error
	Delete(opts WriteOptions, key []byte) error
	Write(opts WriteOptions, batch *Batch) error
	Get(opts ReadOptions, key []byte) ([]byte, error)
	NewIterator(opts ReadOptions) Iterator

	Flush() error
	GetProperty(name string) (string, bool)
	ApproximateSizes(ranges []Range) []uint64
	CompactRange(start, limit []byte) error
	BulkSplit(n int) ([][]byte, error)
	BulkInsert(entries []KV) error

	Close() error
}

// Iterator walks an IndexDB's key space in order.
type Iterator interface {
	Valid() bool
	Key() []byte
	Value() []byte
	Status() error

	Next()
	Prev()
	Seek(key []byte)
	SeekFirst()
	SeekLast()

	Close() error
}

// WriteOptions controls durability for a single write.
type WriteOptions struct {
	// Sync requests that the write be durable before the call returns.
	// For Put, this flushes the blob-file append; IndexDB durability is
	// delegated to the backend's own write options.
	Sync bool
}

// ReadOptions controls a single read or iteration.
type ReadOptions struct{}

// Range is a half-open key range [Start, Limit) used by ApproximateSizes
// and CompactRange.
type Range struct {
	Start, Limit []byte
}

// KV is a single key-value pair used by BulkInsert. BulkInsert writes
// locator-shaped values directly into the IndexDB and is meant for
// restoring an index from a prior BulkSplit/dump, not for staging
// payloads — it never touches the blob log.
type KV struct {
	Key, Value []byte
}

// BatchOp is the kind of a single operation staged in a Batch.
type BatchOp int

const (
	BatchPut BatchOp = iota
	BatchDelete
)

// batchEntry is one staged operation in a Batch.
type batchEntry struct {
	op  BatchOp
	key []byte
	val []byte
}

// Batch stages Delete operations for atomic submission via
// ColumnDB.Write. It deliberately exposes no Put: batched writes bypass
// the blob log (see DESIGN.md, open question 5), so staging a Put here
// would produce a locator pointing at no payload. Use ColumnDB.Put for
// writes; use Batch only to delete multiple keys atomically.
type Batch struct {
	entries []batchEntry
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Delete stages a delete of key.
func (b *Batch) Delete(key []byte) {
	b.entries = append(b.entries, batchEntry{op: BatchDelete, key: key})
}

// Len reports the number of staged operations.
func (b *Batch) Len() int { return len(b.entries) }

// Deletes returns the keys staged for deletion, in staging order. Batch
// currently only stages deletes (see the Batch doc comment), so this is
// every entry.
func (b *Batch) Deletes() [][]byte {
	keys := make([][]byte, 0, len(b.entries))
	for _, e := range b.entries {
		if e.op == BatchDelete {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// hasPut reports whether any staged entry is a Put — used by ColumnDB.Write
// to reject batches that were built some other way and carry one anyway.
func (b *Batch) hasPut() bool {
	for _, e := range b.entries {
		if e.op == BatchPut {
			return true
		}
	}
	return false
}
