package columndb

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options configures Open.
type Options struct {
	// ServerID seeds the disjoint log-number space this process claims:
	// recovery sets the initial counter to max(ServerID<<14, max blob
	// seen)+1. Must be non-negative — see DESIGN.md, open question 3.
	ServerID int

	// MaxOpenFiles bounds the handle cache.
	MaxOpenFiles int

	// WriteBufferSize is the mirror's fixed capacity. Zero selects
	// DefaultWriteBufferSize.
	WriteBufferSize int

	// MaxValueSize caps the scratch buffer Get/iteration allocate for a
	// resolved payload, defending against an out-of-range locator size
	// field regardless of how it got that way. See DESIGN.md, open
	// question 6.
	MaxValueSize int

	Env     Env
	Index   IndexDB
	Logger  *zap.Logger
	Monitor Monitor
}

const defaultMaxValueSize = 1 << 20 // 1 MiB

func (o *Options) setDefaults() {
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = 64
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = DefaultWriteBufferSize
	}
	if o.MaxValueSize <= 0 {
		o.MaxValueSize = defaultMaxValueSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Monitor == nil {
		o.Monitor = NoopMonitor{}
	}
}

// ColumnDB orchestrates an IndexDB, a BlobWriter, and a HandleCache into
// a single key-value engine: Put splits a record into a blob-log
// payload plus an IndexDB locator; Get reverses that split; Delete,
// Write, NewIterator, and Exists delegate the rest to the IndexDB.
type ColumnDB struct {
	prefix string
	opts   Options

	index   IndexDB
	writer  *blobWriter
	cache   *handleCache
	lock    *fileLock
	monitor Monitor
	log     *zap.Logger

	mu      sync.Mutex
	closed  bool
	bloomMu sync.Mutex
	bloom   *bloom
}

// Open constructs a ColumnDB rooted at prefix, scanning it for existing
// blob files to seed the log-number counter (see recovery.go) and
// acquiring an exclusive process lock over it.
func Open(prefix string, opts Options) (*ColumnDB, error) {
	opts.setDefaults()
	if opts.Env == nil || opts.Index == nil {
		return nil, Class.New("Options.Env and Options.Index are required")
	}
	// server_id<<14 is undefined for negative input; reject it outright
	// rather than feed a negative value into the shift. See DESIGN.md,
	// open question 3.
	if opts.ServerID < 0 {
		return nil, Class.Wrap(ErrNegativeServerID)
	}

	if err := opts.Env.MkdirAll(prefix); err != nil {
		return nil, Class.Wrap(err)
	}

	lock, err := acquireEngineLock(prefix)
	if err != nil {
		return nil, err
	}

	startLog, err := recoverLogCounter(opts.Env, prefix, uint32(opts.ServerID), opts.Logger)
	if err != nil {
		_ = lock.release()
		return nil, err
	}

	db := &ColumnDB{
		prefix:  prefix,
		opts:    opts,
		index:   opts.Index,
		writer:  newBlobWriter(opts.Env, prefix, opts.WriteBufferSize, startLog),
		cache:   newHandleCache(opts.Env, prefix, opts.MaxOpenFiles),
		lock:    lock,
		monitor: opts.Monitor,
		log:     opts.Logger,
		bloom:   newBloom(),
	}
	db.seedBloom()
	return db, nil
}

// seedBloom populates the negative-lookup filter from every key
// currently in the IndexDB, so that Exists/Get can short-circuit lookups
// for keys this process never wrote or recovered, the same role a
// per-SST bloom filter plays in a real LSM.
func (db *ColumnDB) seedBloom() {
	it := db.index.NewIterator(ReadOptions{})
	defer it.Close()
	for it.SeekFirst(); it.Valid(); it.Next() {
		db.bloom.add(it.Key())
	}
}

// Close flushes the active blob, closes cached handles, and releases
// the process lock. It does not close the IndexDB, which the caller
// constructed and owns.
func (db *ColumnDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.cache.closeAll()
	err := db.writer.close()
	if lerr := db.lock.release(); err == nil {
		err = lerr
	}
	return err
}

func (db *ColumnDB) checkOpen() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return Class.Wrap(ErrClosed)
	}
	return nil
}

// Put appends (key, value) to the active blob, then inserts the
// resulting locator into the IndexDB under key. Errors from either step
// are surfaced; a payload that was appended but whose locator insertion
// failed leaves a garbage blob region — reclaiming it is a non-goal.
func (db *ColumnDB) Put(opts WriteOptions, key, value []byte) (err error) {
	if err := db.checkOpen(); err != nil {
		return err
	}
	defer db.observe("put", &err)()

	loc, err := db.writer.appendRecord(key, value, opts.Sync)
	if err != nil {
		return err
	}

	locBytes, err := encodeLocatorBytes(loc)
	if err != nil {
		return err
	}

	if err := db.index.Put(opts, key, locBytes); err != nil {
		return Class.Wrap(err)
	}

	db.bloomMu.Lock()
	db.bloom.add(key)
	db.bloomMu.Unlock()
	return nil
}

// Get resolves key through the IndexDB and blob log, returning
// ErrNotFound if the IndexDB has no locator for it.
func (db *ColumnDB) Get(opts ReadOptions, key []byte) (value []byte, err error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	defer db.observe("get", &err)()

	db.bloomMu.Lock()
	maybe := db.bloom.mayContain(key)
	db.bloomMu.Unlock()
	if !maybe {
		return nil, Class.Wrap(ErrNotFound)
	}

	locBytes, err := db.index.Get(opts, key)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	if locBytes == nil {
		return nil, Class.Wrap(ErrNotFound)
	}

	loc, err := decodeLocatorBytes(locBytes)
	if err != nil {
		return nil, err
	}
	// loc.size is decoded from locator bits that ultimately trace back
	// to a stored record; cap the scratch allocation regardless, rather
	// than trust it unconditionally. See DESIGN.md, open question 6.
	if int(loc.size) > db.opts.MaxValueSize {
		return nil, Class.Wrap(ErrInvalidArgument)
	}
	scratch := make([]byte, 0, loc.size)
	return db.internalGet(loc, scratch)
}

// Exists reports whether key has a locator in the IndexDB, without
// touching the blob log.
func (db *ColumnDB) Exists(opts ReadOptions, key []byte) (bool, error) {
	if err := db.checkOpen(); err != nil {
		return false, err
	}
	db.bloomMu.Lock()
	maybe := db.bloom.mayContain(key)
	db.bloomMu.Unlock()
	if !maybe {
		return false, nil
	}
	v, err := db.index.Get(opts, key)
	if err != nil {
		return false, Class.Wrap(err)
	}
	return v != nil, nil
}

// Delete removes key's locator from the IndexDB. The blob region it
// pointed at is not reclaimed — compaction/GC of blob regions is a
// non-goal.
func (db *ColumnDB) Delete(opts WriteOptions, key []byte) (err error) {
	if err := db.checkOpen(); err != nil {
		return err
	}
	defer db.observe("delete", &err)()
	return Class.Wrap(db.index.Delete(opts, key))
}

// Write submits batch to the IndexDB. A batch containing a Put is
// rejected: batched puts have no staged blob payload, so forwarding one
// unchanged would store a locator pointing at nothing. See DESIGN.md,
// open question 5.
func (db *ColumnDB) Write(opts WriteOptions, batch *Batch) (err error) {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if batch.hasPut() {
		return Class.Wrap(ErrBatchPutUnsupported)
	}
	defer db.observe("write", &err)()
	return Class.Wrap(db.index.Write(opts, batch))
}

// NewIterator returns a ColumnIterator wrapping the IndexDB's own
// iterator, lazily resolving payloads on Value().
func (db *ColumnDB) NewIterator(opts ReadOptions) *ColumnIterator {
	return newColumnIterator(db, db.index.NewIterator(opts))
}

// Flush delegates to the IndexDB. Blob durability is controlled
// per-Put by WriteOptions.Sync, not by this call.
func (db *ColumnDB) Flush() error { return Class.Wrap(db.index.Flush()) }

func (db *ColumnDB) GetProperty(name string) (string, bool) { return db.index.GetProperty(name) }

func (db *ColumnDB) ApproximateSizes(ranges []Range) []uint64 {
	return db.index.ApproximateSizes(ranges)
}

func (db *ColumnDB) CompactRange(start, limit []byte) error {
	return Class.Wrap(db.index.CompactRange(start, limit))
}

// Snapshot is an opaque point-in-time handle. ColumnDB cannot snapshot
// the blob side of a record, so GetSnapshot always returns nil and
// reads are never pinned to a point in time.
type Snapshot struct{}

// GetSnapshot returns the null snapshot. Snapshots over the blob log
// are a non-goal; callers get nil and must tolerate it.
func (db *ColumnDB) GetSnapshot() *Snapshot { return nil }

// ReleaseSnapshot is a no-op, accepting the nil handle GetSnapshot
// returns.
func (db *ColumnDB) ReleaseSnapshot(*Snapshot) {}

func (db *ColumnDB) BulkSplit(n int) ([][]byte, error) { return db.index.BulkSplit(n) }

func (db *ColumnDB) BulkInsert(entries []KV) error {
	if err := db.index.BulkInsert(entries); err != nil {
		return Class.Wrap(err)
	}
	db.bloomMu.Lock()
	for _, kv := range entries {
		db.bloom.add(kv.Key)
	}
	db.bloomMu.Unlock()
	return nil
}

// internalGet resolves a decoded locator to its payload bytes, reading
// from the mirror when the locator's log is still the active blob, else
// from the handle cache. scratch is reused across calls when it has
// capacity.
func (db *ColumnDB) internalGet(loc locator, scratch []byte) ([]byte, error) {
	if loc.logNumber == db.writer.currentLogNumber() {
		if data, ok, err := db.writer.readMirror(loc.logNumber, int(loc.offset), int(loc.size), scratch); ok {
			if err != nil {
				return nil, err
			}
			return db.decodeRecord(data)
		}
	}

	h, err := db.cache.get(loc.logNumber)
	if err != nil {
		return nil, err
	}
	defer db.cache.release(loc.logNumber)

	data, err := h.ReadAt(int64(loc.offset), int(loc.size), scratch)
	if err != nil {
		return nil, Class.Wrap(ErrIOError)
	}
	return db.decodeRecord(data)
}

// decodeRecord validates the header of a freshly read record and slices
// out its value.
func (db *ColumnDB) decodeRecord(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, errShortRead()
	}
	header := getUint64LE(data[:headerSize])
	magic, keySize, valueSize := decodeHeader(header)
	if magic != headerMagic {
		return nil, errMagicMismatch()
	}
	if headerSize+keySize+valueSize > len(data) {
		return nil, errShortRead()
	}
	start := headerSize + keySize
	return data[start : start+valueSize], nil
}

// observe returns a func to be deferred at the top of an operation; it
// reports elapsed wall time and the operation's final error to the
// Monitor collaborator.
func (db *ColumnDB) observe(op string, errp *error) func() {
	start := time.Now()
	return func() {
		db.monitor.Observe(op, time.Since(start), *errp)
	}
}
