// Package badgerindex adapts github.com/dgraph-io/badger/v2 to the
// columndb.IndexDB contract.
//
// It consumes badger's public badger.DB/badger.Txn/badger.Iterator API
// only; the skiplist, value-log, and WAL machinery underneath stay
// badger's own concern.
package badgerindex

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/zeebo/errs"

	"github.com/latticefs/columndb"
)

// Class is this package's error wrapping class.
var Class = errs.Class("badgerindex")

// DB wraps a *badger.DB as a columndb.IndexDB.
type DB struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database at dir.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nopLogger{})
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	return &DB{db: bdb}, nil
}

// nopLogger discards every badger log line; columndb does its own
// structured logging via zap around the IndexDB boundary.
type nopLogger struct{}

func (nopLogger) Errorf(string, ...interface{})   {}
func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Debugf(string, ...interface{})   {}

func (d *DB) Close() error { return Class.Wrap(d.db.Close()) }

func (d *DB) Put(opts columndb.WriteOptions, key, value []byte) error {
	txn := d.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return Class.Wrap(err)
	}
	return Class.Wrap(d.commit(txn, opts.Sync))
}

func (d *DB) Delete(opts columndb.WriteOptions, key []byte) error {
	txn := d.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Delete(key); err != nil {
		return Class.Wrap(err)
	}
	return Class.Wrap(d.commit(txn, opts.Sync))
}

// commit commits txn and, when sync is requested, forces the write-ahead
// state to disk with an explicit Sync — badger's per-transaction Commit
// alone only guarantees the default SyncWrites behavior.
func (d *DB) commit(txn *badger.Txn, sync bool) error {
	if err := txn.Commit(); err != nil {
		return err
	}
	if sync {
		return d.db.Sync()
	}
	return nil
}

func (d *DB) Write(opts columndb.WriteOptions, batch *columndb.Batch) error {
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range batch.Deletes() {
		if err := wb.Delete(key); err != nil {
			return Class.Wrap(err)
		}
	}
	return Class.Wrap(wb.Flush())
}

func (d *DB) Get(opts columndb.ReadOptions, key []byte) ([]byte, error) {
	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, Class.Wrap(err)
	}
	return value, nil
}

func (d *DB) NewIterator(opts columndb.ReadOptions) columndb.Iterator {
	txn := d.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	return &iterator{txn: txn, it: it}
}

func (d *DB) Flush() error {
	return Class.Wrap(d.db.Sync())
}

func (d *DB) GetProperty(name string) (string, bool) {
	return "", false
}

func (d *DB) ApproximateSizes(ranges []columndb.Range) []uint64 {
	lsm, vlog := d.db.Size()
	sizes := make([]uint64, len(ranges))
	if len(ranges) > 0 {
		sizes[0] = uint64(lsm + vlog)
	}
	return sizes
}

func (d *DB) CompactRange(start, limit []byte) error {
	return Class.Wrap(d.db.Flatten(1))
}

// BulkSplit approximates range splits from badger's table key-range
// metadata, per SPEC_FULL.md §4.9: it returns the left bound of every
// table and does not use n beyond rejecting n <= 0.
func (d *DB) BulkSplit(n int) ([][]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	tables := d.db.Tables(false)
	bounds := make([][]byte, 0, len(tables))
	for _, t := range tables {
		bounds = append(bounds, t.Left)
	}
	return bounds, nil
}

func (d *DB) BulkInsert(entries []columndb.KV) error {
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for _, kv := range entries {
		if err := wb.Set(kv.Key, kv.Value); err != nil {
			return Class.Wrap(err)
		}
	}
	return Class.Wrap(wb.Flush())
}

// iterator adapts badger's single-direction iterator to columndb's
// bidirectional Iterator contract. badger.Iterator only ever walks one
// way; switching direction means closing it and reopening a fresh one
// with Reverse flipped, reseeking to the last position so the new
// iterator picks up exactly one step past where the old one stood.
type iterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	reverse bool
}

func (it *iterator) Valid() bool { return it.it.Valid() }

func (it *iterator) Key() []byte {
	return it.it.Item().KeyCopy(nil)
}

func (it *iterator) Value() []byte {
	v, err := it.it.Item().ValueCopy(nil)
	if err != nil {
		return nil
	}
	return v
}

func (it *iterator) Status() error { return nil }

// ensureDirection reopens it.it with the requested direction if the
// iterator is not already walking that way, repositioning the new
// iterator back onto the exact key the old one stood on (Seek lands on
// an equal key the same way regardless of direction). Callers step off
// of that position themselves, so a direction switch costs exactly one
// Next/Prev, not two.
func (it *iterator) ensureDirection(reverse bool) {
	if it.it != nil && it.reverse == reverse {
		return
	}
	var key []byte
	if it.it != nil {
		if it.it.Valid() {
			key = it.it.Item().KeyCopy(nil)
		}
		it.it.Close()
	}

	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	it.it = it.txn.NewIterator(opts)
	it.reverse = reverse

	if key == nil {
		it.it.Rewind()
		return
	}
	it.it.Seek(key)
}

func (it *iterator) Next() {
	it.ensureDirection(false)
	it.it.Next()
}

func (it *iterator) Prev() {
	it.ensureDirection(true)
	it.it.Next()
}

func (it *iterator) Seek(key []byte) {
	it.ensureDirection(false)
	it.it.Seek(key)
}

func (it *iterator) SeekFirst() {
	it.ensureDirection(false)
	it.it.Rewind()
}

func (it *iterator) SeekLast() {
	it.ensureDirection(true)
	it.it.Rewind()
}

func (it *iterator) Close() error {
	it.it.Close()
	it.txn.Discard()
	return nil
}
