package columndb

import (
	"sync"
	"sync/atomic"
)

// DefaultWriteBufferSize is the mirror's fixed capacity: one blob's
// worth of RAM. It is documented here as a constant rather than exposed
// as a free-form tunable because the on-disk rotation cadence is
// derived from it.
const DefaultWriteBufferSize = 63 << 20

// blobWriter owns the currently active blob file and its RAM mirror. It
// rotates to a new blob when the mirror cannot hold the next record;
// reads of a rotated-off blob go through the handle cache, which opens
// the closed file on its first miss.
//
// append_record's critical section — mirror update and file append —
// is guarded by mu, which doubles as the engine lock ColumnDB uses for
// current_log_number reads (see the double-checked read in columndb.go).
// The lock is released before the caller inserts the resulting locator
// into the IndexDB, so a slow IndexDB write never blocks other writers
// from reaching the blob.
type blobWriter struct {
	env    Env
	prefix string

	mu         sync.Mutex
	file       WritableFile
	mirror     *memBuffer
	currentLog atomic.Uint32
	nextLog    uint32 // next value rotate() will hand out; incremented after use
}

// newBlobWriter constructs a blobWriter with no open blob; the first
// append_record call rotates into the first blob. startLog is the log
// number rotate() will assign on first use (set by recovery).
func newBlobWriter(env Env, prefix string, bufSize int, startLog uint32) *blobWriter {
	return &blobWriter{
		env:     env,
		prefix:  prefix,
		mirror:  newMemBuffer(bufSize),
		nextLog: startLog,
	}
}

// currentLogNumber returns the log number of the active blob via an
// atomic load, used by ColumnDB's internal_get fast path without taking
// the engine lock.
func (w *blobWriter) currentLogNumber() uint32 {
	return w.currentLog.Load()
}

// appendRecord writes [header|key|value] to the active blob and its
// mirror, rotating first if the record would not fit, and returns the
// record's locator. If sync is set, the blob file is flushed before
// returning; the mirror is always immediately durable in RAM.
func (w *blobWriter) appendRecord(key, value []byte, sync bool) (locator, error) {
	header, err := encodeHeader(len(key), len(value))
	if err != nil {
		return locator{}, err
	}

	total := headerSize + len(key) + len(value)
	rec := make([]byte, total)
	putUint64LE(rec[:headerSize], header)
	copy(rec[headerSize:], key)
	copy(rec[headerSize+len(key):], value)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil || !w.mirror.hasRoom(total) {
		if err := w.rotateLocked(); err != nil {
			return locator{}, err
		}
	}

	offset, err := w.mirror.append(rec)
	if err != nil {
		return locator{}, err
	}
	if _, err := w.file.Append(rec); err != nil {
		return locator{}, Class.Wrap(ErrIOError)
	}
	if sync {
		if err := w.file.Flush(); err != nil {
			return locator{}, Class.Wrap(ErrIOError)
		}
	}

	return locator{
		logNumber: w.currentLog.Load(),
		offset:    uint32(offset),
		size:      uint32(total),
	}, nil
}

// readMirror reads a record from the active blob's RAM mirror if log is
// still current. It reports ok=false if log has since rotated out from
// under the caller, who must then fall back to the handle cache — the
// second half of the double-checked read of current_log_number.
func (w *blobWriter) readMirror(log uint32, offset, size int, scratch []byte) (data []byte, ok bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentLog.Load() != log {
		return nil, false, nil
	}
	data, err = w.mirror.read(offset, size, scratch)
	return data, true, err
}

// rotate closes the current blob (best-effort), opens the next one, and
// truncates the mirror. It returns the new log number. See DESIGN.md,
// open question 1.
func (w *blobWriter) rotate() (uint32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(); err != nil {
		return 0, err
	}
	return w.currentLog.Load(), nil
}

func (w *blobWriter) rotateLocked() error {
	if w.file != nil {
		_ = w.file.Flush()
		_ = w.file.Close()
	}

	logNumber := w.nextLog
	w.nextLog++

	path := blobPath(w.prefix, logNumber)
	f, err := w.env.NewWritableFile(path)
	if err != nil {
		return Class.Wrap(ErrIOError)
	}

	w.file = f
	w.currentLog.Store(logNumber)
	w.mirror.truncate()
	return nil
}

// close flushes and closes the active blob file.
func (w *blobWriter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	_ = w.file.Flush()
	err := w.file.Close()
	w.file = nil
	return err
}
