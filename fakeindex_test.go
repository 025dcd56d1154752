package columndb

import (
	"bytes"
	"sort"
	"sync"
)

// fakeIndex is a minimal in-memory IndexDB used by this package's own
// unit tests. internal/teststore provides the same role for external
// tests, but it imports this package, so it cannot be used from
// in-package tests without an import cycle.
type fakeIndex struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{data: make(map[string][]byte)}
}

func (f *fakeIndex) Put(opts WriteOptions, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (f *fakeIndex) Delete(opts WriteOptions, key []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, string(key))
	return nil
}

func (f *fakeIndex) Write(opts WriteOptions, batch *Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range batch.Deletes() {
		delete(f.data, string(k))
	}
	return nil
}

func (f *fakeIndex) Get(opts ReadOptions, key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (f *fakeIndex) NewIterator(opts ReadOptions) Iterator {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([][2][]byte, len(keys))
	for i, k := range keys {
		entries[i] = [2][]byte{[]byte(k), append([]byte(nil), f.data[k]...)}
	}
	return &fakeIterator{entries: entries, pos: -1}
}

func (f *fakeIndex) Flush() error                             { return nil }
func (f *fakeIndex) GetProperty(name string) (string, bool)   { return "", false }
func (f *fakeIndex) ApproximateSizes(ranges []Range) []uint64 { return make([]uint64, len(ranges)) }
func (f *fakeIndex) CompactRange(start, limit []byte) error   { return nil }
func (f *fakeIndex) BulkSplit(n int) ([][]byte, error)        { return nil, nil }
func (f *fakeIndex) BulkInsert(entries []KV) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, kv := range entries {
		f.data[string(kv.Key)] = append([]byte(nil), kv.Value...)
	}
	return nil
}
func (f *fakeIndex) Close() error { return nil }

type fakeIterator struct {
	entries [][2][]byte
	pos     int
}

func (it *fakeIterator) Valid() bool { return it.pos >= 0 && it.pos < len(it.entries) }
func (it *fakeIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos][0]
}
func (it *fakeIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos][1]
}
func (it *fakeIterator) Status() error { return nil }
func (it *fakeIterator) Next() {
	if it.pos < len(it.entries) {
		it.pos++
	}
}
func (it *fakeIterator) Prev() {
	if it.pos >= 0 {
		it.pos--
	}
}
func (it *fakeIterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.entries), func(i int) bool {
		return bytes.Compare(it.entries[i][0], key) >= 0
	})
}
func (it *fakeIterator) SeekFirst()   { it.pos = 0 }
func (it *fakeIterator) SeekLast()    { it.pos = len(it.entries) - 1 }
func (it *fakeIterator) Close() error { return nil }

// openTestColumnDB opens a ColumnDB against env/prefix using a fresh
// fakeIndex, for tests that need the full engine without a real IndexDB.
// The engine's process lock still lands on the real filesystem, so
// prefix should be a temp directory even when env is a fakeEnv.
func openTestColumnDB(t testingT, env Env, prefix string) (*ColumnDB, error) {
	t.Helper()
	return Open(prefix, Options{Env: env, Index: newFakeIndex()})
}

// testingT is the subset of *testing.T these helpers need, avoiding an
// import of "testing" in a file that may be reused by benchmarks.
type testingT interface {
	Helper()
}
