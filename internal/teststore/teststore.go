// Package teststore is an in-memory columndb.IndexDB used by columndb's
// own unit tests so they can exercise Put/Get/Delete/Write/iteration
// without paying badger's on-disk setup cost for every test case. It is
// a test double, not a production backend — ordering of concurrent
// writers is serialized by a single mutex, CompactRange is a no-op, and
// BulkSplit returns evenly spaced keys from the sorted key list.
package teststore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/latticefs/columndb"
)

// Store is a sorted in-memory map satisfying columndb.IndexDB.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Put(opts columndb.WriteOptions, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(opts columndb.WriteOptions, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *Store) Write(opts columndb.WriteOptions, batch *columndb.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range batch.Deletes() {
		delete(s.data, string(key))
	}
	return nil
}

func (s *Store) Get(opts columndb.ReadOptions, key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) NewIterator(opts columndb.ReadOptions) columndb.Iterator {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	snapshot := make([][2][]byte, len(keys))
	for i, k := range keys {
		snapshot[i] = [2][]byte{[]byte(k), append([]byte(nil), s.data[k]...)}
	}
	return &iterator{entries: snapshot, pos: -1}
}

func (s *Store) Flush() error                           { return nil }
func (s *Store) GetProperty(name string) (string, bool) { return "", false }
func (s *Store) ApproximateSizes(ranges []columndb.Range) []uint64 {
	return make([]uint64, len(ranges))
}
func (s *Store) CompactRange(start, limit []byte) error { return nil }

func (s *Store) BulkSplit(n int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.data) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var bounds [][]byte
	step := len(keys) / n
	if step == 0 {
		step = 1
	}
	for i := 0; i < len(keys); i += step {
		bounds = append(bounds, []byte(keys[i]))
	}
	return bounds, nil
}

func (s *Store) BulkInsert(entries []columndb.KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range entries {
		s.data[string(kv.Key)] = append([]byte(nil), kv.Value...)
	}
	return nil
}

func (s *Store) Close() error { return nil }

type iterator struct {
	entries [][2][]byte
	pos     int
}

func (it *iterator) Valid() bool { return it.pos >= 0 && it.pos < len(it.entries) }
func (it *iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos][0]
}
func (it *iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos][1]
}
func (it *iterator) Status() error { return nil }

func (it *iterator) Next() {
	if it.pos < len(it.entries) {
		it.pos++
	}
}
func (it *iterator) Prev() {
	if it.pos >= 0 {
		it.pos--
	}
}

func (it *iterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.entries), func(i int) bool {
		return bytes.Compare(it.entries[i][0], key) >= 0
	})
}
func (it *iterator) SeekFirst() { it.pos = 0 }
func (it *iterator) SeekLast()  { it.pos = len(it.entries) - 1 }

func (it *iterator) Close() error { return nil }
