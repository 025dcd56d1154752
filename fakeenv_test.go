package columndb

import (
	"sync"
)

// fakeEnv is an in-memory Env used by this package's own unit tests so
// they exercise BlobWriter/HandleCache/Recovery logic without touching
// a real filesystem.
type fakeEnv struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (e *fakeEnv) MkdirAll(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirs[dir] = true
	return nil
}

func (e *fakeEnv) FileExists(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.files[path]
	if ok {
		return true
	}
	return e.dirs[path]
}

func (e *fakeEnv) GetChildren(dir string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var names []string
	prefix := dir + "/"
	for path := range e.files {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			names = append(names, path[len(prefix):])
		}
	}
	return names, nil
}

func (e *fakeEnv) NewWritableFile(path string) (WritableFile, error) {
	e.mu.Lock()
	if _, ok := e.files[path]; !ok {
		e.files[path] = nil
	}
	e.mu.Unlock()
	return &fakeWritable{env: e, path: path}, nil
}

func (e *fakeEnv) NewRandomAccessFile(path string) (RandomAccessFile, error) {
	e.mu.Lock()
	data, ok := e.files[path]
	e.mu.Unlock()
	if !ok {
		return nil, Class.Wrap(ErrIOError)
	}
	return &fakeReader{env: e, path: path, data: data}, nil
}

type fakeWritable struct {
	env  *fakeEnv
	path string
}

func (w *fakeWritable) Append(p []byte) (int, error) {
	w.env.mu.Lock()
	w.env.files[w.path] = append(w.env.files[w.path], p...)
	w.env.mu.Unlock()
	return len(p), nil
}

func (w *fakeWritable) Flush() error { return nil }
func (w *fakeWritable) Close() error { return nil }

type fakeReader struct {
	env  *fakeEnv
	path string
	data []byte
}

func (r *fakeReader) ReadAt(offset int64, size int, scratch []byte) ([]byte, error) {
	r.env.mu.Lock()
	data := r.env.files[r.path]
	r.env.mu.Unlock()

	if offset < 0 || int(offset) > len(data) {
		return nil, Class.Wrap(ErrIOError)
	}
	end := int(offset) + size
	if end > len(data) {
		end = len(data)
	}
	n := end - int(offset)
	if cap(scratch) < n {
		scratch = make([]byte, n)
	}
	scratch = scratch[:n]
	copy(scratch, data[offset:end])
	return scratch, nil
}

func (r *fakeReader) Close() error { return nil }

// corruptByte overwrites a single byte in an already-written file, used
// by tests to simulate on-disk corruption.
func (e *fakeEnv) corruptByte(path string, idx int, b byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[path][idx] = b
}
