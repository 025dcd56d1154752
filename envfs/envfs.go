// Package envfs implements columndb.Env against the local filesystem.
//
// Every path is resolved through an os.Root rooted at the directory
// passed to Open, so a caller-supplied blob path can never escape
// db_prefix, including via symlinks.
package envfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/errs"

	"github.com/latticefs/columndb"
)

// Class is this package's error wrapping class.
var Class = errs.Class("envfs")

// Env is a columndb.Env implementation over the local filesystem,
// sandboxed to the directory it was opened against.
type Env struct {
	dir  string
	root *os.Root
}

// Open ensures dir exists and returns an Env rooted at it. Every path
// handed to the returned Env's methods is interpreted relative to dir;
// os.Root rejects any path that would resolve outside it, including via
// symlinks.
func Open(dir string) (*Env, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Class.Wrap(err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	return &Env{dir: dir, root: root}, nil
}

// Close releases the underlying root handle.
func (e *Env) Close() error { return Class.Wrap(e.root.Close()) }

// rel strips e.dir as a prefix from path when present, since callers
// build absolute-style paths as "<dir>/rest" (blobPath) or pass dir
// itself (Open's MkdirAll, recovery's FileExists/GetChildren); os.Root
// methods take paths relative to the root itself.
func (e *Env) rel(path string) string {
	if rest, ok := cutPrefix(path, e.dir+"/"); ok {
		return rest
	}
	if path == e.dir {
		return "."
	}
	return path
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return s, false
	}
	return s[len(prefix):], true
}

// MkdirAll creates dir and every missing parent under the root,
// component by component — os.Root exposes only a single-level Mkdir,
// not its own MkdirAll.
func (e *Env) MkdirAll(dir string) error {
	rel := e.rel(dir)
	if rel == "." {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	built := ""
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if built == "" {
			built = part
		} else {
			built = built + "/" + part
		}
		if err := e.root.Mkdir(built, 0o755); err != nil && !os.IsExist(err) {
			return Class.Wrap(err)
		}
	}
	return nil
}

func (e *Env) FileExists(path string) bool {
	_, err := e.root.Stat(e.rel(path))
	return err == nil
}

func (e *Env) NewWritableFile(path string) (columndb.WritableFile, error) {
	f, err := e.root.OpenFile(e.rel(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	return &writableFile{f: f}, nil
}

func (e *Env) NewRandomAccessFile(path string) (columndb.RandomAccessFile, error) {
	f, err := e.root.Open(e.rel(path))
	if err != nil {
		return nil, Class.Wrap(err)
	}
	return &randomAccessFile{f: f}, nil
}

func (e *Env) GetChildren(dir string) ([]string, error) {
	f, err := e.root.Open(e.rel(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, Class.Wrap(err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	return names, nil
}

type writableFile struct {
	f *os.File
}

func (w *writableFile) Append(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, Class.Wrap(err)
	}
	return n, nil
}

func (w *writableFile) Flush() error {
	return Class.Wrap(w.f.Sync())
}

func (w *writableFile) Close() error {
	return Class.Wrap(w.f.Close())
}

type randomAccessFile struct {
	f *os.File
}

func (r *randomAccessFile) ReadAt(offset int64, size int, scratch []byte) ([]byte, error) {
	if cap(scratch) < size {
		scratch = make([]byte, size)
	}
	scratch = scratch[:size]
	n, err := r.f.ReadAt(scratch, offset)
	if err != nil && n == 0 {
		return nil, Class.Wrap(err)
	}
	return scratch[:n], nil
}

func (r *randomAccessFile) Close() error {
	return Class.Wrap(r.f.Close())
}
