package columndb

// Env is the filesystem abstraction consumed by BlobWriter, HandleCache,
// and Recovery. The local-disk implementation lives in the sibling envfs
// package so that alternative environments (remote or virtualized
// storage) can be swapped in without touching engine logic.
type Env interface {
	// NewWritableFile opens path for append-only writing, creating it if
	// it does not exist.
	NewWritableFile(path string) (WritableFile, error)

	// NewRandomAccessFile opens an existing file for positional reads.
	NewRandomAccessFile(path string) (RandomAccessFile, error)

	// FileExists reports whether path exists.
	FileExists(path string) bool

	// GetChildren lists the base names of dir's immediate children. It
	// returns an empty slice, not an error, if dir does not exist.
	GetChildren(dir string) ([]string, error)

	// MkdirAll ensures dir and all its parents exist.
	MkdirAll(dir string) error
}

// WritableFile is an append-only file handle.
type WritableFile interface {
	Append(p []byte) (int, error)
	Flush() error
	Close() error
}

// RandomAccessFile is a positional read handle.
type RandomAccessFile interface {
	// ReadAt reads up to size bytes at offset into scratch (growing it
	// if needed) and returns the resulting slice.
	ReadAt(offset int64, size int, scratch []byte) ([]byte, error)
	Close() error
}
