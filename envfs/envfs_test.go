package envfs

import (
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	env, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer env.Close()

	path := filepath.Join(dir, "000001.dat")
	w, err := env.NewWritableFile(path)
	if err != nil {
		t.Fatalf("NewWritableFile: %v", err)
	}
	if _, err := w.Append([]byte("hello world")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !env.FileExists(path) {
		t.Fatal("FileExists = false, want true")
	}

	r, err := env.NewRandomAccessFile(path)
	if err != nil {
		t.Fatalf("NewRandomAccessFile: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAt(6, 5, nil)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != "world" {
		t.Fatalf("ReadAt = %q, want %q", got, "world")
	}
}

func TestGetChildrenListsBlobFiles(t *testing.T) {
	dir := t.TempDir()
	env, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer env.Close()

	for _, name := range []string{"000001.dat", "000002.dat"} {
		w, err := env.NewWritableFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("NewWritableFile(%s): %v", name, err)
		}
		_ = w.Close()
	}

	names, err := env.GetChildren(dir)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("GetChildren = %v, want 2 entries", names)
	}
}

func TestGetChildrenMissingDirReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	env, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer env.Close()

	names, err := env.GetChildren(filepath.Join(dir, "nope"))
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("GetChildren = %v, want empty", names)
	}
}

func TestRelHandlesBareRootPath(t *testing.T) {
	dir := t.TempDir()
	env, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer env.Close()

	if !env.FileExists(dir) {
		t.Fatal("FileExists(root) = false, want true")
	}
}
