package columndb

import (
	"bytes"
	"testing"
)

func TestMemBufferAppendAndRead(t *testing.T) {
	m := newMemBuffer(64)
	if !m.hasRoom(64) {
		t.Fatal("expected room for 64 bytes in a fresh 64-byte buffer")
	}

	loc, err := m.append([]byte("hello"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if loc != 0 {
		t.Fatalf("first append location = %d, want 0", loc)
	}

	loc2, err := m.append([]byte("world!"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if loc2 != 5 {
		t.Fatalf("second append location = %d, want 5", loc2)
	}

	got, err := m.read(0, 5, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("read(0,5) = %q, want %q", got, "hello")
	}
}

func TestMemBufferFullOnOverflow(t *testing.T) {
	m := newMemBuffer(4)
	if _, err := m.append([]byte("12345")); err == nil {
		t.Fatal("expected ErrBufferFull for an append larger than capacity")
	}
}

func TestMemBufferReadPastCapacityTruncates(t *testing.T) {
	m := newMemBuffer(8)
	if _, err := m.append([]byte("abcd")); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := m.read(4, 100, nil)
	if err != nil {
		t.Fatalf("read past end should truncate, not error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("truncated read length = %d, want 4", len(got))
	}
}

func TestMemBufferReadOffsetAtCapacityIsError(t *testing.T) {
	m := newMemBuffer(8)
	if _, err := m.read(8, 1, nil); err == nil {
		t.Fatal("expected I/O error reading at offset == capacity")
	}
}

func TestMemBufferTruncateResetsFree(t *testing.T) {
	m := newMemBuffer(8)
	if _, err := m.append([]byte("abcd")); err != nil {
		t.Fatalf("append: %v", err)
	}
	m.truncate()
	if !m.hasRoom(8) {
		t.Fatal("expected full room after truncate")
	}
	loc, err := m.append([]byte("xyz"))
	if err != nil {
		t.Fatalf("append after truncate: %v", err)
	}
	if loc != 0 {
		t.Fatalf("append location after truncate = %d, want 0", loc)
	}
}
