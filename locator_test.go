package columndb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		key, val int
	}{
		{0, 0},
		{1, 1},
		{16, 32},
		{maxKeySize, maxValueSize},
		{255, 1024},
	}
	for _, c := range cases {
		h, err := encodeHeader(c.key, c.val)
		if err != nil {
			t.Fatalf("encodeHeader(%d,%d): %v", c.key, c.val, err)
		}
		magic, k, v := decodeHeader(h)
		if magic != headerMagic {
			t.Fatalf("magic = %#x, want %#x", magic, headerMagic)
		}
		if k != c.key || v != c.val {
			t.Fatalf("decodeHeader = (%d,%d), want (%d,%d)", k, v, c.key, c.val)
		}
	}
}

func TestHeaderRejectsOversizeFields(t *testing.T) {
	if _, err := encodeHeader(maxKeySize+1, 0); err == nil {
		t.Fatal("expected error for oversize key")
	}
	if _, err := encodeHeader(0, maxValueSize+1); err == nil {
		t.Fatal("expected error for oversize value")
	}
}

// TestLocatorIdempotence checks that decode(encode(log, off,
// ceil(sz/1024)*1024)) == (log, off, ceil(sz/1024)*1024) across the
// fields' full ranges.
func TestLocatorIdempotence(t *testing.T) {
	cases := []locator{
		{logNumber: 0, offset: 0, size: 0},
		{logNumber: 1, offset: 1, size: 1024},
		{logNumber: maxLogNumber, offset: maxOffset, size: maxRoundedSize},
		{logNumber: 42, offset: 9000, size: 1500}, // not a multiple of 1024
	}
	for _, c := range cases {
		v, err := encodeLocator(c)
		if err != nil {
			t.Fatalf("encodeLocator(%+v): %v", c, err)
		}
		got := decodeLocator(v)
		wantSize := ((c.size + locatorUnit - 1) / locatorUnit) * locatorUnit
		want := locator{logNumber: c.logNumber, offset: c.offset, size: wantSize}
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(locator{})); diff != "" {
			t.Fatalf("decodeLocator(encodeLocator(%+v)) mismatch (-want +got):\n%s", c, diff)
		}
	}
}

func TestLocatorRejectsOutOfRange(t *testing.T) {
	if _, err := encodeLocator(locator{logNumber: maxLogNumber + 1}); err == nil {
		t.Fatal("expected error for oversize log number")
	}
	if _, err := encodeLocator(locator{offset: maxOffset + 1}); err == nil {
		t.Fatal("expected error for oversize offset")
	}
	if _, err := encodeLocator(locator{size: maxRoundedSize + 1}); err == nil {
		t.Fatal("expected error for oversize size")
	}
}

func TestLocatorBytesRoundTrip(t *testing.T) {
	want := locator{logNumber: 7, offset: 123456, size: 2048}
	b, err := encodeLocatorBytes(want)
	if err != nil {
		t.Fatalf("encodeLocatorBytes: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("locator bytes length = %d, want 8", len(b))
	}
	got, err := decodeLocatorBytes(b)
	if err != nil {
		t.Fatalf("decodeLocatorBytes: %v", err)
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(locator{})); diff != "" {
		t.Fatalf("decodeLocatorBytes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLocatorBytesRejectsWrongLength(t *testing.T) {
	if _, err := decodeLocatorBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short locator bytes")
	}
}
