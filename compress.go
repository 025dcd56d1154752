package columndb

// Compression for bulk export/import.
//
// Dump writes every visible key-value pair to an io.Writer as a
// zstd-compressed stream of length-prefixed records, closed by a
// blake2b digest of the record frames; Load reads one back and verifies
// the digest. This is a CLI convenience built on the existing iteration
// path, not part of the engine's core read/write path, and has no
// bearing on the on-disk record or locator layout.
import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// Each record is framed as uvarint(len+1) followed by the bytes, for
// key then value; the +1 reserves length prefix 0 as the stream
// terminator. After the terminator comes a 32-byte blake2b-256 digest
// of every frame before it (computed over the uncompressed bytes), so
// a dump that moves between machines is verified on load.
const dumpDigestSize = blake2b.Size256

// Dump streams every entry from it through a zstd encoder into w.
// Framing happens before compression, rather than compressing each
// value independently, so zstd can exploit cross-record redundancy in
// metadata-shaped keys.
func Dump(w io.Writer, it Iterator) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return Class.Wrap(err)
	}

	digest, err := blake2b.New256(nil)
	if err != nil {
		return Class.Wrap(err)
	}

	bw := bufio.NewWriter(enc)
	framed := io.MultiWriter(bw, digest)
	var lenBuf [binary.MaxVarintLen64]byte
	for it.SeekFirst(); it.Valid(); it.Next() {
		if err := writeFramed(framed, lenBuf[:], it.Key()); err != nil {
			return err
		}
		if err := writeFramed(framed, lenBuf[:], it.Value()); err != nil {
			return err
		}
	}
	if err := it.Status(); err != nil {
		return Class.Wrap(err)
	}

	// Terminator and digest close the stream; neither is hashed.
	n := binary.PutUvarint(lenBuf[:], 0)
	if _, err := bw.Write(lenBuf[:n]); err != nil {
		return Class.Wrap(err)
	}
	if _, err := bw.Write(digest.Sum(nil)); err != nil {
		return Class.Wrap(err)
	}
	if err := bw.Flush(); err != nil {
		return Class.Wrap(err)
	}
	return Class.Wrap(enc.Close())
}

func writeFramed(w io.Writer, lenBuf []byte, p []byte) error {
	n := binary.PutUvarint(lenBuf, uint64(len(p))+1)
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return Class.Wrap(err)
	}
	_, err := w.Write(p)
	return Class.Wrap(err)
}

// Load decompresses r and invokes fn for every (key, value) pair it
// contains, in the order Dump wrote them. A stream that ends before the
// terminator, or whose digest does not match the frames read, fails
// with ErrCorruption.
func Load(r io.Reader, fn func(key, value []byte) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Class.Wrap(err)
	}
	defer dec.Close()

	digest, err := blake2b.New256(nil)
	if err != nil {
		return Class.Wrap(err)
	}

	br := bufio.NewReader(dec)
	for {
		key, done, err := readFramed(br, digest)
		if err != nil {
			return err
		}
		if done {
			return verifyDumpDigest(br, digest)
		}
		value, done, err := readFramed(br, digest)
		if err != nil {
			return err
		}
		if done {
			return Class.Wrap(fmt.Errorf("%w: dump ends mid-pair", ErrCorruption))
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

// readFramed reads one frame, feeding its bytes back into digest so the
// running hash matches what Dump computed. done reports the terminator.
func readFramed(r *bufio.Reader, digest hash.Hash) (p []byte, done bool, err error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, false, Class.Wrap(fmt.Errorf("%w: truncated dump", ErrCorruption))
	}
	if n == 0 {
		return nil, true, nil
	}

	var lenBuf [binary.MaxVarintLen64]byte
	m := binary.PutUvarint(lenBuf[:], n)
	digest.Write(lenBuf[:m])

	buf := make([]byte, n-1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, false, Class.Wrap(fmt.Errorf("%w: truncated dump", ErrCorruption))
	}
	digest.Write(buf)
	return buf, false, nil
}

func verifyDumpDigest(r *bufio.Reader, digest hash.Hash) error {
	var want [dumpDigestSize]byte
	if _, err := io.ReadFull(r, want[:]); err != nil {
		return Class.Wrap(fmt.Errorf("%w: truncated dump digest", ErrCorruption))
	}
	got := digest.Sum(nil)
	for i := range want {
		if got[i] != want[i] {
			return Class.Wrap(fmt.Errorf("%w: dump digest mismatch", ErrCorruption))
		}
	}
	return nil
}
