package columndb

import "github.com/zeebo/xxh3"

// bloom is an in-memory filter used to short-circuit negative lookups
// against the IndexDB: seeded from a full scan at Open, updated on
// every Put. A positive mayContain is never trusted on its own —
// callers still confirm against the IndexDB — so false positives only
// cost an extra lookup and never affect correctness. Deletes do not
// clear bits; a stale "maybe present" after a delete still resolves to
// the IndexDB's own NotFound.
//
// Sizing: 2^17 bits (16 KiB) with 7 probes holds ~10k keys at roughly
// a 0.2% false positive rate (about 1% near 14k keys), and degrades
// gracefully past that — more false positives, never false negatives.
type bloom struct {
	words []uint64
	mask  uint64
}

const (
	bloomBits   = 1 << 17 // power of two, so probe indexing is a mask
	bloomProbes = 7
)

func newBloom() *bloom {
	return &bloom{
		words: make([]uint64, bloomBits/64),
		mask:  bloomBits - 1,
	}
}

// add sets key's probe bits. Probes are derived from the two halves of
// a single 128-bit xxh3 hash: the high half seeds the sequence, the low
// half (forced odd so it cycles the whole power-of-two ring) strides it.
func (b *bloom) add(key []byte) {
	h := xxh3.Hash128(key)
	base, step := h.Hi, h.Lo|1
	for i := uint64(0); i < bloomProbes; i++ {
		bit := (base + i*step) & b.mask
		b.words[bit>>6] |= 1 << (bit & 63)
	}
}

// mayContain reports false if key was definitely never added, true if
// it might have been.
func (b *bloom) mayContain(key []byte) bool {
	h := xxh3.Hash128(key)
	base, step := h.Hi, h.Lo|1
	for i := uint64(0); i < bloomProbes; i++ {
		bit := (base + i*step) & b.mask
		if b.words[bit>>6]&(1<<(bit&63)) == 0 {
			return false
		}
	}
	return true
}
