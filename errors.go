package columndb

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

// Class is the package-wide error class used to wrap errors at their
// site of origin.
var Class = errs.Class("columndb")

// Sentinel errors returned by engine operations. Class-wrapped errors
// returned by this package still satisfy errors.Is against these
// sentinels, since errs.Class wraps rather than replaces the error it
// is given.
var (
	// ErrNotFound is returned when the IndexDB has no locator for a key.
	ErrNotFound = errors.New("columndb: not found")

	// ErrIOError covers Env call failures, a header magic mismatch, or a
	// truncated record read back from a blob.
	ErrIOError = errors.New("columndb: io error")

	// ErrBufferFull is returned internally by the mirror when a record
	// does not fit. appendRecord handles it by rotating first; it reaches
	// the caller only for a record larger than the whole mirror, which
	// still does not fit after rotation.
	ErrBufferFull = errors.New("columndb: mirror buffer full")

	// ErrCorruption is returned verbatim from the IndexDB, for a
	// malformed locator, or for a dump stream that is truncated or
	// fails digest verification on Load.
	ErrCorruption = errors.New("columndb: corruption")

	// ErrInvalidArgument is returned when a key or value exceeds the
	// field width reserved for it in the record header.
	ErrInvalidArgument = errors.New("columndb: invalid argument")

	// ErrClosed is returned when operating on a closed engine.
	ErrClosed = errors.New("columndb: engine is closed")

	// ErrBatchPutUnsupported is returned by Write when the batch contains
	// a Put entry. A batched put has no staged blob payload, so
	// forwarding it to the IndexDB unchanged would store a locator
	// pointing at nothing. See DESIGN.md, open question 5.
	ErrBatchPutUnsupported = errors.New("columndb: batched puts are not supported, stage payloads with Put")

	// ErrNegativeServerID is returned by Open when ServerID is negative.
	// server_id<<14 is undefined for negative inputs; rather than
	// reproduce that, Open rejects it outright. See DESIGN.md, open
	// question 3.
	ErrNegativeServerID = errors.New("columndb: server id must be non-negative")
)

// errMagicMismatch builds the IOError for a header whose magic field
// does not match the expected constant. It is wrapped with fmt.Errorf
// rather than errs.Combine so that errors.Is(err, ErrIOError) is
// guaranteed to hold for callers.
func errMagicMismatch() error {
	return Class.Wrap(fmt.Errorf("%w: magic number not match", ErrIOError))
}

// errShortRead builds the IOError for a record whose key+value does not
// fit within the bytes actually read from the blob.
func errShortRead() error {
	return Class.Wrap(fmt.Errorf("%w: failed to read a full key value pair", ErrIOError))
}
