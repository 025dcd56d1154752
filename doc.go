// Package columndb is a hybrid LSM + blob-log key-value engine.
//
// ColumnDB layers a bounded-width locator index (the IndexDB, an external
// embedded LSM such as badger) over a rotated, append-only data-blob log.
// Small variable-length values are packed into blob files; the index
// stores only fixed-width locators pointing into those blobs; a bounded
// handle cache keeps reader descriptors warm for blobs that have rotated
// off the active write path.
//
// ColumnDB does not implement an LSM itself, an RPC surface, or a
// filesystem metadata schema — it consumes an IndexDB and an Env as
// collaborators and owns only the blob log, the mirror, and the handle
// cache above them.
package columndb
