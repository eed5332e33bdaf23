// Package lifecycle moves reports between the draft, archived, and final
// collections.
//
// A Controller owns the single live draft. Field edits are applied in
// batches and committed once per batch: the whole draft is persisted and
// clinical warnings are recomputed. Archiving never validates; finalizing
// and document generation do. Promotion and deletion locate records by id,
// then timestamp, then patient id so records written by older releases
// still resolve.
package lifecycle
