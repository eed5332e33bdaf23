// Package store persists fetalscan state in SQLite as JSON documents under
// fixed keys.
//
// Each key holds one whole value: the working draft, the archived-draft list,
// the final-report list, settings, and a one-shot edit request. Writes replace
// the value for their key; there is no merging. Reads pass through the record
// schema adapter so older layouts come back in canonical form.
//
// Callers that must change several keys together use Atomically, which runs
// the supplied function against a transaction-scoped Repository.
package store
