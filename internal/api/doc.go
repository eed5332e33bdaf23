// Package api serves the report lifecycle over HTTP using echo.
//
// # Key Types
//
// Server: binds paths.api_bind, holds the single-instance lock on the data
// directory, and applies bearer authentication when paths.api_token is set.
//
// Handler: maps routes onto lifecycle.Controller operations. Draft routes act
// on the live draft; archive and final routes address stored records by id,
// timestamp, or patient id.
//
// # Error Mapping
//
// Validation failures return 422 with the full field map under "errors".
// Lookup misses return 404, destructive calls without confirm=true return
// 409, and malformed field edits return 400.
//
// # Design Notes
//
// Payloads use camelCase JSON tags to match the stored record layout.
// Documents are rendered into memory first so headers, including the
// attachment file name, are only written once rendering succeeds.
package api
