// Package document lays out report records as single-page A4 documents and
// serializes them to PDF.
//
// Layout is pure and deterministic: it turns a record into a list of drawing
// operations with absolute millimetre coordinates, which tests can inspect
// directly. Serialize replays those operations through fpdf. Content that runs
// past the bottom of the page is not paginated.
package document
