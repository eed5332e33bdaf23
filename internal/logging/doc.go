// Package logging assembles structured slog loggers used across fetalscan.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so lifecycle and API code tag log
// lines with report and request identifiers. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
