// Package main hosts the fetalscan CLI entrypoint and command graph.
//
// The Cobra-based command tree edits the live draft, moves reports between
// the archive and final collections, renders PDF documents, exports data, and
// starts the HTTP API. It centralizes configuration resolution, store access,
// and structured logging setup so subcommands can focus on output.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through a command or flag here.
package main
