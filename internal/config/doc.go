// Package config loads, normalizes, and validates fetalscan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FETALSCAN_API_TOKEN and NTFY_TOPIC. The Config type centralizes the data
// directory, the signing user, the default clinic header, and report text so
// the CLI and the HTTP API resolve them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
