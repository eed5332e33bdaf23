// Package textutil provides filename sanitization and case-insensitive
// matching helpers.
package textutil
