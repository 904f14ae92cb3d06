// Package match models the diagnostics returned by the grammar engine.
//
// Matches are built from the decoded /v2/check response by an explicit
// field mapping. Engine offsets are UTF-16 based; FromResponse converts
// them to rune offsets into the checked text.
package match
