// Package correction turns engine matches into a corrected text.
//
// All positions are rune offsets, as produced by match.FromResponse.
package correction
