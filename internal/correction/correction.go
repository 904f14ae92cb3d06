package correction

import (
	"slices"
	"unicode/utf8"

	"github.com/nerrad567/langcheck/internal/match"
)

// Status classifies a checked text.
type Status string

const (
	// StatusCorrect means the engine reported nothing.
	StatusCorrect Status = "correct"

	// StatusFaulty means at least one match carries a replacement.
	StatusFaulty Status = "faulty"

	// StatusGarbage means there were matches but none could be corrected.
	StatusGarbage Status = "garbage"
)

// Classify reports the status of a text given the matches found in it.
func Classify(matches []match.Match) Status {
	if len(matches) == 0 {
		return StatusCorrect
	}
	for _, m := range matches {
		if len(m.Replacements) > 0 {
			return StatusFaulty
		}
	}
	return StatusGarbage
}

// Apply rewrites text using the first replacement of every match.
//
// Matches are applied in the order given, in a single pass, with a running
// shift that accounts for earlier replacements changing the length of the
// text. A match is skipped when it has no replacements, lies outside the
// text, or when the span it covers no longer holds the characters the
// engine reported (an earlier, overlapping match rewrote them, or the text
// was already corrected). Bytes outside applied spans are copied as is, so
// invalid UTF-8 survives untouched.
func Apply(text string, matches []match.Match) string {
	type edit struct {
		start, end  int
		original    string
		replacement string
	}

	var bounds []int
	edits := make([]edit, 0, len(matches))
	for _, m := range matches {
		if len(m.Replacements) == 0 {
			continue
		}
		if bounds == nil {
			bounds = runeBounds(text)
		}
		if m.Offset < 0 || m.ErrorLength < 0 || m.Offset+m.ErrorLength >= len(bounds) {
			continue
		}
		start, end := bounds[m.Offset], bounds[m.Offset+m.ErrorLength]
		edits = append(edits, edit{
			start:       start,
			end:         end,
			original:    originalText(m, text[start:end]),
			replacement: m.Replacements[0],
		})
	}
	if len(edits) == 0 {
		return text
	}

	buf := []byte(text)
	shift := 0
	for _, e := range edits {
		from, to := e.start+shift, e.end+shift
		if from < 0 || to > len(buf) || !sameText(buf[from:to], e.original) {
			continue
		}
		buf = slices.Replace(buf, from, to, []byte(e.replacement)...)
		shift += len(e.replacement) - (e.end - e.start)
	}
	return string(buf)
}

// runeBounds returns the byte offset of every rune in s followed by len(s).
// Each invalid byte counts as one rune, as it does for []rune(s).
func runeBounds(s string) []int {
	bounds := make([]int, 0, len(s)+1)
	for i := range s {
		bounds = append(bounds, i)
	}
	return append(bounds, len(s))
}

// originalText returns the characters m covered when the engine reported it.
// Engine matches carry them in their context window. Matches without a
// usable context fall back to current, the span in the text being corrected.
func originalText(m match.Match, current string) string {
	if m.Context == "" {
		return current
	}
	matched := m.MatchedText()
	if utf8.RuneCountInString(matched) != m.ErrorLength {
		return current
	}
	return matched
}

// sameText compares a span of the text with a context excerpt, in which the
// engine replaces newlines by spaces.
func sameText(span []byte, want string) bool {
	if len(span) != len(want) {
		return false
	}
	for i, c := range span {
		if c == '\n' {
			c = ' '
		}
		if c != want[i] {
			return false
		}
	}
	return true
}
