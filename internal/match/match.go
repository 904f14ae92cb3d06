package match

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrContextMismatch is returned by LineAndColumn when the match was not
// computed against the given text.
var ErrContextMismatch = errors.New("match: text does not contain the match context")

// ErrNoReplacement is returned by WithReplacement for an out-of-range index.
var ErrNoReplacement = errors.New("match: no such replacement")

// contextEllipsis is how the engine marks a truncated context window.
const contextEllipsis = "..."

// Match is one diagnostic finding. Offsets and lengths count runes.
type Match struct {
	RuleID          string   `json:"rule_id"`
	Message         string   `json:"message"`
	Replacements    []string `json:"replacements"`
	OffsetInContext int      `json:"offset_in_context"`
	Context         string   `json:"context"`
	Offset          int      `json:"offset"`
	ErrorLength     int      `json:"error_length"`
	Category        string   `json:"category"`
	RuleIssueType   string   `json:"rule_issue_type"`
	Sentence        string   `json:"sentence"`
}

// FromResponse maps the engine's matches for text into Matches.
//
// The engine counts UTF-16 code units, so every supplementary-plane rune
// before a position shifts it by one. Offsets and lengths are converted to
// rune counts here so that callers can index []rune(text) directly.
func FromResponse(resp Response, text string) []Match {
	if len(resp.Matches) == 0 {
		return nil
	}

	textIdx := newUTF16Index(text)
	out := make([]Match, 0, len(resp.Matches))
	for _, raw := range resp.Matches {
		out = append(out, fromRaw(raw, textIdx))
	}
	return out
}

func fromRaw(raw RawMatch, textIdx utf16Index) Match {
	replacements := make([]string, 0, len(raw.Replacements))
	for _, r := range raw.Replacements {
		replacements = append(replacements, r.Value)
	}

	ctxIdx := newUTF16Index(raw.Context.Text)
	start := textIdx.runeOffset(raw.Offset)
	end := textIdx.runeOffset(raw.Offset + raw.Length)
	ctxStart := ctxIdx.runeOffset(raw.Context.Offset)

	return Match{
		RuleID:          raw.Rule.ID,
		Message:         norm.NFKC.String(raw.Message),
		Replacements:    replacements,
		OffsetInContext: ctxStart,
		Context:         raw.Context.Text,
		Offset:          start,
		ErrorLength:     end - start,
		Category:        raw.Rule.Category.ID,
		RuleIssueType:   raw.Rule.IssueType,
		Sentence:        raw.Sentence,
	}
}

// utf16Index lists the UTF-16 positions of supplementary-plane runes.
type utf16Index []int

func newUTF16Index(s string) utf16Index {
	var idx utf16Index
	pos := 0
	for _, r := range s {
		if r > 0xFFFF {
			idx = append(idx, pos)
			pos += 2
			continue
		}
		pos++
	}
	return idx
}

// runeOffset converts a UTF-16 offset to a rune offset.
func (idx utf16Index) runeOffset(u16 int) int {
	n := 0
	for _, p := range idx {
		if p >= u16 {
			break
		}
		n++
	}
	return u16 - n
}

// MatchedText returns the part of the context the match covers.
func (m Match) MatchedText() string {
	ctx := []rune(m.Context)
	start := min(max(m.OffsetInContext, 0), len(ctx))
	end := min(max(start+m.ErrorLength, start), len(ctx))
	return string(ctx[start:end])
}

// LineAndColumn returns the 1-based line and column of the match in text,
// which must be the text the match was computed against.
func (m Match) LineAndColumn(text string) (line, column int, err error) {
	ctx := m.Context
	if n := len([]rune(ctx)); n > 2*len(contextEllipsis) {
		r := []rune(ctx)
		ctx = string(r[len(contextEllipsis) : n-len(contextEllipsis)])
	}
	if !strings.Contains(strings.ReplaceAll(text, "\n", " "), ctx) {
		return 0, 0, ErrContextMismatch
	}

	runes := []rune(text)
	offset := min(max(m.Offset, 0), len(runes))
	lastNewline := -1
	line = 1
	for i, r := range runes[:offset] {
		if r == '\n' {
			line++
			lastNewline = i
		}
	}
	return line, offset - lastNewline, nil
}

// WithReplacement returns a copy of m keeping only replacement i.
func (m Match) WithReplacement(i int) (Match, error) {
	if len(m.Replacements) == 0 {
		return Match{}, fmt.Errorf("%w: match %s has no suggestions", ErrNoReplacement, m.RuleID)
	}
	if i < 0 || i >= len(m.Replacements) {
		return Match{}, fmt.Errorf("%w: index %d, suggestions are numbered 0 to %d",
			ErrNoReplacement, i, len(m.Replacements)-1)
	}
	m.Replacements = []string{m.Replacements[i]}
	return m, nil
}

// String renders the match for humans, with a caret line under the error.
func (m Match) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Offset %d, length %d, Rule ID: %s", m.Offset, m.ErrorLength, m.RuleID)
	if m.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", m.Message)
	}
	if len(m.Replacements) > 0 {
		fmt.Fprintf(&b, "\nSuggestion: %s", strings.Join(m.Replacements, "; "))
	}
	fmt.Fprintf(&b, "\n%s\n%s%s", m.Context,
		strings.Repeat(" ", max(m.OffsetInContext, 0)),
		strings.Repeat("^", max(m.ErrorLength, 0)))
	return b.String()
}

// Compare orders matches field by field in declaration order.
func Compare(a, b Match) int {
	return cmp.Or(
		cmp.Compare(a.RuleID, b.RuleID),
		cmp.Compare(a.Message, b.Message),
		slices.Compare(a.Replacements, b.Replacements),
		cmp.Compare(a.OffsetInContext, b.OffsetInContext),
		cmp.Compare(a.Context, b.Context),
		cmp.Compare(a.Offset, b.Offset),
		cmp.Compare(a.ErrorLength, b.ErrorLength),
		cmp.Compare(a.Category, b.Category),
		cmp.Compare(a.RuleIssueType, b.RuleIssueType),
		cmp.Compare(a.Sentence, b.Sentence),
	)
}

// Less reports whether m sorts before other.
func (m Match) Less(other Match) bool {
	return Compare(m, other) < 0
}

// Equal reports whether m and other have identical fields.
func (m Match) Equal(other Match) bool {
	return Compare(m, other) == 0
}
