package enginetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf16"

	"github.com/nerrad567/langcheck/internal/match"
)

// contextWindow is how many runes of context surround a match.
const contextWindow = 40

// Dictionary maps misspellings to suggested replacements. An empty slice
// reports the word without suggestions.
var Dictionary = map[string][]string{
	"nothin":     {"nothing"},
	"thang":      {"thing", "thank"},
	"awsome":     {"awesome"},
	"teh":        {"the"},
	"recieve":    {"receive"},
	"mispelled":  {"misspelled"},
	"langauge":   {"language"},
	"cz":         {},
	"qwrtzp":     {},
	"grammer":    {"grammar"},
	"definately": {"definitely"},
}

// DefaultLanguages is what /v2/languages reports unless overridden.
var DefaultLanguages = []match.RawLanguageEntry{
	{Name: "English", Code: "en", LongCode: "en"},
	{Name: "English (US)", Code: "en", LongCode: "en-US"},
	{Name: "English (GB)", Code: "en", LongCode: "en-GB"},
	{Name: "German", Code: "de", LongCode: "de"},
	{Name: "German (Germany)", Code: "de", LongCode: "de-DE"},
	{Name: "French", Code: "fr", LongCode: "fr"},
}

// Rule IDs reported by the fake engine.
const (
	RuleSpelling          = "MORFOLOGIK_RULE_EN_US"
	RuleSentenceStart     = "UPPERCASE_SENTENCE_START"
	RuleDoublePunctuation = "DOUBLE_PUNCTUATION"
)

// Engine is an in-memory stand-in for the grammar engine's HTTP API.
//
// It implements /healthcheck, /v2/languages and /v2/check with a small
// dictionary-based spelling rule, a sentence-start casing rule and a
// doubled punctuation rule. Offsets are reported in UTF-16 units, as the
// real engine does.
type Engine struct {
	// MaxTextLength rejects longer texts with 413 when positive.
	MaxTextLength int

	// RateLimited answers every check with 426 and a plain-text body.
	RateLimited atomic.Bool

	// Malformed answers every check with 200 and a body that is not JSON.
	Malformed atomic.Bool

	checks atomic.Int64

	mu        sync.Mutex
	languages []match.RawLanguageEntry
	lastQuery url.Values
}

// New creates a fake engine with DefaultLanguages.
func New() *Engine {
	return &Engine{languages: DefaultLanguages}
}

// SetLanguages replaces the reported language list.
func (e *Engine) SetLanguages(langs []match.RawLanguageEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.languages = langs
}

// Checks returns the number of /v2/check requests served.
func (e *Engine) Checks() int {
	return int(e.checks.Load())
}

// LastQuery returns the parameters of the most recent check request.
func (e *Engine) LastQuery() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastQuery
}

// ServeHTTP routes engine requests.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/healthcheck", "/v2/healthcheck":
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	case "/v2/languages":
		e.handleLanguages(w)
	case "/v2/check":
		e.handleCheck(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (e *Engine) handleLanguages(w http.ResponseWriter) {
	e.mu.Lock()
	langs := e.languages
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(langs)
}

func (e *Engine) handleCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusBadRequest)
		return
	}
	e.checks.Add(1)

	e.mu.Lock()
	e.lastQuery = r.Form
	langs := e.languages
	e.mu.Unlock()

	if e.RateLimited.Load() {
		http.Error(w, "Error: Too many requests", http.StatusUpgradeRequired)
		return
	}
	if e.Malformed.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>internal error</html>"))
		return
	}

	text := r.Form.Get("text")
	lang := r.Form.Get("language")
	if lang == "" {
		http.Error(w, "Error: Missing 'language' parameter", http.StatusBadRequest)
		return
	}
	if !knownLanguage(lang, langs) {
		http.Error(w, fmt.Sprintf("Error: '%s' is not a language code known to LanguageTool", lang), http.StatusBadRequest)
		return
	}
	if e.MaxTextLength > 0 && len([]rune(text)) > e.MaxTextLength {
		http.Error(w, fmt.Sprintf("Error: Your text exceeds the limit of %d characters", e.MaxTextLength),
			http.StatusRequestEntityTooLarge)
		return
	}

	resp := match.Response{
		Matches:  check(text, newFilter(r.Form)),
		Language: &match.RawLanguage{Name: lang, Code: lang},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func knownLanguage(lang string, langs []match.RawLanguageEntry) bool {
	if lang == "auto" {
		return true
	}
	for _, l := range langs {
		if strings.EqualFold(l.LongCode, lang) || strings.EqualFold(l.Code, lang) {
			return true
		}
	}
	return false
}

// filter applies the rule/category selection parameters.
type filter struct {
	disabledRules      map[string]bool
	enabledRules       map[string]bool
	disabledCategories map[string]bool
	enabledCategories  map[string]bool
	enabledOnly        bool
}

func newFilter(q url.Values) filter {
	return filter{
		disabledRules:      splitSet(q.Get("disabledRules")),
		enabledRules:       splitSet(q.Get("enabledRules")),
		disabledCategories: splitSet(q.Get("disabledCategories")),
		enabledCategories:  splitSet(q.Get("enabledCategories")),
		enabledOnly:        q.Get("enabledOnly") == "true",
	}
}

func splitSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		if item != "" {
			set[item] = true
		}
	}
	return set
}

func (f filter) allows(rule, category string) bool {
	if f.enabledOnly {
		return f.enabledRules[rule] || f.enabledCategories[category]
	}
	return !f.disabledRules[rule] && !f.disabledCategories[category]
}

// finding is a match in rune coordinates before conversion.
type finding struct {
	start, length int
	rule          string
	category      string
	issueType     string
	message       string
	replacements  []string
}

// check runs the fake rules over text and returns engine-style matches.
func check(text string, f filter) []match.RawMatch {
	runes := []rune(text)
	var found []finding

	for _, w := range words(runes) {
		word := string(runes[w[0]:w[1]])
		if suggestions, ok := Dictionary[strings.ToLower(word)]; ok {
			found = append(found, finding{
				start: w[0], length: w[1] - w[0],
				rule: RuleSpelling, category: "TYPOS", issueType: "misspelling",
				message:      "Possible spelling mistake found.",
				replacements: suggestions,
			})
		}
	}

	if ws := words(runes); len(ws) > 0 && ws[0][0] == firstNonSpace(runes) {
		first := runes[ws[0][0]:ws[0][1]]
		if unicode.IsLower(first[0]) {
			fixed := append([]rune{unicode.ToUpper(first[0])}, first[1:]...)
			found = append(found, finding{
				start: ws[0][0], length: len(first),
				rule: RuleSentenceStart, category: "CASING", issueType: "typographical",
				message:      "This sentence does not start with an uppercase letter.",
				replacements: []string{string(fixed)},
			})
		}
	}

	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == ',' && runes[i+1] == ',' {
			found = append(found, finding{
				start: i, length: 2,
				rule: RuleDoublePunctuation, category: "PUNCTUATION", issueType: "typographical",
				message:      "Two consecutive commas",
				replacements: []string{","},
			})
			i++
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	out := make([]match.RawMatch, 0, len(found))
	for _, fd := range found {
		if !f.allows(fd.rule, fd.category) {
			continue
		}
		out = append(out, fd.raw(runes))
	}
	return out
}

func (fd finding) raw(runes []rune) match.RawMatch {
	ctxStart := max(fd.start-contextWindow, 0)
	ctxEnd := min(fd.start+fd.length+contextWindow, len(runes))

	prefix, suffix := "", ""
	if ctxStart > 0 {
		prefix = "..."
	}
	if ctxEnd < len(runes) {
		suffix = "..."
	}
	ctx := prefix + strings.ReplaceAll(string(runes[ctxStart:ctxEnd]), "\n", " ") + suffix
	ctxOffset := len(prefix) + utf16Len(runes[ctxStart:fd.start])

	replacements := make([]match.RawReplacement, 0, len(fd.replacements))
	for _, r := range fd.replacements {
		replacements = append(replacements, match.RawReplacement{Value: r})
	}

	length := utf16Len(runes[fd.start : fd.start+fd.length])
	return match.RawMatch{
		Message:      fd.message,
		ShortMessage: fd.message,
		Replacements: replacements,
		Offset:       utf16Len(runes[:fd.start]),
		Length:       length,
		Context:      match.RawContext{Text: ctx, Offset: ctxOffset, Length: length},
		Sentence:     string(runes),
		Rule: match.RawRule{
			ID:        fd.rule,
			IssueType: fd.issueType,
			Category:  match.RawCategory{ID: fd.category, Name: fd.category},
		},
	}
}

// words returns [start, end) rune spans of letter runs.
func words(runes []rune) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(runes)})
	}
	return spans
}

func firstNonSpace(runes []rune) int {
	for i, r := range runes {
		if !unicode.IsSpace(r) {
			return i
		}
	}
	return -1
}

func utf16Len(runes []rune) int {
	return len(utf16.Encode(runes))
}
