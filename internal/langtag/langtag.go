package langtag

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

var (
	// ErrEmptyTag is returned when resolving an empty tag.
	ErrEmptyTag = errors.New("langtag: empty language tag")

	// ErrUnsupported is returned when no supported language matches a tag.
	ErrUnsupported = errors.New("langtag: unsupported language")
)

// primaryPattern extracts the primary subtag from tags such as "en",
// "en-US" or "pt_br".
var primaryPattern = regexp.MustCompile(`(?i)^([a-z]{2,3})(?:[_-]([a-z]{2}))?$`)

// Tag is a language tag resolved against the set an engine supports.
type Tag struct {
	// Raw is the tag as supplied by the caller.
	Raw string

	// Resolved is the supported tag Raw maps to, in the engine's spelling.
	Resolved string

	// Supported is the set Raw was resolved against.
	Supported []string
}

// String returns the resolved tag.
func (t Tag) String() string {
	return t.Resolved
}

// Equal reports whether other resolves to the same tag against t's set.
func (t Tag) Equal(other string) bool {
	resolved, err := resolve(other, t.Supported)
	return err == nil && resolved == t.Resolved
}

// Resolve maps raw onto one of supported.
//
// Matching ignores case and treats '-' and '_' alike. When the full tag is
// not supported, the primary 2-3 letter subtag is tried on its own, so
// "en-ZZ" resolves to "en" if only that is present.
func Resolve(raw string, supported []string) (Tag, error) {
	resolved, err := resolve(raw, supported)
	if err != nil {
		return Tag{}, err
	}
	return Tag{Raw: raw, Resolved: resolved, Supported: supported}, nil
}

func resolve(raw string, supported []string) (string, error) {
	if raw == "" {
		return "", ErrEmptyTag
	}

	index := make(map[string]string, len(supported))
	for _, s := range supported {
		index[fold(s)] = s
	}

	if s, ok := index[fold(raw)]; ok {
		return s, nil
	}
	if m := primaryPattern.FindStringSubmatch(raw); m != nil {
		if s, ok := index[strings.ToLower(m[1])]; ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, raw)
}

func fold(tag string) string {
	return strings.ReplaceAll(strings.ToLower(tag), "-", "_")
}

// localeVars are consulted in POSIX precedence order.
var localeVars = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// SystemLanguage returns the language of the process locale as a BCP 47
// tag such as "en-US", or "" when the locale is unset, C or POSIX.
func SystemLanguage() string {
	for _, name := range localeVars {
		if v := os.Getenv(name); v != "" {
			return FromLocale(v)
		}
	}
	return ""
}

// FromLocale converts a POSIX locale name like "de_AT.UTF-8@euro" to a
// BCP 47 tag like "de-AT". Returns "" for C, POSIX or unparsable names.
func FromLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return ""
	}

	base, _ := tag.Base()
	region, confidence := tag.Region()
	if confidence == language.Exact {
		return base.String() + "-" + region.String()
	}
	return base.String()
}
