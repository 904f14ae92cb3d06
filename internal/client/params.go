package client

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"slices"
	"strings"

	"github.com/nerrad567/langcheck/internal/langtag"
)

// spellingCategory is the rule category holding spelling rules.
const spellingCategory = "TYPOS"

// stringSet is an unordered set of rule or category IDs.
type stringSet map[string]struct{}

func newStringSet(items ...string) stringSet {
	s := make(stringSet, len(items))
	for _, item := range items {
		if item != "" {
			s[item] = struct{}{}
		}
	}
	return s
}

// joined returns the items sorted and comma-separated.
func (s stringSet) joined() string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	slices.Sort(items)
	return strings.Join(items, ",")
}

func (s stringSet) clone() stringSet {
	out := make(stringSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// settings is the mutable request state of a Client.
type settings struct {
	language           langtag.Tag
	motherTongue       string
	disabledRules      stringSet
	enabledRules       stringSet
	disabledCategories stringSet
	enabledCategories  stringSet
	preferredVariants  stringSet
	enabledOnly        bool
	picky              bool
}

func newSettings() settings {
	return settings{
		disabledRules:      newStringSet(),
		enabledRules:       newStringSet(),
		disabledCategories: newStringSet(),
		enabledCategories:  newStringSet(),
		preferredVariants:  newStringSet(),
	}
}

// params builds the /v2/check query. Optional parameters are only present
// when they carry a value.
func (s *settings) params(text string) url.Values {
	q := url.Values{}
	q.Set("language", s.language.String())
	q.Set("text", text)

	if s.motherTongue != "" {
		q.Set("motherTongue", s.motherTongue)
	}
	if len(s.disabledRules) > 0 {
		q.Set("disabledRules", s.disabledRules.joined())
	}
	if len(s.enabledRules) > 0 {
		q.Set("enabledRules", s.enabledRules.joined())
	}
	if s.enabledOnly {
		q.Set("enabledOnly", "true")
	}
	if len(s.disabledCategories) > 0 {
		q.Set("disabledCategories", s.disabledCategories.joined())
	}
	if len(s.enabledCategories) > 0 {
		q.Set("enabledCategories", s.enabledCategories.joined())
	}
	if len(s.preferredVariants) > 0 {
		q.Set("preferredVariants", s.preferredVariants.joined())
	}
	if s.picky {
		q.Set("level", "picky")
	}
	return q
}

// CacheKey identifies a check request. Identical parameters give
// identical keys regardless of the order they were set in.
func CacheKey(params url.Values) string {
	sum := sha256.Sum256([]byte(params.Encode()))
	return hex.EncodeToString(sum[:])
}
