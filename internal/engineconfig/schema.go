package engineconfig

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the value type an option expects.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindPath   Kind = "path"
	KindString Kind = "string"
)

// option describes how one key is encoded and checked.
type option struct {
	kind     Kind
	validate func(string) error
}

// options lists every recognised engine server option.
var options = map[string]option{
	"maxTextLength":               {kind: KindInt, validate: nonNegative},
	"maxTextHardLength":           {kind: KindInt, validate: nonNegative},
	"maxCheckTimeMillis":          {kind: KindInt, validate: nonNegative},
	"maxErrorsPerWordRate":        {kind: KindFloat},
	"maxSpellingSuggestions":      {kind: KindInt, validate: nonNegative},
	"maxCheckThreads":             {kind: KindInt, validate: positive},
	"cacheSize":                   {kind: KindInt, validate: nonNegative},
	"cacheTTLSeconds":             {kind: KindInt, validate: nonNegative},
	"requestLimit":                {kind: KindInt, validate: nonNegative},
	"requestLimitInBytes":         {kind: KindInt, validate: nonNegative},
	"timeoutRequestLimit":         {kind: KindInt, validate: nonNegative},
	"requestLimitPeriodInSeconds": {kind: KindInt, validate: nonNegative},
	"languageModel":               {kind: KindPath, validate: pathExists},
	"fasttextModel":               {kind: KindPath, validate: pathExists},
	"fasttextBinary":              {kind: KindPath, validate: pathExists},
	"maxWorkQueueSize":            {kind: KindInt, validate: nonNegative},
	"rulesFile":                   {kind: KindPath, validate: pathExists},
	"blockedReferrers":            {kind: KindList},
	"premiumOnly":                 {kind: KindBool},
	"disabledRuleIds":             {kind: KindList},
	"pipelineCaching":             {kind: KindBool},
	"maxPipelinePoolSize":         {kind: KindInt, validate: nonNegative},
	"pipelineExpireTimeInSeconds": {kind: KindInt, validate: nonNegative},
	"pipelinePrewarming":          {kind: KindBool},
}

var (
	langNamePattern = regexp.MustCompile(`^lang-[a-z]{2,3}(?:-[A-Z]{2})?$`)
	langDictPattern = regexp.MustCompile(`^lang-[a-z]{2,3}(?:-[A-Z]{2})?-dictPath$`)
)

// lookup returns the option for key, including per-language overrides.
func lookup(key string) (option, bool) {
	if opt, ok := options[key]; ok {
		return opt, true
	}
	switch {
	case langDictPattern.MatchString(key):
		return option{kind: KindPath, validate: pathExists}, true
	case langNamePattern.MatchString(key):
		return option{kind: KindString}, true
	}
	return option{}, false
}

// KindOf reports the kind expected for key.
func KindOf(key string) (Kind, bool) {
	opt, ok := lookup(key)
	return opt.kind, ok
}

// encode converts a decoded value (from YAML or Go code) to its file form.
func encode(kind Kind, v any) (string, error) {
	switch kind {
	case KindInt:
		return encodeInt(v)
	case KindFloat:
		return encodeFloat(v)
	case KindBool:
		return encodeBool(v)
	case KindList:
		return encodeList(v)
	case KindPath, KindString:
		s, ok := v.(string)
		if !ok || s == "" {
			return "", fmt.Errorf("expected non-empty string, got %T", v)
		}
		if strings.ContainsAny(s, "\r\n") {
			return "", fmt.Errorf("value must be a single line")
		}
		return s, nil
	}
	return "", fmt.Errorf("unsupported kind %q", kind)
}

func encodeInt(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return "", fmt.Errorf("expected integer, got %v", n)
		}
		return strconv.FormatInt(int64(n), 10), nil
	case string:
		if _, err := strconv.ParseInt(n, 10, 64); err != nil {
			return "", fmt.Errorf("expected integer, got %q", n)
		}
		return n, nil
	}
	return "", fmt.Errorf("expected integer, got %T", v)
}

func encodeFloat(v any) (string, error) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case string:
		if _, err := strconv.ParseFloat(n, 64); err != nil {
			return "", fmt.Errorf("expected number, got %q", n)
		}
		return n, nil
	}
	return "", fmt.Errorf("expected number, got %T", v)
}

func encodeBool(v any) (string, error) {
	switch b := v.(type) {
	case bool:
		return strconv.FormatBool(b), nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return "", fmt.Errorf("expected boolean, got %q", b)
		}
		return strconv.FormatBool(parsed), nil
	}
	return "", fmt.Errorf("expected boolean, got %T", v)
}

func encodeList(v any) (string, error) {
	var items []string
	switch l := v.(type) {
	case string:
		return l, nil
	case []string:
		items = l
	case []any:
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("expected list of strings, found %T", item)
			}
			items = append(items, s)
		}
	default:
		return "", fmt.Errorf("expected list of strings, got %T", v)
	}
	for _, item := range items {
		if strings.Contains(item, ",") {
			return "", fmt.Errorf("list item %q contains a comma", item)
		}
	}
	return strings.Join(items, ","), nil
}

func nonNegative(s string) error {
	n, _ := strconv.ParseInt(s, 10, 64)
	if n < 0 {
		return fmt.Errorf("must be >= 0, got %d", n)
	}
	return nil
}

func positive(s string) error {
	n, _ := strconv.ParseInt(s, 10, 64)
	if n <= 0 {
		return fmt.Errorf("must be > 0, got %d", n)
	}
	return nil
}

func pathExists(s string) error {
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("path %q: %w", s, err)
	}
	return nil
}
