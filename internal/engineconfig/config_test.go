package engineconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_Empty(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("New(nil) error = %v, want ErrEmpty", err)
	}
	if _, err := New(map[string]any{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("New({}) error = %v, want ErrEmpty", err)
	}
}

func TestNew_Encoding(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{"int", "maxTextLength", 5000, "5000"},
		{"int from yaml float", "cacheSize", float64(100), "100"},
		{"int from string", "maxCheckThreads", "4", "4"},
		{"float", "maxErrorsPerWordRate", 0.5, "0.5"},
		{"bool true", "premiumOnly", true, "true"},
		{"bool false", "pipelineCaching", false, "false"},
		{"bool from string", "pipelinePrewarming", "TRUE", "true"},
		{"list of strings", "disabledRuleIds", []string{"A", "B"}, "A,B"},
		{"list from yaml", "blockedReferrers", []any{"x.com", "y.org"}, "x.com,y.org"},
		{"list passthrough", "disabledRuleIds", "A,B", "A,B"},
		{"language override", "lang-en", "English", "English"},
		{"variant override", "lang-de-AT", "German", "German"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := New(map[string]any{tt.key: tt.value})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			entries := cfg.Entries()
			if len(entries) != 1 {
				t.Fatalf("Entries() len = %d, want 1", len(entries))
			}
			if entries[0].Value != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, entries[0].Value, tt.want)
			}
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
	}{
		{"unknown key", map[string]any{"maxFoo": 1}, ErrUnknownKey},
		{"bad language pattern", map[string]any{"lang-english": "x"}, ErrUnknownKey},
		{"int wrong type", map[string]any{"maxTextLength": true}, ErrInvalidValue},
		{"int fractional", map[string]any{"maxTextLength": 1.5}, ErrInvalidValue},
		{"negative int", map[string]any{"cacheSize": -1}, ErrInvalidValue},
		{"zero threads", map[string]any{"maxCheckThreads": 0}, ErrInvalidValue},
		{"bool wrong type", map[string]any{"premiumOnly": 1}, ErrInvalidValue},
		{"list with comma", map[string]any{"disabledRuleIds": []string{"A,B"}}, ErrInvalidValue},
		{"missing path", map[string]any{"rulesFile": "/nonexistent/rules.xml"}, ErrInvalidValue},
		{"missing dict path", map[string]any{"lang-en-dictPath": "/nonexistent/en.dict"}, ErrInvalidValue},
		{"multiline string", map[string]any{"lang-en": "a\nb"}, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.values)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_ReportsAllErrors(t *testing.T) {
	_, err := New(map[string]any{
		"bogus":         1,
		"maxTextLength": "many",
	})
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("error = %v, want ErrUnknownKey", err)
	}
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("error = %v, want ErrInvalidValue", err)
	}
}

func TestNew_ExistingPath(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.xml")
	if err := os.WriteFile(rules, []byte("<rules/>"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := New(map[string]any{"rulesFile": rules, "lang-en-dictPath": rules})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(cfg.Entries()) != 2 {
		t.Errorf("Entries() len = %d, want 2", len(cfg.Entries()))
	}
}

func TestEncode_SortedLines(t *testing.T) {
	cfg, err := New(map[string]any{
		"maxTextLength":   100,
		"disabledRuleIds": []string{"X", "Y"},
		"premiumOnly":     false,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := "disabledRuleIds=X,Y\nmaxTextLength=100\npremiumOnly=false\n"
	if got := string(cfg.Encode()); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestWriteTempAndRemove(t *testing.T) {
	cfg, err := New(map[string]any{"maxTextLength": 100})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	dir := t.TempDir()
	path, err := cfg.WriteTemp(dir)
	if err != nil {
		t.Fatalf("WriteTemp() error = %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("WriteTemp() path = %q, want inside %q", path, dir)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}
	if string(data) != "maxTextLength=100\n" {
		t.Errorf("file contents = %q", data)
	}

	// Rewriting replaces the old file.
	second, err := cfg.WriteTemp(dir)
	if err != nil {
		t.Fatalf("second WriteTemp() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) && path != second {
		t.Errorf("old config file %q still exists", path)
	}

	if err := cfg.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Errorf("config file %q still exists after Remove", second)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q after Remove, want empty", cfg.Path())
	}
	if err := cfg.Remove(); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		key    string
		want   Kind
		wantOK bool
	}{
		{"maxTextLength", KindInt, true},
		{"premiumOnly", KindBool, true},
		{"rulesFile", KindPath, true},
		{"lang-fr", KindString, true},
		{"lang-fr-dictPath", KindPath, true},
		{"nope", "", false},
	}
	for _, tt := range tests {
		got, ok := KindOf(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("KindOf(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}
