package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/langcheck/internal/enginetest"
	"github.com/nerrad567/langcheck/internal/match"
)

// execute runs the CLI against a fake remote engine.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LANGCHECK_CONFIG", "")

	srv := httptest.NewServer(enginetest.New())
	t.Cleanup(srv.Close)

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--remote", srv.URL, "--language", "en-US"))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), err
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "This is awsome.", "check")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}

	want := "1:9: Possible spelling mistake found. [" + enginetest.RuleSpelling + "]\n" +
		"    suggestion: awesome\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestCheck_JSON(t *testing.T) {
	out, err := execute(t, "ain't nothin but a thang", "check", "--json")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}

	var matches []match.Match
	if err := json.Unmarshal([]byte(out), &matches); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if len(matches) != 3 {
		t.Errorf("len(matches) = %d, want 3", len(matches))
	}
}

func TestCheck_CleanJSONIsEmptyArray(t *testing.T) {
	out, err := execute(t, "Everything is fine.", "check", "--json")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("output = %q, want []", out)
	}
}

func TestCheck_Fail(t *testing.T) {
	_, err := execute(t, "This is awsome.", "check", "--fail")
	if !errors.Is(err, errProblemsFound) {
		t.Fatalf("check --fail error = %v, want errProblemsFound", err)
	}
	if exitCode(err) != 2 {
		t.Errorf("exitCode() = %d, want 2", exitCode(err))
	}

	if _, err := execute(t, "Everything is fine.", "check", "--fail"); err != nil {
		t.Errorf("check --fail on clean text error = %v", err)
	}
}

func TestCheck_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("Everything is fine.\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("This is awsome.\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "check", a, b)
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !strings.HasPrefix(out, "2:9: ") {
		t.Errorf("output = %q, want the match on line 2, column 9", out)
	}

	if _, err := execute(t, "", "check", filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("check of a missing file error = nil")
	}
}

func TestCorrect(t *testing.T) {
	out, err := execute(t, "ain't nothin but a thang", "correct")
	if err != nil {
		t.Fatalf("correct error = %v", err)
	}
	if out != "Ain't nothing but a thing" {
		t.Errorf("output = %q, want %q", out, "Ain't nothing but a thing")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Everything is fine.", "correct"},
		{"This is awsome.", "faulty"},
		{"Cz qwrtzp.", "garbage"},
	}

	for _, tt := range tests {
		out, err := execute(t, tt.text, "classify")
		if err != nil {
			t.Fatalf("classify(%q) error = %v", tt.text, err)
		}
		if strings.TrimSpace(out) != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.text, strings.TrimSpace(out), tt.want)
		}
	}
}

func TestLanguages(t *testing.T) {
	out, err := execute(t, "", "languages")
	if err != nil {
		t.Fatalf("languages error = %v", err)
	}

	want := "auto\nde\nde-DE\nen\nen-GB\nen-US\nfr\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	t.Setenv("LANGCHECK_CONFIG", "")
	srv := httptest.NewServer(enginetest.New())
	t.Cleanup(srv.Close)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"check", "--remote", srv.URL, "--language", "xx"})
	cmd.SetIn(strings.NewReader("text"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("check with an unsupported language error = nil")
	}
	if exitCode(err) != 1 {
		t.Errorf("exitCode() = %d, want 1", exitCode(err))
	}
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	t.Setenv("LANGCHECK_CONFIG", "")
	path := filepath.Join(t.TempDir(), "langcheck.yaml")
	content := `
check:
  language: de-DE
  disabled_rules: [A]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	flags := &rootFlags{
		configPath:    path,
		language:      "en-GB",
		disabledRules: []string{"B"},
		noSpellcheck:  true,
		publicAPI:     true,
	}
	cfg, err := flags.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Check.Language != "en-GB" {
		t.Errorf("Language = %q, want en-GB", cfg.Check.Language)
	}
	if got := strings.Join(cfg.Check.DisabledRules, ","); got != "A,B" {
		t.Errorf("DisabledRules = %q, want A,B", got)
	}
	if cfg.Check.Spellcheck {
		t.Error("Spellcheck = true, want false")
	}
	if !cfg.Remote.PublicAPI {
		t.Error("PublicAPI = false, want true")
	}
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&stdout)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "langcheck dev") {
		t.Errorf("output = %q", stdout.String())
	}
}
