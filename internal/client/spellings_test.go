package client

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestRegisterSpellings(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		words     []string
		wantAdded []string
		wantFile  string
	}{
		{"append", "a\nb\n", []string{"c"}, []string{"c"}, "a\nb\nc\n"},
		{"missing newline", "a", []string{"b"}, []string{"b"}, "a\nb\n"},
		{"skips existing", "a\n", []string{"a", " ", "b", "b"}, []string{"b"}, "a\nb\n"},
		{"nothing new", "a\n", []string{"a"}, nil, "a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "spelling.txt")
			if err := os.WriteFile(path, []byte(tt.initial), 0o600); err != nil {
				t.Fatal(err)
			}

			added, err := RegisterSpellings(path, tt.words)
			if err != nil {
				t.Fatalf("RegisterSpellings() error = %v", err)
			}
			if !slices.Equal(added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			data, _ := os.ReadFile(path)
			if string(data) != tt.wantFile {
				t.Errorf("file = %q, want %q", data, tt.wantFile)
			}
		})
	}
}

func TestUnregisterSpellings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spelling.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := UnregisterSpellings(path, []string{"b", "missing"}); err != nil {
		t.Fatalf("UnregisterSpellings() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a\nc\n" {
		t.Errorf("file = %q, want %q", data, "a\nc\n")
	}
}

func TestSpellingFilePath(t *testing.T) {
	dir := t.TempDir()
	if _, err := SpellingFilePath(dir); err == nil {
		t.Error("SpellingFilePath() on empty dir succeeded")
	}

	want := filepath.Join(dir, spellingFile)
	if err := os.MkdirAll(filepath.Dir(want), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := SpellingFilePath(dir)
	if err != nil || got != want {
		t.Errorf("SpellingFilePath() = %q, %v, want %q", got, err, want)
	}
}
