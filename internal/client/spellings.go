package client

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// spellingFile is the engine's English spelling list, relative to the
// engine installation directory.
var spellingFile = filepath.Join("org", "languagetool", "resource", "en", "hunspell", "spelling.txt")

// SpellingFilePath returns the spelling list inside an engine directory.
func SpellingFilePath(engineDir string) (string, error) {
	path := filepath.Join(engineDir, spellingFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSpellingFileNotFound, path)
		}
		return "", fmt.Errorf("checking spelling file: %w", err)
	}
	return path, nil
}

// readLines returns the raw contents and trimmed lines of path.
func readLines(path string) ([]byte, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	return data, lines, scanner.Err()
}

// RegisterSpellings appends words missing from the spelling list at path
// and returns the ones it actually added.
func RegisterSpellings(path string, words []string) ([]string, error) {
	data, lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("reading spelling file: %w", err)
	}

	existing := make(map[string]bool, len(lines))
	for _, l := range lines {
		existing[l] = true
	}

	var added []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || existing[w] {
			continue
		}
		existing[w] = true
		added = append(added, w)
	}
	if len(added) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening spelling file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		b.WriteByte('\n')
	}
	for _, w := range added {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return nil, fmt.Errorf("writing spelling file: %w", err)
	}
	return added, nil
}

// UnregisterSpellings removes words from the spelling list at path.
func UnregisterSpellings(path string, words []string) error {
	if len(words) == 0 {
		return nil
	}
	_, lines, err := readLines(path)
	if err != nil {
		return fmt.Errorf("reading spelling file: %w", err)
	}

	remove := make(map[string]bool, len(words))
	for _, w := range words {
		remove[w] = true
	}

	var b strings.Builder
	for _, l := range lines {
		if remove[l] {
			continue
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil { //nolint:gosec // engine data file, not a secret
		return fmt.Errorf("writing spelling file: %w", err)
	}
	return nil
}
