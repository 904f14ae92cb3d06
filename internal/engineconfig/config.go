package engineconfig

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Entry is one encoded key=value pair.
type Entry struct {
	Key   string
	Value string
}

// Config is a validated set of engine server options.
//
// It owns at most one file on disk, created by WriteTemp and deleted by
// Remove.
type Config struct {
	entries []Entry

	mu   sync.Mutex
	path string
}

// New validates values and encodes them.
// Every offending key is reported; the returned error wraps ErrUnknownKey
// and/or ErrInvalidValue.
func New(values map[string]any) (*Config, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		opt, ok := lookup(key)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownKey, key))
			continue
		}
		encoded, err := encode(opt.kind, values[key])
		if err == nil && opt.validate != nil {
			err = opt.validate(encoded)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err))
			continue
		}
		entries = append(entries, Entry{Key: key, Value: encoded})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Config{entries: entries}, nil
}

// Entries returns the encoded pairs sorted by key.
func (c *Config) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Encode renders the config as key=value lines.
func (c *Config) Encode() []byte {
	var b strings.Builder
	for _, e := range c.entries {
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// WriteTemp writes the config to a new file in dir (the system temp
// directory when empty) and returns its path. A previously written file is
// removed first.
func (c *Config) WriteTemp(dir string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		_ = os.Remove(c.path) // Best-effort: replaced below.
		c.path = ""
	}

	f, err := os.CreateTemp(dir, "langcheck-engine-*.cfg")
	if err != nil {
		return "", fmt.Errorf("creating config file: %w", err)
	}
	if _, err := f.Write(c.Encode()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing config file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing config file: %w", err)
	}

	c.path = f.Name()
	return c.path, nil
}

// Path returns the file written by WriteTemp, or "" if none exists.
func (c *Config) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Remove deletes the file written by WriteTemp. Safe to call repeatedly.
func (c *Config) Remove() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil
	}
	err := os.Remove(c.path)
	c.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing config file: %w", err)
	}
	return nil
}
