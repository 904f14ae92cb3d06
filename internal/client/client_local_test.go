package client

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/nerrad567/langcheck/internal/engine"
	"github.com/nerrad567/langcheck/internal/enginetest"
	"github.com/nerrad567/langcheck/internal/process"
)

// localEngine returns an engine config that re-executes the test binary as
// the engine, with the archive in its own directory.
func localEngine(t *testing.T, mode string) engine.Config {
	t.Helper()
	java, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	archive := filepath.Join(dir, "languagetool-server.jar")
	if err := os.WriteFile(archive, []byte("jar"), 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	if port+20 > 65535 {
		port = 41000
	}

	return engine.Config{
		JavaPath:          java,
		ArchivePath:       archive,
		MinPort:           port,
		MaxPort:           port + 20,
		ReadyTimeout:      10 * time.Second,
		ReadyPollInterval: 20 * time.Millisecond,
		GracefulTimeout:   2 * time.Second,
		Env:               enginetest.Env(mode),
		Registry:          process.NewRegistry(),
	}
}

func newLocal(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLocal_CheckAndClose(t *testing.T) {
	c := newLocal(t, Options{Engine: localEngine(t, enginetest.ModeServe)})

	if c.Remote() {
		t.Fatal("Remote() = true for a local client")
	}
	if !strings.HasSuffix(c.URL(), "/v2/") {
		t.Errorf("URL() = %q, want .../v2/", c.URL())
	}

	got, err := c.Correct(context.Background(), "ain't nothin but a thang")
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if got != "Ain't nothing but a thing" {
		t.Errorf("Correct() = %q", got)
	}

	sup := c.Engine()
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sup.State() != engine.StateTerminated {
		t.Errorf("engine state after Close = %s, want %s", sup.State(), engine.StateTerminated)
	}
}

func TestLocal_ServerConfig(t *testing.T) {
	_, err := New(context.Background(), Options{
		Engine:       localEngine(t, enginetest.ModeServe),
		ServerConfig: map[string]any{"notAnOption": 1},
	})
	if err == nil {
		t.Fatal("New() with an unknown server option succeeded")
	}

	c := newLocal(t, Options{
		Engine:       localEngine(t, enginetest.ModeServe),
		ServerConfig: map[string]any{"cacheSize": 1000},
	})
	path := c.Engine().ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading engine config: %v", err)
	}
	if strings.TrimSpace(string(data)) != "cacheSize=1000" {
		t.Errorf("engine config = %q, want cacheSize=1000", data)
	}
}

func TestLocal_RestartOnTransportError(t *testing.T) {
	c := newLocal(t, Options{Engine: localEngine(t, enginetest.ModeCrashAfterPrefix+"1")})
	ctx := context.Background()

	if _, err := c.Check(ctx, "first"); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	// The engine dies while handling this one; the client restarts it.
	matches, err := c.Check(ctx, "This is awsome.")
	if err != nil {
		t.Fatalf("second Check() error = %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("len(matches) = %d, want 1", len(matches))
	}
	if gen := c.Engine().Generation(); gen != 2 {
		t.Errorf("Generation() = %d, want 2", gen)
	}
}

func TestLocal_GivesUpAfterMaxAttempts(t *testing.T) {
	c := newLocal(t, Options{Engine: localEngine(t, enginetest.ModeCrashAfterPrefix+"0")})

	_, err := c.Check(context.Background(), "text")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Check() error = %v, want *TransportError", err)
	}
	if gen := c.Engine().Generation(); gen != 2 {
		t.Errorf("Generation() = %d, want 2 (one restart)", gen)
	}
}

func TestLocal_DeadEngineRestartedBeforeUse(t *testing.T) {
	c := newLocal(t, Options{Engine: localEngine(t, enginetest.ModeServe)})
	sup := c.Engine()

	pid := sup.Stats().PID
	if pid <= 0 {
		t.Fatalf("Stats().PID = %d", pid)
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)

	deadline := time.Now().Add(5 * time.Second)
	for sup.Alive() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := c.Check(context.Background(), "Fine."); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if gen := sup.Generation(); gen != 2 {
		t.Errorf("Generation() = %d, want 2", gen)
	}
}

func writeSpellingFile(t *testing.T, cfg engine.Config, content string) string {
	t.Helper()
	path := filepath.Join(filepath.Dir(cfg.ArchivePath), spellingFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocal_Spellings(t *testing.T) {
	tests := []struct {
		name    string
		persist bool
		want    string
	}{
		{"removed on close", false, "existing\n"},
		{"persisted", true, "existing\nlangcheck\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := localEngine(t, enginetest.ModeServe)
			path := writeSpellingFile(t, cfg, "existing\n")

			c := newLocal(t, Options{
				Engine:           cfg,
				NewSpellings:     []string{"existing", "langcheck"},
				SpellingsPersist: tt.persist,
			})

			data, _ := os.ReadFile(path)
			if string(data) != "existing\nlangcheck\n" {
				t.Errorf("spelling file while open = %q", data)
			}

			if err := c.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			data, _ = os.ReadFile(path)
			if string(data) != tt.want {
				t.Errorf("spelling file after Close = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestLocal_SpellingFileMissing(t *testing.T) {
	_, err := New(context.Background(), Options{
		Language:     "en-US",
		Engine:       localEngine(t, enginetest.ModeServe),
		NewSpellings: []string{"word"},
	})
	if !errors.Is(err, ErrSpellingFileNotFound) {
		t.Errorf("New() error = %v, want ErrSpellingFileNotFound", err)
	}
}
