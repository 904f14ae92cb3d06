package main

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/langcheck/internal/checkcache"
	"github.com/nerrad567/langcheck/internal/client"
	"github.com/nerrad567/langcheck/internal/enginetest"
	"github.com/nerrad567/langcheck/internal/infrastructure/database"
	"github.com/nerrad567/langcheck/internal/infrastructure/influxdb"
	"github.com/nerrad567/langcheck/internal/infrastructure/logging"
	"github.com/nerrad567/langcheck/migrations"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "langcheck.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("LANGCHECK_CONFIG", "/nonexistent/path/langcheck.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with a missing config file")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want a config error", err)
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("LANGCHECK_CONFIG", writeConfig(t, `
remote:
  url: "http://127.0.0.1:1"
database:
  path: ""
logging:
  level: error
  format: text
`))
	t.Setenv("LANGCHECK_DATABASE_PATH", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a database path")
	}
}

// A remote engine with MQTT disabled runs until the context ends.
func TestRun_RemoteWithoutMQTT(t *testing.T) {
	srv := httptest.NewServer(enginetest.New())
	t.Cleanup(srv.Close)

	dbPath := filepath.Join(t.TempDir(), "langcheck.db")
	t.Setenv("LANGCHECK_CONFIG", writeConfig(t, fmt.Sprintf(`
remote:
  url: %q
check:
  language: en-US
database:
  path: %q
  wal_mode: true
  busy_timeout: 5
cache:
  enabled: true
  ttl: 60
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
`, srv.URL, dbPath)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("LANGCHECK_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("LANGCHECK_CONFIG", "/etc/langcheck.yaml")
	if got := getConfigPath(); got != "/etc/langcheck.yaml" {
		t.Errorf("getConfigPath() = %q, want /etc/langcheck.yaml", got)
	}
}

func TestEngineHooks(t *testing.T) {
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "events.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	events := checkcache.NewEventLog(db.DB)
	hooks := newEngineHooks(logging.Default(), events, nil)

	hooks.onStart(8123, 4242)
	hooks.onStop(errors.New("signal: killed"))
	hooks.onStart(8456, 4343)
	hooks.onRestart(2)

	got, err := events.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("recorded %d events, want 4", len(got))
	}

	// Newest first; events recorded in the same millisecond fall back to id order.
	wantEvents := []string{influxdb.EventRestarted, influxdb.EventStarted, influxdb.EventStopped, influxdb.EventStarted}
	wantGens := []int{2, 2, 1, 1}
	for i := range got {
		if got[i].Event != wantEvents[i] || got[i].Generation != wantGens[i] {
			t.Errorf("event[%d] = %s gen %d, want %s gen %d",
				i, got[i].Event, got[i].Generation, wantEvents[i], wantGens[i])
		}
	}
	if got[2].Detail != "signal: killed" {
		t.Errorf("stop detail = %q, want signal: killed", got[2].Detail)
	}

	select {
	case <-hooks.changes():
	default:
		t.Error("no change signalled")
	}
	select {
	case <-hooks.changes():
		t.Error("changes did not coalesce")
	default:
	}
}

func TestEngineStatus_Remote(t *testing.T) {
	srv := httptest.NewServer(enginetest.New())
	t.Cleanup(srv.Close)

	c, err := client.New(context.Background(), client.Options{RemoteURL: srv.URL, Language: "en"})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	defer c.Close()

	status := engineStatus(c)
	if !status.Remote {
		t.Error("Remote = false")
	}
	if status.Engine != nil {
		t.Errorf("Engine = %+v, want nil for a remote engine", status.Engine)
	}
	if !strings.HasPrefix(status.URL, srv.URL) {
		t.Errorf("URL = %q, want prefix %q", status.URL, srv.URL)
	}
}
