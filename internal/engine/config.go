package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/langcheck/internal/engineconfig"
	"github.com/nerrad567/langcheck/internal/ports"
	"github.com/nerrad567/langcheck/internal/process"
)

// ServerClass is the engine's HTTP server entry point.
const ServerClass = "org.languagetool.server.HTTPServer"

// Defaults for Config zero values.
const (
	defaultHost              = "127.0.0.1"
	defaultReadyTimeout      = 15 * time.Second
	defaultReadyPollInterval = 100 * time.Millisecond
	defaultProbeTimeout      = 500 * time.Millisecond
	defaultGracefulTimeout   = 5 * time.Second
)

// Fetcher makes the engine archive available on disk before the first launch.
type Fetcher interface {
	Fetch(ctx context.Context) error
}

// NoopFetcher assumes the archive is already installed.
type NoopFetcher struct{}

// Fetch does nothing.
func (NoopFetcher) Fetch(context.Context) error { return nil }

// Config holds the configuration for a locally supervised engine.
type Config struct {
	// JavaPath is the java executable. Looked up in PATH when empty.
	JavaPath string

	// JavaArgs are extra runtime arguments placed before -cp.
	JavaArgs []string

	// ArchivePath is the engine jar. Discovered via ArchiveDir/DownloadDir when empty.
	ArchivePath string

	// ArchiveDir is the directory holding the engine jar (LTP_JAR_DIR_PATH).
	ArchiveDir string

	// DownloadDir is the engine download cache (LTP_PATH). The newest
	// LanguageTool* directory inside it is used when ArchiveDir is empty.
	DownloadDir string

	// CheckRuntimeVersion runs `java -version` before the first launch and
	// rejects runtimes too old for EngineVersion.
	CheckRuntimeVersion bool

	// EngineVersion is the installed engine version, e.g. "6.6" or "latest".
	EngineVersion string

	// Host the engine listens on.
	Host string

	// MinPort and MaxPort bound the candidate port range [MinPort, MaxPort).
	MinPort int
	MaxPort int

	// MaxLaunchAttempts caps the ports tried per launch. 0 means until the
	// candidate pool is exhausted.
	MaxLaunchAttempts int

	// ReadyTimeout is how long a launch waits for the health endpoint.
	ReadyTimeout time.Duration

	// ReadyPollInterval is the delay between health probes.
	ReadyPollInterval time.Duration

	// ProbeTimeout bounds each health probe.
	ProbeTimeout time.Duration

	// GracefulTimeout is how long termination waits before SIGKILL.
	GracefulTimeout time.Duration

	// MaxRestarts bounds restarts over the supervisor's life. 0 means unlimited.
	MaxRestarts int

	// ServerConfig, if set, is written to a temp file and passed with --config.
	ServerConfig *engineconfig.Config

	// Env are additional environment variables for the engine process.
	Env []string

	// CaptureOutput drains engine stdout/stderr into the logger instead of
	// discarding it.
	CaptureOutput bool

	// Fetcher runs before the first launch. Defaults to NoopFetcher.
	Fetcher Fetcher

	// Registry tracks the engine process for kill-at-exit.
	// Defaults to process.DefaultRegistry().
	Registry *process.Registry

	// OnStart is called after the engine became ready.
	OnStart func(port, pid int)

	// OnStop is called when an engine that became ready is torn down by
	// Restart or Stop. Ports that fail the readiness check do not fire it.
	OnStop func(err error)

	// OnRestart is called after a successful restart with the new generation.
	OnRestart func(generation int)
}

// applyDefaults fills zero values.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.MinPort == 0 && c.MaxPort == 0 {
		c.MinPort = ports.DefaultMinPort
		c.MaxPort = ports.DefaultMaxPort
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	if c.ReadyPollInterval == 0 {
		c.ReadyPollInterval = defaultReadyPollInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.GracefulTimeout == 0 {
		c.GracefulTimeout = defaultGracefulTimeout
	}
	if c.Fetcher == nil {
		c.Fetcher = NoopFetcher{}
	}
	if c.Registry == nil {
		c.Registry = process.DefaultRegistry()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MinPort <= 0 || c.MaxPort > 65536 || c.MaxPort <= c.MinPort {
		errs = append(errs, fmt.Sprintf("port range [%d, %d) is invalid", c.MinPort, c.MaxPort))
	}
	if c.ReadyTimeout < 0 || c.ReadyPollInterval < 0 || c.ProbeTimeout < 0 || c.GracefulTimeout < 0 {
		errs = append(errs, "timeouts must not be negative")
	}
	if c.MaxRestarts < 0 {
		errs = append(errs, "max restarts must not be negative")
	}
	if c.MaxLaunchAttempts < 0 {
		errs = append(errs, "max launch attempts must not be negative")
	}
	if strings.ContainsAny(c.Host, "/ ") {
		errs = append(errs, fmt.Sprintf("host %q is invalid", c.Host))
	}

	if len(errs) > 0 {
		return fmt.Errorf("engine configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BuildArgs returns the java arguments for launching the server on port.
func (c *Config) BuildArgs(archive string, port int, configPath string) []string {
	args := make([]string, 0, len(c.JavaArgs)+7)
	args = append(args, c.JavaArgs...)
	args = append(args, "-cp", archive, ServerClass, "-p", fmt.Sprint(port))
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}
