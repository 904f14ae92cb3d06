package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/langcheck/internal/ports"
	"github.com/nerrad567/langcheck/internal/process"
)

// State is the lifecycle state of a supervised engine.
type State string

const (
	StateUnstarted  State = "unstarted"
	StateStarting   State = "starting"
	StateReady      State = "ready"
	StateAlive      State = "alive"
	StateCrashed    State = "crashed"
	StateTerminated State = "terminated"
)

// healthPath is probed until the engine answers with a 2xx.
const healthPath = "/healthcheck"

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor owns one locally launched engine server at a time.
//
// The process is never watched in the background: Alive checks its exit
// status on demand, and a caller that sees a transport failure asks for a
// Restart with the generation it was using. A single mutex serialises
// Start, Restart and Stop.
type Supervisor struct {
	config Config
	logger Logger
	pool   *ports.Pool
	probe  *http.Client

	mu         sync.Mutex
	state      State
	install    Installation
	proc       *process.Manager
	port       int
	configPath string
	generation int
	restarts   int
	startTime  time.Time
	lastErr    error
}

// New creates a supervisor. Nothing is launched until Start.
func New(cfg Config) (*Supervisor, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return &Supervisor{
		config: cfg,
		logger: noopLogger{},
		pool:   ports.NewPool(cfg.MinPort, cfg.MaxPort),
		probe:  &http.Client{Timeout: cfg.ProbeTimeout},
		state:  StateUnstarted,
	}, nil
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Start fetches and locates the engine, then launches it.
// It blocks until the engine is ready or every candidate port failed.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUnstarted:
	case StateTerminated:
		return ErrTerminated
	default:
		return ErrAlreadyStarted
	}

	if err := s.config.Fetcher.Fetch(ctx); err != nil {
		return fmt.Errorf("fetching engine: %w", err)
	}

	install, err := Locate(s.config)
	if err != nil {
		s.lastErr = err
		return err
	}
	if s.config.CheckRuntimeVersion {
		if err := CheckRuntime(ctx, install.Java, s.config.EngineVersion); err != nil {
			s.lastErr = err
			return err
		}
	}
	s.install = install

	return s.launchLocked(ctx)
}

// launchLocked walks the port pool until an engine becomes ready.
func (s *Supervisor) launchLocked(ctx context.Context) error {
	s.state = StateStarting

	if s.config.ServerConfig != nil {
		path, err := s.config.ServerConfig.WriteTemp("")
		if err != nil {
			s.state = StateCrashed
			s.lastErr = err
			return err
		}
		s.configPath = path
	}

	var lastErr error
	attempts := 0
	for {
		if s.config.MaxLaunchAttempts > 0 && attempts >= s.config.MaxLaunchAttempts {
			break
		}
		port, ok := s.pool.Reserve()
		if !ok {
			break
		}
		attempts++

		if err := ports.Check(s.config.Host, port); err != nil {
			lastErr = &LaunchError{Host: s.config.Host, Port: port, Err: fmt.Errorf("%w: %v", ErrPortInUse, err)}
			s.logger.Debug("skipping busy port", "port", port)
			continue
		}

		err := s.launchOn(ctx, port)
		if err == nil {
			s.generation++
			s.lastErr = nil
			return nil
		}

		lastErr = &LaunchError{Host: s.config.Host, Port: port, Err: err}
		if ctx.Err() != nil || !isPortError(err) {
			s.failLocked(lastErr)
			return lastErr
		}
		s.logger.Warn("engine launch failed, trying next port", "port", port, "error", err)
	}

	err := fmt.Errorf("%w after %d attempts", ErrServerNotStarted, attempts)
	if lastErr != nil {
		err = fmt.Errorf("%w after %d attempts: %w", ErrServerNotStarted, attempts, lastErr)
	}
	s.failLocked(err)
	return err
}

func (s *Supervisor) failLocked(err error) {
	s.state = StateCrashed
	s.lastErr = err
	s.removeConfigLocked()
}

// launchOn starts one process on port and waits for it to become ready.
// The process is torn down again on failure.
func (s *Supervisor) launchOn(ctx context.Context, port int) error {
	proc := process.NewManager(process.Config{
		Name:            "languagetool",
		Binary:          s.install.Java,
		Args:            s.config.BuildArgs(s.install.Archive, port, s.configPath),
		Env:             s.config.Env,
		CaptureOutput:   s.config.CaptureOutput,
		GracefulTimeout: s.config.GracefulTimeout,
		Registry:        s.config.Registry,
	})
	proc.SetLogger(s.logger)

	if err := proc.Start(); err != nil {
		return err
	}

	if err := s.waitForReady(ctx, proc, port); err != nil {
		if stopErr := proc.Stop(); stopErr != nil {
			s.logger.Warn("error stopping engine after failed readiness check", "error", stopErr)
		}
		return err
	}

	s.state = StateReady
	s.proc = proc
	s.port = port
	s.startTime = time.Now()

	s.logger.Info("engine ready", "url", s.urlLocked(), "pid", proc.PID())
	if s.config.OnStart != nil {
		s.config.OnStart(port, proc.PID())
	}
	s.state = StateAlive
	return nil
}

// waitForReady probes the health endpoint until it answers, the process
// exits, or the readiness timeout elapses.
func (s *Supervisor) waitForReady(ctx context.Context, proc *process.Manager, port int) error {
	url := "http://" + net.JoinHostPort(s.config.Host, strconv.Itoa(port)) + healthPath
	deadline := time.Now().Add(s.config.ReadyTimeout)

	s.logger.Debug("waiting for engine to be ready", "url", url)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for engine: %w", ctx.Err())
		default:
		}

		if !proc.Alive() {
			return &ExitedEarlyError{Code: proc.ExitCode()}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %v", ErrNotReady, url, s.config.ReadyTimeout)
		}

		if s.healthy(ctx, url) {
			return nil
		}

		select {
		case <-ctx.Done():
		case <-proc.Exited():
		case <-time.After(s.config.ReadyPollInterval):
		}
	}
}

func (s *Supervisor) healthy(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Alive reports, at this instant, whether the engine process is running.
// A dead process moves the supervisor to StateCrashed.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked()
}

func (s *Supervisor) aliveLocked() bool {
	if s.proc == nil {
		return false
	}
	if s.proc.Alive() {
		return true
	}
	if s.state == StateAlive || s.state == StateReady {
		s.state = StateCrashed
		s.lastErr = fmt.Errorf("engine process exited with code %d", s.proc.ExitCode())
		s.logger.Warn("engine process is no longer running", "exit_code", s.proc.ExitCode())
	}
	return false
}

// Generation identifies the current engine process. It increases by one
// with every successful launch.
func (s *Supervisor) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Restart replaces the engine the caller observed as generation.
//
// If another caller already restarted it (the generation moved on) Restart
// returns nil without doing anything. The old process and its config file
// are released before the new one is launched.
func (s *Supervisor) Restart(ctx context.Context, generation int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateTerminated:
		return ErrTerminated
	case StateUnstarted:
		return errors.New("engine: restart before start")
	}
	if generation != s.generation {
		s.logger.Debug("engine already restarted", "seen", generation, "current", s.generation)
		return nil
	}
	if s.config.MaxRestarts > 0 && s.restarts >= s.config.MaxRestarts {
		return fmt.Errorf("%w (%d)", ErrRestartLimit, s.config.MaxRestarts)
	}

	s.restarts++
	s.aliveLocked()
	s.state = StateCrashed
	s.logger.Info("restarting engine", "generation", s.generation, "restarts", s.restarts)

	s.releaseLocked()
	if err := s.launchLocked(ctx); err != nil {
		return err
	}

	if s.config.OnRestart != nil {
		s.config.OnRestart(s.generation)
	}
	return nil
}

// releaseLocked stops the current process and removes its config file.
func (s *Supervisor) releaseLocked() {
	if err := s.stopProcLocked(); err != nil {
		s.logger.Warn("error stopping engine", "error", err)
	}
	s.port = 0
	s.removeConfigLocked()
}

// stopProcLocked tears down the engine that last became ready and fires
// OnStop. Processes that never passed the readiness check are stopped in
// launchOn and do not reach here.
func (s *Supervisor) stopProcLocked() error {
	if s.proc == nil {
		return nil
	}
	err := s.proc.Stop()
	s.proc = nil
	if s.config.OnStop != nil {
		s.config.OnStop(err)
	}
	return err
}

func (s *Supervisor) removeConfigLocked() {
	if s.configPath == "" {
		return
	}
	if err := s.config.ServerConfig.Remove(); err != nil {
		s.logger.Warn("error removing engine config file", "path", s.configPath, "error", err)
	}
	s.configPath = ""
}

// Stop terminates the engine and releases every resource. Idempotent.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminated {
		return nil
	}

	if s.proc != nil {
		s.logger.Info("stopping engine", "port", s.port)
	}
	err := s.stopProcLocked()
	s.removeConfigLocked()
	s.state = StateTerminated
	return err
}

// URL returns the engine's base URL, e.g. http://127.0.0.1:8081/.
// Empty when no engine is running.
func (s *Supervisor) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlLocked()
}

func (s *Supervisor) urlLocked() string {
	if s.port == 0 {
		return ""
	}
	return "http://" + net.JoinHostPort(s.config.Host, strconv.Itoa(s.port)) + "/"
}

// Port returns the port of the running engine, or 0.
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ArchiveDir returns the directory of the located engine installation.
func (s *Supervisor) ArchiveDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.install.ArchiveDir
}

// ConfigPath returns the config file handed to the running engine, if any.
func (s *Supervisor) ConfigPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configPath
}

// Stats holds statistics about the supervised engine.
type Stats struct {
	State      State         `json:"state"`
	URL        string        `json:"url,omitempty"`
	Port       int           `json:"port,omitempty"`
	PID        int           `json:"pid,omitempty"`
	Uptime     time.Duration `json:"uptime,omitempty"`
	Generation int           `json:"generation"`
	Restarts   int           `json:"restarts"`
	LastError  string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the engine.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		State:      s.state,
		URL:        s.urlLocked(),
		Port:       s.port,
		Generation: s.generation,
		Restarts:   s.restarts,
	}
	if s.proc != nil {
		stats.PID = s.proc.PID()
		if s.state == StateAlive {
			stats.Uptime = time.Since(s.startTime)
		}
	}
	if s.lastErr != nil {
		stats.LastError = s.lastErr.Error()
	}
	return stats
}

// IsTerminal reports whether err means no further launch will succeed.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrServerNotStarted) || errors.Is(err, ErrRestartLimit) || errors.Is(err, ErrTerminated)
}
