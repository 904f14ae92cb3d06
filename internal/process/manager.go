package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

// Status represents the current state of a managed process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
	StatusFailed   Status = "failed"
)

// Timeouts used during teardown.
const (
	// drainJoinTimeout bounds how long Stop waits for the output drain to finish.
	drainJoinTimeout = 5 * time.Second

	// killWaitTimeout bounds how long Stop waits for exit after SIGKILL.
	killWaitTimeout = 5 * time.Second

	// descendantLookupTimeout bounds the /proc walk for child processes.
	descendantLookupTimeout = 2 * time.Second
)

// Config holds configuration for a managed subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// CaptureOutput keeps stdout/stderr and drains them line by line into
	// the logger. When false both streams go to the null device.
	CaptureOutput bool

	// GracefulTimeout is how long to wait for graceful shutdown before SIGKILL.
	GracefulTimeout time.Duration

	// Registry, if set, tracks the process so it can be killed at program exit.
	Registry *Registry

	// OnStart is called when the process starts successfully.
	OnStart func(pid int)

	// OnStop is called when the process has been stopped by Stop or Kill.
	OnStop func(err error)
}

// Logger defines the logging interface for the process manager.
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

// Manager owns exactly one subprocess for its whole life.
//
// Liveness is checked on demand with Alive; there is no background
// watchdog. The only goroutines are the exit waiter and, with
// CaptureOutput, the output drain.
type Manager struct {
	config Config
	logger Logger

	mu        sync.RWMutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	output    *os.File
	status    Status
	lastError error
	exitCode  int
	startTime time.Time

	exited     chan struct{} // closed by the exit waiter
	drainStop  chan struct{} // closed to ask the drain to stop
	drainDone  chan struct{} // closed when the drain returns
	stopOnce   sync.Once
	stopResult error
}

// NewManager creates a new process manager with the given configuration.
func NewManager(cfg Config) *Manager {
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 5 * time.Second
	}

	return &Manager{
		config:   cfg,
		logger:   noopLogger{},
		status:   StatusStopped,
		exitCode: -1,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// Start launches the subprocess.
// A Manager can be started once; create a new one to relaunch.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.status != StatusStopped || m.cmd != nil {
		m.mu.Unlock()
		return fmt.Errorf("process %s was already started", m.config.Name)
	}
	m.status = StatusStarting
	m.mu.Unlock()

	if err := m.startProcess(); err != nil {
		m.mu.Lock()
		m.status = StatusFailed
		m.lastError = err
		m.mu.Unlock()
		return err
	}
	return nil
}

// startProcess actually starts the subprocess.
func (m *Manager) startProcess() error {
	m.logger.Info("starting process",
		"name", m.config.Name,
		"binary", m.config.Binary,
		"args", m.config.Args,
	)

	cmd := exec.Command(m.config.Binary, m.config.Args...) //nolint:gosec // Binary path is resolved by engine.Locate

	// Create a new process group so we can signal all children on shutdown
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if m.config.Env != nil {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}
	if m.config.WorkDir != "" {
		cmd.Dir = m.config.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}

	// Output goes to the null device unless captured. A captured stream uses
	// our own pipe so that Wait never closes the read end under the drain.
	var readEnd, writeEnd *os.File
	if m.config.CaptureOutput {
		readEnd, writeEnd, err = os.Pipe()
		if err != nil {
			_ = stdin.Close()
			return fmt.Errorf("creating output pipe: %w", err)
		}
		cmd.Stdout = writeEnd
		cmd.Stderr = writeEnd
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		if readEnd != nil {
			_ = readEnd.Close()
			_ = writeEnd.Close()
		}
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}
	if writeEnd != nil {
		_ = writeEnd.Close() // the child holds its own copy
	}

	m.mu.Lock()
	m.cmd = cmd
	m.stdin = stdin
	m.output = readEnd
	m.status = StatusRunning
	m.startTime = time.Now()
	m.exited = make(chan struct{})
	if readEnd != nil {
		m.drainStop = make(chan struct{})
		m.drainDone = make(chan struct{})
	}
	m.mu.Unlock()

	go m.waitForExit(cmd)
	if readEnd != nil {
		go m.drainOutput(readEnd)
	}

	if m.config.Registry != nil {
		m.config.Registry.Register(m)
	}

	m.logger.Info("process started",
		"name", m.config.Name,
		"pid", cmd.Process.Pid,
	)

	if m.config.OnStart != nil {
		m.config.OnStart(cmd.Process.Pid)
	}

	return nil
}

// waitForExit reaps the child and records its exit status.
func (m *Manager) waitForExit(cmd *exec.Cmd) {
	err := cmd.Wait()

	m.mu.Lock()
	if cmd.ProcessState != nil {
		m.exitCode = cmd.ProcessState.ExitCode()
	}
	if m.status == StatusRunning {
		m.status = StatusExited
		m.lastError = err
	}
	exited := m.exited
	m.mu.Unlock()

	close(exited)
}

// drainOutput reads the captured stream line by line until it is closed or
// a stop is requested.
func (m *Manager) drainOutput(r io.Reader) {
	defer close(m.drainDone)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-m.drainStop:
			return
		default:
		}
		m.logger.Debug("process output",
			"name", m.config.Name,
			"output", scanner.Text(),
		)
	}
}

// stopDrain signals the drain to stop and joins it with a bounded wait.
func (m *Manager) stopDrain() {
	m.mu.RLock()
	stop, done, output := m.drainStop, m.drainDone, m.output
	m.mu.RUnlock()

	if stop == nil {
		return
	}
	close(stop)
	// Closing the read end unblocks a drain parked in Read.
	_ = output.Close()

	select {
	case <-done:
	case <-time.After(drainJoinTimeout):
		m.logger.Warn("output drain did not stop in time", "name", m.config.Name)
	}
}

// Alive reports, at this instant, whether the process is running.
func (m *Manager) Alive() bool {
	m.mu.RLock()
	exited := m.exited
	m.mu.RUnlock()

	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// Exited returns a channel that is closed once the process has exited.
// Returns nil if the process was never started.
func (m *Manager) Exited() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exited
}

// ExitCode returns the exit code of a finished process, or -1 while it is
// running, was never started, or was terminated by a signal.
func (m *Manager) ExitCode() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exitCode
}

// Stop terminates the process and every descendant.
//
// The order is fixed: the output drain is stopped and joined first, then
// SIGTERM goes to the process group and to each descendant, then SIGKILL
// after GracefulTimeout. Owned descriptors are released last. Stop is
// idempotent; later calls return the first result.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.stopResult = m.terminate(false)
	})
	return m.stopResult
}

// Kill terminates the process tree immediately with SIGKILL.
// Used by Registry.KillAll at program exit.
func (m *Manager) Kill() error {
	m.stopOnce.Do(func() {
		m.stopResult = m.terminate(true)
	})
	return m.stopResult
}

func (m *Manager) terminate(force bool) error {
	m.mu.Lock()
	cmd := m.cmd
	exited := m.exited
	if cmd == nil || cmd.Process == nil {
		m.status = StatusStopped
		m.mu.Unlock()
		return nil
	}
	if m.status == StatusRunning {
		m.status = StatusStopped
	}
	m.mu.Unlock()

	pid := cmd.Process.Pid
	m.logger.Info("stopping process", "name", m.config.Name, "pid", pid, "force", force)

	m.stopDrain()

	// Collect descendants while the parent is still alive; once it dies
	// they are re-parented and can no longer be found from its PID.
	descendants := findDescendants(pid)

	var err error
	if !force {
		signalTree(pid, descendants, syscall.SIGTERM, m.logger)
		select {
		case <-exited:
			m.logger.Info("process stopped gracefully", "name", m.config.Name)
		case <-time.After(m.config.GracefulTimeout):
			m.logger.Warn("graceful shutdown timeout, sending SIGKILL",
				"name", m.config.Name,
				"timeout", m.config.GracefulTimeout,
			)
			force = true
		}
	}

	if force {
		signalTree(pid, descendants, syscall.SIGKILL, m.logger)
		select {
		case <-exited:
			m.logger.Info("process killed", "name", m.config.Name)
		case <-time.After(killWaitTimeout):
			err = fmt.Errorf("process %s (pid %d) did not exit after SIGKILL", m.config.Name, pid)
		}
	}

	m.mu.Lock()
	if m.stdin != nil {
		_ = m.stdin.Close() // Best-effort: pipe may already be closed.
		m.stdin = nil
	}
	m.mu.Unlock()

	if m.config.Registry != nil {
		m.config.Registry.Unregister(m)
	}
	if m.config.OnStop != nil {
		m.config.OnStop(err)
	}
	return err
}

// findDescendants returns every live descendant of pid, deepest last.
func findDescendants(pid int) []*psprocess.Process {
	ctx, cancel := context.WithTimeout(context.Background(), descendantLookupTimeout)
	defer cancel()

	root, err := psprocess.NewProcessWithContext(ctx, int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		return nil
	}

	var out []*psprocess.Process
	queue := []*psprocess.Process{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		children, err := p.ChildrenWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, children...)
		queue = append(queue, children...)
	}
	return out
}

// signalTree sends sig to the process group of pid and to every descendant
// that may have left the group.
func signalTree(pid int, descendants []*psprocess.Process, sig syscall.Signal, logger Logger) {
	// Use negative PID to signal the process group (created via Setpgid)
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		logger.Warn("failed to signal process group", "pid", pid, "signal", sig.String(), "error", err)
	}
	for _, d := range descendants {
		if err := d.SendSignal(sig); err != nil && !errors.Is(err, syscall.ESRCH) {
			logger.Debug("failed to signal descendant", "pid", d.Pid, "signal", sig.String(), "error", err)
		}
	}
}

// Status returns the current status of the managed process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastError returns the error the process exited with, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Uptime returns how long the process has been running.
// Returns 0 if the process is not running.
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != StatusRunning {
		return 0
	}
	return time.Since(m.startTime)
}

// PID returns the process ID, or 0 if not started.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Name returns the configured process name.
func (m *Manager) Name() string {
	return m.config.Name
}

// Stats returns statistics about the managed process.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	ExitCode  int           `json:"exit_code"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Name:     m.config.Name,
		Status:   m.status,
		ExitCode: m.exitCode,
	}

	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
	}

	if m.status == StatusRunning {
		stats.Uptime = time.Since(m.startTime)
	}

	if m.lastError != nil {
		stats.LastError = m.lastError.Error()
	}

	return stats
}
