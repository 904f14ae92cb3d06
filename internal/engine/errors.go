package engine

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Sentinel errors for engine supervision.
//
// Configuration errors (runtime, archive) are fatal and never retried.
// Launch errors (exited early, not ready, port in use) move the supervisor
// on to the next candidate port; ErrServerNotStarted is returned once the
// candidates run out.
var (
	// ErrRuntimeNotFound indicates no java executable could be found.
	ErrRuntimeNotFound = errors.New("engine: cannot find java runtime")

	// ErrRuntimeIncompatible indicates the java runtime is too old for the engine.
	ErrRuntimeIncompatible = errors.New("engine: incompatible java runtime")

	// ErrArchiveNotFound indicates no engine archive could be found.
	ErrArchiveNotFound = errors.New("engine: cannot find engine archive")

	// ErrExitedEarly indicates the server process exited before it became ready.
	ErrExitedEarly = errors.New("engine: server exited early")

	// ErrNotReady indicates the readiness timeout elapsed.
	ErrNotReady = errors.New("engine: server did not become ready")

	// ErrPortInUse indicates the candidate port was already bound.
	ErrPortInUse = errors.New("engine: port already in use")

	// ErrServerNotStarted indicates every candidate port failed.
	ErrServerNotStarted = errors.New("engine: server could not be started")

	// ErrRestartLimit indicates Config.MaxRestarts has been reached.
	ErrRestartLimit = errors.New("engine: restart limit reached")

	// ErrTerminated indicates the supervisor has been stopped.
	ErrTerminated = errors.New("engine: supervisor terminated")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("engine: supervisor already started")
)

// ExitedEarlyError reports the exit code of a server that died during startup.
type ExitedEarlyError struct {
	Code int
}

func (e *ExitedEarlyError) Error() string {
	return fmt.Sprintf("engine: server exited early with code %d", e.Code)
}

// Is makes errors.Is(err, ErrExitedEarly) match.
func (e *ExitedEarlyError) Is(target error) bool {
	return target == ErrExitedEarly
}

// LaunchError ties a launch failure to the address it was attempted on.
type LaunchError struct {
	Host string
	Port int
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching engine on %s: %v", net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// isPortError reports whether err means "try the next port".
func isPortError(err error) bool {
	return errors.Is(err, ErrExitedEarly) || errors.Is(err, ErrNotReady) || errors.Is(err, ErrPortInUse)
}
