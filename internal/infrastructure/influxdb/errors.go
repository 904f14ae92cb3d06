package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// langcheckd treats it as "run without telemetry".
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrConnectionFailed wraps the ping error from Connect.
	ErrConnectionFailed = errors.New("influxdb: cannot reach server")

	// ErrUnhealthy means the server answered the ping but reported itself
	// unable to accept writes.
	ErrUnhealthy = errors.New("influxdb: server not ready for writes")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: client closed")
)
