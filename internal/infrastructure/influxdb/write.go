package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementChecks       = "checks"
	measurementEngineEvents = "engine_events"
)

// Engine lifecycle events.
const (
	EventStarted   = "started"
	EventRestarted = "restarted"
	EventStopped   = "stopped"
)

// ObserveCheck records one check request. It satisfies client.Metrics.
//
// Tags are the language and outcome ("ok" or "error"), so the series
// count stays bounded by the number of languages in use.
func (c *Client) ObserveCheck(language string, duration time.Duration, matches int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.WritePoint(measurementChecks,
		map[string]string{
			"language": language,
			"outcome":  outcome,
		},
		map[string]any{
			"duration_ms": float64(duration.Microseconds()) / 1000,
			"matches":     matches,
		})
}

// WriteEngineEvent records an engine start, restart or stop.
func (c *Client) WriteEngineEvent(event string, generation, port, pid int) {
	fields := map[string]any{
		"generation": generation,
	}
	if port > 0 {
		fields["port"] = port
	}
	if pid > 0 {
		fields["pid"] = pid
	}
	c.WritePoint(measurementEngineEvents, map[string]string{"event": event}, fields)
}

// WritePoint writes a point stamped with the current time.
//
//	client.WritePoint("cache",
//	    map[string]string{"host": "checker-01"},
//	    map[string]any{"hits": 120, "misses": 8})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
