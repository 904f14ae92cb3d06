// Package influxdb records langcheck telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and writes two
// measurements:
//   - checks: one point per check request (language, outcome, duration, matches)
//   - engine_events: local engine starts, restarts and stops
//
// Client implements client.Metrics, so it can be passed straight to
// client.Options.Metrics.
//
//	metrics, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer metrics.Close()
//
// Writes are non-blocking and batched (batch_size, flush_interval); write
// failures are delivered to the SetOnError callback. Connection and health
// check errors are returned directly.
package influxdb
