package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/langcheck/internal/checkcache"
	"github.com/nerrad567/langcheck/internal/infrastructure/influxdb"
	"github.com/nerrad567/langcheck/internal/infrastructure/logging"
)

const eventWriteTimeout = 5 * time.Second

// engineHooks records engine lifecycle changes.
//
// The supervisor calls the hooks with its lock held, so they must not call
// back into it. Status publishing is signalled through changed instead.
type engineHooks struct {
	log     *logging.Logger
	events  *checkcache.EventLog
	influx  *influxdb.Client // nil when disabled
	starts  atomic.Int64
	changed chan struct{}
}

func newEngineHooks(log *logging.Logger, events *checkcache.EventLog, influx *influxdb.Client) *engineHooks {
	return &engineHooks{
		log:     log,
		events:  events,
		influx:  influx,
		changed: make(chan struct{}, 1),
	}
}

// onStart runs once per successful launch; the count is the generation.
func (h *engineHooks) onStart(port, pid int) {
	gen := int(h.starts.Add(1))
	h.record(checkcache.Event{Event: influxdb.EventStarted, Generation: gen, Port: port, PID: pid})
	if h.influx != nil {
		h.influx.WriteEngineEvent(influxdb.EventStarted, gen, port, pid)
	}
	h.notify()
}

func (h *engineHooks) onRestart(generation int) {
	h.record(checkcache.Event{Event: influxdb.EventRestarted, Generation: generation})
	if h.influx != nil {
		h.influx.WriteEngineEvent(influxdb.EventRestarted, generation, 0, 0)
	}
	h.notify()
}

func (h *engineHooks) onStop(err error) {
	e := checkcache.Event{Event: influxdb.EventStopped, Generation: int(h.starts.Load())}
	if err != nil {
		e.Detail = err.Error()
	}
	h.record(e)
	if h.influx != nil {
		h.influx.WriteEngineEvent(influxdb.EventStopped, e.Generation, 0, 0)
	}
	h.notify()
}

func (h *engineHooks) record(e checkcache.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventWriteTimeout)
	defer cancel()
	if err := h.events.Record(ctx, e); err != nil {
		h.log.Warn("recording engine event failed", "event", e.Event, "error", err)
	}
}

// notify signals a status change without blocking; changes coalesce.
func (h *engineHooks) notify() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func (h *engineHooks) changes() <-chan struct{} {
	return h.changed
}
