package checkcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Event is one engine lifecycle record.
type Event struct {
	ID         int64     `json:"id"`
	Event      string    `json:"event"`
	Generation int       `json:"generation"`
	Port       int       `json:"port,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventLog appends engine lifecycle events to the engine_events table.
type EventLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventLog creates an event log on db.
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db, now: time.Now}
}

// Record inserts e. OccurredAt defaults to now.
func (l *EventLog) Record(ctx context.Context, e Event) error {
	if e.Event == "" {
		return fmt.Errorf("event name is required")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = l.now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO engine_events (event, generation, port, pid, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Event, e.Generation, nullableInt(e.Port), nullableInt(e.PID),
		nullableString(e.Detail), e.OccurredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting engine event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first (default 50, max 500).
func (l *EventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, event, generation, port, pid, detail, occurred_at
		 FROM engine_events ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying engine events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			port, pid  sql.NullInt64
			detail     sql.NullString
			occurredAt int64
		)
		if err := rows.Scan(&e.ID, &e.Event, &e.Generation, &port, &pid, &detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning engine event: %w", err)
		}
		e.Port = int(port.Int64)
		e.PID = int(pid.Int64)
		e.Detail = detail.String
		e.OccurredAt = time.UnixMilli(occurredAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating engine events: %w", err)
	}
	return events, nil
}

// nullableInt maps 0 to NULL for optional INTEGER columns.
func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
