package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/langcheck/internal/correction"
	"github.com/nerrad567/langcheck/internal/infrastructure/mqtt"
	"github.com/nerrad567/langcheck/internal/match"
)

const (
	defaultConcurrency    = 4
	defaultRequestTimeout = 30 * time.Second
	qos                   = 1
)

// Checker runs a check in a given language. An empty language means the
// checker's default. *client.Client satisfies it.
type Checker interface {
	CheckIn(ctx context.Context, language, text string) ([]match.Match, error)
}

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface for the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bridge.
type Options struct {
	Checker Checker
	MQTT    MQTTClient
	Logger  Logger

	// Concurrency bounds how many requests are checked at once. Defaults to 4.
	Concurrency int

	// RequestTimeout bounds a single check. Defaults to 30 seconds.
	RequestTimeout time.Duration
}

// Bridge serves check requests from MQTT.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Bridge struct {
	checker Checker
	mqtt    MQTTClient
	logger  Logger
	timeout time.Duration
	topics  mqtt.Topics

	slots chan struct{}

	mu       sync.Mutex
	started  bool
	stopped  bool
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	requests atomic.Uint64
	failures atomic.Uint64
	inFlight atomic.Int64
}

// New creates a bridge. Call Start to begin serving.
func New(opts Options) (*Bridge, error) {
	if opts.Checker == nil {
		return nil, fmt.Errorf("checker is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	return &Bridge{
		checker: opts.Checker,
		mqtt:    opts.MQTT,
		logger:  opts.Logger,
		timeout: opts.RequestTimeout,
		slots:   make(chan struct{}, opts.Concurrency),
	}, nil
}

// Start subscribes to the request topic. In-flight checks are cancelled
// when ctx is done or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("bridge already started")
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	topic := b.topics.CheckRequest()
	if err := b.mqtt.Subscribe(topic, qos, b.handleMessage); err != nil {
		b.cancel()
		return fmt.Errorf("subscribe to check requests: %w", err)
	}
	b.logger.Info("check bridge started", "topic", topic, "concurrency", cap(b.slots))
	return nil
}

// Stop unsubscribes and waits for in-flight requests to finish.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		started := b.started
		b.mu.Unlock()
		if !started {
			return
		}

		if err := b.mqtt.Unsubscribe(b.topics.CheckRequest()); err != nil {
			b.logger.Warn("unsubscribe from check requests failed", "error", err)
		}
		b.cancel()
		b.wg.Wait()
		b.logger.Info("check bridge stopped", "requests", b.requests.Load())
	})
}

// handleMessage decodes a request and hands it to a worker. It blocks while
// every slot is busy.
func (b *Bridge) handleMessage(_ string, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding check request: %w", err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return fmt.Errorf("bridge stopped, dropping request %s", req.ID)
	}
	b.wg.Add(1)
	ctx := b.ctx
	b.mu.Unlock()

	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		b.wg.Done()
		return fmt.Errorf("request %s: %w", req.ID, ctx.Err())
	}

	go func() {
		defer b.wg.Done()
		defer func() { <-b.slots }()
		b.serve(ctx, req)
	}()
	return nil
}

func (b *Bridge) serve(ctx context.Context, req Request) {
	b.requests.Add(1)
	b.inFlight.Add(1)
	defer b.inFlight.Add(-1)

	resp := b.process(ctx, req)
	if !resp.Success {
		b.failures.Add(1)
		b.logger.Warn("check request failed",
			"id", req.ID, "code", resp.Error.Code, "error", resp.Error.Message)
	} else {
		b.logger.Debug("check request served",
			"id", req.ID, "mode", resp.Mode, "matches", len(resp.Matches))
	}

	if err := b.publish(req.ID, resp); err != nil {
		b.logger.Error("publishing check result failed", "id", req.ID, "error", err)
	}
}

// process runs req and builds its response.
func (b *Bridge) process(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := Response{
		ID:       req.ID,
		Mode:     req.Mode,
		Language: req.Language,
	}
	if resp.Mode == "" {
		resp.Mode = ModeCheck
	}

	err := validate(req)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		var matches []match.Match
		matches, err = b.checker.CheckIn(ctx, req.Language, req.Text)
		cancel()
		if err == nil {
			resp.Success = true
			resp.Matches = matches
			resp.Status = correction.Classify(matches)
			if resp.Mode == ModeCorrect {
				resp.Corrected = correction.Apply(req.Text, matches)
			}
		}
	}
	if err != nil {
		resp.Error = &ErrorInfo{Code: errorCode(err), Message: err.Error()}
	}

	resp.Timestamp = time.Now().UTC()
	resp.Duration = float64(time.Since(start).Microseconds()) / 1000
	return resp
}

func validate(req Request) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	switch req.Mode {
	case "", ModeCheck, ModeCorrect:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
}

func (b *Bridge) publish(id string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshalling check result: %w", err)
	}
	return b.mqtt.Publish(b.topics.CheckResult(id), data, qos, false)
}

// PublishEngineStatus publishes status retained on langcheck/system/engine.
func (b *Bridge) PublishEngineStatus(status EngineStatus) error {
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshalling engine status: %w", err)
	}
	if err := b.mqtt.Publish(b.topics.EngineStatus(), data, qos, true); err != nil {
		return fmt.Errorf("publishing engine status: %w", err)
	}
	return nil
}

// Stats holds request counters.
type Stats struct {
	Requests uint64 `json:"requests"`
	Failures uint64 `json:"failures"`
	InFlight int64  `json:"in_flight"`
}

// Stats returns the current request counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Requests: b.requests.Load(),
		Failures: b.failures.Load(),
		InFlight: b.inFlight.Load(),
	}
}
