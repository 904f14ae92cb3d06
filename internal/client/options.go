package client

import (
	"context"
	"net/http"
	"time"

	"github.com/nerrad567/langcheck/internal/engine"
	"github.com/nerrad567/langcheck/internal/match"
)

// PublicAPIURL is the hosted engine used by NewPublicAPI.
const PublicAPIURL = "https://languagetool.org/api/"

// Defaults for Options zero values.
const (
	defaultMaxAttempts    = 2
	defaultRequestTimeout = 5 * time.Minute
	fallbackLanguage      = "en"
)

// Logger defines the logging interface for the client.
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

// Cache stores check results keyed by the full request.
type Cache interface {
	Get(ctx context.Context, key string) ([]match.Match, bool)
	Put(ctx context.Context, key, language string, matches []match.Match)
}

// Metrics receives one observation per check.
type Metrics interface {
	ObserveCheck(language string, duration time.Duration, matches int, err error)
}

// Options configures a Client.
type Options struct {
	// Language to check in. Defaults to the system locale, then "en".
	Language string

	// MotherTongue enables false-friend checks when set.
	MotherTongue string

	// RemoteURL selects a remote engine. When empty a local engine is launched.
	RemoteURL string

	// Engine configures the local engine. Ignored for remote engines.
	Engine engine.Config

	// ServerConfig holds engine server options (see engineconfig).
	// Only valid for a local engine.
	ServerConfig map[string]any

	// NewSpellings are words added to the engine's English spelling list.
	NewSpellings []string

	// SpellingsPersist keeps NewSpellings in the list after Close.
	SpellingsPersist bool

	// MaxAttempts is how many times a query is tried when the local engine
	// fails at the transport level. Defaults to 2.
	MaxAttempts int

	// RequestTimeout bounds each HTTP request. Defaults to 5 minutes.
	RequestTimeout time.Duration

	// HTTPClient overrides the HTTP client. Its Timeout is left untouched.
	HTTPClient *http.Client

	// Logger receives client and engine logs.
	Logger Logger

	// Cache, if set, is consulted before every check.
	Cache Cache

	// Metrics, if set, observes every check.
	Metrics Metrics
}

func (o *Options) applyDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.RequestTimeout}
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
}
