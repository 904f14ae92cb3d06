package bridge

import (
	"time"

	"github.com/nerrad567/langcheck/internal/correction"
	"github.com/nerrad567/langcheck/internal/engine"
	"github.com/nerrad567/langcheck/internal/match"
)

// Request modes.
const (
	ModeCheck   = "check"
	ModeCorrect = "correct"
)

// Request is a check request received on langcheck/check/request.
type Request struct {
	// ID correlates the reply. Generated when empty.
	ID string `json:"id"`

	// Text is the text to check.
	Text string `json:"text"`

	// Language overrides the daemon's default check language.
	Language string `json:"language,omitempty"`

	// Mode is ModeCheck or ModeCorrect. Defaults to ModeCheck.
	Mode string `json:"mode,omitempty"`
}

// Response is published on langcheck/check/result/{id}.
type Response struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Mode      string            `json:"mode"`
	Language  string            `json:"language,omitempty"`
	Success   bool              `json:"success"`
	Status    correction.Status `json:"status,omitempty"`
	Matches   []match.Match     `json:"matches,omitempty"`
	Corrected string            `json:"corrected,omitempty"`
	Duration  float64           `json:"duration_ms"`
	Error     *ErrorInfo        `json:"error,omitempty"`
}

// ErrorInfo describes why a request failed.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EngineStatus is the retained payload on langcheck/system/engine.
type EngineStatus struct {
	Timestamp time.Time `json:"timestamp"`
	Remote    bool      `json:"remote"`
	URL       string    `json:"url,omitempty"`

	// Engine is nil for a remote engine.
	Engine *engine.Stats `json:"engine,omitempty"`
}
