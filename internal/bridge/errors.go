package bridge

import (
	"context"
	"errors"

	"github.com/nerrad567/langcheck/internal/client"
	"github.com/nerrad567/langcheck/internal/engine"
	"github.com/nerrad567/langcheck/internal/langtag"
)

// Error codes carried in ErrorInfo.Code.
const (
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeUnsupportedLanguage = "unsupported_language"
	ErrCodeRateLimited         = "rate_limited"
	ErrCodeEngineUnavailable   = "engine_unavailable"
	ErrCodeTimeout             = "timeout"
	ErrCodeCheckFailed         = "check_failed"
)

var (
	// ErrEmptyText is returned for a request without text.
	ErrEmptyText = errors.New("bridge: text is required")

	// ErrInvalidMode is returned for a mode other than check or correct.
	ErrInvalidMode = errors.New("bridge: mode must be check or correct")
)

// errorCode maps a check failure to the code reported to the requester.
func errorCode(err error) string {
	var transportErr *client.TransportError
	switch {
	case errors.Is(err, ErrEmptyText), errors.Is(err, ErrInvalidMode):
		return ErrCodeInvalidRequest
	case errors.Is(err, langtag.ErrUnsupported), errors.Is(err, langtag.ErrEmptyTag):
		return ErrCodeUnsupportedLanguage
	case errors.Is(err, client.ErrRateLimited):
		return ErrCodeRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, client.ErrClosed), engine.IsTerminal(err), errors.As(err, &transportErr):
		return ErrCodeEngineUnavailable
	default:
		return ErrCodeCheckFailed
	}
}
