package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for client operations.
var (
	// ErrRateLimited indicates the engine refused the request for rate
	// limiting. Callers may retry after waiting.
	ErrRateLimited = errors.New("client: rate limit exceeded")

	// ErrRemoteConfig indicates a server config was given for a remote engine.
	ErrRemoteConfig = errors.New("client: cannot pass a server config to a remote engine")

	// ErrRemoteSpellings indicates custom spellings were given for a remote engine.
	ErrRemoteSpellings = errors.New("client: custom spellings need a local engine")

	// ErrSpellingFileNotFound indicates the engine's spelling list is missing.
	ErrSpellingFileNotFound = errors.New("client: spelling file not found")

	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("client: closed")
)

// TransportError is a connection-level failure talking to the engine.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError is a reply the client could not use: a non-2xx status or
// a body that is not the expected JSON. Body holds the raw reply.
type ResponseError struct {
	URL    string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e.RateLimited() {
		return fmt.Sprintf("%s: rate limit exceeded (status %d), try again later", e.URL, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.Status, e.Body)
}

// RateLimited reports whether the engine refused the request for rate limiting.
func (e *ResponseError) RateLimited() bool {
	return e.Status == http.StatusUpgradeRequired || e.Status == http.StatusTooManyRequests
}

// Is makes errors.Is(err, ErrRateLimited) match rate-limit replies.
func (e *ResponseError) Is(target error) bool {
	return target == ErrRateLimited && e.RateLimited()
}
