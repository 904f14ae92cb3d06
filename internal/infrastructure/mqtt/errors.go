package mqtt

import (
	"errors"
	"fmt"
)

// Connection state.
var (
	ErrConnectionFailed = errors.New("mqtt: cannot reach broker")
	ErrNotConnected     = errors.New("mqtt: not connected to broker")
	ErrClosed           = errors.New("mqtt: client closed")
	ErrTimeout          = errors.New("mqtt: broker did not answer")
)

// Rejected before anything is sent to the broker.
var (
	ErrInvalidTopic    = errors.New("mqtt: empty topic")
	ErrInvalidQoS      = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrPayloadTooLarge = errors.New("mqtt: payload larger than 1MB")
)

// Broker round trips that failed. They reach callers inside a *TopicError.
var (
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
)

// Operations named in TopicError.Op.
const (
	OpPublish     = "publish"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// TopicError is a broker operation that failed for one topic, e.g. a check
// result that could not be delivered to langcheck/check/result/{id}.
// It matches both the operation's sentinel and the underlying cause.
type TopicError struct {
	Op    string
	Topic string
	Err   error
}

func (e *TopicError) Error() string {
	return fmt.Sprintf("mqtt: %s %s: %v", e.Op, e.Topic, e.Err)
}

func (e *TopicError) Unwrap() []error {
	switch e.Op {
	case OpPublish:
		return []error{ErrPublishFailed, e.Err}
	case OpSubscribe:
		return []error{ErrSubscribeFailed, e.Err}
	case OpUnsubscribe:
		return []error{ErrUnsubscribeFailed, e.Err}
	}
	return []error{e.Err}
}
