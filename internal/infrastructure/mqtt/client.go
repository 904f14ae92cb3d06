package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/langcheck/internal/infrastructure/config"
)

// Shutdown reasons carried in StatusMessage.Reason.
const (
	reasonGraceful   = "graceful_shutdown"
	reasonUnexpected = "unexpected_disconnect"
)

// Client is langcheckd's broker connection. It announces the daemon on
// langcheck/system/status and keeps the check request subscription alive
// across reconnects.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Handlers run on paho's goroutines.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	mu            sync.RWMutex
	connected     bool
	closed        bool
	subscriptions map[string]subscription
	onConnect     func()
	onDisconnect  func(err error)
	logger        Logger
}

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives a message's topic and payload. A returned error
// is logged; it does not affect acknowledgment.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and waits for the first connection.
//
// A retained offline status is registered as the last will, so subscribers
// of langcheck/system/status learn about a crashed daemon. Every (re)connect
// publishes online and restores the subscriptions.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connectedEvent() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lostEvent(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.warn("reconnecting to MQTT broker", "client_id", cfg.Broker.ClientID)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := wait(c.paho.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w at %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}

	// connectedEvent may still be running on paho's goroutine.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// wait blocks until token completes or d elapses.
func wait(token pahomqtt.Token, d time.Duration) error {
	if !token.WaitTimeout(d) {
		return fmt.Errorf("%w within %v", ErrTimeout, d)
	}
	return token.Error()
}

func (c *Client) connectedEvent() {
	c.mu.Lock()
	c.connected = true
	subs := make(map[string]subscription, len(c.subscriptions))
	for topic, sub := range c.subscriptions {
		subs[topic] = sub
	}
	callback := c.onConnect
	c.mu.Unlock()

	for topic, sub := range subs {
		token := c.paho.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
		go func() {
			if err := wait(token, defaultPublishTimeout); err != nil {
				c.warn("restoring MQTT subscription failed", "topic", topic, "error", err)
			}
		}()
	}
	c.announce(StatusOnline, "")

	if callback != nil {
		callback()
	}
}

func (c *Client) lostEvent(err error) {
	c.mu.Lock()
	c.connected = false
	callback := c.onDisconnect
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// announce publishes the daemon's retained status without waiting.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	payload := statusPayload(status, c.cfg.Broker.ClientID, reason)
	return c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close announces a graceful shutdown and disconnects. Later calls to
// Publish, Subscribe and Unsubscribe return ErrClosed. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed || c.paho == nil {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.IsConnected() {
		if err := wait(c.announce(StatusOffline, reasonGraceful), defaultPublishTimeout); err != nil {
			c.warn("publishing offline status failed", "error", err)
		}
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// HealthCheck reports ErrNotConnected while the broker connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed && c.paho != nil && c.paho.IsConnected()
}

// usable returns the error an operation should fail with, if any.
func (c *Client) usable() error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// SetOnConnect sets a callback run after every (re)connect, once the
// subscriptions have been restored.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets a logger for reconnects and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) warn(msg string, args ...any) {
	c.mu.RLock()
	logger := c.logger
	c.mu.RUnlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// dispatch adapts handler to paho. A panicking handler is logged and the
// message dropped.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.mu.RLock()
				logger := c.logger
				c.mu.RUnlock()
				if logger != nil {
					logger.Error("MQTT handler panicked", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.warn("MQTT message not handled", "topic", msg.Topic(), "error", err)
		}
	}
}
