package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/langcheck/internal/infrastructure/config"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"check request", topics.CheckRequest(), "langcheck/check/request"},
		{"check result", topics.CheckResult("abc-123"), "langcheck/check/result/abc-123"},
		{"all check results", topics.AllCheckResults(), "langcheck/check/result/+"},
		{"system status", topics.SystemStatus(), "langcheck/system/status"},
		{"engine status", topics.EngineStatus(), "langcheck/system/engine"},
		{"all topics", topics.AllTopics(), "langcheck/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestStatusPayload(t *testing.T) {
	var msg StatusMessage
	if err := json.Unmarshal(statusPayload(StatusOffline, "langcheckd", "graceful_shutdown"), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Status != StatusOffline {
		t.Errorf("Status = %q, want %q", msg.Status, StatusOffline)
	}
	if msg.ClientID != "langcheckd" {
		t.Errorf("ClientID = %q, want langcheckd", msg.ClientID)
	}
	if msg.Reason != "graceful_shutdown" {
		t.Errorf("Reason = %q, want graceful_shutdown", msg.Reason)
	}
	if msg.Timestamp == "" {
		t.Error("Timestamp is empty")
	}
}

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name   string
		tls    bool
		scheme string
	}{
		{"plain", false, "tcp"},
		{"tls", true, "ssl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.MQTTConfig{}
			cfg.Broker.Host = "broker.local"
			cfg.Broker.Port = 1883
			cfg.Broker.ClientID = "langcheckd"
			cfg.Broker.TLS = tt.tls
			cfg.Auth.Username = "user"
			cfg.Reconnect.InitialDelay = 1
			cfg.Reconnect.MaxDelay = 30

			opts := buildClientOptions(cfg)
			if len(opts.Servers) != 1 {
				t.Fatalf("Servers = %v, want one broker", opts.Servers)
			}
			if opts.Servers[0].Scheme != tt.scheme {
				t.Errorf("scheme = %q, want %q", opts.Servers[0].Scheme, tt.scheme)
			}
			if opts.Servers[0].Host != "broker.local:1883" {
				t.Errorf("host = %q, want broker.local:1883", opts.Servers[0].Host)
			}
			if opts.ClientID != "langcheckd" {
				t.Errorf("ClientID = %q, want langcheckd", opts.ClientID)
			}
			if opts.Username != "user" {
				t.Errorf("Username = %q, want user", opts.Username)
			}
			if (opts.TLSConfig != nil) != tt.tls {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.tls)
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(config.MQTTConfig{})
	configureLWT(opts, "langcheckd")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false")
	}
	if opts.WillTopic != "langcheck/system/status" {
		t.Errorf("WillTopic = %q, want langcheck/system/status", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var msg StatusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("unmarshal will payload: %v", err)
	}
	if msg.Status != StatusOffline || msg.Reason != "unexpected_disconnect" {
		t.Errorf("will = %+v, want offline/unexpected_disconnect", msg)
	}
}

// An unconnected client must reject operations before touching paho.
func TestClient_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", []byte("x"), 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a/b", []byte("x"), 3, false), ErrInvalidQoS},
		{"publish disconnected", c.Publish("a/b", []byte("x"), 1, false), ErrNotConnected},
		{"publish oversized", c.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false), ErrPayloadTooLarge},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a/b", 5, noop), ErrInvalidQoS},
		{"subscribe disconnected", c.Subscribe("a/b", 1, noop), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("err = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.IsConnected() {
		t.Error("IsConnected() = true for a zero client")
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close = %v, want ErrClosed", err)
	}
	if err := c.Unsubscribe("a/b"); !errors.Is(err, ErrClosed) {
		t.Errorf("Unsubscribe() after Close = %v, want ErrClosed", err)
	}
}

func TestTopicError(t *testing.T) {
	tests := []struct {
		op       string
		sentinel error
	}{
		{OpPublish, ErrPublishFailed},
		{OpSubscribe, ErrSubscribeFailed},
		{OpUnsubscribe, ErrUnsubscribeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			err := error(&TopicError{Op: tt.op, Topic: "langcheck/check/result/r1", Err: ErrTimeout})
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if !errors.Is(err, ErrTimeout) {
				t.Errorf("errors.Is(%v, ErrTimeout) = false", err)
			}
			want := "mqtt: " + tt.op + " langcheck/check/result/r1: mqtt: broker did not answer"
			if err.Error() != want {
				t.Errorf("Error() = %q, want %q", err.Error(), want)
			}
		})
	}
}
