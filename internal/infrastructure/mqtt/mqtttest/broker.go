// Package mqtttest runs an in-process MQTT broker for tests.
package mqtttest

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/nerrad567/langcheck/internal/infrastructure/config"
)

// Broker is an anonymous-access broker listening on a loopback port.
type Broker struct {
	Host string
	Port int

	server *mochi.Server
}

// Start starts a broker that is closed when the test ends.
func Start(t testing.TB) *Broker {
	t.Helper()

	port := freePort(t)
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatalf("adding allow hook: %v", err)
	}

	listener := listeners.NewTCP(listeners.Config{
		ID:      "test",
		Address: net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
	})
	if err := server.AddListener(listener); err != nil {
		t.Fatalf("adding listener: %v", err)
	}

	if err := server.Serve(); err != nil {
		t.Fatalf("serving: %v", err)
	}
	t.Cleanup(func() {
		_ = server.Close()
	})

	return &Broker{Host: "127.0.0.1", Port: port, server: server}
}

// Config returns a client config pointing at the broker.
func (b *Broker) Config(clientID string) config.MQTTConfig {
	cfg := config.MQTTConfig{Enabled: true, QoS: 1}
	cfg.Broker.Host = b.Host
	cfg.Broker.Port = b.Port
	cfg.Broker.ClientID = clientID
	cfg.Reconnect.InitialDelay = 1
	cfg.Reconnect.MaxDelay = 5
	return cfg
}

// Publish injects a message as if a client had published it.
func (b *Broker) Publish(topic string, payload []byte, retain bool) error {
	return b.server.Publish(topic, payload, retain, 1)
}

// Subscribe delivers messages matching filter to fn, bypassing any client.
func (b *Broker) Subscribe(filter string, id int, fn func(topic string, payload []byte)) error {
	return b.server.Subscribe(filter, id, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		fn(pk.TopicName, pk.Payload)
	})
}

func freePort(t testing.TB) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
