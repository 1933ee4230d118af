package mqtt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
)

// Publisher sends a payload to an MQTT topic.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retain bool) error
}

var _ Publisher = (*Broker)(nil)

// Broker is an embedded MQTT broker accepting anonymous clients.
type Broker struct {
	port   int
	server *mqtt.Server
	log    *slog.Logger

	mu      sync.RWMutex
	running bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBrokerLogger sets the broker's logger.
func WithBrokerLogger(log *slog.Logger) BrokerOption {
	return func(b *Broker) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBroker creates a broker that will listen on port once started.
func NewBroker(port int, opts ...BrokerOption) (*Broker, error) {
	if port <= 0 {
		port = DefaultPort
	}

	b := &Broker{
		port: port,
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.server = mqtt.New(&mqtt.Options{
		InlineClient: true,
		Logger:       b.log,
	})

	// mochi-mqtt requires an auth hook; this one allows every client.
	if err := b.server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add allow hook: %w", err)
	}
	if err := b.server.AddHook(&subscriptionHook{log: b.log}, nil); err != nil {
		return nil, fmt.Errorf("failed to add subscription hook: %w", err)
	}
	return b, nil
}

// Start adds the TCP listener and serves in the background.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	listener := listeners.NewTCP(listeners.Config{
		ID:      fmt.Sprintf("mqtt-%d", b.port),
		Address: fmt.Sprintf(":%d", b.port),
	})
	if err := b.server.AddListener(listener); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.log.Error("MQTT server error", "error", err)
		}
	}()

	b.running = true
	b.log.Info("starting MQTT broker", "port", b.port)
	return nil
}

// Stop closes the broker and disconnects every client. It gives up when
// ctx is done first.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	// Publishes fail from here on.
	b.running = false
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close server: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
	metrics.ActiveConnections.WithLabelValues(metrics.ProtocolMQTT).Set(0)
	b.log.Info("MQTT broker stopped")
	return nil
}

// IsRunning returns true if the broker is running.
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Port returns the configured listen port.
func (b *Broker) Port() int { return b.port }

// Publish publishes payload to topic from the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	if !running {
		return ErrNotRunning
	}
	return b.server.Publish(topic, payload, retain, qos)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := len(b.server.Clients.GetAll())
	metrics.ActiveConnections.WithLabelValues(metrics.ProtocolMQTT).Set(float64(n))
	return n
}

// subscriptionHook logs client subscriptions.
type subscriptionHook struct {
	mqtt.HookBase
	log *slog.Logger
}

func (h *subscriptionHook) ID() string {
	return "subscription-hook"
}

func (h *subscriptionHook) Provides(b byte) bool {
	return bytes.Contains([]byte{mqtt.OnSubscribed}, []byte{b})
}

func (h *subscriptionHook) OnSubscribed(cl *mqtt.Client, pk packets.Packet, _ []byte) {
	for _, f := range pk.Filters {
		h.log.Debug("client subscribed", "client", cl.ID, "filter", f.Filter)
	}
}
