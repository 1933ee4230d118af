package mqtt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simmurator/simmurator/pkg/hub"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/simmurator/simmurator/pkg/session"
)

// AccessSink is a hub.Sink that republishes every frame on one topic.
// Once the broker stops, Send fails and the hub prunes the sink.
type AccessSink struct {
	pub   Publisher
	topic string
}

var _ hub.Sink = (*AccessSink)(nil)

// NewAccessSink creates a sink publishing to topic.
func NewAccessSink(pub Publisher, topic string) *AccessSink {
	return &AccessSink{pub: pub, topic: topic}
}

// Send implements hub.Sink.
func (s *AccessSink) Send(msg []byte) error {
	if err := s.pub.Publish(s.topic, msg, 0, false); err != nil {
		return err
	}
	metrics.MQTTPublished.WithLabelValues(KindAccess).Inc()
	return nil
}

// Bridge ties a Broker to the sensor provider and the access hub.
type Bridge struct {
	cfg       Config
	broker    *Broker
	publisher *ReadingPublisher
	hub       *hub.Hub
	log       *slog.Logger

	handle *hub.Handle
}

// NewBridge creates the broker and publisher. h may be nil, in which case
// access entries are not mirrored.
func NewBridge(cfg Config, provider sensor.Provider, scheduler session.Scheduler, h *hub.Hub, log *slog.Logger) (*Bridge, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logging.Nop()
	}

	broker, err := NewBroker(cfg.Port, WithBrokerLogger(log))
	if err != nil {
		return nil, err
	}
	return &Bridge{
		cfg:       cfg,
		broker:    broker,
		publisher: NewReadingPublisher(broker, provider, scheduler, cfg.PublishInterval, log),
		hub:       h,
		log:       log,
	}, nil
}

// Broker returns the embedded broker.
func (b *Bridge) Broker() *Broker { return b.broker }

// Publisher returns the periodic reading publisher.
func (b *Bridge) Publisher() *ReadingPublisher { return b.publisher }

// Start starts the broker, attaches the access sink and schedules the
// reading publisher.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.broker.Start(ctx); err != nil {
		return err
	}
	if b.hub != nil {
		handle, err := b.hub.Attach(NewAccessSink(b.broker, b.cfg.AccessTopic))
		if err != nil {
			_ = b.broker.Stop(ctx)
			return fmt.Errorf("attach access sink: %w", err)
		}
		b.handle = handle
	}
	b.publisher.Start()
	b.log.Info("MQTT bridge started",
		"port", b.cfg.Port,
		"accessTopic", b.cfg.AccessTopic,
		"publishInterval", b.cfg.PublishInterval)
	return nil
}

// Stop stops publishing, detaches from the hub and closes the broker.
func (b *Bridge) Stop(ctx context.Context) error {
	b.publisher.Stop()
	if b.handle != nil {
		b.hub.Detach(b.handle)
		b.handle = nil
	}
	return b.broker.Stop(ctx)
}

// Run starts the bridge, waits for ctx to be done and stops it.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return b.Stop(stopCtx)
}
