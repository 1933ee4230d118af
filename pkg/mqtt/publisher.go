package mqtt

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/simmurator/simmurator/pkg/session"
)

// Published payload kinds, used as the metrics label.
const (
	KindReading = "reading"
	KindAccess  = "access"
)

// ReadingPublisher publishes one reading per sensor on every tick.
type ReadingPublisher struct {
	pub       Publisher
	provider  sensor.Provider
	scheduler session.Scheduler
	interval  time.Duration
	log       *slog.Logger

	mu   sync.Mutex
	task session.Task
}

// NewReadingPublisher creates a publisher. Nothing is published until Start.
func NewReadingPublisher(pub Publisher, provider sensor.Provider, scheduler session.Scheduler, interval time.Duration, log *slog.Logger) *ReadingPublisher {
	if scheduler == nil {
		scheduler = session.TimerScheduler{}
	}
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	if log == nil {
		log = logging.Nop()
	}
	return &ReadingPublisher{
		pub:       pub,
		provider:  provider,
		scheduler: scheduler,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the publish task. The first batch goes out one interval
// after Start. Calling Start twice is a no-op.
func (p *ReadingPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != nil {
		return
	}
	p.task = p.scheduler.Schedule(p.interval, func(time.Time) { p.PublishAll() })
}

// Stop cancels the publish task and waits for an in-flight batch.
func (p *ReadingPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != nil {
		p.task.Stop()
		p.task = nil
	}
}

// PublishAll publishes a fresh reading for every sensor and returns how
// many were delivered to the broker. A failed publish ends the batch.
func (p *ReadingPublisher) PublishAll() int {
	sent := 0
	for _, name := range p.provider.Names() {
		reading, err := p.provider.Produce(name)
		if err != nil {
			continue
		}
		payload, err := json.Marshal(reading)
		if err != nil {
			p.log.Debug("failed to encode reading", "sensor", name, "error", err)
			continue
		}
		topic := reading.SparkplugTopic.String()
		if err := p.pub.Publish(topic, payload, 0, false); err != nil {
			p.log.Debug("reading publish failed", "topic", topic, "error", err)
			return sent
		}
		metrics.MQTTPublished.WithLabelValues(KindReading).Inc()
		sent++
	}
	return sent
}
