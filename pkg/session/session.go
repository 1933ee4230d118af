package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simmurator/simmurator/internal/id"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/sensor"
)

// Interval bounds in milliseconds.
const (
	MinIntervalMs     int64 = 100
	MaxIntervalMs     int64 = 60000
	DefaultIntervalMs int64 = 1000
)

// ClampInterval limits ms to [MinIntervalMs, MaxIntervalMs].
func ClampInterval(ms int64) int64 {
	return min(max(ms, MinIntervalMs), MaxIntervalMs)
}

// Conn is the outbound half of a client connection. Send must be safe for
// concurrent use.
type Conn interface {
	Send(ctx context.Context, data []byte) error
}

// State is the session's streaming state.
type State int

const (
	// StateIdle means no push task is scheduled.
	StateIdle State = iota
	// StateStreaming means a push task is scheduled.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Session is the per-connection subscription state machine.
type Session struct {
	id        string
	ctx       context.Context
	conn      Conn
	provider  sensor.Provider
	scheduler Scheduler
	log       *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	subs       map[string]struct{}
	intervalMs int64
	task       Task
	closed     bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithScheduler sets the scheduler for push tasks.
func WithScheduler(sched Scheduler) Option {
	return func(s *Session) {
		if sched != nil {
			s.scheduler = sched
		}
	}
}

// WithDefaultInterval sets the interval used until a subscribe changes it.
func WithDefaultInterval(ms int64) Option {
	return func(s *Session) {
		if ms > 0 {
			s.intervalMs = ClampInterval(ms)
		}
	}
}

// WithClock overrides the time source for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session writing to conn. ctx bounds every write and should
// live as long as the connection.
func New(ctx context.Context, conn Conn, provider sensor.Provider, opts ...Option) *Session {
	s := &Session{
		id:         id.Prefixed("ws"),
		ctx:        ctx,
		conn:       conn,
		provider:   provider,
		scheduler:  TimerScheduler{},
		log:        logging.Nop(),
		now:        time.Now,
		subs:       make(map[string]struct{}),
		intervalMs: DefaultIntervalMs,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Start sends the welcome frame.
func (s *Session) Start() error {
	return s.send(WelcomeFrame{
		Type:             TypeWelcome,
		AvailableSensors: s.provider.Names(),
		Message:          WelcomeMessage,
	})
}

// Handle processes one inbound text frame and writes the response. Protocol
// errors are answered with an error frame; the returned error is only ever a
// write failure or ErrClosed.
func (s *Session) Handle(data []byte) error {
	action, err := ParseAction(data)
	if err != nil {
		s.log.Debug("invalid message", "error", err)
		return s.send(ErrorFrame{Type: TypeError, Message: MsgInvalidJSON})
	}

	switch a := action.(type) {
	case Subscribe:
		return s.subscribe(a)
	case Unsubscribe:
		return s.unsubscribe(a)
	case List:
		return s.send(SensorsListFrame{Type: TypeSensorsList, Sensors: s.provider.Names()})
	case Ping:
		return s.send(PongFrame{Type: TypePong, Timestamp: timestamp(s.now())})
	case Unknown:
		return s.send(ErrorFrame{Type: TypeError, Message: MsgUnknownAction + a.Name})
	default:
		return fmt.Errorf("unhandled action %T", action)
	}
}

func (s *Session) subscribe(a Subscribe) error {
	requested := a.Sensors
	if a.All {
		requested = s.provider.Names()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var unknown []string
	for _, name := range requested {
		if s.provider.Has(name) {
			s.subs[name] = struct{}{}
		} else {
			unknown = append(unknown, name)
		}
	}
	if a.Interval != nil {
		s.intervalMs = ClampInterval(*a.Interval)
	}

	s.stopTaskLocked()
	err := s.send(SubscribedFrame{
		Type:     TypeSubscribed,
		Sensors:  s.orderedLocked(),
		Interval: s.intervalMs,
		Unknown:  unknown,
	})
	s.rescheduleLocked()

	s.log.Debug("subscribed", "sensors", len(s.subs), "interval_ms", s.intervalMs, "unknown", len(unknown))
	return err
}

func (s *Session) unsubscribe(a Unsubscribe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	targets := make(map[string]struct{}, len(a.Sensors))
	if a.All {
		for name := range s.subs {
			targets[name] = struct{}{}
		}
	} else {
		for _, name := range a.Sensors {
			targets[name] = struct{}{}
		}
	}

	removed := make([]string, 0, len(targets))
	for _, name := range s.provider.Names() {
		if _, want := targets[name]; !want {
			continue
		}
		if _, ok := s.subs[name]; ok {
			delete(s.subs, name)
			removed = append(removed, name)
		}
	}

	s.stopTaskLocked()
	err := s.send(UnsubscribedFrame{
		Type:      TypeUnsubscribed,
		Sensors:   removed,
		Remaining: s.orderedLocked(),
	})
	s.rescheduleLocked()

	s.log.Debug("unsubscribed", "removed", len(removed), "remaining", len(s.subs))
	return err
}

// Close cancels the push task. No tick runs after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTaskLocked()
}

// State reports whether a push task is active.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil {
		return StateStreaming
	}
	return StateIdle
}

// Subscriptions returns the subscribed names in registry order.
func (s *Session) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedLocked()
}

// Interval returns the current push interval in milliseconds.
func (s *Session) Interval() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalMs
}

func (s *Session) orderedLocked() []string {
	out := make([]string, 0, len(s.subs))
	for _, name := range s.provider.Names() {
		if _, ok := s.subs[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *Session) stopTaskLocked() {
	if s.task != nil {
		s.task.Stop()
		s.task = nil
	}
}

func (s *Session) rescheduleLocked() {
	if len(s.subs) == 0 {
		return
	}
	names := s.orderedLocked()
	s.task = s.scheduler.Schedule(time.Duration(s.intervalMs)*time.Millisecond, func(time.Time) {
		s.push(names)
	})
}

// push writes one data frame per name. It runs on the scheduler and must not
// take s.mu.
func (s *Session) push(names []string) {
	for _, name := range names {
		reading, err := s.provider.Produce(name)
		if err != nil {
			continue
		}
		err = s.send(DataFrame{
			Type:      TypeData,
			Sensor:    name,
			Data:      reading,
			Timestamp: timestamp(s.now()),
		})
		if err != nil {
			metrics.StreamFrames.WithLabelValues(metrics.OutcomeDropped).Inc()
			s.log.Debug("push failed, dropping tick", "sensor", name, "error", err)
			return
		}
		metrics.StreamFrames.WithLabelValues(metrics.OutcomeSent).Inc()
	}
}

func (s *Session) send(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := s.conn.Send(s.ctx, data); err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrClosed
		}
		return err
	}
	return nil
}
