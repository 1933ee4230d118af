package sse

import "sync"

// Sink is a bounded per-subscriber queue between the hub and one SSE
// response. Send never blocks: a full queue fails the write and ends the
// stream so the client reconnects instead of silently missing entries.
type Sink struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewSink creates a sink that buffers up to size frames.
func NewSink(size int) *Sink {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Sink{
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// Send enqueues one frame.
func (s *Sink) Send(data []byte) error {
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}

	select {
	case s.frames <- data:
		return nil
	default:
		s.Close()
		return ErrBufferFull
	}
}

// Frames returns the queue the writer drains.
func (s *Sink) Frames() <-chan []byte { return s.frames }

// Done is closed once the sink stops accepting frames.
func (s *Sink) Done() <-chan struct{} { return s.done }

// Close stops the sink. Safe to call more than once.
func (s *Sink) Close() {
	s.once.Do(func() { close(s.done) })
}
