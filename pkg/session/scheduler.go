package session

import (
	"sync"
	"time"
)

// Task is a scheduled periodic callback.
type Task interface {
	// Stop cancels the task. When Stop returns the callback is not running
	// and will not run again. Stop must not be called from the callback.
	Stop()
}

// Scheduler runs a callback every interval until the returned Task is
// stopped. Implementations never run two ticks of one task at once and never
// pass a tick time earlier than the previous one.
type Scheduler interface {
	Schedule(interval time.Duration, fn func(time.Time)) Task
}

// Scheduler kinds accepted by NewScheduler.
const (
	SchedulerTimer  = "timer"
	SchedulerShared = "shared"
)

// NewScheduler returns the scheduler for kind. Unknown kinds get a
// TimerScheduler.
func NewScheduler(kind string) Scheduler {
	if kind == SchedulerShared {
		return NewSharedScheduler()
	}
	return TimerScheduler{}
}

// TimerScheduler runs each task on its own goroutine and ticker.
type TimerScheduler struct{}

// Schedule starts fn on a dedicated ticker. The first call happens one
// interval after scheduling.
func (TimerScheduler) Schedule(interval time.Duration, fn func(time.Time)) Task {
	t := &timerTask{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(interval, fn)
	return t
}

type timerTask struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (t *timerTask) run(interval time.Duration, fn func(time.Time)) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			// A stop that raced the tick wins.
			select {
			case <-t.stop:
				return
			default:
			}
			fn(now)
		}
	}
}

func (t *timerTask) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// SharedScheduler multiplexes all tasks with the same interval onto one
// ticker. A tick that finds the task's previous callback still running is
// skipped for that task.
type SharedScheduler struct {
	mu      sync.Mutex
	buckets map[time.Duration]*bucket
}

type bucket struct {
	interval time.Duration
	tasks    map[*sharedTask]struct{}
	stop     chan struct{}
}

// NewSharedScheduler creates an empty SharedScheduler.
func NewSharedScheduler() *SharedScheduler {
	return &SharedScheduler{buckets: make(map[time.Duration]*bucket)}
}

// Schedule adds fn to the bucket for interval, starting the bucket's ticker
// if this is its first task.
func (s *SharedScheduler) Schedule(interval time.Duration, fn func(time.Time)) Task {
	t := &sharedTask{sched: s, interval: interval, fn: fn}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[interval]
	if !ok {
		b = &bucket{
			interval: interval,
			tasks:    make(map[*sharedTask]struct{}),
			stop:     make(chan struct{}),
		}
		s.buckets[interval] = b
		go s.run(b)
	}
	b.tasks[t] = struct{}{}
	return t
}

// Buckets returns the number of live tickers.
func (s *SharedScheduler) Buckets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Close stops every ticker. Tasks scheduled before Close never fire again.
func (s *SharedScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for interval, b := range s.buckets {
		close(b.stop)
		delete(s.buckets, interval)
	}
}

func (s *SharedScheduler) run(b *bucket) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			due := make([]*sharedTask, 0, len(b.tasks))
			for t := range b.tasks {
				due = append(due, t)
			}
			s.mu.Unlock()

			for _, t := range due {
				go t.fire(now)
			}
		}
	}
}

func (s *SharedScheduler) remove(t *sharedTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[t.interval]
	if !ok {
		return
	}
	delete(b.tasks, t)
	if len(b.tasks) == 0 {
		close(b.stop)
		delete(s.buckets, t.interval)
	}
}

type sharedTask struct {
	sched    *SharedScheduler
	interval time.Duration
	fn       func(time.Time)

	// mu is held for the duration of a callback.
	mu       sync.Mutex
	stopped  bool
	lastTick time.Time
}

func (t *sharedTask) fire(now time.Time) {
	if !t.mu.TryLock() {
		return
	}
	defer t.mu.Unlock()

	if t.stopped || !now.After(t.lastTick) {
		return
	}
	t.lastTick = now
	t.fn(now)
}

func (t *sharedTask) Stop() {
	t.mu.Lock()
	already := t.stopped
	t.stopped = true
	t.mu.Unlock()

	if !already {
		t.sched.remove(t)
	}
}
