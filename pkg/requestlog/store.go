package requestlog

import (
	"sync"
	"time"
)

// MaxEntries is the default number of entries retained by a Store.
const MaxEntries = 500

// Recorder accepts completed requests. The engine middleware depends on this
// rather than on *Store.
type Recorder interface {
	Record(entry Entry) Entry
}

// Listener is called once per recorded entry, in id order.
type Listener func(entry Entry)

// Store is a bounded, in-memory access log. It keeps the most recent
// entries up to its capacity and owns the request id counter, which keeps
// counting across evictions.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry // oldest first
	capacity int
	nextID   int64

	// notifyMu serializes Record end to end so listeners observe entries
	// in the same order ids were assigned.
	notifyMu sync.Mutex
	listener Listener
}

// NewStore creates a Store holding at most capacity entries.
// A non-positive capacity means MaxEntries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = MaxEntries
	}
	return &Store{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// SetListener installs the function notified after every Record.
// The listener runs while Record still holds the ordering lock, so it
// must not block and must not call Record.
func (s *Store) SetListener(fn Listener) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.listener = fn
}

// Record assigns the next id, inserts the entry as the most recent one and
// evicts the oldest entry if the store is over capacity. Readers never see
// a partially applied insert. The stored copy is returned.
func (s *Store) Record(entry Entry) Entry {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.nextID++
	entry.ID = s.nextID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ResponseTime < 0 {
		entry.ResponseTime = 0
	}

	if len(s.entries) >= s.capacity {
		// Shift instead of reslicing so the backing array does not creep.
		copy(s.entries, s.entries[1:])
		s.entries[len(s.entries)-1] = entry
	} else {
		s.entries = append(s.entries, entry)
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener(entry)
	}
	return entry
}

// Recent returns up to limit entries, most recent first.
func (s *Store) Recent(limit int) []Entry {
	return s.Query(limit, nil)
}

// Query returns up to limit entries accepted by match, most recent first.
// A nil match accepts everything. A non-positive limit returns nothing.
func (s *Store) Query(limit int, match func(Entry) bool) []Entry {
	if limit <= 0 {
		return []Entry{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.entries))
	out := make([]Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if match != nil && !match(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TotalIssued returns the number of ids handed out over the store's
// lifetime, evicted entries included.
func (s *Store) TotalIssued() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Capacity returns the retention bound.
func (s *Store) Capacity() int {
	return s.capacity
}
