package unread

import (
	"log"
	"sync"

	"github.com/campuslink/campuslink-backend/internal/signal"
	"github.com/campuslink/campuslink-backend/internal/stream"
)

// Manager hands out at most one live aggregator per user. Multiple sessions
// of the same user (tabs, devices hitting this node) share one subscription;
// the last release tears it down.
type Manager struct {
	store      Store
	subscriber stream.Subscriber
	bus        *signal.Bus
	opts       func(userID uint) []Option

	mu       sync.Mutex
	sessions map[uint]*managedSession
}

type managedSession struct {
	agg  *Aggregator
	refs int
}

// NewManager builds a session manager. opts, if non-nil, supplies per-user
// aggregator options (e.g. a cache write-through sink).
func NewManager(store Store, subscriber stream.Subscriber, bus *signal.Bus, opts func(userID uint) []Option) *Manager {
	return &Manager{
		store:      store,
		subscriber: subscriber,
		bus:        bus,
		opts:       opts,
		sessions:   make(map[uint]*managedSession),
	}
}

// Acquire returns the user's live aggregator, activating one if none exists.
func (m *Manager) Acquire(userID uint) (*Aggregator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		s.refs++
		return s.agg, nil
	}

	var opts []Option
	if m.opts != nil {
		opts = m.opts(userID)
	}
	agg := New(userID, m.store, m.subscriber, m.bus, opts...)
	if err := agg.Start(); err != nil {
		return nil, err
	}
	m.sessions[userID] = &managedSession{agg: agg, refs: 1}
	return agg, nil
}

// Release drops one reference; the final release closes the aggregator.
func (m *Manager) Release(userID uint) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	s.refs--
	if s.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, userID)
	m.mu.Unlock()

	// Close outside the lock; it blocks until the run loop exits.
	s.agg.Close()
	log.Printf("unread: user %d session released", userID)
}

// Peek returns the snapshot of a user's live aggregator without acquiring a
// reference. ok is false when the user has no active session on this node.
func (m *Manager) Peek(userID uint) (Snapshot, bool) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return s.agg.Snapshot(), true
}

// Active reports how many users currently have a live aggregator.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
