package unread

import (
	"testing"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/signal"
)

func TestManagerSharesOneAggregatorPerUser(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 2})
	m := NewManager(store, newFakeStream(), signal.NewBus(), nil)

	first, err := m.Acquire(me)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := m.Acquire(me)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first != second {
		t.Fatal("expected the same aggregator for both sessions")
	}
	if m.Active() != 1 {
		t.Errorf("Active() = %d, want 1", m.Active())
	}

	// First release keeps the shared session alive.
	m.Release(me)
	if m.Active() != 1 {
		t.Errorf("Active() after one release = %d, want 1", m.Active())
	}
	if first.State() == StateTornDown {
		t.Error("aggregator torn down while still referenced")
	}

	// Last release tears it down.
	m.Release(me)
	if m.Active() != 0 {
		t.Errorf("Active() after final release = %d, want 0", m.Active())
	}
	if first.State() != StateTornDown {
		t.Errorf("state = %v, want torn-down", first.State())
	}
}

func TestManagerReleaseUnknownUserIsNoop(t *testing.T) {
	m := NewManager(newFakeStore(), newFakeStream(), signal.NewBus(), nil)
	m.Release(42)
}

func TestManagerAppliesPerUserOptions(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 2})

	sink := make(chan Snapshot, 8)
	m := NewManager(store, newFakeStream(), signal.NewBus(), func(userID uint) []Option {
		return []Option{WithSnapshotSink(func(s Snapshot) { sink <- s })}
	})

	if _, err := m.Acquire(me); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer m.Release(me)

	select {
	case snap := <-sink:
		if !snap.Known || snap.Count != 2 {
			t.Errorf("sink snapshot = %+v, want known count 2", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot sink never invoked")
	}
}

func TestManagerDistinctUsers(t *testing.T) {
	store := newFakeStore()
	store.mu.Lock()
	store.parts = []models.Participation{{ConversationID: 10, UserID: 1}}
	store.mu.Unlock()
	m := NewManager(store, newFakeStream(), signal.NewBus(), nil)

	a1, err := m.Acquire(1)
	if err != nil {
		t.Fatalf("Acquire(1): %v", err)
	}
	a2, err := m.Acquire(2)
	if err != nil {
		t.Fatalf("Acquire(2): %v", err)
	}
	if a1 == a2 {
		t.Fatal("users must not share an aggregator")
	}
	m.Release(1)
	m.Release(2)
}
