package unread

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/signal"
	"github.com/campuslink/campuslink-backend/internal/stream"
)

// fakeStore is an in-memory membership store whose participations, counts
// and failures can be swapped mid-test.
type fakeStore struct {
	mu       sync.Mutex
	parts    []models.Participation
	counts   map[uint]int64
	partsErr error
	countErr map[uint]error

	// When set, UnreadCount blocks until the channel is closed or the
	// caller's context is cancelled.
	block chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:   make(map[uint]int64),
		countErr: make(map[uint]error),
	}
}

func (s *fakeStore) GetParticipations(ctx context.Context, userID uint) ([]models.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partsErr != nil {
		return nil, s.partsErr
	}
	out := make([]models.Participation, len(s.parts))
	copy(out, s.parts)
	return out, nil
}

func (s *fakeStore) UnreadCount(ctx context.Context, conversationID uint, since time.Time, excludeSenderID uint) (int64, error) {
	s.mu.Lock()
	block := s.block
	err := s.countErr[conversationID]
	count := s.counts[conversationID]
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *fakeStore) set(parts []models.Participation, counts map[uint]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts = parts
	s.counts = counts
}

func (s *fakeStore) setCount(conversationID uint, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[conversationID] = count
	delete(s.countErr, conversationID)
}

// fakeStream hands the aggregator a channel the test pushes notices into.
type fakeStream struct {
	ch chan stream.Notice
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan stream.Notice, 16)}
}

func (f *fakeStream) Subscribe(ctx context.Context, userID uint) (<-chan stream.Notice, error) {
	return f.ch, nil
}

func (f *fakeStream) insert(conversationID, messageID, senderID uint, createdAt time.Time) {
	f.ch <- stream.Notice{Status: stream.StatusEvent, Event: &stream.Event{
		Kind:           stream.KindInsert,
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderID:       senderID,
		CreatedAt:      createdAt,
	}}
}

func (f *fakeStream) membershipUpdate(conversationID uint, lastReadAt time.Time) {
	f.ch <- stream.Notice{Status: stream.StatusEvent, Event: &stream.Event{
		Kind:           stream.KindMembershipUpdate,
		ConversationID: conversationID,
		LastReadAt:     &lastReadAt,
	}}
}

func waitFor(t *testing.T, agg *Aggregator, want func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		snap := agg.Snapshot()
		if want(snap) {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot, last %+v", snap)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func startAggregator(t *testing.T, userID uint, store Store, fs *fakeStream, opts ...Option) *Aggregator {
	t.Helper()
	agg := New(userID, store, fs, signal.NewBus(), opts...)
	if err := agg.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(agg.Close)
	return agg
}

const me = uint(1)

func participations(convIDs ...uint) []models.Participation {
	parts := make([]models.Participation, 0, len(convIDs))
	for _, id := range convIDs {
		parts = append(parts, models.Participation{ConversationID: id, UserID: me})
	}
	return parts
}

func TestBaselineNeverReadConversations(t *testing.T) {
	// Two conversations, last_read_at null in both; one holds 3 messages
	// from others, the other none.
	store := newFakeStore()
	store.set(participations(10, 20), map[uint]int64{10: 3, 20: 0})

	agg := startAggregator(t, me, store, newFakeStream())

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Known })
	if snap.Count != 3 {
		t.Errorf("baseline count = %d, want 3", snap.Count)
	}
	if agg.State() != StateLive {
		t.Errorf("state = %v, want live", agg.State())
	}
}

func TestBaselineNoParticipations(t *testing.T) {
	store := newFakeStore()
	agg := startAggregator(t, me, store, newFakeStream())

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Known })
	if snap.Count != 0 {
		t.Errorf("count = %d, want 0", snap.Count)
	}
}

func TestBaselineFailureHidesBadgeThenRetries(t *testing.T) {
	store := newFakeStore()
	store.mu.Lock()
	store.partsErr = errors.New("backend down")
	store.mu.Unlock()

	agg := startAggregator(t, me, store, newFakeStream(),
		WithBaselineRetryDelay(10*time.Millisecond))

	// Unknown, not zero: the badge is hidden rather than wrong.
	snap := waitFor(t, agg, func(s Snapshot) bool { return !s.Known })
	if snap.Count != 0 || snap.Known {
		t.Errorf("snapshot = %+v, want unknown", snap)
	}

	store.mu.Lock()
	store.partsErr = nil
	store.parts = participations(10)
	store.counts = map[uint]int64{10: 2}
	store.mu.Unlock()

	snap = waitFor(t, agg, func(s Snapshot) bool { return s.Known })
	if snap.Count != 2 {
		t.Errorf("count after retry = %d, want 2", snap.Count)
	}
}

func TestBaselinePartialFailureExcludesConversation(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10, 20), map[uint]int64{10: 3})
	store.mu.Lock()
	store.countErr[20] = errors.New("timeout")
	store.mu.Unlock()

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)

	// The failed conversation is excluded, not treated as zero-and-done.
	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Known })
	if snap.Count != 3 || !snap.Stale {
		t.Errorf("snapshot = %+v, want count 3 stale", snap)
	}

	// Next event lazily recomputes the flagged conversation.
	store.setCount(20, 4)
	fs.insert(10, 500, me, time.Now()) // own message, otherwise inert

	snap = waitFor(t, agg, func(s Snapshot) bool { return s.Count == 7 })
	if snap.Stale {
		t.Errorf("snapshot still stale after recompute: %+v", snap)
	}
}

func TestQualifyingInsertIncrementsByExactlyOne(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10, 20, 30), map[uint]int64{10: 1, 20: 2, 30: 0})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	fs.insert(30, 900, 2, time.Now())

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == 4 })
	if snap.Count != 4 {
		t.Errorf("count = %d, want 4", snap.Count)
	}
}

func TestInsertEdgeCases(t *testing.T) {
	now := time.Now()
	watermark := now.Add(-time.Hour)

	tests := []struct {
		name      string
		send      func(fs *fakeStream)
		wantCount int64
	}{
		{
			name: "own message does not count",
			send: func(fs *fakeStream) {
				fs.insert(10, 901, me, now)
			},
			wantCount: 1,
		},
		{
			name: "conversation without participation is filtered out",
			send: func(fs *fakeStream) {
				fs.insert(999, 902, 2, now)
			},
			wantCount: 1,
		},
		{
			name: "message at or before the watermark does not count",
			send: func(fs *fakeStream) {
				fs.insert(10, 903, 2, watermark.Add(-time.Minute))
				fs.insert(10, 904, 2, watermark)
			},
			wantCount: 1,
		},
		{
			name: "duplicate delivery counts once",
			send: func(fs *fakeStream) {
				fs.insert(10, 905, 2, now)
				fs.insert(10, 905, 2, now)
			},
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.set([]models.Participation{
				{ConversationID: 10, UserID: me, LastReadAt: &watermark},
			}, map[uint]int64{10: 1})

			fs := newFakeStream()
			agg := startAggregator(t, me, store, fs)
			waitFor(t, agg, func(s Snapshot) bool { return s.Known })

			tt.send(fs)
			// A trailing qualifying insert proves the preceding events were
			// fully processed (handling is serialized in arrival order).
			fs.insert(10, 999, 2, now)

			snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == tt.wantCount+1 })
			if snap.Count != tt.wantCount+1 {
				t.Errorf("count = %d, want %d", snap.Count, tt.wantCount+1)
			}
		})
	}
}

func TestMembershipUpdateReplacesContribution(t *testing.T) {
	// Baseline of 5 across two conversations; the user reads conversation
	// 10 elsewhere, its re-fetch returns 0: total becomes 5 - 3 + 0.
	store := newFakeStore()
	store.set(participations(10, 20), map[uint]int64{10: 3, 20: 2})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	store.setCount(10, 0)
	fs.membershipUpdate(10, time.Now())

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == 2 })
	if snap.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Count)
	}
}

func TestMembershipUpdateIdempotent(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10, 20), map[uint]int64{10: 3, 20: 2})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	readAt := time.Now()
	store.setCount(10, 1)
	fs.membershipUpdate(10, readAt)
	fs.membershipUpdate(10, readAt)

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == 3 })
	if snap.Count != 3 {
		t.Errorf("count after duplicate update = %d, want 3", snap.Count)
	}
}

func TestMembershipUpdateFailureNeverInflates(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 4})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	store.mu.Lock()
	store.countErr[10] = errors.New("timeout")
	store.mu.Unlock()
	fs.membershipUpdate(10, time.Now())

	// The stale contribution is dropped, not kept: undercount is the
	// acceptable failure mode, an inflated badge is not.
	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == 0 && s.Stale })
	if !snap.Known {
		t.Errorf("snapshot = %+v, want known", snap)
	}
}

func TestLocalSignalRefreshesChangedConversations(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10, 20), map[uint]int64{10: 3, 20: 2})

	fs := newFakeStream()
	bus := signal.NewBus()
	agg := New(me, store, fs, bus)
	if err := agg.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(agg.Close)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	// A chat screen marked conversation 10 read and signalled the bus; the
	// watermark diff picks out the one changed conversation.
	readAt := time.Now()
	store.set([]models.Participation{
		{ConversationID: 10, UserID: me, LastReadAt: &readAt},
		{ConversationID: 20, UserID: me},
	}, map[uint]int64{10: 0, 20: 2})
	bus.Publish(signal.SignalConversationsUpdated)

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == 2 })
	if snap.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Count)
	}
}

func TestLocalSignalPicksUpNewAndRemovedConversations(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 3})

	fs := newFakeStream()
	bus := signal.NewBus()
	agg := New(me, store, fs, bus)
	if err := agg.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(agg.Close)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	store.set(participations(20), map[uint]int64{20: 5})
	bus.Publish(signal.SignalConversationsUpdated)

	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Count == 5 })
	if snap.Count != 5 {
		t.Errorf("count = %d, want 5", snap.Count)
	}
}

func TestTeardownDiscardsInFlightRefetch(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 3})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	// Block the re-fetch, then end the session while it is in flight.
	release := make(chan struct{})
	store.mu.Lock()
	store.block = release
	store.counts[10] = 0
	store.mu.Unlock()
	fs.membershipUpdate(10, time.Now())

	time.Sleep(20 * time.Millisecond) // let the loop enter the fetch
	go close(release)
	agg.Close()

	if got := agg.Snapshot().Count; got != 3 {
		t.Errorf("count mutated after teardown: got %d, want 3", got)
	}
	if agg.State() != StateTornDown {
		t.Errorf("state = %v, want torn-down", agg.State())
	}
}

func TestStreamDropMarksStaleAndReconnectRecomputes(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 3})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)
	waitFor(t, agg, func(s Snapshot) bool { return s.Known })

	fs.ch <- stream.Notice{Status: stream.StatusDropped}
	snap := waitFor(t, agg, func(s Snapshot) bool { return s.Stale })
	if snap.Count != 3 {
		t.Errorf("count = %d, want 3 while stale", snap.Count)
	}

	// Events missed during the gap are absorbed by the reconnect baseline.
	store.setCount(10, 6)
	fs.ch <- stream.Notice{Status: stream.StatusReconnected}

	snap = waitFor(t, agg, func(s Snapshot) bool { return s.Count == 6 })
	if snap.Stale {
		t.Errorf("snapshot still stale after reconnect: %+v", snap)
	}
}

func TestUpdatesDeliversLatestSnapshot(t *testing.T) {
	store := newFakeStore()
	store.set(participations(10), map[uint]int64{10: 1})

	fs := newFakeStream()
	agg := startAggregator(t, me, store, fs)

	updates, cancel := agg.Updates()
	defer cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.Known && snap.Count == 1 {
				return
			}
		case <-deadline:
			t.Fatal("never observed the baseline snapshot")
		}
	}
}

func TestFormatBadge(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"unknown hides badge", Snapshot{Count: 5, Known: false}, ""},
		{"zero hides badge", Snapshot{Count: 0, Known: true}, ""},
		{"small count", Snapshot{Count: 5, Known: true}, "5"},
		{"at cap", Snapshot{Count: 99, Known: true}, "99"},
		{"over cap", Snapshot{Count: 100, Known: true}, "99+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBadge(tt.snap); got != tt.want {
				t.Errorf("FormatBadge(%+v) = %q, want %q", tt.snap, got, tt.want)
			}
		})
	}
}
