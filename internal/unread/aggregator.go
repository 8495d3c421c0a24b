// Package unread maintains a per-session total of unread direct messages.
//
// The count is seeded by a baseline query (one participation fetch plus one
// per-conversation unread count) and then kept converged incrementally from
// the event stream and the local signal bus, without re-running the baseline
// on every event. All reconciliation runs on a single goroutine so an event's
// reaction, including any awaited re-fetch, completes before the next event
// is touched.
package unread

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/signal"
	"github.com/campuslink/campuslink-backend/internal/stream"
)

// Store is the read side of the conversation membership store.
type Store interface {
	// GetParticipations returns every conversation the user belongs to with
	// its read watermark.
	GetParticipations(ctx context.Context, userID uint) ([]models.Participation, error)
	// UnreadCount counts messages in one conversation created strictly after
	// since, excluding those sent by excludeSenderID.
	UnreadCount(ctx context.Context, conversationID uint, since time.Time, excludeSenderID uint) (int64, error)
}

// State of the aggregator session.
type State int

const (
	StateInit State = iota
	StateBaselineLoading
	StateLive
	StateRecomputing
	StateStale
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateBaselineLoading:
		return "baseline-loading"
	case StateLive:
		return "live"
	case StateRecomputing:
		return "recomputing"
	case StateStale:
		return "stale"
	case StateTornDown:
		return "torn-down"
	}
	return "unknown"
}

// Snapshot is the observable unread state. Known is false while the count is
// unknown (baseline not yet loaded, or it failed); consumers hide the badge
// rather than show zero. Stale means the count is shown but may lag, e.g.
// after a stream drop or a partial fetch failure.
type Snapshot struct {
	Count int64
	Known bool
	Stale bool
}

// FormatBadge renders a snapshot the way the UI shows it: empty string for no
// badge, "99+" past the cap.
func FormatBadge(s Snapshot) string {
	if !s.Known || s.Count <= 0 {
		return ""
	}
	if s.Count > 99 {
		return "99+"
	}
	return strconv.FormatInt(s.Count, 10)
}

// convState is the loop-owned cache for one conversation: the read watermark
// (epoch floor already applied) and this conversation's contribution to the
// total. stale marks a failed fetch whose contribution is excluded until the
// next event triggers a lazy re-fetch.
type convState struct {
	lastReadAt   time.Time
	contribution int64
	stale        bool
}

const defaultDedupCapacity = 512

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithBaselineRetryDelay sets the delay before a failed baseline is retried.
func WithBaselineRetryDelay(d time.Duration) Option {
	return func(a *Aggregator) { a.retryDelay = d }
}

// WithSnapshotSink registers a hook invoked (on the loop goroutine) with
// every published snapshot, e.g. to write through to a cache.
func WithSnapshotSink(sink func(Snapshot)) Option {
	return func(a *Aggregator) { a.sink = sink }
}

// Aggregator owns the unread count for one active user session. Nothing else
// mutates the count; other components only signal via the bus.
type Aggregator struct {
	userID     uint
	store      Store
	subscriber stream.Subscriber
	bus        *signal.Bus

	retryDelay time.Duration
	sink       func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	closer sync.Once

	retryCh chan struct{}

	// Loop-owned; never touched off the run goroutine.
	convs map[uint]*convState
	total int64
	seen  *ringSet

	mu        sync.RWMutex
	state     State
	snap      Snapshot
	listeners map[int]chan Snapshot
	nextSub   int
}

// New builds an inactive aggregator. Start activates it.
func New(userID uint, store Store, subscriber stream.Subscriber, bus *signal.Bus, opts ...Option) *Aggregator {
	a := &Aggregator{
		userID:     userID,
		store:      store,
		subscriber: subscriber,
		bus:        bus,
		retryDelay: 5 * time.Second,
		done:       make(chan struct{}),
		retryCh:    make(chan struct{}, 1),
		convs:      make(map[uint]*convState),
		seen:       newRingSet(defaultDedupCapacity),
		state:      StateInit,
		listeners:  make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

// ErrNoStream means no event stream backend is available, so a live session
// cannot be established.
var ErrNoStream = errors.New("unread: event stream unavailable")

// Start acquires the event stream subscription and the bus listener, then
// launches the run loop. A subscription failure leaves the aggregator torn
// down; the caller may retry with a fresh instance.
func (a *Aggregator) Start() error {
	if a.subscriber == nil {
		a.cancel()
		close(a.done)
		a.setState(StateTornDown)
		return ErrNoStream
	}
	notices, err := a.subscriber.Subscribe(a.ctx, a.userID)
	if err != nil {
		a.cancel()
		close(a.done)
		a.setState(StateTornDown)
		return err
	}

	busCh, cancelBus := a.bus.Subscribe(signal.SignalConversationsUpdated)
	go a.run(notices, busCh, cancelBus)
	return nil
}

// Close tears the session down: the subscription and bus listener are
// released and any in-flight fetch is abandoned without mutating the count.
// Blocks until the run loop has exited. Safe to call more than once.
func (a *Aggregator) Close() {
	a.closer.Do(a.cancel)
	<-a.done
}

// Snapshot returns the current observable unread state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// State reports the session state.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Updates subscribes to snapshot changes. The channel has a one-slot buffer;
// intermediate snapshots may be coalesced, the latest always arrives.
func (a *Aggregator) Updates() (<-chan Snapshot, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextSub
	a.nextSub++
	ch := make(chan Snapshot, 1)
	a.listeners[id] = ch

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.listeners[id]; ok {
			delete(a.listeners, id)
			close(c)
		}
	}
	return ch, cancel
}

// run is the single-consumer loop: every input source funnels here and each
// reaction completes before the next is taken.
func (a *Aggregator) run(notices <-chan stream.Notice, busCh <-chan struct{}, cancelBus func()) {
	defer close(a.done)
	defer cancelBus()
	defer a.setState(StateTornDown)

	a.setState(StateBaselineLoading)
	a.loadBaseline()

	for {
		select {
		case <-a.ctx.Done():
			return
		case n, ok := <-notices:
			if !ok {
				// The subscription only closes on cancellation.
				return
			}
			a.handleNotice(n)
		case <-busCh:
			a.refreshStale()
			a.refreshParticipations()
		case <-a.retryCh:
			a.setState(StateBaselineLoading)
			a.loadBaseline()
		}
	}
}

// loadBaseline computes the authoritative count from source data. A failed
// participation fetch leaves the count unknown and schedules a retry; a
// failed per-conversation count excludes that conversation from the sum and
// flags it for lazy recomputation on the next event.
func (a *Aggregator) loadBaseline() {
	parts, err := a.store.GetParticipations(a.ctx, a.userID)
	if err != nil {
		if a.ctx.Err() != nil {
			return
		}
		log.Printf("unread: user %d baseline participations fetch: %v", a.userID, err)
		a.publish(StateStale, Snapshot{Known: false})
		a.scheduleRetry()
		return
	}

	convs := make(map[uint]*convState, len(parts))
	var total int64
	anyStale := false
	for _, p := range parts {
		cs := &convState{lastReadAt: p.ReadWatermark()}
		convs[p.ConversationID] = cs

		count, err := a.store.UnreadCount(a.ctx, p.ConversationID, cs.lastReadAt, a.userID)
		if err != nil {
			if a.ctx.Err() != nil {
				return
			}
			log.Printf("unread: user %d conversation %d count fetch: %v", a.userID, p.ConversationID, err)
			cs.stale = true
			anyStale = true
			continue
		}
		cs.contribution = count
		total += count
	}

	a.convs = convs
	a.total = total
	a.publish(StateLive, Snapshot{Count: total, Known: true, Stale: anyStale})
}

func (a *Aggregator) scheduleRetry() {
	time.AfterFunc(a.retryDelay, func() {
		select {
		case a.retryCh <- struct{}{}:
		default:
		}
	})
}

func (a *Aggregator) handleNotice(n stream.Notice) {
	switch n.Status {
	case stream.StatusDropped:
		// The gap may have swallowed events; keep showing the last count
		// but flag it until the reconnect recompute.
		log.Printf("unread: user %d stream dropped, count stale", a.userID)
		a.publish(StateStale, Snapshot{Count: a.total, Known: a.Snapshot().Known, Stale: true})
	case stream.StatusReconnected:
		a.setState(StateBaselineLoading)
		a.loadBaseline()
	case stream.StatusEvent:
		if n.Event == nil {
			return
		}
		switch n.Event.Kind {
		case stream.KindInsert:
			a.handleInsert(n.Event)
		case stream.KindMembershipUpdate:
			a.handleMembershipUpdate(n.Event)
		}
		// Any event also drives lazy recomputation of conversations whose
		// last fetch failed.
		a.refreshStale()
	}
}

// handleInsert applies a message-insert event: increment by exactly one when
// the message is from someone else, lands in a conversation we participate
// in, and was created after the cached watermark.
func (a *Aggregator) handleInsert(ev *stream.Event) {
	cs, ok := a.convs[ev.ConversationID]
	if !ok {
		// Not a participant; ignore.
		return
	}
	if ev.SenderID == a.userID {
		return
	}
	if ev.MessageID != 0 && !a.seen.Add(ev.MessageID) {
		// Redelivered; already counted.
		return
	}
	if cs.stale {
		// The conversation's contribution is pending a re-fetch, which
		// will already see this message; incrementing too would inflate.
		a.recountConversation(ev.ConversationID, cs)
		return
	}
	if !ev.CreatedAt.After(cs.lastReadAt) {
		return
	}
	cs.contribution++
	a.total++
	a.publish(StateLive, Snapshot{Count: a.total, Known: true, Stale: a.anyStale()})
}

// handleMembershipUpdate absorbs a read-watermark advance from another
// device or tab: last write wins on the watermark, then one per-conversation
// re-fetch replaces that conversation's prior contribution.
func (a *Aggregator) handleMembershipUpdate(ev *stream.Event) {
	cs, ok := a.convs[ev.ConversationID]
	if !ok {
		// A conversation we have no row for; the membership set changed
		// under us, so refresh it wholesale.
		a.refreshParticipations()
		return
	}

	if ev.LastReadAt != nil {
		cs.lastReadAt = *ev.LastReadAt
	}
	a.setState(StateRecomputing)
	a.recountConversation(ev.ConversationID, cs)
}

// recountConversation re-fetches one conversation's unread count and swaps
// its contribution into the total. On failure the contribution is dropped
// rather than kept, so the badge can undercount but never inflate.
func (a *Aggregator) recountConversation(conversationID uint, cs *convState) {
	count, err := a.store.UnreadCount(a.ctx, conversationID, cs.lastReadAt, a.userID)
	if a.ctx.Err() != nil {
		// Torn down while the fetch was in flight; discard the result.
		return
	}
	if err != nil {
		log.Printf("unread: user %d conversation %d recount: %v", a.userID, conversationID, err)
		a.total -= cs.contribution
		cs.contribution = 0
		cs.stale = true
		a.publish(StateLive, Snapshot{Count: a.total, Known: true, Stale: true})
		return
	}
	a.total += count - cs.contribution
	cs.contribution = count
	cs.stale = false
	a.publish(StateLive, Snapshot{Count: a.total, Known: true, Stale: a.anyStale()})
}

// refreshStale lazily recomputes conversations whose last fetch failed.
func (a *Aggregator) refreshStale() {
	for id, cs := range a.convs {
		if !cs.stale {
			continue
		}
		if a.ctx.Err() != nil {
			return
		}
		a.recountConversation(id, cs)
	}
}

// refreshParticipations re-reads the membership set and reconciles against
// the cache: new conversations are counted, advanced watermarks re-fetched,
// vanished conversations dropped. This is the reaction to the local bus
// signal, which carries no payload, so changed conversations are found by
// diffing watermarks.
func (a *Aggregator) refreshParticipations() {
	a.setState(StateRecomputing)
	parts, err := a.store.GetParticipations(a.ctx, a.userID)
	if a.ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("unread: user %d participations refresh: %v", a.userID, err)
		a.publish(StateLive, Snapshot{Count: a.total, Known: a.Snapshot().Known, Stale: true})
		return
	}

	current := make(map[uint]struct{}, len(parts))
	for _, p := range parts {
		current[p.ConversationID] = struct{}{}
		watermark := p.ReadWatermark()

		cs, ok := a.convs[p.ConversationID]
		if !ok {
			cs = &convState{lastReadAt: watermark}
			a.convs[p.ConversationID] = cs
			a.recountConversation(p.ConversationID, cs)
			continue
		}
		if !watermark.Equal(cs.lastReadAt) {
			cs.lastReadAt = watermark
			a.recountConversation(p.ConversationID, cs)
		}
		if a.ctx.Err() != nil {
			return
		}
	}

	for id, cs := range a.convs {
		if _, ok := current[id]; !ok {
			a.total -= cs.contribution
			delete(a.convs, id)
		}
	}
	a.publish(StateLive, Snapshot{Count: a.total, Known: true, Stale: a.anyStale()})
}

func (a *Aggregator) anyStale() bool {
	for _, cs := range a.convs {
		if cs.stale {
			return true
		}
	}
	return false
}

func (a *Aggregator) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// publish updates the observable snapshot and fans it out. Liveness is
// checked first so a result that races teardown is discarded.
func (a *Aggregator) publish(s State, snap Snapshot) {
	if a.ctx.Err() != nil {
		return
	}

	a.mu.Lock()
	a.state = s
	a.snap = snap
	for _, ch := range a.listeners {
		select {
		case ch <- snap:
		default:
			// Listener hasn't drained the previous snapshot; replace it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	a.mu.Unlock()

	if a.sink != nil {
		a.sink(snap)
	}
}
