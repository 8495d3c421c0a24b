package signal

import (
	"sync"
)

// SignalConversationsUpdated is broadcast by any component that changed
// conversation read state in-process (e.g. a chat handler that just marked a
// conversation read), so the unread aggregator can refresh without waiting for
// the backend event stream to echo the change back.
const SignalConversationsUpdated = "conversations-updated"

// Bus is a process-wide named broadcast. Signals carry no payload; they are
// hints to refresh, so delivery to a slow subscriber may be coalesced.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan struct{}
	nextID int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan struct{})}
}

// Subscribe registers a listener for the named signal. The returned channel
// has a one-slot buffer: a publish while a previous hint is still pending is
// coalesced into it. cancel removes the listener and closes the channel.
func (b *Bus) Subscribe(name string) (ch <-chan struct{}, cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[name] == nil {
		b.subs[name] = make(map[int]chan struct{})
	}
	id := b.nextID
	b.nextID++

	c := make(chan struct{}, 1)
	b.subs[name][id] = c

	cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[name][id]; ok {
			delete(b.subs[name], id)
			close(sub)
		}
	}
	return c, cancel
}

// Publish notifies every subscriber of the named signal. Never blocks.
func (b *Bus) Publish(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.subs[name] {
		select {
		case c <- struct{}{}:
		default:
			// A hint is already pending; coalesce.
		}
	}
}
