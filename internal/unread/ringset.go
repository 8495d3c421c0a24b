package unread

// ringSet remembers the most recent capacity IDs, evicting oldest-first. The
// event stream is assumed to deliver each insert at most once, but a bounded
// memory of recent message IDs makes redelivery harmless.
type ringSet struct {
	members map[uint]struct{}
	order   []uint
	next    int
}

func newRingSet(capacity int) *ringSet {
	if capacity < 1 {
		capacity = 1
	}
	return &ringSet{
		members: make(map[uint]struct{}, capacity),
		order:   make([]uint, capacity),
	}
}

// Add records id and reports whether it was new.
func (r *ringSet) Add(id uint) bool {
	if _, ok := r.members[id]; ok {
		return false
	}
	if evicted := r.order[r.next]; evicted != 0 {
		delete(r.members, evicted)
	}
	r.order[r.next] = id
	r.next = (r.next + 1) % len(r.order)
	r.members[id] = struct{}{}
	return true
}
