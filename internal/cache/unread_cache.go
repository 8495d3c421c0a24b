package cache

import (
	"fmt"
	"time"

	"github.com/campuslink/campuslink-backend/internal/unread"
	"github.com/vmihailenco/msgpack/v5"
)

// UnreadSnapshotTTL bounds how stale a cached badge can be: a fresh session
// renders it provisionally while its own baseline runs.
const UnreadSnapshotTTL = 1 * time.Minute

// UnreadCache is a write-through of the aggregator's last published snapshot.
// Nil-safe: a nil cache (Redis unavailable) degrades to no caching.
type UnreadCache struct {
	redis *RedisCache
}

func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func unreadKey(userID uint) string {
	return fmt.Sprintf("unread:%d", userID)
}

// Get returns the cached snapshot, if any.
func (uc *UnreadCache) Get(userID uint) (unread.Snapshot, bool) {
	if uc == nil || uc.redis == nil {
		return unread.Snapshot{}, false
	}
	data, err := uc.redis.Get(unreadKey(userID))
	if err != nil || data == nil {
		return unread.Snapshot{}, false
	}

	var snap unread.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return unread.Snapshot{}, false
	}
	return snap, true
}

// Put stores a snapshot. Unknown snapshots are evicted instead: a hidden
// badge must not resurrect a stale count on the next session.
func (uc *UnreadCache) Put(userID uint, snap unread.Snapshot) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	if !snap.Known {
		return uc.redis.Delete(unreadKey(userID))
	}

	data, err := msgpack.Marshal(snap)
	if err != nil {
		return err
	}
	return uc.redis.Set(unreadKey(userID), data, UnreadSnapshotTTL)
}

// Invalidate drops a user's cached snapshot.
func (uc *UnreadCache) Invalidate(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	return uc.redis.Delete(unreadKey(userID))
}
