package handlers

import (
	"github.com/campuslink/campuslink-backend/internal/cache"
	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/unread"
	"github.com/gofiber/fiber/v2"
)

// UnreadHandler answers the polling fallback for clients without a live
// socket. A live aggregator is authoritative; otherwise the cached snapshot
// from the last session is served, and with neither the badge stays hidden.
type UnreadHandler struct {
	manager *unread.Manager
	cache   *cache.UnreadCache
}

func NewUnreadHandler(manager *unread.Manager, unreadCache *cache.UnreadCache) *UnreadHandler {
	return &UnreadHandler{manager: manager, cache: unreadCache}
}

func (h *UnreadHandler) GetUnread(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	snap, ok := h.manager.Peek(userID)
	source := "live"
	if !ok {
		snap, ok = h.cache.Get(userID)
		source = "cache"
	}
	if !ok {
		snap = unread.Snapshot{}
		source = "none"
	}

	return c.JSON(fiber.Map{
		"count":  snap.Count,
		"known":  snap.Known,
		"stale":  snap.Stale,
		"badge":  unread.FormatBadge(snap),
		"source": source,
	})
}
