package handlers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

func publicAPIBaseURL(c *fiber.Ctx) string {
	base := strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_API_BASE_URL")), "/")
	if base != "" {
		return base
	}
	// Fallback: infer from request.
	return strings.TrimRight(c.BaseURL(), "/") + "/api"
}

func (h *MediaHandler) UploadMyAvatar(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return httpx.BadRequest(c, "missing_avatar", "avatar file is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_avatar", "Invalid avatar upload")
	}
	defer f.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	user, err := h.mediaService.UploadAvatar(c.Context(), userID, f, fileHeader.Size, contentType, publicAPIBaseURL(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStorageNotConfigured):
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		case errors.Is(err, service.ErrMediaTooLarge):
			return httpx.BadRequest(c, "avatar_too_large", "Avatar is too large")
		case errors.Is(err, service.ErrMediaUnsupported):
			return httpx.BadRequest(c, "avatar_unsupported", "Unsupported image type")
		default:
			return httpx.Internal(c, "avatar_upload_failed")
		}
	}
	return c.JSON(fiber.Map{"user": user.ToResponse()})
}

func (h *MediaHandler) DeleteMyAvatar(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	user, err := h.mediaService.DeleteAvatar(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrStorageNotConfigured) {
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		}
		return httpx.Internal(c, "avatar_delete_failed")
	}
	return c.JSON(fiber.Map{"user": user.ToResponse()})
}

// ServeMedia streams stored objects. Keys nest (avatars/<id>) so the route
// uses a wildcard.
func (h *MediaHandler) ServeMedia(c *fiber.Ctx) error {
	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" || strings.Contains(key, "..") {
		return httpx.BadRequest(c, "invalid_media_key", "Invalid media key")
	}

	obj, stat, err := h.mediaService.OpenObject(c.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrStorageNotConfigured) {
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		}
		return httpx.NotFound(c, "media_not_found", "Media not found")
	}

	c.Set(fiber.HeaderContentType, stat.ContentType)
	c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", stat.Size))
	c.Set(fiber.HeaderETag, stat.ETag)
	return c.SendStream(obj, int(stat.Size))
}
