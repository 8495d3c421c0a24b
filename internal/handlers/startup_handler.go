package handlers

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StartupHandler struct {
	startupService *service.StartupService
}

func NewStartupHandler(startupService *service.StartupService) *StartupHandler {
	return &StartupHandler{startupService: startupService}
}

func (h *StartupHandler) CreateListing(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	var input service.StartupInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	startup, err := h.startupService.CreateListing(userID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStartup) {
			return httpx.BadRequest(c, "invalid_startup", err.Error())
		}
		return httpx.Internal(c, "create_listing_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(startup)
}

func (h *StartupHandler) GetListing(c *fiber.Ctx) error {
	startupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_startup", "Invalid startup id")
	}

	startup, err := h.startupService.GetListing(startupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "startup_not_found", "Startup not found")
		}
		return httpx.Internal(c, "get_listing_failed")
	}
	return c.JSON(startup)
}

func (h *StartupHandler) ListListings(c *fiber.Ctx) error {
	startups, err := h.startupService.ListListings(c.QueryInt("limit"))
	if err != nil {
		return httpx.Internal(c, "list_listings_failed")
	}
	return c.JSON(fiber.Map{"startups": startups})
}

func (h *StartupHandler) UpdateListing(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	startupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_startup", "Invalid startup id")
	}

	var input service.StartupInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	startup, err := h.startupService.UpdateListing(startupID, userID, input)
	if err != nil {
		return h.listingError(c, err, "update_listing_failed")
	}
	return c.JSON(startup)
}

func (h *StartupHandler) DeleteListing(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	startupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_startup", "Invalid startup id")
	}

	if err := h.startupService.DeleteListing(startupID, userID); err != nil {
		return h.listingError(c, err, "delete_listing_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *StartupHandler) AddOffer(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	startupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_startup", "Invalid startup id")
	}

	var input service.OfferInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	startup, err := h.startupService.AddOffer(startupID, userID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOffer) {
			return httpx.BadRequest(c, "invalid_offer", err.Error())
		}
		return h.listingError(c, err, "add_offer_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(startup)
}

func (h *StartupHandler) RemoveOffer(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	offerID, err := httpx.ParamUint(c, "offerID")
	if err != nil {
		return httpx.BadRequest(c, "invalid_offer", "Invalid offer id")
	}

	if err := h.startupService.RemoveOffer(offerID, userID); err != nil {
		return h.listingError(c, err, "remove_offer_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *StartupHandler) listingError(c *fiber.Ctx, err error, code string) error {
	switch {
	case errors.Is(err, service.ErrNotFounder):
		return httpx.Forbidden(c, "not_founder", err.Error())
	case errors.Is(err, service.ErrInvalidStartup):
		return httpx.BadRequest(c, "invalid_startup", err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.NotFound(c, "startup_not_found", "Startup not found")
	default:
		return httpx.Internal(c, code)
	}
}
