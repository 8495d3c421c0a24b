package handlers

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	user, err := h.userService.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "user_not_found", "User not found")
		}
		return httpx.Internal(c, "get_user_failed")
	}
	return c.JSON(user.ToResponse())
}

// GetUser resolves either a numeric ID or a username.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.userService.GetByIdentifier(c.Params("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "user_not_found", "User not found")
		}
		return httpx.Internal(c, "get_user_failed")
	}
	return c.JSON(user.ToResponse())
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	var input service.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	user, err := h.userService.UpdateProfile(userID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUsername) {
			return httpx.BadRequest(c, "invalid_username", err.Error())
		}
		return httpx.Internal(c, "update_profile_failed")
	}
	return c.JSON(user.ToResponse())
}

func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return httpx.BadRequest(c, "missing_query", "Query parameter q is required")
	}

	users, err := h.userService.Search(query, c.QueryInt("limit"))
	if err != nil {
		return httpx.Internal(c, "search_failed")
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}
	return c.JSON(fiber.Map{"users": responses})
}
