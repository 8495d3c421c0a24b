package handlers

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

func (h *FeedHandler) CreatePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	var input service.CreatePostInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	post, err := h.feedService.CreatePost(userID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPost) {
			return httpx.BadRequest(c, "invalid_post", err.Error())
		}
		return httpx.Internal(c, "create_post_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(post.ToResponse())
}

func (h *FeedHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.feedService.ListPosts(uint(c.QueryInt("cursor")), c.QueryInt("limit"))
	if err != nil {
		return httpx.Internal(c, "list_posts_failed")
	}

	responses := make([]models.PostResponse, 0, len(posts))
	for i := range posts {
		responses = append(responses, posts[i].ToResponse())
	}
	return c.JSON(fiber.Map{"posts": responses})
}

func (h *FeedHandler) DeletePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	postID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	if err := h.feedService.DeletePost(postID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "post_not_found", "Post not found")
		}
		return httpx.Internal(c, "delete_post_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
