package service

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/validation"
)

var ErrInvalidPost = errors.New("post content is empty or too long")

type FeedService struct {
	postRepo repository.PostRepositoryInterface
}

func NewFeedService(postRepo repository.PostRepositoryInterface) *FeedService {
	return &FeedService{postRepo: postRepo}
}

type CreatePostInput struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (s *FeedService) CreatePost(authorID uint, input CreatePostInput) (*models.Post, error) {
	if !validation.ValidatePostContent(input.Content) {
		return nil, ErrInvalidPost
	}
	post := &models.Post{
		AuthorID: authorID,
		Content:  validation.NormalizeContent(input.Content),
		ImageURL: input.ImageURL,
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, err
	}
	return s.postRepo.FindByID(post.ID)
}

func (s *FeedService) ListPosts(cursor uint, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.postRepo.ListRecent(cursor, limit)
}

func (s *FeedService) DeletePost(postID, authorID uint) error {
	return s.postRepo.Delete(postID, authorID)
}
