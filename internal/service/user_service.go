package service

import (
	"errors"
	"strconv"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/validation"
)

var ErrInvalidUsername = errors.New("invalid username")

type UserService struct {
	userRepo repository.UserRepositoryInterface
}

func NewUserService(userRepo repository.UserRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetByID(id uint) (*models.User, error) {
	return s.userRepo.FindByID(id)
}

// GetByIdentifier resolves either a numeric ID or a username.
func (s *UserService) GetByIdentifier(identifier string) (*models.User, error) {
	if id, err := strconv.ParseUint(identifier, 10, 32); err == nil {
		return s.userRepo.FindByID(uint(id))
	}
	return s.userRepo.FindByUsername(identifier)
}

type UpdateProfileInput struct {
	FullName *string `json:"full_name"`
	Major    *string `json:"major"`
	Year     *int    `json:"year"`
	Bio      *string `json:"bio"`
	Username *string `json:"username"`
}

func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := validation.NormalizeUsername(*input.Username)
		if !validation.ValidateUsername(username) {
			return nil, ErrInvalidUsername
		}
		user.Username = username
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Major != nil {
		user.Major = *input.Major
	}
	if input.Year != nil {
		user.Year = *input.Year
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Search(query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.userRepo.SearchUsers(query, limit)
}
