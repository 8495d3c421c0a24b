package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/storage"
)

var (
	ErrStorageNotConfigured = errors.New("media storage not configured")
	ErrMediaTooLarge        = errors.New("media file too large")
	ErrMediaUnsupported     = errors.New("unsupported media type")
)

const maxAvatarBytes = 5 << 20

var allowedAvatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// MediaService stores avatars in the object store and records the serving URL
// on the profile. The store is optional; without one every call fails with
// ErrStorageNotConfigured rather than at startup.
type MediaService struct {
	store    *storage.MediaStore
	userRepo repository.UserRepositoryInterface
}

func NewMediaService(store *storage.MediaStore, userRepo repository.UserRepositoryInterface) *MediaService {
	return &MediaService{store: store, userRepo: userRepo}
}

func (s *MediaService) UploadAvatar(ctx context.Context, userID uint, body io.Reader, size int64, contentType string, baseURL string) (*models.User, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	if size <= 0 || size > maxAvatarBytes {
		return nil, ErrMediaTooLarge
	}
	if _, ok := allowedAvatarTypes[contentType]; !ok {
		return nil, ErrMediaUnsupported
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	key := storage.AvatarKey(userID)
	if _, err := s.store.Put(ctx, key, body, size, contentType); err != nil {
		return nil, err
	}

	user.Avatar = fmt.Sprintf("%s/media/%s", baseURL, key)
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *MediaService) DeleteAvatar(ctx context.Context, userID uint) (*models.User, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, storage.AvatarKey(userID)); err != nil {
		return nil, err
	}
	user.Avatar = ""
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// OpenObject streams a stored media object for the serving endpoint.
func (s *MediaService) OpenObject(ctx context.Context, key string) (io.ReadCloser, storage.ObjectStat, error) {
	if s.store == nil {
		return nil, storage.ObjectStat{}, ErrStorageNotConfigured
	}
	return s.store.Get(ctx, key)
}
