package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MediaConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func LoadMediaConfigFromEnv() (MediaConfig, error) {
	cfg := MediaConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("MEDIA_ENDPOINT")),
		Region:    strings.TrimSpace(os.Getenv("MEDIA_REGION")),
		Bucket:    strings.TrimSpace(os.Getenv("MEDIA_BUCKET")),
		AccessKey: strings.TrimSpace(os.Getenv("MEDIA_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("MEDIA_SECRET_KEY")),
	}
	if useSSL := strings.TrimSpace(os.Getenv("MEDIA_USE_SSL")); useSSL != "" {
		b, err := strconv.ParseBool(useSSL)
		if err != nil {
			return MediaConfig{}, fmt.Errorf("invalid MEDIA_USE_SSL: %w", err)
		}
		cfg.UseSSL = b
	}

	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return MediaConfig{}, errors.New("missing required media env: MEDIA_ENDPOINT, MEDIA_BUCKET, MEDIA_ACCESS_KEY, MEDIA_SECRET_KEY")
	}
	// Region can be empty for MinIO.
	return cfg, nil
}

// MediaStore holds user avatars and post images in a single bucket.
type MediaStore struct {
	client *minio.Client
	bucket string
}

func NewMediaStore(cfg MediaConfig) (*MediaStore, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MediaStore{client: cl, bucket: cfg.Bucket}, nil
}

type ObjectStat struct {
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

func (s *MediaStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectStat, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectStat{}, err
	}
	return ObjectStat{ETag: info.ETag, Size: info.Size, ContentType: contentType, LastModified: time.Now().UTC()}, nil
}

func (s *MediaStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectStat, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectStat{}, err
	}
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectStat{}, err
	}
	return obj, ObjectStat{ETag: st.ETag, Size: st.Size, ContentType: st.ContentType, LastModified: st.LastModified}, nil
}

func (s *MediaStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// AvatarKey builds the object key for a user's avatar. Keys are derived from
// the numeric user ID only, so there is nothing to sanitize.
func AvatarKey(userID uint) string {
	return fmt.Sprintf("avatars/%d", userID)
}
