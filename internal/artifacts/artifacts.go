// Package artifacts uploads outputs that are too large for chat delivery to
// S3-compatible object storage and hands back a shareable link. When storage
// is not configured the service degrades to a no-op that reports itself
// disabled, and oversized jobs fail with guidance instead.
package artifacts

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"yoink/internal/config"
	"yoink/internal/queue"
	"yoink/internal/services"
)

// Service stores oversized outputs and returns public links to them.
type Service interface {
	Enabled() bool
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// ObjectName derives a stable storage key for a job's output file.
func ObjectName(job *queue.Job) string {
	return fmt.Sprintf("yoink/%d-%s%s", job.ID, job.VideoID, job.Operation.OutputExt())
}

// NewService builds an object storage service backed by MinIO when storage
// is enabled in config; otherwise a disabled no-op is returned.
func NewService(cfg *config.Config) (Service, error) {
	if !cfg.Storage.Enabled {
		return noopService{}, nil
	}
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "artifacts", "init storage client",
			"Failed to initialize object storage client; check [storage] settings", err)
	}
	return &minioService{cfg: cfg.Storage, client: client}, nil
}

type minioService struct {
	cfg    config.Storage
	client *minio.Client

	bucketOnce sync.Once
	bucketErr  error
}

func (s *minioService) Enabled() bool { return true }

func (s *minioService) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := s.client.FPutObject(ctx, s.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(objectName),
	})
	if err != nil {
		return "", services.Wrap(
			services.ErrDelivery, "artifacts", "upload object",
			"Failed to upload output to object storage", err)
	}
	return s.publicURL(objectName), nil
}

func (s *minioService) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
		if err != nil {
			s.bucketErr = services.Wrap(
				services.ErrDelivery, "artifacts", "check bucket",
				"Failed to check storage bucket", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketErr = services.Wrap(
				services.ErrDelivery, "artifacts", "create bucket",
				"Failed to create storage bucket", err)
		}
	})
	return s.bucketErr
}

func (s *minioService) publicURL(objectName string) string {
	if base := strings.TrimRight(strings.TrimSpace(s.cfg.PublicBaseURL), "/"); base != "" {
		return base + "/" + objectName
	}
	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + s.cfg.Endpoint + "/" + path.Join(s.cfg.Bucket, objectName)
}

func contentTypeFor(objectName string) string {
	switch strings.ToLower(path.Ext(objectName)) {
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

type noopService struct{}

func (noopService) Enabled() bool { return false }

func (noopService) Upload(context.Context, string, string) (string, error) {
	return "", services.Wrap(
		services.ErrConfiguration, "artifacts", "upload object",
		"Object storage is not configured; enable [storage] to deliver oversized files", nil)
}
