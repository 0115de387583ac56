package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/greenpanipat/plantation-tracker/pkg/utils"
)

// ImageUpload is an optional image attached to a plant submission.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// ImageIngestor persists an uploaded image and returns a durable public URL.
type ImageIngestor interface {
	Ingest(ctx context.Context, ownerID string, upload *ImageUpload) (string, error)
}

// ImageService stores plant photos in the Firebase storage bucket.
type ImageService struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewImageService initializes the Firebase app and resolves the configured
// storage bucket. Requires FIREBASE_CREDENTIALS_PATH and FIREBASE_STORAGE_BUCKET.
func NewImageService(ctx context.Context) (*ImageService, error) {
	credentialsPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH not set")
	}

	bucketName := os.Getenv("FIREBASE_STORAGE_BUCKET")
	if bucketName == "" {
		return nil, fmt.Errorf("FIREBASE_STORAGE_BUCKET not set")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage client: %w", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage bucket: %w", err)
	}

	return &ImageService{bucket: bucket, bucketName: bucketName}, nil
}

// Ingest writes the image under a key derived from the owner and the current
// time, so repeated uploads by one user and uploads by different users never
// collide. Returns the public object URL.
func (s *ImageService) Ingest(ctx context.Context, ownerID string, upload *ImageUpload) (string, error) {
	key := fmt.Sprintf("plants/%s/%d%s", ownerID, time.Now().UnixNano(), utils.ImageExt(upload.Filename))

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = upload.ContentType

	if _, err := io.Copy(w, upload.Data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", key, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key), nil
}
