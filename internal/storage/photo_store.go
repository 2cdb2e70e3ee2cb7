package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"survey-service/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PhotoStore wraps the MinIO client with survey service specific
// functionality: farmers PUT photos via presigned URLs, the service
// reads them back to extract embedded capture metadata.
type PhotoStore struct {
	client *minio.Client
	config config.MinioConfig
}

// Storage defines bucket names for different data types in survey service
var Storage = struct {
	FieldPhotos   string
	SurveyReports string
}{
	FieldPhotos:   "field-photos",
	SurveyReports: "survey-reports",
}

// BucketNames contains all bucket names for survey service
var BucketNames = []string{
	Storage.FieldPhotos,
	Storage.SurveyReports,
}

// maxPhotoBytes caps how much of a stored object is read back for
// metadata extraction.
const maxPhotoBytes = 32 << 20

func NewPhotoStore(cfg config.MinioConfig) (*PhotoStore, error) {
	endpoint := strings.TrimPrefix(cfg.MinioURL, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		log.Printf("Invalid value for MinIO secure flag: %v. Defaulting to false.", err)
		isSecure = false
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = minioClient.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	log.Printf("Successfully connected to MinIO at %s", cfg.MinioURL)

	ps := &PhotoStore{
		client: minioClient,
		config: cfg,
	}

	if err := ps.ensureRequiredBuckets(); err != nil {
		return nil, fmt.Errorf("failed to ensure required buckets: %w", err)
	}

	return ps, nil
}

func (ps *PhotoStore) ensureRequiredBuckets() error {
	ctx := context.Background()

	for _, bucketName := range BucketNames {
		if err := ps.ensureBucket(ctx, bucketName); err != nil {
			return fmt.Errorf("failed to ensure bucket %s: %w", bucketName, err)
		}
	}

	return nil
}

func (ps *PhotoStore) ensureBucket(ctx context.Context, bucketName string) error {
	exists, err := ps.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}

	if !exists {
		err := ps.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{
			Region: ps.config.MinioLocation,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", bucketName, err)
		}
		log.Printf("Created bucket: %s", bucketName)
	}

	return nil
}

// IssueUploadURL generates a presigned PUT URL so the client can upload
// the photo directly to object storage.
func (ps *PhotoStore) IssueUploadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := ps.client.PresignedPutObject(ctx, Storage.FieldPhotos, objectKey, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned PUT URL for %s: %w", objectKey, err)
	}
	return presignedURL.String(), nil
}

// ObjectExists checks if the uploaded object actually landed in the
// photo bucket before the upload is marked complete.
func (ps *PhotoStore) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	_, err := ps.client.StatObject(ctx, Storage.FieldPhotos, objectKey, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("error checking object existence for %s: %w", objectKey, err)
	}
	return true, nil
}

// FetchObject reads a stored photo back for metadata extraction.
func (ps *PhotoStore) FetchObject(ctx context.Context, objectKey string) ([]byte, error) {
	object, err := ps.client.GetObject(ctx, Storage.FieldPhotos, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectKey, err)
	}
	defer object.Close()

	data, err := io.ReadAll(io.LimitReader(object, maxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", objectKey, err)
	}

	return data, nil
}

// FetchCaptureMetadata reads the stored photo and extracts its embedded
// GPS position and capture timestamp.
func (ps *PhotoStore) FetchCaptureMetadata(ctx context.Context, objectKey string) (*EmbeddedMetadata, error) {
	data, err := ps.FetchObject(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	return ExtractEmbeddedMetadata(data)
}

// PhotoURL returns the presigned GET URL for temporary read access.
func (ps *PhotoStore) PhotoURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := ps.client.PresignedGetObject(ctx, Storage.FieldPhotos, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s: %w", objectKey, err)
	}
	return presignedURL.String(), nil
}
