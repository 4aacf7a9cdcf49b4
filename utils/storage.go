// fedistash/utils/storage.go
package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService stores database backup files somewhere durable.
type StorageService interface {
	SaveBackup(path string) (string, error)
}

// LocalStorage implements StorageService by leaving backups where VACUUM
// INTO wrote them.
type LocalStorage struct{}

func (ls *LocalStorage) SaveBackup(path string) (string, error) {
	return path, nil
}

// S3Storage implements StorageService for S3-compatible object storage.
type S3Storage struct {
	Client     *minio.Client
	BucketName string
}

func NewS3Storage(endpoint, accessKey, secretKey, bucketName, region string, useSSL bool) (*S3Storage, error) {
	// Strip scheme if present
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	var creds *credentials.Credentials
	if accessKey == "" || secretKey == "" {
		// Use IAM role credentials if keys are not provided
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(accessKey, secretKey, "")
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucketName)
	}

	return &S3Storage{
		Client:     minioClient,
		BucketName: bucketName,
	}, nil
}

// SaveBackup uploads a local backup file and removes it on success.
func (s3 *S3Storage) SaveBackup(path string) (string, error) {
	key := filepath.Base(path)
	ctx := context.Background()
	_, err := s3.Client.FPutObject(ctx, s3.BucketName, key, path, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("uploaded but could not remove local backup %s: %w", path, err)
	}
	return fmt.Sprintf("s3://%s/%s", s3.BucketName, key), nil
}
