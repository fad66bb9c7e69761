package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"paintbox/core"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

// objectKey escapes a storage key into a flat object name so a hostile key
// cannot address outside the expected namespace.
func objectKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key must not be empty")
	}
	return url.PathEscape(key), nil
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := objectKey(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob data: %w", err)
	}
	return data, nil
}

func (s *s3Store) Set(ctx context.Context, key string, data []byte) error {
	k, err := objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}
	return nil
}
