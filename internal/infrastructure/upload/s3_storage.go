package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/placementmentor/mentor-server/internal/config"
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/metrics"
)

// S3Storage stages uploads in an S3-compatible bucket, including Cloudflare R2.
type S3Storage struct {
	bucket string
	prefix string
	client *s3.Client
	log    zerolog.Logger
}

// NewS3Storage builds the S3 client. Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-upload-storage").Logger()

	bucket := strings.TrimSpace(cfg.S3Bucket)
	if bucket == "" {
		return nil, errors.New("upload bucket is not configured")
	}

	region := cfg.S3Region
	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	if accountID := strings.TrimSpace(cfg.S3R2AccountID); accountID != "" && endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	accessKey := strings.TrimSpace(cfg.S3AccessKeyID)
	secretKey := strings.TrimSpace(cfg.S3SecretKey)
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger.Info().Str("bucket", bucket).Str("endpoint", endpoint).Msg("s3 upload storage initialized")
	return &S3Storage{
		bucket: bucket,
		prefix: strings.Trim(cfg.S3KeyPrefix, "/"),
		client: client,
		log:    logger,
	}, nil
}

// Stage uploads the file under a fresh key.
func (s *S3Storage) Stage(ctx context.Context, scope string, file File) (*domain.StagedAttachment, error) {
	key := newKey(scope)
	contentType := file.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        file.Body,
		ContentType: aws.String(contentType),
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		metrics.RecordUpload("s3", "error", 0)
		return nil, fmt.Errorf("put object: %w", err)
	}

	metrics.RecordUpload("s3", "success", file.Size)
	s.log.Debug().Str("key", key).Int64("bytes", file.Size).Msg("upload staged")

	return &domain.StagedAttachment{
		Key:       key,
		Filename:  file.Filename,
		MediaType: file.MediaType,
		Size:      file.Size,
	}, nil
}

// Read downloads the staged object.
func (s *S3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, errInvalidKey
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

// Remove deletes the staged object.
func (s *S3Storage) Remove(ctx context.Context, key string) error {
	if !validKey(key) {
		return errInvalidKey
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Health performs a HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Storage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

var _ Store = (*S3Storage)(nil)
