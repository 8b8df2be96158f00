package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/macchain/backend/internal/telemetry"
	"github.com/macchain/backend/internal/util"
)

// avatarExtensions is the fixed set of keys an avatar may live under, so
// replacing a png with a jpg still clears the old object.
var avatarExtensions = []string{".jpg", ".png", ".gif", ".webp"}

// s3API is the subset of the S3 client the uploader uses
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader stores avatars in an S3 bucket
type S3Uploader struct {
	client  s3API
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, region, baseURL), nil
}

func newS3Uploader(client s3API, bucket, region, baseURL string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, region: region, baseURL: baseURL}
}

// avatarKey is avatars/{userID}.{ext}; jpeg uploads are stored as .jpg
func avatarKey(userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return "avatars/" + userID + ext
}

// UploadAvatar validates and stores an avatar, replacing any previous one
func (u *S3Uploader) UploadAvatar(ctx context.Context, userID string, file io.Reader, header *multipart.FileHeader) (*UploadResult, error) {
	if err := util.ValidateAvatarUpload(header); err != nil {
		return nil, err
	}

	key := avatarKey(userID, header.Filename)
	ctx, span := telemetry.TraceS3Call(ctx, "PutObject", u.bucket, key)
	defer span.End()

	// drop avatars stored under another extension
	for _, ext := range avatarExtensions {
		if other := "avatars/" + userID + ext; other != key {
			_, _ = u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(u.bucket),
				Key:    aws.String(other),
			})
		}
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(header.Size),
		ContentType:   aws.String(util.ImageContentType(header.Filename)),
		CacheControl:  aws.String("max-age=3600"),
		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": header.Filename,
			"upload-timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}
	telemetry.RecordServiceSuccess(span, 1)

	return &UploadResult{
		Key:    key,
		URL:    u.publicURL(key),
		Bucket: u.bucket,
		Region: u.region,
		Size:   header.Size,
	}, nil
}

// DeleteAvatar removes every stored avatar variant for a user
func (u *S3Uploader) DeleteAvatar(ctx context.Context, userID string) error {
	ctx, span := telemetry.TraceS3Call(ctx, "DeleteObject", u.bucket, "avatars/"+userID)
	defer span.End()

	for _, ext := range avatarExtensions {
		_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String("avatars/" + userID + ext),
		})
		if err != nil {
			telemetry.RecordServiceError(span, err)
			return fmt.Errorf("failed to delete from S3: %w", err)
		}
	}
	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}

func (u *S3Uploader) publicURL(key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key)
}
