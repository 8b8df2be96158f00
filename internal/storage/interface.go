package storage

import (
	"context"
	"io"
	"mime/multipart"
)

// AvatarUploader stores and removes user avatars.
// This interface allows for easy mocking in tests.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, userID string, file io.Reader, header *multipart.FileHeader) (*UploadResult, error)
	DeleteAvatar(ctx context.Context, userID string) error
}

// Ensure S3Uploader implements AvatarUploader
var _ AvatarUploader = (*S3Uploader)(nil)
