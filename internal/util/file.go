package util

import (
	"fmt"
	"mime/multipart"
)

// MaxAvatarSize is the largest avatar upload accepted, in bytes
const MaxAvatarSize = 5 << 20

// ValidateAvatarUpload checks the extension and size of an uploaded avatar
func ValidateAvatarUpload(header *multipart.FileHeader) error {
	if header == nil {
		return fmt.Errorf("avatar file is required")
	}
	if !IsValidImageFile(header.Filename) {
		return fmt.Errorf("unsupported image type %q", header.Filename)
	}
	if header.Size > MaxAvatarSize {
		return fmt.Errorf("avatar exceeds %d bytes", MaxAvatarSize)
	}
	return nil
}
