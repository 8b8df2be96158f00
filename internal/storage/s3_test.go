package storage

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []string
	failPut bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestAvatarKey(t *testing.T) {
	assert.Equal(t, "avatars/u1.jpg", avatarKey("u1", "me.JPEG"))
	assert.Equal(t, "avatars/u1.png", avatarKey("u1", "me.png"))
	assert.Equal(t, "avatars/u1.webp", avatarKey("u1", "a.b.webp"))
}

func TestUploadAvatar(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, "bucket", "ap-northeast-2", "https://cdn.example.com/")

	header := &multipart.FileHeader{Filename: "face.png", Size: 4}
	res, err := u.UploadAvatar(context.Background(), "u1", strings.NewReader("data"), header)
	require.NoError(t, err)

	assert.Equal(t, "avatars/u1.png", res.Key)
	assert.Equal(t, "https://cdn.example.com/avatars/u1.png", res.URL)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "max-age=3600", aws.ToString(fake.puts[0].CacheControl))
	assert.Equal(t, "image/png", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "data", fake.bodies[0])
	assert.NotContains(t, fake.deletes, "avatars/u1.png")
	assert.Contains(t, fake.deletes, "avatars/u1.jpg")
}

func TestUploadAvatarRejectsInvalidFiles(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, "bucket", "r", "https://cdn")

	_, err := u.UploadAvatar(context.Background(), "u1", strings.NewReader(""), &multipart.FileHeader{Filename: "x.bmp", Size: 1})
	assert.Error(t, err)

	_, err = u.UploadAvatar(context.Background(), "u1", strings.NewReader(""), &multipart.FileHeader{Filename: "x.png", Size: 6 << 20})
	assert.Error(t, err)
	assert.Empty(t, fake.puts)
}

func TestUploadAvatarPropagatesS3Errors(t *testing.T) {
	u := newS3Uploader(&fakeS3{failPut: true}, "bucket", "r", "https://cdn")
	_, err := u.UploadAvatar(context.Background(), "u1", strings.NewReader("x"), &multipart.FileHeader{Filename: "x.gif", Size: 1})
	assert.ErrorContains(t, err, "access denied")
}

func TestDeleteAvatar(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, "bucket", "r", "https://cdn")
	require.NoError(t, u.DeleteAvatar(context.Background(), "u1"))
	assert.ElementsMatch(t, []string{"avatars/u1.jpg", "avatars/u1.png", "avatars/u1.gif", "avatars/u1.webp"}, fake.deletes)
}
