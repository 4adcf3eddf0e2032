package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	mock.Mock
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := f.Called(*in.Bucket, *in.Key, *in.ContentLength)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := f.Called(*in.Bucket, *in.Key)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3Put(t *testing.T) {
	fake := &fakeS3{}
	fake.On("PutObject", "evidence", "cfs/1/a-lease.pdf", int64(5)).Return(nil)
	s := &S3Store{client: fake, bucket: "evidence", logger: zap.NewNop()}

	err := s.Put(context.Background(), "cfs/1/a-lease.pdf", strings.NewReader("hello"), 5, "application/pdf")
	assert.NoError(t, err)
	fake.AssertExpectations(t)
}

func TestS3RemoveMapsNoSuchKey(t *testing.T) {
	fake := &fakeS3{}
	fake.On("DeleteObject", "evidence", "gone").Return(&types.NoSuchKey{})
	fake.On("DeleteObject", "evidence", "broken").Return(errors.New("access denied"))
	s := &S3Store{client: fake, bucket: "evidence", logger: zap.NewNop()}

	assert.ErrorIs(t, s.Remove(context.Background(), "gone"), ErrNotFound)
	err := s.Remove(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type fakeCloudinary struct {
	mock.Mock
}

func (f *fakeCloudinary) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	args := f.Called(params.PublicID, params.ResourceType)
	return args.Get(0).(*uploader.UploadResult), args.Error(1)
}

func (f *fakeCloudinary) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	args := f.Called(params.PublicID)
	return args.Get(0).(*uploader.DestroyResult), args.Error(1)
}

func TestCloudinaryPutUsesFolderAndRaw(t *testing.T) {
	fake := &fakeCloudinary{}
	fake.On("Upload", "cfs/cfs/1/a-lease.pdf", "raw").Return(&uploader.UploadResult{}, nil)
	c := &CloudinaryStore{api: fake, folder: "cfs"}

	require.NoError(t, c.Put(context.Background(), "cfs/1/a-lease.pdf", strings.NewReader("x"), 1, "application/pdf"))
	assert.Equal(t, "cfs", c.Bucket())
}

func TestCloudinaryPutReportsAPIError(t *testing.T) {
	fake := &fakeCloudinary{}
	fake.On("Upload", "k", "raw").Return(&uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid Signature"}}, nil)
	c := &CloudinaryStore{api: fake}

	assert.Error(t, c.Put(context.Background(), "k", strings.NewReader("x"), 1, ""))
}

func TestCloudinaryRemove(t *testing.T) {
	fake := &fakeCloudinary{}
	fake.On("Destroy", "ok").Return(&uploader.DestroyResult{Result: "ok"}, nil)
	fake.On("Destroy", "missing").Return(&uploader.DestroyResult{Result: "not found"}, nil)
	fake.On("Destroy", "err").Return(&uploader.DestroyResult{}, errors.New("timeout"))
	c := &CloudinaryStore{api: fake}

	assert.NoError(t, c.Remove(context.Background(), "ok"))
	assert.ErrorIs(t, c.Remove(context.Background(), "missing"), ErrNotFound)
	assert.Error(t, c.Remove(context.Background(), "err"))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Put(context.Background(), "k", strings.NewReader("data"), 4, "text/plain"))
	assert.True(t, m.Has("k"))
	assert.NoError(t, m.Remove(context.Background(), "k"))
	assert.ErrorIs(t, m.Remove(context.Background(), "k"), ErrNotFound)
	assert.Zero(t, m.Len())
}
