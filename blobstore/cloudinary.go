package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const rawResource = "raw"

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore keeps attachments as raw assets in a Cloudinary folder
type CloudinaryStore struct {
	api    cloudinaryAPI
	folder string
}

// NewCloudinary builds a CloudinaryStore from account credentials
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, folder: folder}, nil
}

func (c *CloudinaryStore) Bucket() string { return c.folder }

func (c *CloudinaryStore) publicID(key string) string {
	if c.folder == "" {
		return key
	}
	return c.folder + "/" + key
}

func (c *CloudinaryStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	res, err := c.api.Upload(ctx, body, uploader.UploadParams{
		PublicID:     c.publicID(key),
		ResourceType: rawResource,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if res != nil && res.Error.Message != "" {
		return fmt.Errorf("upload %s: %s", key, res.Error.Message)
	}
	return nil
}

func (c *CloudinaryStore) Remove(ctx context.Context, key string) error {
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     c.publicID(key),
		ResourceType: rawResource,
	})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", key, err)
	}
	switch {
	case res == nil:
		return errors.New("destroy " + key + ": empty response")
	case res.Error.Message != "":
		return fmt.Errorf("destroy %s: %s", key, res.Error.Message)
	case res.Result == "not found":
		return ErrNotFound
	case res.Result != "ok":
		return fmt.Errorf("destroy %s: unexpected result %q", key, res.Result)
	}
	return nil
}
