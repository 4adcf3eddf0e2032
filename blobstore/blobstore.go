// Package blobstore stores attachment bodies outside the database.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Remove when no object exists under the key
var ErrNotFound = errors.New("blob not found")

// Store is the put/remove contract attachments are written through
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	// Bucket names the container objects are written to, recorded on attachment rows.
	Bucket() string
}
