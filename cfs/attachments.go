package cfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/blobstore"
	"github.com/linesmerrill/cfs-intake-api/metrics"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// MaxAttachmentSize is the largest file accepted by UploadAttachment
const MaxAttachmentSize = 15 << 20

// UploadRequest is a file to attach to a call
type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Notes       string
}

// UploadAttachment stores the file and then its metadata. When the metadata insert
// fails the blob is removed again and the insert error is returned.
func (s *Service) UploadAttachment(ctx context.Context, ac access.Context, cfsID int64, req UploadRequest) (int64, error) {
	orgID, err := access.RequireScoped(ac, access.CanUpdateCfs)
	if err != nil {
		return 0, done("upload", err)
	}
	if err := checkUpload(&req); err != nil {
		return 0, done("upload", err)
	}

	name := sanitizeFileName(req.FileName)
	key := fmt.Sprintf("cfs/%d/%s-%s", cfsID, s.token(), name)
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.blobs.Put(ctx, key, bounded(req.Body, req.Size), req.Size, contentType); err != nil {
		return 0, done("upload", fmt.Errorf("failed to store attachment: %w", err))
	}

	id, err := s.store.InsertAttachment(ctx, models.Attachment{
		CFSID:          cfsID,
		OrganizationID: orgID,
		UploadedBy:     ac.ProfileID,
		FileName:       name,
		ContentType:    contentType,
		SizeBytes:      req.Size,
		Bucket:         s.blobs.Bucket(),
		ObjectKey:      key,
		Notes:          req.Notes,
	})
	if err != nil {
		return 0, done("upload", s.compensate(ctx, key, err))
	}
	done("upload", nil)

	s.invalidateDetail(cfsID)
	return id, nil
}

// bounded caps body at size bytes. Bodies that support ReadAt, such as multipart
// files, stay seekable so the S3 client can hash and retry them.
func bounded(body io.Reader, size int64) io.Reader {
	if ra, ok := body.(io.ReaderAt); ok {
		return io.NewSectionReader(ra, 0, size)
	}
	return io.LimitReader(body, size)
}

func checkUpload(req *UploadRequest) error {
	req.Notes = strings.TrimSpace(req.Notes)
	switch {
	case req.Size > MaxAttachmentSize:
		return apperror.NewValidationError("file", "Files must be 15 MB or smaller")
	case req.Body == nil || req.Size <= 0:
		return apperror.NewValidationError("file", "Choose a file to upload")
	case len(req.Notes) > 1000:
		return apperror.NewValidationError("notes", "Must be at most 1000 characters")
	}
	return nil
}

// compensate removes a blob whose metadata never made it to the store
func (s *Service) compensate(ctx context.Context, key string, cause error) error {
	err := s.blobs.Remove(context.WithoutCancel(ctx), key)
	if err == nil || errors.Is(err, blobstore.ErrNotFound) {
		metrics.CompensationsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		return cause
	}

	metrics.CompensationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	cf := &apperror.CompensationFailure{
		Resource:   s.blobs.Bucket() + "/" + key,
		Cause:      cause,
		CleanupErr: err,
	}
	s.logger.Error("attachment blob orphaned after failed metadata insert",
		zap.String("bucket", s.blobs.Bucket()),
		zap.String("key", key),
		zap.NamedError("cause", cause),
		zap.Error(err),
	)
	return cf
}

// DeleteAttachment removes the blob and then the metadata row. A blob that is
// already gone is not an error; any other storage failure stops the delete.
func (s *Service) DeleteAttachment(ctx context.Context, ac access.Context, cfsID, attachmentID int64) error {
	if err := access.Require(ac, access.CanDeleteCfs); err != nil {
		return done("attachment_delete", err)
	}

	a, err := s.store.GetAttachment(ctx, cfsID, attachmentID)
	if err != nil {
		return done("attachment_delete", err)
	}

	if err := s.blobs.Remove(ctx, a.ObjectKey); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return done("attachment_delete", fmt.Errorf("failed to remove attachment blob: %w", err))
	}

	if err := s.store.DeleteAttachment(ctx, cfsID, attachmentID, actorOf(ac)); err != nil {
		return done("attachment_delete", err)
	}
	done("attachment_delete", nil)

	s.invalidateDetail(cfsID)
	return nil
}
