package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/api"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/cfs"
	"github.com/linesmerrill/cfs-intake-api/config"
)

// maxUploadOverhead leaves room for multipart boundaries and the notes field
const maxUploadOverhead = 1 << 20

// CFS exported for testing purposes
type CFS struct {
	Service      *cfs.Service
	QueryTimeout time.Duration
}

func (c CFS) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return api.WithQueryTimeout(r.Context(), c.QueryTimeout)
}

// CreateCallHandler records a new call for service
func (c CFS) CreateCallHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, cancel := c.queryContext(r)
	defer cancel()

	id, err := c.Service.CreateCall(ctx, acting(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// CallByIDHandler returns a call with its timeline, grants and attachments
func (c CFS) CallByIDHandler(w http.ResponseWriter, r *http.Request) {
	cfsID, ok := pathID(w, r, "cfs_id")
	if !ok {
		return
	}
	ctx, cancel := c.queryContext(r)
	defer cancel()

	detail, err := c.Service.GetCall(ctx, acting(r), cfsID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// TriageHandler sets priority and intake classification
func (c CFS) TriageHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.TriageRequest
	c.apply(w, r, &req, "Call triaged", func(ctx context.Context, id int64) error {
		return c.Service.Triage(ctx, acting(r), id, req)
	})
}

// VerifyHandler records the verification outcome
func (c CFS) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.VerifyRequest
	c.apply(w, r, &req, "Call verified", func(ctx context.Context, id int64) error {
		return c.Service.Verify(ctx, acting(r), id, req)
	})
}

// DismissHandler closes a call without dispatch
func (c CFS) DismissHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.DismissRequest
	c.apply(w, r, &req, "Call dismissed", func(ctx context.Context, id int64) error {
		return c.Service.Dismiss(ctx, acting(r), id, req)
	})
}

// DuplicateHandler merges a call into another one
func (c CFS) DuplicateHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.DuplicateRequest
	c.apply(w, r, &req, "Call marked as duplicate", func(ctx context.Context, id int64) error {
		return c.Service.MarkDuplicate(ctx, acting(r), id, req)
	})
}

// ConvertToIncidentHandler spawns an incident from a call
func (c CFS) ConvertToIncidentHandler(w http.ResponseWriter, r *http.Request) {
	cfsID, ok := pathID(w, r, "cfs_id")
	if !ok {
		return
	}
	var req cfs.IncidentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, cancel := c.queryContext(r)
	defer cancel()

	incidentID, err := c.Service.ConvertToIncident(ctx, acting(r), cfsID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"incidentId": incidentID})
}

// TransferHandler hands a call to another organization
func (c CFS) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.TransferRequest
	c.apply(w, r, &req, "Call transferred", func(ctx context.Context, id int64) error {
		return c.Service.TransferOwnership(ctx, acting(r), id, req)
	})
}

// AddNoteHandler appends a note to the timeline
func (c CFS) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.NoteRequest
	c.apply(w, r, &req, "Note added", func(ctx context.Context, id int64) error {
		return c.Service.AddNote(ctx, acting(r), id, req)
	})
}

// UpdateStatusHandler sets the lifecycle status directly
func (c CFS) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req cfs.StatusRequest
	c.apply(w, r, &req, "Status updated", func(ctx context.Context, id int64) error {
		return c.Service.UpdateStatus(ctx, acting(r), id, req)
	})
}

// GrantOrgAccessHandler shares a call with an organization
func (c CFS) GrantOrgAccessHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "organization_id")
	if !ok {
		return
	}
	var req cfs.GrantRequest
	c.apply(w, r, &req, "Access granted", func(ctx context.Context, id int64) error {
		return c.Service.GrantOrgAccess(ctx, acting(r), id, orgID, req)
	})
}

// RevokeOrgAccessHandler removes an organization's grant
func (c CFS) RevokeOrgAccessHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "organization_id")
	if !ok {
		return
	}
	c.apply(w, r, nil, "Access revoked", func(ctx context.Context, id int64) error {
		return c.Service.RevokeOrgAccess(ctx, acting(r), id, orgID)
	})
}

// EnableTrackingHandler publishes the public tracking projection
func (c CFS) EnableTrackingHandler(w http.ResponseWriter, r *http.Request) {
	cfsID, ok := pathID(w, r, "cfs_id")
	if !ok {
		return
	}
	var req cfs.TrackingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, cancel := c.queryContext(r)
	defer cancel()

	code, err := c.Service.EnablePublicTracking(ctx, acting(r), cfsID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"trackingCode": code})
}

// DisableTrackingHandler withdraws the public tracking projection
func (c CFS) DisableTrackingHandler(w http.ResponseWriter, r *http.Request) {
	c.apply(w, r, nil, "Public tracking disabled", func(ctx context.Context, id int64) error {
		return c.Service.DisablePublicTracking(ctx, acting(r), id)
	})
}

// UploadAttachmentHandler stores a multipart file against a call
func (c CFS) UploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	cfsID, ok := pathID(w, r, "cfs_id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, cfs.MaxAttachmentSize+maxUploadOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperror.NewValidationError("file", "File must be 15 MB or smaller"))
			return
		}
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperror.NewValidationError("file", "A file is required"))
		return
	}
	defer file.Close()

	ctx, cancel := c.queryContext(r)
	defer cancel()

	attachmentID, err := c.Service.UploadAttachment(ctx, acting(r), cfsID, cfs.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Notes:       r.FormValue("notes"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	zap.S().Debugw("attachment uploaded", "cfsId", cfsID, "attachmentId", attachmentID)
	writeJSON(w, http.StatusCreated, map[string]int64{"attachmentId": attachmentID})
}

// DeleteAttachmentHandler removes an attachment and its blob
func (c CFS) DeleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	attachmentID, ok := pathID(w, r, "attachment_id")
	if !ok {
		return
	}
	c.apply(w, r, nil, "Attachment deleted", func(ctx context.Context, id int64) error {
		return c.Service.DeleteAttachment(ctx, acting(r), id, attachmentID)
	})
}

// apply runs a mutation that answers with an acknowledgement. body is decoded first
// unless it is nil.
func (c CFS) apply(w http.ResponseWriter, r *http.Request, body interface{}, message string, fn func(ctx context.Context, id int64) error) {
	cfsID, ok := pathID(w, r, "cfs_id")
	if !ok {
		return
	}
	if body != nil && !decodeBody(w, r, body) {
		return
	}
	ctx, cancel := c.queryContext(r)
	defer cancel()

	if err := fn(ctx, cfsID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, message)
}
