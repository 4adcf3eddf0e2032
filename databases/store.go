package databases

import (
	"context"
	"time"

	"github.com/linesmerrill/cfs-intake-api/models"
)

// CallDatabase contains the lifecycle procedures of a call. Every mutating method is a
// single atomic call that also appends the matching timeline entry.
type CallDatabase interface {
	CreateCall(ctx context.Context, call models.NewCall) (int64, error)
	GetCall(ctx context.Context, id int64) (*models.Call, error)
	GetNotifyProfile(ctx context.Context, id int64) (*models.NotifyProfile, error)
	TriageCall(ctx context.Context, id int64, actor models.Actor, update models.TriageUpdate) error
	VerifyCall(ctx context.Context, id int64, actor models.Actor, update models.VerifyUpdate) error
	DismissCall(ctx context.Context, id int64, actor models.Actor, d models.Dismissal) error
	MarkDuplicate(ctx context.Context, id, duplicateOf int64, actor models.Actor, notes string) error
	// ConvertToIncident returns the spawned incident id, or 0 when the procedure produced none.
	ConvertToIncident(ctx context.Context, id int64, actor models.Actor, req models.IncidentRequest) (int64, error)
	TransferOwnership(ctx context.Context, id, toOrganizationID int64, actor models.Actor, notes string) error
	AddNote(ctx context.Context, id int64, actor models.Actor, text string) error
	UpdateStatus(ctx context.Context, id int64, actor models.Actor, status models.Status, notes string) error
	ListTimeline(ctx context.Context, id int64) ([]models.TimelineEntry, error)
}

// OrgAccessDatabase contains the sharing ledger procedures
type OrgAccessDatabase interface {
	// UpsertOrgAccess creates the grant or updates the level of an existing one.
	UpsertOrgAccess(ctx context.Context, actor models.Actor, grant models.OrgAccessGrant) error
	// RevokeOrgAccess succeeds when no grant exists.
	RevokeOrgAccess(ctx context.Context, cfsID, organizationID int64, actor models.Actor) error
	ListOrgAccess(ctx context.Context, cfsID int64) ([]models.OrgAccessGrant, error)
}

// TrackingDatabase contains the public tracking projection procedures
type TrackingDatabase interface {
	UpsertPublicTracking(ctx context.Context, cfsID int64, actor models.Actor, fields models.TrackingFields) (string, error)
	DisablePublicTracking(ctx context.Context, cfsID int64, actor models.Actor) error
	// ExpirePublicTracking removes projections of calls closed before the cutoff.
	ExpirePublicTracking(ctx context.Context, closedBefore time.Time) (int64, error)
}

// AttachmentDatabase contains the attachment metadata procedures
type AttachmentDatabase interface {
	InsertAttachment(ctx context.Context, a models.Attachment) (int64, error)
	// GetAttachment only finds attachments that belong to cfsID.
	GetAttachment(ctx context.Context, cfsID, attachmentID int64) (*models.Attachment, error)
	ListAttachments(ctx context.Context, cfsID int64) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, cfsID, attachmentID int64, actor models.Actor) error
}

// Store is the full stored-procedure contract the CFS core runs against
type Store interface {
	CallDatabase
	OrgAccessDatabase
	TrackingDatabase
	AttachmentDatabase
	Close() error
}
