package cfs

import (
	"context"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// Detail is everything the call detail view shows
type Detail struct {
	Call        *models.Call            `json:"call"`
	Timeline    []models.TimelineEntry  `json:"timeline"`
	OrgAccess   []models.OrgAccessGrant `json:"orgAccess"`
	Attachments []models.Attachment     `json:"attachments"`
}

// GetCall loads a call for the acting organization. Organizations that neither own
// the call nor hold a grant get a NotFoundError.
func (s *Service) GetCall(ctx context.Context, ac access.Context, cfsID int64) (*Detail, error) {
	orgID, err := access.RequireOrganization(ac)
	if err != nil {
		return nil, err
	}

	call, err := s.store.GetCall(ctx, cfsID)
	if err != nil {
		return nil, err
	}
	grants, err := s.store.ListOrgAccess(ctx, cfsID)
	if err != nil {
		return nil, err
	}
	if !canRead(call, grants, orgID) {
		return nil, &apperror.NotFoundError{Resource: "call", ID: cfsID}
	}

	timeline, err := s.store.ListTimeline(ctx, cfsID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.store.ListAttachments(ctx, cfsID)
	if err != nil {
		return nil, err
	}

	if timeline == nil {
		timeline = []models.TimelineEntry{}
	}
	if grants == nil {
		grants = []models.OrgAccessGrant{}
	}
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	return &Detail{Call: call, Timeline: timeline, OrgAccess: grants, Attachments: attachments}, nil
}

func canRead(call *models.Call, grants []models.OrgAccessGrant, orgID int64) bool {
	if call.OwningOrganizationID == orgID {
		return true
	}
	for _, g := range grants {
		if g.OrganizationID == orgID {
			return true
		}
	}
	return false
}
