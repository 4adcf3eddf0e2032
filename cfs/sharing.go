package cfs

import (
	"context"
	"strings"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// GrantRequest shares a call with another organization
type GrantRequest struct {
	AccessLevel models.AccessLevel `json:"access_level" validate:"required,oneof=view edit"`
	Reason      string             `json:"reason" validate:"max=500"`
}

// GrantOrgAccess creates the grant or updates its level when one exists
func (s *Service) GrantOrgAccess(ctx context.Context, ac access.Context, cfsID, organizationID int64, req GrantRequest) error {
	if err := access.Require(ac, access.CanShareCfs); err != nil {
		return done("grant", err)
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := checkStruct(req); err != nil {
		return done("grant", err)
	}
	if organizationID <= 0 {
		return done("grant", apperror.NewValidationError("organization_id", "Must be greater than 0"))
	}

	grant := models.OrgAccessGrant{
		CFSID:          cfsID,
		OrganizationID: organizationID,
		AccessLevel:    req.AccessLevel,
		Reason:         req.Reason,
	}
	if err := s.store.UpsertOrgAccess(ctx, actorOf(ac), grant); err != nil {
		return done("grant", err)
	}
	done("grant", nil)

	s.invalidateDetail(cfsID)
	return nil
}

// RevokeOrgAccess removes a grant. Revoking a grant that does not exist succeeds.
func (s *Service) RevokeOrgAccess(ctx context.Context, ac access.Context, cfsID, organizationID int64) error {
	if err := access.Require(ac, access.CanShareCfs); err != nil {
		return done("revoke", err)
	}
	if organizationID <= 0 {
		return done("revoke", apperror.NewValidationError("organization_id", "Must be greater than 0"))
	}

	if err := s.store.RevokeOrgAccess(ctx, cfsID, organizationID, actorOf(ac)); err != nil {
		return done("revoke", err)
	}
	done("revoke", nil)

	s.invalidateDetail(cfsID)
	return nil
}
