package cfs

import (
	"context"
	"strings"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

// DismissRequest closes a call with a terminal report status
type DismissRequest struct {
	ReportStatus models.ReportStatus `json:"report_status" validate:"required,oneof=resolved unfounded referred withdrawn insufficient_information"`
	Notes        string              `json:"notes" validate:"max=4000"`
}

// DuplicateRequest links a call to the report it duplicates
type DuplicateRequest struct {
	DuplicateOfID int64  `json:"duplicate_of_id" validate:"required,gt=0"`
	Notes         string `json:"notes" validate:"max=4000"`
}

// IncidentRequest describes the incident to spawn from a call
type IncidentRequest struct {
	IncidentType string `json:"incident_type" validate:"required,max=100"`
	Description  string `json:"description" validate:"required,max=4000"`
}

// TransferRequest reassigns the owning organization of a call
type TransferRequest struct {
	OrganizationID int64  `json:"organization_id" validate:"required,gt=0"`
	Notes          string `json:"notes" validate:"max=4000"`
}

// Dismiss sets a terminal report status. The lifecycle status is left to the store.
func (s *Service) Dismiss(ctx context.Context, ac access.Context, cfsID int64, req DismissRequest) error {
	if err := access.Require(ac, access.CanUpdateCfs); err != nil {
		return done("dismiss", err)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkStruct(req); err != nil {
		return done("dismiss", err)
	}

	d := models.Dismissal{ReportStatus: req.ReportStatus, Notes: req.Notes}
	if err := s.store.DismissCall(ctx, cfsID, actorOf(ac), d); err != nil {
		return done("dismiss", err)
	}
	done("dismiss", nil)

	s.notifyReporter(cfsID, notify.Closed(req.ReportStatus.Label()))
	s.invalidateAll(cfsID)
	return nil
}

// MarkDuplicate links the call to an existing report. Cycles and self links are
// rejected by the store procedure.
func (s *Service) MarkDuplicate(ctx context.Context, ac access.Context, cfsID int64, req DuplicateRequest) error {
	if err := access.Require(ac, access.CanUpdateCfs); err != nil {
		return done("duplicate", err)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkStruct(req); err != nil {
		return done("duplicate", err)
	}

	if err := s.store.MarkDuplicate(ctx, cfsID, req.DuplicateOfID, actorOf(ac), req.Notes); err != nil {
		return done("duplicate", err)
	}
	done("duplicate", nil)

	s.notifyReporter(cfsID, notify.Merged())
	s.invalidateAll(cfsID)
	return nil
}

// ConvertToIncident spawns an incident linked to the call and returns its id
func (s *Service) ConvertToIncident(ctx context.Context, ac access.Context, cfsID int64, req IncidentRequest) (int64, error) {
	if err := access.Require(ac, access.CanDispatchCfs); err != nil {
		return 0, done("convert", err)
	}
	req.IncidentType = strings.TrimSpace(req.IncidentType)
	req.Description = strings.TrimSpace(req.Description)
	if err := checkStruct(req); err != nil {
		return 0, done("convert", err)
	}

	incidentID, err := s.store.ConvertToIncident(ctx, cfsID, actorOf(ac), models.IncidentRequest{
		IncidentType: req.IncidentType,
		Description:  req.Description,
	})
	if err != nil {
		return 0, done("convert", err)
	}
	if incidentID <= 0 {
		s.logger.Error("incident conversion returned no incident id")
		return 0, done("convert", &apperror.StoreProcedureError{
			Procedure: "cfs_convert_to_incident",
			Message:   "no incident id returned",
		})
	}
	done("convert", nil)

	s.notifyReporter(cfsID, notify.Dispatched())
	s.invalidateAll(cfsID)
	return incidentID, nil
}

// TransferOwnership moves the call to another organization. The reporter is not told.
func (s *Service) TransferOwnership(ctx context.Context, ac access.Context, cfsID int64, req TransferRequest) error {
	if err := access.Require(ac, access.CanDispatchCfs); err != nil {
		return done("transfer", err)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkStruct(req); err != nil {
		return done("transfer", err)
	}

	if err := s.store.TransferOwnership(ctx, cfsID, req.OrganizationID, actorOf(ac), req.Notes); err != nil {
		return done("transfer", err)
	}
	done("transfer", nil)

	s.invalidateAll(cfsID)
	return nil
}
