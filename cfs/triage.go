package cfs

import (
	"context"
	"strings"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

// TriageRequest is the assessment recorded by a triage
type TriageRequest struct {
	Priority          models.Priority     `json:"priority" validate:"required,oneof=routine elevated urgent emergency"`
	UrgencyIndicators string              `json:"urgency_indicators" validate:"max=1000"`
	Origin            models.Origin       `json:"origin" validate:"omitempty,oneof=web phone walk_in email partner_referral outreach"`
	Source            models.Source       `json:"source" validate:"omitempty,oneof=self family_member community_member agency anonymous_tip"`
	ReportMethod      models.ReportMethod `json:"report_method" validate:"omitempty,oneof=online_form phone_call in_person text_message email"`
	Notes             string              `json:"notes" validate:"max=4000"`
}

// VerifyRequest is the verification outcome recorded by a verify
type VerifyRequest struct {
	Status models.VerificationStatus  `json:"verification_status" validate:"required,oneof=unverified pending verified unable_to_verify false_report"`
	Method *models.VerificationMethod `json:"verification_method" validate:"omitempty,oneof=phone_callback in_person document_review third_party other"`
	Notes  string                     `json:"notes" validate:"max=4000"`
}

// Triage applies a priority assessment and moves the call to triaged. Phase order is
// not enforced, so a dismissed call can be re-triaged.
func (s *Service) Triage(ctx context.Context, ac access.Context, cfsID int64, req TriageRequest) error {
	if err := access.Require(ac, access.CanTriageCfs); err != nil {
		return done("triage", err)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkStruct(req); err != nil {
		return done("triage", err)
	}

	update := models.TriageUpdate{
		Priority:          req.Priority,
		UrgencyIndicators: splitIndicators(req.UrgencyIndicators),
		Origin:            req.Origin,
		Source:            req.Source,
		ReportMethod:      req.ReportMethod,
		Notes:             req.Notes,
	}
	if err := s.store.TriageCall(ctx, cfsID, actorOf(ac), update); err != nil {
		return done("triage", err)
	}
	done("triage", nil)

	s.notifyReporter(cfsID, notify.Triaged())
	s.invalidateDetail(cfsID)
	return nil
}

// Verify records a verification outcome and moves the call to verified
func (s *Service) Verify(ctx context.Context, ac access.Context, cfsID int64, req VerifyRequest) error {
	if err := access.Require(ac, access.CanTriageCfs); err != nil {
		return done("verify", err)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkStruct(req); err != nil {
		return done("verify", err)
	}

	update := models.VerifyUpdate{Status: req.Status, Method: req.Method, Notes: req.Notes}
	if err := s.store.VerifyCall(ctx, cfsID, actorOf(ac), update); err != nil {
		return done("verify", err)
	}
	done("verify", nil)

	s.notifyReporter(cfsID, notify.Verified())
	s.invalidateDetail(cfsID)
	return nil
}
