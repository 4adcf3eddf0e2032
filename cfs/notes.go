package cfs

import (
	"context"
	"strings"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

// NoteRequest is a free-text timeline note
type NoteRequest struct {
	Text string `json:"text" validate:"required,min=4,max=4000"`
}

// StatusRequest sets the lifecycle status directly
type StatusRequest struct {
	Status models.Status `json:"status" validate:"required,oneof=received triaged verified dispatched dismissed duplicate"`
	Notes  string        `json:"notes" validate:"max=4000"`
}

// AddNote appends a note to the timeline on behalf of the acting organization
func (s *Service) AddNote(ctx context.Context, ac access.Context, cfsID int64, req NoteRequest) error {
	if _, err := access.RequireScoped(ac, access.CanUpdateCfs); err != nil {
		return done("note", err)
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := checkStruct(req); err != nil {
		return done("note", err)
	}

	if err := s.store.AddNote(ctx, cfsID, actorOf(ac), req.Text); err != nil {
		return done("note", err)
	}
	done("note", nil)

	s.invalidateDetail(cfsID)
	return nil
}

// UpdateStatus moves the call to status and tells the reporter
func (s *Service) UpdateStatus(ctx context.Context, ac access.Context, cfsID int64, req StatusRequest) error {
	if err := access.Require(ac, access.CanUpdateCfs); err != nil {
		return done("status", err)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkStruct(req); err != nil {
		return done("status", err)
	}

	if err := s.store.UpdateStatus(ctx, cfsID, actorOf(ac), req.Status, req.Notes); err != nil {
		return done("status", err)
	}
	done("status", nil)

	s.notifyReporter(cfsID, notify.StatusUpdated(req.Status.Label()))
	switch req.Status {
	case models.StatusDismissed, models.StatusDuplicate:
		s.invalidateAll(cfsID)
	default:
		s.invalidateDetail(cfsID)
	}
	return nil
}
