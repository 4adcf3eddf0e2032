// Package cfs orchestrates the call-for-service lifecycle: intake, triage and
// verification, resolution, organization sharing, public tracking and attachments.
//
// Every operation takes the caller's access.Context explicitly, checks capabilities
// before touching the store, applies the change through one atomic store procedure
// and only then fires notifications and cache invalidation signals.
package cfs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/blobstore"
	"github.com/linesmerrill/cfs-intake-api/databases"
	"github.com/linesmerrill/cfs-intake-api/invalidation"
	"github.com/linesmerrill/cfs-intake-api/metrics"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

// Service runs the lifecycle operations against a store
type Service struct {
	store    databases.Store
	blobs    blobstore.Store
	notifier notify.Notifier
	signaler invalidation.Signaler
	logger   *zap.Logger
	now      func() time.Time
	token    func() string
}

// NewService wires the collaborators. notifier and signaler may be nil.
func NewService(store databases.Store, blobs blobstore.Store, notifier notify.Notifier, signaler invalidation.Signaler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		signaler: signaler,
		logger:   logger,
		now:      time.Now,
		token:    uuid.NewString,
	}
}

func actorOf(ac access.Context) models.Actor {
	return models.Actor{ProfileID: ac.ProfileID, OrganizationID: ac.OrganizationID}
}

// done counts the outcome of op and hands err back unchanged
func done(op string, err error) error {
	metrics.TransitionsTotal.WithLabelValues(op, outcome(err)).Inc()
	return err
}

func outcome(err error) string {
	var (
		ve  *apperror.ValidationError
		ae  *apperror.AuthorizationError
		oe  *apperror.OrganizationRequiredError
		nfe *apperror.NotFoundError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &ve), errors.As(err, &ae), errors.As(err, &oe), errors.As(err, &nfe):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

// notifyReporter queues tmpl for the reporter of callID. The dispatcher re-reads consent at send time.
func (s *Service) notifyReporter(callID int64, tmpl notify.Template) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(callID, tmpl)
}

func (s *Service) invalidate(callID int64, views ...invalidation.View) {
	if s.signaler == nil {
		return
	}
	s.signaler.Signal(invalidation.Signal{CallID: callID, Views: views, Timestamp: s.now().UTC()})
}

func (s *Service) invalidateDetail(callID int64) {
	s.invalidate(callID, invalidation.ViewDetail)
}

func (s *Service) invalidateAll(callID int64) {
	s.invalidate(callID, invalidation.ViewDetail, invalidation.ViewList)
}
