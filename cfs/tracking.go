package cfs

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/metrics"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// TrackingRequest is the public projection shown on the tracking page
type TrackingRequest struct {
	Category models.TrackingCategory `json:"category" validate:"required,oneof=food shelter health safety utilities transportation other"`
	Area     string                  `json:"area" validate:"required,max=120"`
	Summary  string                  `json:"summary" validate:"max=280"`
}

// EnablePublicTracking creates or refreshes the public projection and returns its tracking code
func (s *Service) EnablePublicTracking(ctx context.Context, ac access.Context, cfsID int64, req TrackingRequest) (string, error) {
	if err := access.Require(ac, access.CanPublicTrackCfs); err != nil {
		return "", done("tracking_enable", err)
	}
	req.Area = strings.TrimSpace(req.Area)
	req.Summary = strings.TrimSpace(req.Summary)
	if err := checkStruct(req); err != nil {
		return "", done("tracking_enable", err)
	}

	code, err := s.store.UpsertPublicTracking(ctx, cfsID, actorOf(ac), models.TrackingFields{
		Category: req.Category,
		Area:     req.Area,
		Summary:  req.Summary,
	})
	if err != nil {
		return "", done("tracking_enable", err)
	}
	done("tracking_enable", nil)

	s.invalidateDetail(cfsID)
	return code, nil
}

// DisablePublicTracking removes the projection. It succeeds when tracking was already off.
func (s *Service) DisablePublicTracking(ctx context.Context, ac access.Context, cfsID int64) error {
	if err := access.Require(ac, access.CanPublicTrackCfs); err != nil {
		return done("tracking_disable", err)
	}
	if err := s.store.DisablePublicTracking(ctx, cfsID, actorOf(ac)); err != nil {
		return done("tracking_disable", err)
	}
	done("tracking_disable", nil)

	s.invalidateDetail(cfsID)
	return nil
}

// ExpirePublicTracking removes the projections of calls closed longer than retention ago.
// It runs from the scheduler, not on behalf of a caller.
func (s *Service) ExpirePublicTracking(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	n, err := s.store.ExpirePublicTracking(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.TrackingExpiredTotal.Add(float64(n))
	s.logger.Info("expired public tracking projections",
		zap.Int64("removed", n),
		zap.Time("closedBefore", cutoff),
	)
	return n, nil
}
