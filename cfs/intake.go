package cfs

import (
	"context"
	"strings"
	"time"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

// CreateRequest is the intake payload for a new call
type CreateRequest struct {
	Origin                  models.Origin           `json:"origin" validate:"omitempty,oneof=web phone walk_in email partner_referral outreach"`
	Source                  models.Source           `json:"source" validate:"omitempty,oneof=self family_member community_member agency anonymous_tip"`
	ReportMethod            models.ReportMethod     `json:"report_method" validate:"omitempty,oneof=online_form phone_call in_person text_message email"`
	Priority                models.Priority         `json:"priority" validate:"omitempty,oneof=routine elevated urgent emergency"`
	ReportingPersonID       *int64                  `json:"reporting_person_id" validate:"omitempty,gt=0"`
	ReportingOrganizationID *int64                  `json:"reporting_organization_id" validate:"omitempty,gt=0"`
	AnonymousReporter       bool                    `json:"anonymous_reporter"`
	ReporterName            string                  `json:"reporter_name" validate:"max=200"`
	ReporterPhone           string                  `json:"reporter_phone" validate:"max=40"`
	ReporterEmail           string                  `json:"reporter_email" validate:"omitempty,max=254,email"`
	Narrative               string                  `json:"narrative" validate:"required,min=8,max=10000"`
	UrgencyIndicators       string                  `json:"urgency_indicators" validate:"max=1000"`
	NotifyOptIn             bool                    `json:"notify_opt_in"`
	NotifyChannel           models.NotifyChannel    `json:"notify_channel" validate:"omitempty,oneof=none email sms"`
	NotifyTarget            string                  `json:"notify_target" validate:"max=254"`
	ReceivedAt              *time.Time              `json:"received_at"`
	ReportReceivedAt        *time.Time              `json:"report_received_at"`
	PublicTracking          bool                    `json:"public_tracking"`
	TrackingCategory        models.TrackingCategory `json:"tracking_category" validate:"omitempty,oneof=food shelter health safety utilities transportation other"`
	TrackingArea            string                  `json:"tracking_area" validate:"max=120"`
	TrackingSummary         string                  `json:"tracking_summary" validate:"max=280"`
}

// CreateCall validates and normalizes req, creates the call and returns its id.
// Nothing is written unless every check passes.
func (s *Service) CreateCall(ctx context.Context, ac access.Context, req CreateRequest) (int64, error) {
	orgID, err := access.RequireScoped(ac, access.CanCreateCfs)
	if err != nil {
		return 0, done("create", err)
	}

	nc, err := s.prepareCall(ac, orgID, req)
	if err != nil {
		return 0, done("create", err)
	}

	id, err := s.store.CreateCall(ctx, nc)
	if err != nil {
		return 0, done("create", err)
	}
	done("create", nil)

	if nc.Notify.OptIn {
		s.notifyReporter(id, notify.Received())
	}
	s.invalidateAll(id)
	return id, nil
}

func (s *Service) prepareCall(ac access.Context, orgID int64, req CreateRequest) (models.NewCall, error) {
	req.Narrative = strings.TrimSpace(req.Narrative)
	req.ReporterName = strings.TrimSpace(req.ReporterName)
	req.ReporterPhone = strings.TrimSpace(req.ReporterPhone)
	req.ReporterEmail = strings.TrimSpace(req.ReporterEmail)
	req.TrackingArea = strings.TrimSpace(req.TrackingArea)
	req.TrackingSummary = strings.TrimSpace(req.TrackingSummary)

	if err := checkStruct(req); err != nil {
		return models.NewCall{}, err
	}

	if req.ReportingPersonID != nil && req.ReportingOrganizationID != nil {
		ve := apperror.NewValidationError("reporting_organization_id", "Choose either a reporting person or a reporting organization, not both")
		return models.NewCall{}, ve
	}

	prefs, err := notifyPreferences(req)
	if err != nil {
		return models.NewCall{}, err
	}

	var tracking *models.TrackingFields
	if req.PublicTracking {
		ve := &apperror.ValidationError{}
		if req.TrackingCategory == "" {
			ve.Add("tracking_category", "This field is required")
		}
		if req.TrackingArea == "" {
			ve.Add("tracking_area", "This field is required")
		}
		if !ve.Empty() {
			return models.NewCall{}, ve
		}
		if err := access.Require(ac, access.CanPublicTrackCfs); err != nil {
			return models.NewCall{}, err
		}
		tracking = &models.TrackingFields{
			Category: req.TrackingCategory,
			Area:     req.TrackingArea,
			Summary:  req.TrackingSummary,
		}
	}

	receivedAt := s.now().UTC()
	if req.ReceivedAt != nil && !req.ReceivedAt.IsZero() {
		receivedAt = req.ReceivedAt.UTC()
	}

	nc := models.NewCall{
		Origin:                  req.Origin,
		Source:                  req.Source,
		ReportMethod:            req.ReportMethod,
		Priority:                req.Priority,
		ReportingPersonID:       req.ReportingPersonID,
		ReportingOrganizationID: req.ReportingOrganizationID,
		Anonymous:               req.AnonymousReporter,
		Reporter: models.ReporterContact{
			Name:  req.ReporterName,
			Phone: req.ReporterPhone,
			Email: strings.ToLower(req.ReporterEmail),
		},
		Notify:               prefs,
		OwningOrganizationID: orgID,
		CreatedBy:            ac.ProfileID,
		Narrative:            req.Narrative,
		UrgencyIndicators:    splitIndicators(req.UrgencyIndicators),
		ReceivedAt:           receivedAt,
		ReportReceivedAt:     req.ReportReceivedAt,
		Tracking:             tracking,
	}
	if nc.Origin == "" {
		nc.Origin = models.OriginWeb
	}
	if nc.Source == "" {
		nc.Source = models.SourceSelf
	}
	if nc.ReportMethod == "" {
		nc.ReportMethod = models.ReportMethodOnlineForm
	}
	if nc.Priority == "" {
		nc.Priority = models.PriorityRoutine
	}
	if nc.Anonymous {
		nc.ReportingPersonID = nil
		nc.ReportingOrganizationID = nil
		nc.Reporter.Name = ""
	}
	return nc, nil
}

// notifyPreferences checks consent against the channel and normalizes the target.
// A reporter who has not opted in is stored with channel none and no target.
func notifyPreferences(req CreateRequest) (models.NotifyPreferences, error) {
	if !req.NotifyOptIn {
		return models.NotifyPreferences{OptIn: false, Channel: models.ChannelNone}, nil
	}
	if req.NotifyChannel == "" || req.NotifyChannel == models.ChannelNone {
		return models.NotifyPreferences{}, apperror.NewValidationError("notify_channel", "Choose how you would like to be notified")
	}

	var (
		target string
		ok     bool
	)
	switch req.NotifyChannel {
	case models.ChannelEmail:
		target, ok = normalizeEmail(req.NotifyTarget)
		if !ok {
			return models.NotifyPreferences{}, apperror.NewValidationError("notify_target", "Enter a valid email address")
		}
	case models.ChannelSMS:
		target, ok = normalizePhone(req.NotifyTarget)
		if !ok {
			return models.NotifyPreferences{}, apperror.NewValidationError("notify_target", "Enter a phone number with at least 7 digits")
		}
	}
	return models.NotifyPreferences{OptIn: true, Channel: req.NotifyChannel, Target: &target}, nil
}
