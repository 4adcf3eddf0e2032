package models

import "time"

// Call holds the structure of a call-for-service record. The same struct is stored as a
// document in mongo and scanned from the postgres procedures.
type Call struct {
	ID                      int64               `json:"id" bson:"_id"`
	ReportNumber            string              `json:"reportNumber" bson:"reportNumber"`
	Origin                  Origin              `json:"origin" bson:"origin"`
	Source                  Source              `json:"source" bson:"source"`
	ReportMethod            ReportMethod        `json:"reportMethod" bson:"reportMethod"`
	Status                  Status              `json:"status" bson:"status"`
	ReportStatus            ReportStatus        `json:"reportStatus" bson:"reportStatus"`
	Priority                Priority            `json:"priority" bson:"priority"`
	VerificationStatus      VerificationStatus  `json:"verificationStatus" bson:"verificationStatus"`
	VerificationMethod      *VerificationMethod `json:"verificationMethod,omitempty" bson:"verificationMethod,omitempty"`
	ReportingPersonID       *int64              `json:"reportingPersonId,omitempty" bson:"reportingPersonId,omitempty"`
	ReportingOrganizationID *int64              `json:"reportingOrganizationId,omitempty" bson:"reportingOrganizationId,omitempty"`
	Anonymous               bool                `json:"anonymous" bson:"anonymous"`
	Reporter                ReporterContact     `json:"reporter" bson:"reporter"`
	Notify                  NotifyPreferences   `json:"notify" bson:"notify"`
	OwningOrganizationID    int64               `json:"owningOrganizationId" bson:"owningOrganizationId"`
	DuplicateOfID           *int64              `json:"duplicateOfId,omitempty" bson:"duplicateOfId,omitempty"`
	IncidentID              *int64              `json:"incidentId,omitempty" bson:"incidentId,omitempty"`
	Narrative               string              `json:"narrative" bson:"narrative"`
	UrgencyIndicators       []string            `json:"urgencyIndicators" bson:"urgencyIndicators"`
	ReceivedAt              time.Time           `json:"receivedAt" bson:"receivedAt"`
	ReportReceivedAt        *time.Time          `json:"reportReceivedAt,omitempty" bson:"reportReceivedAt,omitempty"`
	ClosedAt                *time.Time          `json:"closedAt,omitempty" bson:"closedAt,omitempty"`
	CreatedAt               time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt               time.Time           `json:"updatedAt" bson:"updatedAt"`
	Tracking                *PublicTracking     `json:"tracking,omitempty" bson:"-"`
}

// ReporterContact holds the free-form contact fields a reporter supplied
type ReporterContact struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

// NotifyPreferences holds the reporter's notification consent. Target is already
// normalized for the channel when OptIn is set.
type NotifyPreferences struct {
	OptIn   bool          `json:"optIn" bson:"optIn"`
	Channel NotifyChannel `json:"channel" bson:"channel"`
	Target  *string       `json:"target,omitempty" bson:"target,omitempty"`
}

// NotifyProfile is the read model the notification dispatcher loads before each send
type NotifyProfile struct {
	CFSID        int64         `json:"cfsId" db:"cfs_id"`
	OptIn        bool          `json:"optIn" db:"notify_opt_in"`
	Channel      NotifyChannel `json:"channel" db:"notify_channel"`
	Target       *string       `json:"target,omitempty" db:"notify_target"`
	ReportNumber string        `json:"reportNumber" db:"report_number"`
	TrackingCode *string       `json:"trackingCode,omitempty" db:"tracking_code"`
}

// NewCall is the fully normalized payload handed to the create procedure
type NewCall struct {
	Origin                  Origin            `json:"origin"`
	Source                  Source            `json:"source"`
	ReportMethod            ReportMethod      `json:"report_method"`
	Priority                Priority          `json:"priority"`
	ReportingPersonID       *int64            `json:"reporting_person_id"`
	ReportingOrganizationID *int64            `json:"reporting_organization_id"`
	Anonymous               bool              `json:"anonymous"`
	Reporter                ReporterContact   `json:"reporter"`
	Notify                  NotifyPreferences `json:"notify"`
	OwningOrganizationID    int64             `json:"owning_organization_id"`
	CreatedBy               int64             `json:"created_by"`
	Narrative               string            `json:"narrative"`
	UrgencyIndicators       []string          `json:"urgency_indicators"`
	ReceivedAt              time.Time         `json:"received_at"`
	ReportReceivedAt        *time.Time        `json:"report_received_at"`
	Tracking                *TrackingFields   `json:"tracking"`
}
