package models

// Actor identifies who performed a write and on behalf of which organization. It is
// recorded on the timeline entry the store appends.
type Actor struct {
	ProfileID      int64  `json:"profile_id"`
	OrganizationID *int64 `json:"organization_id"`
}

// TriageUpdate is the assessment applied by a triage. Empty classification fields
// leave the stored value unchanged.
type TriageUpdate struct {
	Priority          Priority     `json:"priority"`
	UrgencyIndicators []string     `json:"urgency_indicators"`
	Origin            Origin       `json:"origin,omitempty"`
	Source            Source       `json:"source,omitempty"`
	ReportMethod      ReportMethod `json:"report_method,omitempty"`
	Notes             string       `json:"notes,omitempty"`
}

// VerifyUpdate is the verification outcome applied by a verify
type VerifyUpdate struct {
	Status VerificationStatus  `json:"verification_status"`
	Method *VerificationMethod `json:"verification_method"`
	Notes  string              `json:"notes,omitempty"`
}

// Dismissal closes a report with a terminal report status
type Dismissal struct {
	ReportStatus ReportStatus `json:"report_status"`
	Notes        string       `json:"notes,omitempty"`
}

// IncidentRequest describes the incident spawned from a call
type IncidentRequest struct {
	IncidentType string `json:"incident_type"`
	Description  string `json:"description"`
}
