package models

// Status is the lifecycle phase of a call
type Status string

// Lifecycle phases
const (
	StatusReceived   Status = "received"
	StatusTriaged    Status = "triaged"
	StatusVerified   Status = "verified"
	StatusDispatched Status = "dispatched"
	StatusDismissed  Status = "dismissed"
	StatusDuplicate  Status = "duplicate"
)

// ReportStatus is the closure classification of a call, independent of Status
type ReportStatus string

// Report statuses. Everything other than open is terminal.
const (
	ReportStatusOpen                    ReportStatus = "open"
	ReportStatusResolved                ReportStatus = "resolved"
	ReportStatusUnfounded               ReportStatus = "unfounded"
	ReportStatusReferred                ReportStatus = "referred"
	ReportStatusWithdrawn               ReportStatus = "withdrawn"
	ReportStatusInsufficientInformation ReportStatus = "insufficient_information"
)

var reportStatusLabels = map[ReportStatus]string{
	ReportStatusOpen:                    "Open",
	ReportStatusResolved:                "Resolved",
	ReportStatusUnfounded:               "Closed - Unfounded",
	ReportStatusReferred:                "Referred to Another Agency",
	ReportStatusWithdrawn:               "Withdrawn",
	ReportStatusInsufficientInformation: "Closed - Insufficient Information",
}

// Label returns the reporter-facing wording for the status
func (s ReportStatus) Label() string {
	if l, ok := reportStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether the status closes the report
func (s ReportStatus) Terminal() bool {
	_, known := reportStatusLabels[s]
	return known && s != ReportStatusOpen
}

// TerminalReportStatuses lists the values accepted by a dismissal
func TerminalReportStatuses() []ReportStatus {
	return []ReportStatus{
		ReportStatusResolved,
		ReportStatusUnfounded,
		ReportStatusReferred,
		ReportStatusWithdrawn,
		ReportStatusInsufficientInformation,
	}
}

var statusLabels = map[Status]string{
	StatusReceived:   "Received",
	StatusTriaged:    "Under Review",
	StatusVerified:   "Verified",
	StatusDispatched: "Assistance Dispatched",
	StatusDismissed:  "Closed",
	StatusDuplicate:  "Merged",
}

// Label returns the reporter-facing wording for the lifecycle phase
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Priority is the triage assessment of a call
type Priority string

// Priorities
const (
	PriorityRoutine   Priority = "routine"
	PriorityElevated  Priority = "elevated"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// VerificationStatus is the outcome of identity/report verification
type VerificationStatus string

// Verification statuses
const (
	VerificationUnverified     VerificationStatus = "unverified"
	VerificationPending        VerificationStatus = "pending"
	VerificationVerified       VerificationStatus = "verified"
	VerificationUnableToVerify VerificationStatus = "unable_to_verify"
	VerificationFalseReport    VerificationStatus = "false_report"
)

// VerificationMethod is how a verification was carried out
type VerificationMethod string

// Verification methods
const (
	VerificationMethodPhoneCallback  VerificationMethod = "phone_callback"
	VerificationMethodInPerson       VerificationMethod = "in_person"
	VerificationMethodDocumentReview VerificationMethod = "document_review"
	VerificationMethodThirdParty     VerificationMethod = "third_party"
	VerificationMethodOther          VerificationMethod = "other"
)

// Origin is where a request entered the organization
type Origin string

// Origins
const (
	OriginWeb             Origin = "web"
	OriginPhone           Origin = "phone"
	OriginWalkIn          Origin = "walk_in"
	OriginEmail           Origin = "email"
	OriginPartnerReferral Origin = "partner_referral"
	OriginOutreach        Origin = "outreach"
)

// Source is who raised the request
type Source string

// Sources
const (
	SourceSelf            Source = "self"
	SourceFamilyMember    Source = "family_member"
	SourceCommunityMember Source = "community_member"
	SourceAgency          Source = "agency"
	SourceAnonymousTip    Source = "anonymous_tip"
)

// ReportMethod is the medium the report arrived through
type ReportMethod string

// Report methods
const (
	ReportMethodOnlineForm  ReportMethod = "online_form"
	ReportMethodPhoneCall   ReportMethod = "phone_call"
	ReportMethodInPerson    ReportMethod = "in_person"
	ReportMethodTextMessage ReportMethod = "text_message"
	ReportMethodEmail       ReportMethod = "email"
)

// NotifyChannel is the medium used to reach a reporter
type NotifyChannel string

// Notify channels
const (
	ChannelNone  NotifyChannel = "none"
	ChannelEmail NotifyChannel = "email"
	ChannelSMS   NotifyChannel = "sms"
)

// AccessLevel is the visibility granted to a non-owning organization
type AccessLevel string

// Access levels
const (
	AccessView AccessLevel = "view"
	AccessEdit AccessLevel = "edit"
)

// TrackingCategory classifies a call on the public tracking page
type TrackingCategory string

// Tracking categories
const (
	TrackingFood           TrackingCategory = "food"
	TrackingShelter        TrackingCategory = "shelter"
	TrackingHealth         TrackingCategory = "health"
	TrackingSafety         TrackingCategory = "safety"
	TrackingUtilities      TrackingCategory = "utilities"
	TrackingTransportation TrackingCategory = "transportation"
	TrackingOther          TrackingCategory = "other"
)
