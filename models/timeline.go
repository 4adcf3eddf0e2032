package models

import "time"

// TimelineKind classifies an entry on a call's timeline
type TimelineKind string

// Timeline kinds
const (
	TimelineCreated      TimelineKind = "created"
	TimelineNote         TimelineKind = "note"
	TimelineStatusChange TimelineKind = "status_change"
	TimelineTriage       TimelineKind = "triage"
	TimelineVerification TimelineKind = "verification"
	TimelineDismissal    TimelineKind = "dismissal"
	TimelineDuplicate    TimelineKind = "duplicate"
	TimelineConversion   TimelineKind = "conversion"
	TimelineTransfer     TimelineKind = "transfer"
	TimelineAccessGrant  TimelineKind = "access_grant"
	TimelineAccessRevoke TimelineKind = "access_revoke"
	TimelineTracking     TimelineKind = "tracking"
	TimelineAttachment   TimelineKind = "attachment"
)

// TimelineEntry is an append-only phase record or note. Entries are written by the
// same procedure that applies the transition and are never updated afterwards.
type TimelineEntry struct {
	ID             int64        `json:"id" bson:"id" db:"id"`
	CFSID          int64        `json:"cfsId" bson:"cfsId" db:"cfs_id"`
	OrganizationID *int64       `json:"organizationId,omitempty" bson:"organizationId,omitempty" db:"organization_id"`
	ActorProfileID int64        `json:"actorProfileId" bson:"actorProfileId" db:"actor_profile_id"`
	Kind           TimelineKind `json:"kind" bson:"kind" db:"kind"`
	Phase          Status       `json:"phase" bson:"phase" db:"phase"`
	Notes          string       `json:"notes,omitempty" bson:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt" db:"created_at"`
}
