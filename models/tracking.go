package models

import "time"

// PublicTracking is the public projection of a call. It only exists while public
// tracking is enabled for the call.
type PublicTracking struct {
	CFSID        int64            `json:"cfsId" bson:"_id" db:"cfs_id"`
	TrackingCode string           `json:"trackingCode" bson:"trackingCode" db:"tracking_code"`
	Category     TrackingCategory `json:"category" bson:"category" db:"category"`
	Area         string           `json:"area" bson:"area" db:"area"`
	Summary      string           `json:"summary,omitempty" bson:"summary,omitempty" db:"summary"`
	UpdatedAt    time.Time        `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// TrackingFields are the caller-supplied parts of a public tracking projection
type TrackingFields struct {
	Category TrackingCategory `json:"category"`
	Area     string           `json:"area"`
	Summary  string           `json:"summary,omitempty"`
}
