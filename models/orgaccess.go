package models

import "time"

// OrgAccessGrant gives a non-owning organization visibility into a call. There is at
// most one grant per (CFSID, OrganizationID); the owner never has a grant row.
type OrgAccessGrant struct {
	CFSID          int64       `json:"cfsId" bson:"cfsId" db:"cfs_id"`
	OrganizationID int64       `json:"organizationId" bson:"organizationId" db:"organization_id"`
	AccessLevel    AccessLevel `json:"accessLevel" bson:"accessLevel" db:"access_level"`
	Reason         string      `json:"reason,omitempty" bson:"reason,omitempty" db:"reason"`
	GrantedBy      int64       `json:"grantedBy" bson:"grantedBy" db:"granted_by"`
	GrantedAt      time.Time   `json:"grantedAt" bson:"grantedAt" db:"granted_at"`
}
