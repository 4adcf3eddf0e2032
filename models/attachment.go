package models

import "time"

// Attachment is the metadata row for an evidence file held in the blob store
type Attachment struct {
	ID             int64     `json:"id" bson:"_id" db:"id"`
	CFSID          int64     `json:"cfsId" bson:"cfsId" db:"cfs_id"`
	OrganizationID int64     `json:"organizationId" bson:"organizationId" db:"organization_id"`
	UploadedBy     int64     `json:"uploadedBy" bson:"uploadedBy" db:"uploaded_by"`
	FileName       string    `json:"fileName" bson:"fileName" db:"file_name"`
	ContentType    string    `json:"contentType" bson:"contentType" db:"content_type"`
	SizeBytes      int64     `json:"sizeBytes" bson:"sizeBytes" db:"size_bytes"`
	Bucket         string    `json:"bucket" bson:"bucket" db:"bucket"`
	ObjectKey      string    `json:"objectKey" bson:"objectKey" db:"object_key"`
	Notes          string    `json:"notes,omitempty" bson:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
}
