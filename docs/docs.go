// Package docs CFS Intake API.
//
// Documentation of the CFS Intake API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/cfs-intake-api/cfs"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/auth/token auth createToken
// Exchanges service account credentials for a bearer token.
// responses:
//   200: tokenResponse
//   401: errorResponse

// A signed bearer token and its expiry
// swagger:response tokenResponse
type tokenResponseWrapper struct {
	// in:body
	Body struct {
		Token     string `json:"token"`
		TokenType string `json:"tokenType"`
		ExpiresAt string `json:"expiresAt"`
	}
}

// swagger:route POST /api/v1/cfs cfs createCall
// Records a new call for service.
// responses:
//   201: idResponse
//   403: errorResponse
//   422: validationResponse

// swagger:parameters createCall
type createCallParamsWrapper struct {
	// in:body
	Body cfs.CreateRequest
}

// The id of the created record
// swagger:response idResponse
type idResponseWrapper struct {
	// in:body
	Body struct {
		ID int64 `json:"id"`
	}
}

// swagger:route GET /api/v1/cfs/{cfs_id} cfs callByID
// Gets a call with its timeline, organization grants and attachments.
// responses:
//   200: callDetailResponse
//   404: errorResponse

// swagger:parameters callByID triage verify dismiss markDuplicate convertToIncident transferOwnership addNote updateStatus enableTracking disableTracking uploadAttachment
type cfsIDParamWrapper struct {
	// in:path
	// required: true
	CfsID int64 `json:"cfs_id"`
}

// Shows a single call by the given {cfs_id}
// swagger:response callDetailResponse
type callDetailResponseWrapper struct {
	// in:body
	Body cfs.Detail
}

// swagger:route POST /api/v1/cfs/{cfs_id}/triage cfs triage
// Sets priority and intake classification.
// responses:
//   200: messageResponse
//   403: errorResponse
//   422: validationResponse

// swagger:route POST /api/v1/cfs/{cfs_id}/verify cfs verify
// Records the verification outcome.
// responses:
//   200: messageResponse

// swagger:route POST /api/v1/cfs/{cfs_id}/dismiss cfs dismiss
// Closes a call without dispatch.
// responses:
//   200: messageResponse

// swagger:route POST /api/v1/cfs/{cfs_id}/duplicate cfs markDuplicate
// Merges a call into another one.
// responses:
//   200: messageResponse
//   409: errorResponse

// swagger:route POST /api/v1/cfs/{cfs_id}/incident cfs convertToIncident
// Spawns an incident from a call.
// responses:
//   201: incidentResponse

// The id of the spawned incident
// swagger:response incidentResponse
type incidentResponseWrapper struct {
	// in:body
	Body struct {
		IncidentID int64 `json:"incidentId"`
	}
}

// swagger:route POST /api/v1/cfs/{cfs_id}/transfer cfs transferOwnership
// Hands a call to another organization.
// responses:
//   200: messageResponse

// swagger:route POST /api/v1/cfs/{cfs_id}/notes cfs addNote
// Appends a note to the timeline.
// responses:
//   200: messageResponse

// swagger:route PUT /api/v1/cfs/{cfs_id}/status cfs updateStatus
// Sets the lifecycle status directly.
// responses:
//   200: messageResponse

// swagger:route PUT /api/v1/cfs/{cfs_id}/org-access/{organization_id} sharing grantOrgAccess
// Shares a call with an organization.
// responses:
//   200: messageResponse

// swagger:route DELETE /api/v1/cfs/{cfs_id}/org-access/{organization_id} sharing revokeOrgAccess
// Removes an organization's grant.
// responses:
//   200: messageResponse

// swagger:route PUT /api/v1/cfs/{cfs_id}/public-tracking tracking enableTracking
// Publishes the public tracking projection.
// responses:
//   200: trackingResponse

// The public tracking code
// swagger:response trackingResponse
type trackingResponseWrapper struct {
	// in:body
	Body struct {
		TrackingCode string `json:"trackingCode"`
	}
}

// swagger:route DELETE /api/v1/cfs/{cfs_id}/public-tracking tracking disableTracking
// Withdraws the public tracking projection.
// responses:
//   200: messageResponse

// swagger:route POST /api/v1/cfs/{cfs_id}/attachments attachments uploadAttachment
// Stores a multipart file (field "file", optional "notes") against a call.
// responses:
//   201: attachmentResponse
//   422: validationResponse

// The id of the stored attachment
// swagger:response attachmentResponse
type attachmentResponseWrapper struct {
	// in:body
	Body struct {
		AttachmentID int64 `json:"attachmentId"`
	}
}

// swagger:route DELETE /api/v1/cfs/{cfs_id}/attachments/{attachment_id} attachments deleteAttachment
// Removes an attachment and its stored file.
// responses:
//   200: messageResponse

// An acknowledgement
// swagger:response messageResponse
type messageResponseWrapper struct {
	// in:body
	Body struct {
		Message string `json:"message"`
	}
}

// A caller-safe error message
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}

// Field-scoped validation failures
// swagger:response validationResponse
type validationResponseWrapper struct {
	// in:body
	Body models.ValidationErrorResponse
}
