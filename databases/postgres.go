package databases

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// pq error codes the procedures raise deliberately
const (
	codeRaiseException = "P0001"
	codeNoDataFound    = "P0002"
	codeForeignKey     = "23503"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgres opens a connection pool against dsn and verifies it with a ping
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresFromDB(db), nil
}

// NewPostgresFromDB wraps an existing sqlx handle
func NewPostgresFromDB(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (p *postgresStore) Close() error {
	return p.db.Close()
}

// procError classifies a failed procedure call
func procError(proc, resource string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &apperror.NotFoundError{Resource: resource, ID: id}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeRaiseException:
			return &apperror.StoreProcedureError{Procedure: proc, Message: pqErr.Message, Safe: true, Err: err}
		case codeNoDataFound, codeForeignKey:
			return &apperror.NotFoundError{Resource: resource, ID: id}
		}
	}
	return &apperror.StoreProcedureError{Procedure: proc, Message: err.Error(), Err: err}
}

func payload(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func actorOrg(a models.Actor) sql.NullInt64 {
	if a.OrganizationID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *a.OrganizationID, Valid: true}
}

func (p *postgresStore) CreateCall(ctx context.Context, call models.NewCall) (int64, error) {
	body, err := payload(call)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := p.db.GetContext(ctx, &id, `SELECT cfs_create_call($1::jsonb)`, body); err != nil {
		return 0, procError("cfs_create_call", "call", 0, err)
	}
	return id, nil
}

type callRow struct {
	ID                      int64          `db:"id"`
	ReportNumber            string         `db:"report_number"`
	Origin                  string         `db:"origin"`
	Source                  string         `db:"source"`
	ReportMethod            string         `db:"report_method"`
	Status                  string         `db:"status"`
	ReportStatus            string         `db:"report_status"`
	Priority                string         `db:"priority"`
	VerificationStatus      string         `db:"verification_status"`
	VerificationMethod      sql.NullString `db:"verification_method"`
	ReportingPersonID       sql.NullInt64  `db:"reporting_person_id"`
	ReportingOrganizationID sql.NullInt64  `db:"reporting_organization_id"`
	Anonymous               bool           `db:"anonymous"`
	ReporterName            sql.NullString `db:"reporter_name"`
	ReporterPhone           sql.NullString `db:"reporter_phone"`
	ReporterEmail           sql.NullString `db:"reporter_email"`
	NotifyOptIn             bool           `db:"notify_opt_in"`
	NotifyChannel           string         `db:"notify_channel"`
	NotifyTarget            sql.NullString `db:"notify_target"`
	OwningOrganizationID    int64          `db:"owning_organization_id"`
	DuplicateOfID           sql.NullInt64  `db:"duplicate_of_id"`
	IncidentID              sql.NullInt64  `db:"incident_id"`
	Narrative               string         `db:"narrative"`
	UrgencyIndicators       pq.StringArray `db:"urgency_indicators"`
	ReceivedAt              time.Time      `db:"received_at"`
	ReportReceivedAt        sql.NullTime   `db:"report_received_at"`
	ClosedAt                sql.NullTime   `db:"closed_at"`
	CreatedAt               time.Time      `db:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at"`
	TrackingCode            sql.NullString `db:"tracking_code"`
	TrackingCategory        sql.NullString `db:"tracking_category"`
	TrackingArea            sql.NullString `db:"tracking_area"`
	TrackingSummary         sql.NullString `db:"tracking_summary"`
	TrackingUpdatedAt       sql.NullTime   `db:"tracking_updated_at"`
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func (r callRow) toCall() *models.Call {
	c := &models.Call{
		ID:                      r.ID,
		ReportNumber:            r.ReportNumber,
		Origin:                  models.Origin(r.Origin),
		Source:                  models.Source(r.Source),
		ReportMethod:            models.ReportMethod(r.ReportMethod),
		Status:                  models.Status(r.Status),
		ReportStatus:            models.ReportStatus(r.ReportStatus),
		Priority:                models.Priority(r.Priority),
		VerificationStatus:      models.VerificationStatus(r.VerificationStatus),
		ReportingPersonID:       nullInt(r.ReportingPersonID),
		ReportingOrganizationID: nullInt(r.ReportingOrganizationID),
		Anonymous:               r.Anonymous,
		Reporter: models.ReporterContact{
			Name:  r.ReporterName.String,
			Phone: r.ReporterPhone.String,
			Email: r.ReporterEmail.String,
		},
		Notify: models.NotifyPreferences{
			OptIn:   r.NotifyOptIn,
			Channel: models.NotifyChannel(r.NotifyChannel),
		},
		OwningOrganizationID: r.OwningOrganizationID,
		DuplicateOfID:        nullInt(r.DuplicateOfID),
		IncidentID:           nullInt(r.IncidentID),
		Narrative:            r.Narrative,
		UrgencyIndicators:    []string(r.UrgencyIndicators),
		ReceivedAt:           r.ReceivedAt,
		ReportReceivedAt:     nullTime(r.ReportReceivedAt),
		ClosedAt:             nullTime(r.ClosedAt),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.VerificationMethod.Valid {
		m := models.VerificationMethod(r.VerificationMethod.String)
		c.VerificationMethod = &m
	}
	if r.NotifyTarget.Valid {
		t := r.NotifyTarget.String
		c.Notify.Target = &t
	}
	if r.TrackingCode.Valid {
		c.Tracking = &models.PublicTracking{
			CFSID:        r.ID,
			TrackingCode: r.TrackingCode.String,
			Category:     models.TrackingCategory(r.TrackingCategory.String),
			Area:         r.TrackingArea.String,
			Summary:      r.TrackingSummary.String,
			UpdatedAt:    r.TrackingUpdatedAt.Time,
		}
	}
	return c
}

func (p *postgresStore) GetCall(ctx context.Context, id int64) (*models.Call, error) {
	var row callRow
	if err := p.db.GetContext(ctx, &row, `SELECT * FROM cfs_call_detail($1)`, id); err != nil {
		return nil, procError("cfs_call_detail", "call", id, err)
	}
	return row.toCall(), nil
}

func (p *postgresStore) GetNotifyProfile(ctx context.Context, id int64) (*models.NotifyProfile, error) {
	var np models.NotifyProfile
	err := p.db.GetContext(ctx, &np,
		`SELECT cfs_id, notify_opt_in, notify_channel, notify_target, report_number, tracking_code FROM cfs_notify_profile($1)`, id)
	if err != nil {
		return nil, procError("cfs_notify_profile", "call", id, err)
	}
	return &np, nil
}

// exec runs a void procedure that takes (cfs id, actor profile, actor org, payload)
func (p *postgresStore) exec(ctx context.Context, proc string, id int64, actor models.Actor, body interface{}) error {
	js, err := payload(body)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`SELECT %s($1, $2, $3, $4::jsonb)`, proc)
	if _, err := p.db.ExecContext(ctx, query, id, actor.ProfileID, actorOrg(actor), js); err != nil {
		return procError(proc, "call", id, err)
	}
	return nil
}

func (p *postgresStore) TriageCall(ctx context.Context, id int64, actor models.Actor, update models.TriageUpdate) error {
	return p.exec(ctx, "cfs_triage_call", id, actor, update)
}

func (p *postgresStore) VerifyCall(ctx context.Context, id int64, actor models.Actor, update models.VerifyUpdate) error {
	return p.exec(ctx, "cfs_verify_call", id, actor, update)
}

func (p *postgresStore) DismissCall(ctx context.Context, id int64, actor models.Actor, d models.Dismissal) error {
	return p.exec(ctx, "cfs_dismiss_call", id, actor, d)
}

func (p *postgresStore) MarkDuplicate(ctx context.Context, id, duplicateOf int64, actor models.Actor, notes string) error {
	return p.exec(ctx, "cfs_mark_duplicate", id, actor, map[string]interface{}{
		"duplicate_of_id": duplicateOf,
		"notes":           notes,
	})
}

func (p *postgresStore) ConvertToIncident(ctx context.Context, id int64, actor models.Actor, req models.IncidentRequest) (int64, error) {
	js, err := payload(req)
	if err != nil {
		return 0, err
	}
	var incidentID sql.NullInt64
	err = p.db.GetContext(ctx, &incidentID, `SELECT cfs_convert_to_incident($1, $2, $3, $4::jsonb)`,
		id, actor.ProfileID, actorOrg(actor), js)
	if err != nil {
		return 0, procError("cfs_convert_to_incident", "call", id, err)
	}
	return incidentID.Int64, nil
}

func (p *postgresStore) TransferOwnership(ctx context.Context, id, toOrganizationID int64, actor models.Actor, notes string) error {
	return p.exec(ctx, "cfs_transfer_ownership", id, actor, map[string]interface{}{
		"organization_id": toOrganizationID,
		"notes":           notes,
	})
}

func (p *postgresStore) AddNote(ctx context.Context, id int64, actor models.Actor, text string) error {
	return p.exec(ctx, "cfs_add_note", id, actor, map[string]string{"notes": text})
}

func (p *postgresStore) UpdateStatus(ctx context.Context, id int64, actor models.Actor, status models.Status, notes string) error {
	return p.exec(ctx, "cfs_update_status", id, actor, map[string]string{
		"status": string(status),
		"notes":  notes,
	})
}

func (p *postgresStore) ListTimeline(ctx context.Context, id int64) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := p.db.SelectContext(ctx, &entries,
		`SELECT id, cfs_id, organization_id, actor_profile_id, kind, phase, notes, created_at FROM cfs_timeline($1)`, id)
	if err != nil {
		return nil, procError("cfs_timeline", "call", id, err)
	}
	return entries, nil
}

func (p *postgresStore) UpsertOrgAccess(ctx context.Context, actor models.Actor, grant models.OrgAccessGrant) error {
	_, err := p.db.ExecContext(ctx, `SELECT cfs_upsert_org_access($1, $2, $3, $4, $5, $6)`,
		grant.CFSID, grant.OrganizationID, string(grant.AccessLevel), grant.Reason, actor.ProfileID, actorOrg(actor))
	if err != nil {
		return procError("cfs_upsert_org_access", "organization", grant.OrganizationID, err)
	}
	return nil
}

func (p *postgresStore) RevokeOrgAccess(ctx context.Context, cfsID, organizationID int64, actor models.Actor) error {
	_, err := p.db.ExecContext(ctx, `SELECT cfs_revoke_org_access($1, $2, $3, $4)`,
		cfsID, organizationID, actor.ProfileID, actorOrg(actor))
	if err != nil {
		return procError("cfs_revoke_org_access", "call", cfsID, err)
	}
	return nil
}

func (p *postgresStore) ListOrgAccess(ctx context.Context, cfsID int64) ([]models.OrgAccessGrant, error) {
	var grants []models.OrgAccessGrant
	err := p.db.SelectContext(ctx, &grants,
		`SELECT cfs_id, organization_id, access_level, reason, granted_by, granted_at FROM cfs_org_access($1)`, cfsID)
	if err != nil {
		return nil, procError("cfs_org_access", "call", cfsID, err)
	}
	return grants, nil
}

func (p *postgresStore) UpsertPublicTracking(ctx context.Context, cfsID int64, actor models.Actor, fields models.TrackingFields) (string, error) {
	js, err := payload(fields)
	if err != nil {
		return "", err
	}
	var code string
	err = p.db.GetContext(ctx, &code, `SELECT cfs_upsert_public_tracking($1, $2, $3, $4::jsonb)`,
		cfsID, actor.ProfileID, actorOrg(actor), js)
	if err != nil {
		return "", procError("cfs_upsert_public_tracking", "call", cfsID, err)
	}
	return code, nil
}

func (p *postgresStore) DisablePublicTracking(ctx context.Context, cfsID int64, actor models.Actor) error {
	_, err := p.db.ExecContext(ctx, `SELECT cfs_disable_public_tracking($1, $2, $3)`,
		cfsID, actor.ProfileID, actorOrg(actor))
	if err != nil {
		return procError("cfs_disable_public_tracking", "call", cfsID, err)
	}
	return nil
}

func (p *postgresStore) ExpirePublicTracking(ctx context.Context, closedBefore time.Time) (int64, error) {
	var n int64
	if err := p.db.GetContext(ctx, &n, `SELECT cfs_expire_public_tracking($1)`, closedBefore); err != nil {
		return 0, procError("cfs_expire_public_tracking", "call", 0, err)
	}
	return n, nil
}

func (p *postgresStore) InsertAttachment(ctx context.Context, a models.Attachment) (int64, error) {
	js, err := payload(map[string]interface{}{
		"cfs_id":          a.CFSID,
		"organization_id": a.OrganizationID,
		"uploaded_by":     a.UploadedBy,
		"file_name":       a.FileName,
		"content_type":    a.ContentType,
		"size_bytes":      a.SizeBytes,
		"bucket":          a.Bucket,
		"object_key":      a.ObjectKey,
		"notes":           a.Notes,
	})
	if err != nil {
		return 0, err
	}
	var id int64
	if err := p.db.GetContext(ctx, &id, `SELECT cfs_insert_attachment($1::jsonb)`, js); err != nil {
		return 0, procError("cfs_insert_attachment", "call", a.CFSID, err)
	}
	return id, nil
}

const attachmentColumns = `id, cfs_id, organization_id, uploaded_by, file_name, content_type, size_bytes, bucket, object_key, notes, created_at`

func (p *postgresStore) GetAttachment(ctx context.Context, cfsID, attachmentID int64) (*models.Attachment, error) {
	var a models.Attachment
	err := p.db.GetContext(ctx, &a, `SELECT `+attachmentColumns+` FROM cfs_attachment($1, $2)`, cfsID, attachmentID)
	if err != nil {
		return nil, procError("cfs_attachment", "attachment", attachmentID, err)
	}
	return &a, nil
}

func (p *postgresStore) ListAttachments(ctx context.Context, cfsID int64) ([]models.Attachment, error) {
	var out []models.Attachment
	if err := p.db.SelectContext(ctx, &out, `SELECT `+attachmentColumns+` FROM cfs_attachments($1)`, cfsID); err != nil {
		return nil, procError("cfs_attachments", "call", cfsID, err)
	}
	return out, nil
}

func (p *postgresStore) DeleteAttachment(ctx context.Context, cfsID, attachmentID int64, actor models.Actor) error {
	_, err := p.db.ExecContext(ctx, `SELECT cfs_delete_attachment($1, $2, $3, $4)`,
		cfsID, attachmentID, actor.ProfileID, actorOrg(actor))
	if err != nil {
		return procError("cfs_delete_attachment", "attachment", attachmentID, err)
	}
	return nil
}
