package databases

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
)

const (
	callName       = "cfs_calls"
	orgAccessName  = "cfs_org_access"
	attachmentName = "cfs_attachments"
	trackingName   = "cfs_public_tracking"
	incidentName   = "incidents"
	counterName    = "counters"
)

// callDocument is a call with its timeline embedded, the way notes are kept on a call
type callDocument struct {
	models.Call `bson:",inline"`
	Timeline []models.TimelineEntry `bson:"timeline"`
}

type mongoStore struct {
	db     DatabaseHelper
	client ClientHelper
	now    func() time.Time
}

// NewMongo returns a Store backed by mongo collections. Multi-document writes run in
// a transaction, so the deployment must be a replica set.
func NewMongo(db DatabaseHelper) Store {
	return &mongoStore{db: db, client: db.Client(), now: time.Now}
}

func (m *mongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}

func mongoError(proc, resource string, id int64, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &apperror.NotFoundError{Resource: resource, ID: id}
	}
	return &apperror.StoreProcedureError{Procedure: proc, Message: err.Error(), Err: err}
}

func (m *mongoStore) nextID(ctx context.Context, sequence string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.db.Collection(counterName).
		FindOneAndUpdate(ctx, bson.M{"_id": sequence}, bson.M{"$inc": bson.M{"seq": 1}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (m *mongoStore) entry(ctx context.Context, cfsID int64, actor models.Actor, kind models.TimelineKind, phase models.Status, notes string) (models.TimelineEntry, error) {
	id, err := m.nextID(ctx, "cfs_timeline")
	if err != nil {
		return models.TimelineEntry{}, err
	}
	return models.TimelineEntry{
		ID:             id,
		CFSID:          cfsID,
		OrganizationID: actor.OrganizationID,
		ActorProfileID: actor.ProfileID,
		Kind:           kind,
		Phase:          phase,
		Notes:          notes,
		CreatedAt:      m.now().UTC(),
	}, nil
}

func (m *mongoStore) status(ctx context.Context, id int64) (models.Status, error) {
	var doc struct {
		Status models.Status `bson:"status"`
	}
	opts := options.FindOne().SetProjection(bson.M{"status": 1})
	if err := m.db.Collection(callName).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return "", err
	}
	return doc.Status, nil
}

func (m *mongoStore) owner(ctx context.Context, id int64) (int64, error) {
	var doc struct {
		OwningOrganizationID int64 `bson:"owningOrganizationId"`
	}
	opts := options.FindOne().SetProjection(bson.M{"owningOrganizationId": 1})
	if err := m.db.Collection(callName).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.OwningOrganizationID, nil
}

// transition applies set to the call and appends a timeline entry in one update. A
// zero phase keeps the call's current status on the entry.
func (m *mongoStore) transition(ctx context.Context, proc string, id int64, actor models.Actor, kind models.TimelineKind, phase models.Status, notes string, set bson.M) error {
	return m.client.UseTransaction(ctx, func(sc context.Context) error {
		return m.apply(sc, proc, id, actor, kind, phase, notes, set)
	})
}

// apply is transition for callers already inside a transaction
func (m *mongoStore) apply(sc context.Context, proc string, id int64, actor models.Actor, kind models.TimelineKind, phase models.Status, notes string, set bson.M) error {
	if phase == "" {
		current, err := m.status(sc, id)
		if err != nil {
			return mongoError(proc, "call", id, err)
		}
		phase = current
	}
	e, err := m.entry(sc, id, actor, kind, phase, notes)
	if err != nil {
		return mongoError(proc, "call", id, err)
	}
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = e.CreatedAt
	res, err := m.db.Collection(callName).UpdateOne(sc, bson.M{"_id": id},
		bson.M{"$set": set, "$push": bson.M{"timeline": e}})
	if err != nil {
		return mongoError(proc, "call", id, err)
	}
	if res.MatchedCount == 0 {
		return &apperror.NotFoundError{Resource: "call", ID: id}
	}
	return nil
}

func (m *mongoStore) CreateCall(ctx context.Context, nc models.NewCall) (int64, error) {
	var id int64
	err := m.client.UseTransaction(ctx, func(sc context.Context) error {
		var err error
		id, err = m.nextID(sc, callName)
		if err != nil {
			return mongoError("cfs_create_call", "call", 0, err)
		}
		now := m.now().UTC()
		org := nc.OwningOrganizationID
		doc := callDocument{Call: models.Call{
			ID:                      id,
			ReportNumber:            reportNumber(id, nc.ReceivedAt),
			Origin:                  nc.Origin,
			Source:                  nc.Source,
			ReportMethod:            nc.ReportMethod,
			Status:                  models.StatusReceived,
			ReportStatus:            models.ReportStatusOpen,
			Priority:                nc.Priority,
			VerificationStatus:      models.VerificationUnverified,
			ReportingPersonID:       nc.ReportingPersonID,
			ReportingOrganizationID: nc.ReportingOrganizationID,
			Anonymous:               nc.Anonymous,
			Reporter:                nc.Reporter,
			Notify:                  nc.Notify,
			OwningOrganizationID:    org,
			Narrative:               nc.Narrative,
			UrgencyIndicators:       nc.UrgencyIndicators,
			ReceivedAt:              nc.ReceivedAt,
			ReportReceivedAt:        nc.ReportReceivedAt,
			CreatedAt:               now,
			UpdatedAt:               now,
		}}
		e, err := m.entry(sc, id, models.Actor{ProfileID: nc.CreatedBy, OrganizationID: &org}, models.TimelineCreated, models.StatusReceived, "")
		if err != nil {
			return mongoError("cfs_create_call", "call", 0, err)
		}
		doc.Timeline = []models.TimelineEntry{e}
		if _, err := m.db.Collection(callName).InsertOne(sc, doc); err != nil {
			return mongoError("cfs_create_call", "call", 0, err)
		}
		if nc.Tracking != nil {
			t := models.PublicTracking{
				CFSID:        id,
				TrackingCode: newTrackingCode(),
				Category:     nc.Tracking.Category,
				Area:         nc.Tracking.Area,
				Summary:      nc.Tracking.Summary,
				UpdatedAt:    now,
			}
			if _, err := m.db.Collection(trackingName).InsertOne(sc, t); err != nil {
				return mongoError("cfs_create_call", "call", 0, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (m *mongoStore) findTracking(ctx context.Context, cfsID int64) (*models.PublicTracking, error) {
	var t models.PublicTracking
	err := m.db.Collection(trackingName).FindOne(ctx, bson.M{"_id": cfsID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *mongoStore) GetCall(ctx context.Context, id int64) (*models.Call, error) {
	var doc callDocument
	if err := m.db.Collection(callName).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mongoError("cfs_call_detail", "call", id, err)
	}
	t, err := m.findTracking(ctx, id)
	if err != nil {
		return nil, mongoError("cfs_call_detail", "call", id, err)
	}
	call := doc.Call
	call.Tracking = t
	return &call, nil
}

func (m *mongoStore) GetNotifyProfile(ctx context.Context, id int64) (*models.NotifyProfile, error) {
	call, err := m.GetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	np := &models.NotifyProfile{
		CFSID:        call.ID,
		OptIn:        call.Notify.OptIn,
		Channel:      call.Notify.Channel,
		Target:       call.Notify.Target,
		ReportNumber: call.ReportNumber,
	}
	if call.Tracking != nil {
		code := call.Tracking.TrackingCode
		np.TrackingCode = &code
	}
	return np, nil
}

func (m *mongoStore) TriageCall(ctx context.Context, id int64, actor models.Actor, u models.TriageUpdate) error {
	set := bson.M{
		"status":            models.StatusTriaged,
		"priority":          u.Priority,
		"urgencyIndicators": u.UrgencyIndicators,
	}
	if u.Origin != "" {
		set["origin"] = u.Origin
	}
	if u.Source != "" {
		set["source"] = u.Source
	}
	if u.ReportMethod != "" {
		set["reportMethod"] = u.ReportMethod
	}
	return m.transition(ctx, "cfs_triage_call", id, actor, models.TimelineTriage, models.StatusTriaged, u.Notes, set)
}

func (m *mongoStore) VerifyCall(ctx context.Context, id int64, actor models.Actor, u models.VerifyUpdate) error {
	set := bson.M{
		"status":             models.StatusVerified,
		"verificationStatus": u.Status,
		"verificationMethod": u.Method,
	}
	return m.transition(ctx, "cfs_verify_call", id, actor, models.TimelineVerification, models.StatusVerified, u.Notes, set)
}

func (m *mongoStore) DismissCall(ctx context.Context, id int64, actor models.Actor, d models.Dismissal) error {
	set := bson.M{
		"status":       models.StatusDismissed,
		"reportStatus": d.ReportStatus,
		"closedAt":     m.now().UTC(),
	}
	return m.transition(ctx, "cfs_dismiss_call", id, actor, models.TimelineDismissal, models.StatusDismissed, d.Notes, set)
}

func (m *mongoStore) MarkDuplicate(ctx context.Context, id, duplicateOf int64, actor models.Actor, notes string) error {
	if id == duplicateOf {
		return &apperror.StoreProcedureError{Procedure: "cfs_mark_duplicate", Message: "A report cannot be a duplicate of itself.", Safe: true}
	}
	if _, err := m.status(ctx, duplicateOf); err != nil {
		return mongoError("cfs_mark_duplicate", "call", duplicateOf, err)
	}
	set := bson.M{
		"status":        models.StatusDuplicate,
		"duplicateOfId": duplicateOf,
		"closedAt":      m.now().UTC(),
	}
	return m.transition(ctx, "cfs_mark_duplicate", id, actor, models.TimelineDuplicate, models.StatusDuplicate, notes, set)
}

func (m *mongoStore) ConvertToIncident(ctx context.Context, id int64, actor models.Actor, req models.IncidentRequest) (int64, error) {
	var incidentID int64
	err := m.client.UseTransaction(ctx, func(sc context.Context) error {
		var err error
		incidentID, err = m.nextID(sc, incidentName)
		if err != nil {
			return mongoError("cfs_convert_to_incident", "call", id, err)
		}
		_, err = m.db.Collection(incidentName).InsertOne(sc, bson.M{
			"_id":         incidentID,
			"cfsId":       id,
			"type":        req.IncidentType,
			"description": req.Description,
			"createdBy":   actor.ProfileID,
			"createdAt":   m.now().UTC(),
		})
		if err != nil {
			return mongoError("cfs_convert_to_incident", "call", id, err)
		}
		return m.apply(sc, "cfs_convert_to_incident", id, actor, models.TimelineConversion, models.StatusDispatched,
			req.Description, bson.M{"status": models.StatusDispatched, "incidentId": incidentID})
	})
	if err != nil {
		return 0, err
	}
	return incidentID, nil
}

// TransferOwnership also drops any grant the new owner held, since owners need none
func (m *mongoStore) TransferOwnership(ctx context.Context, id, toOrganizationID int64, actor models.Actor, notes string) error {
	return m.client.UseTransaction(ctx, func(sc context.Context) error {
		if _, err := m.db.Collection(orgAccessName).DeleteOne(sc, bson.M{"cfsId": id, "organizationId": toOrganizationID}); err != nil {
			return mongoError("cfs_transfer_ownership", "call", id, err)
		}
		return m.apply(sc, "cfs_transfer_ownership", id, actor, models.TimelineTransfer, "", notes,
			bson.M{"owningOrganizationId": toOrganizationID})
	})
}

func (m *mongoStore) AddNote(ctx context.Context, id int64, actor models.Actor, text string) error {
	return m.transition(ctx, "cfs_add_note", id, actor, models.TimelineNote, "", text, nil)
}

func (m *mongoStore) UpdateStatus(ctx context.Context, id int64, actor models.Actor, status models.Status, notes string) error {
	return m.transition(ctx, "cfs_update_status", id, actor, models.TimelineStatusChange, status, notes,
		bson.M{"status": status})
}

func (m *mongoStore) ListTimeline(ctx context.Context, id int64) ([]models.TimelineEntry, error) {
	var doc callDocument
	opts := options.FindOne().SetProjection(bson.M{"timeline": 1})
	if err := m.db.Collection(callName).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return nil, mongoError("cfs_timeline", "call", id, err)
	}
	return doc.Timeline, nil
}

func (m *mongoStore) UpsertOrgAccess(ctx context.Context, actor models.Actor, g models.OrgAccessGrant) error {
	return m.client.UseTransaction(ctx, func(sc context.Context) error {
		owner, err := m.owner(sc, g.CFSID)
		if err != nil {
			return mongoError("cfs_upsert_org_access", "call", g.CFSID, err)
		}
		if owner == g.OrganizationID {
			return &apperror.StoreProcedureError{Procedure: "cfs_upsert_org_access", Message: "The owning organization already has full access.", Safe: true}
		}
		_, err = m.db.Collection(orgAccessName).UpdateOne(sc,
			bson.M{"cfsId": g.CFSID, "organizationId": g.OrganizationID},
			bson.M{"$set": bson.M{
				"accessLevel": g.AccessLevel,
				"reason":      g.Reason,
				"grantedBy":   actor.ProfileID,
				"grantedAt":   m.now().UTC(),
			}},
			options.Update().SetUpsert(true))
		if err != nil {
			return mongoError("cfs_upsert_org_access", "call", g.CFSID, err)
		}
		return m.apply(sc, "cfs_upsert_org_access", g.CFSID, actor, models.TimelineAccessGrant, "", string(g.AccessLevel), nil)
	})
}

func (m *mongoStore) RevokeOrgAccess(ctx context.Context, cfsID, organizationID int64, actor models.Actor) error {
	return m.client.UseTransaction(ctx, func(sc context.Context) error {
		n, err := m.db.Collection(orgAccessName).DeleteOne(sc, bson.M{"cfsId": cfsID, "organizationId": organizationID})
		if err != nil {
			return mongoError("cfs_revoke_org_access", "call", cfsID, err)
		}
		if n == 0 {
			return nil
		}
		return m.apply(sc, "cfs_revoke_org_access", cfsID, actor, models.TimelineAccessRevoke, "", "", nil)
	})
}

func (m *mongoStore) ListOrgAccess(ctx context.Context, cfsID int64) ([]models.OrgAccessGrant, error) {
	cur, err := m.db.Collection(orgAccessName).Find(ctx, bson.M{"cfsId": cfsID})
	if err != nil {
		return nil, mongoError("cfs_org_access", "call", cfsID, err)
	}
	var grants []models.OrgAccessGrant
	if err := cur.Decode(&grants); err != nil {
		return nil, mongoError("cfs_org_access", "call", cfsID, err)
	}
	return grants, nil
}

func (m *mongoStore) UpsertPublicTracking(ctx context.Context, cfsID int64, actor models.Actor, f models.TrackingFields) (string, error) {
	var t models.PublicTracking
	err := m.client.UseTransaction(ctx, func(sc context.Context) error {
		opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
		err := m.db.Collection(trackingName).FindOneAndUpdate(sc, bson.M{"_id": cfsID}, bson.M{
			"$set": bson.M{
				"category":  f.Category,
				"area":      f.Area,
				"summary":   f.Summary,
				"updatedAt": m.now().UTC(),
			},
			"$setOnInsert": bson.M{"trackingCode": newTrackingCode()},
		}, opts).Decode(&t)
		if err != nil {
			return mongoError("cfs_upsert_public_tracking", "call", cfsID, err)
		}
		return m.apply(sc, "cfs_upsert_public_tracking", cfsID, actor, models.TimelineTracking, "", "enabled", nil)
	})
	if err != nil {
		return "", err
	}
	return t.TrackingCode, nil
}

func (m *mongoStore) DisablePublicTracking(ctx context.Context, cfsID int64, actor models.Actor) error {
	return m.client.UseTransaction(ctx, func(sc context.Context) error {
		n, err := m.db.Collection(trackingName).DeleteOne(sc, bson.M{"_id": cfsID})
		if err != nil {
			return mongoError("cfs_disable_public_tracking", "call", cfsID, err)
		}
		if n == 0 {
			return nil
		}
		return m.apply(sc, "cfs_disable_public_tracking", cfsID, actor, models.TimelineTracking, "", "disabled", nil)
	})
}

func (m *mongoStore) ExpirePublicTracking(ctx context.Context, closedBefore time.Time) (int64, error) {
	cur, err := m.db.Collection(callName).Find(ctx,
		bson.M{"reportStatus": bson.M{"$ne": models.ReportStatusOpen}, "closedAt": bson.M{"$lt": closedBefore}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, mongoError("cfs_expire_public_tracking", "call", 0, err)
	}
	var closed []struct {
		ID int64 `bson:"_id"`
	}
	if err := cur.Decode(&closed); err != nil {
		return 0, mongoError("cfs_expire_public_tracking", "call", 0, err)
	}
	if len(closed) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(closed))
	for _, c := range closed {
		ids = append(ids, c.ID)
	}
	n, err := m.db.Collection(trackingName).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, mongoError("cfs_expire_public_tracking", "call", 0, err)
	}
	return n, nil
}

func (m *mongoStore) InsertAttachment(ctx context.Context, a models.Attachment) (int64, error) {
	err := m.client.UseTransaction(ctx, func(sc context.Context) error {
		id, err := m.nextID(sc, attachmentName)
		if err != nil {
			return mongoError("cfs_insert_attachment", "call", a.CFSID, err)
		}
		a.ID = id
		a.CreatedAt = m.now().UTC()
		if _, err := m.db.Collection(attachmentName).InsertOne(sc, a); err != nil {
			return mongoError("cfs_insert_attachment", "call", a.CFSID, err)
		}
		actor := models.Actor{ProfileID: a.UploadedBy, OrganizationID: &a.OrganizationID}
		return m.apply(sc, "cfs_insert_attachment", a.CFSID, actor, models.TimelineAttachment, "", "added "+a.FileName, nil)
	})
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (m *mongoStore) GetAttachment(ctx context.Context, cfsID, attachmentID int64) (*models.Attachment, error) {
	var a models.Attachment
	err := m.db.Collection(attachmentName).FindOne(ctx, bson.M{"_id": attachmentID, "cfsId": cfsID}).Decode(&a)
	if err != nil {
		return nil, mongoError("cfs_attachment", "attachment", attachmentID, err)
	}
	return &a, nil
}

func (m *mongoStore) ListAttachments(ctx context.Context, cfsID int64) ([]models.Attachment, error) {
	cur, err := m.db.Collection(attachmentName).Find(ctx, bson.M{"cfsId": cfsID})
	if err != nil {
		return nil, mongoError("cfs_attachments", "call", cfsID, err)
	}
	var out []models.Attachment
	if err := cur.Decode(&out); err != nil {
		return nil, mongoError("cfs_attachments", "call", cfsID, err)
	}
	return out, nil
}

func (m *mongoStore) DeleteAttachment(ctx context.Context, cfsID, attachmentID int64, actor models.Actor) error {
	return m.client.UseTransaction(ctx, func(sc context.Context) error {
		n, err := m.db.Collection(attachmentName).DeleteOne(sc, bson.M{"_id": attachmentID, "cfsId": cfsID})
		if err != nil {
			return mongoError("cfs_delete_attachment", "attachment", attachmentID, err)
		}
		if n == 0 {
			return &apperror.NotFoundError{Resource: "attachment", ID: attachmentID}
		}
		return m.apply(sc, "cfs_delete_attachment", cfsID, actor, models.TimelineAttachment, "", "removed attachment", nil)
	})
}
