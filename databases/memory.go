package databases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
)

type grantKey struct {
	cfsID int64
	orgID int64
}

// MemoryStore keeps every record in process memory. It applies the same procedure
// semantics as the postgres functions and backs local runs and tests.
type MemoryStore struct {
	mu sync.Mutex
	now         func() time.Time
	seq         map[string]int64
	calls       map[int64]*models.Call
	timeline    map[int64][]models.TimelineEntry
	grants      map[grantKey]models.OrgAccessGrant
	tracking    map[int64]models.PublicTracking
	attachments map[int64]models.Attachment

	failInsertAttachment error
}

// NewMemory returns an empty MemoryStore
func NewMemory() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		seq:         map[string]int64{},
		calls:       map[int64]*models.Call{},
		timeline:    map[int64][]models.TimelineEntry{},
		grants:      map[grantKey]models.OrgAccessGrant{},
		tracking:    map[int64]models.PublicTracking{},
		attachments: map[int64]models.Attachment{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

func (s *MemoryStore) call(id int64) (*models.Call, error) {
	c, ok := s.calls[id]
	if !ok {
		return nil, &apperror.NotFoundError{Resource: "call", ID: id}
	}
	return c, nil
}

// appendEntry must be called with mu held
func (s *MemoryStore) appendEntry(c *models.Call, actor models.Actor, kind models.TimelineKind, notes string) {
	now := s.now().UTC()
	s.timeline[c.ID] = append(s.timeline[c.ID], models.TimelineEntry{
		ID:             s.next("timeline"),
		CFSID:          c.ID,
		OrganizationID: actor.OrganizationID,
		ActorProfileID: actor.ProfileID,
		Kind:           kind,
		Phase:          c.Status,
		Notes:          notes,
		CreatedAt:      now,
	})
	c.UpdatedAt = now
}

// mutate runs fn against the call under lock and records a timeline entry
func (s *MemoryStore) mutate(id int64, actor models.Actor, kind models.TimelineKind, notes string, fn func(c *models.Call) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.call(id)
	if err != nil {
		return err
	}
	if fn != nil {
		if err := fn(c); err != nil {
			return err
		}
	}
	s.appendEntry(c, actor, kind, notes)
	return nil
}

func (s *MemoryStore) CreateCall(_ context.Context, nc models.NewCall) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next("calls")
	now := s.now().UTC()
	c := &models.Call{
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
		OwningOrganizationID:    nc.OwningOrganizationID,
		Narrative:               nc.Narrative,
		UrgencyIndicators:       append([]string(nil), nc.UrgencyIndicators...),
		ReceivedAt:              nc.ReceivedAt,
		ReportReceivedAt:        nc.ReportReceivedAt,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	s.calls[id] = c
	org := nc.OwningOrganizationID
	s.appendEntry(c, models.Actor{ProfileID: nc.CreatedBy, OrganizationID: &org}, models.TimelineCreated, "")
	if nc.Tracking != nil {
		s.tracking[id] = models.PublicTracking{
			CFSID:        id,
			TrackingCode: newTrackingCode(),
			Category:     nc.Tracking.Category,
			Area:         nc.Tracking.Area,
			Summary:      nc.Tracking.Summary,
			UpdatedAt:    now,
		}
	}
	return id, nil
}

func (s *MemoryStore) GetCall(_ context.Context, id int64) (*models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.call(id)
	if err != nil {
		return nil, err
	}
	out := *c
	out.UrgencyIndicators = append([]string(nil), c.UrgencyIndicators...)
	if t, ok := s.tracking[id]; ok {
		out.Tracking = &t
	}
	return &out, nil
}

func (s *MemoryStore) GetNotifyProfile(_ context.Context, id int64) (*models.NotifyProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.call(id)
	if err != nil {
		return nil, err
	}
	np := &models.NotifyProfile{
		CFSID:        c.ID,
		OptIn:        c.Notify.OptIn,
		Channel:      c.Notify.Channel,
		Target:       c.Notify.Target,
		ReportNumber: c.ReportNumber,
	}
	if t, ok := s.tracking[id]; ok {
		code := t.TrackingCode
		np.TrackingCode = &code
	}
	return np, nil
}

func (s *MemoryStore) TriageCall(_ context.Context, id int64, actor models.Actor, u models.TriageUpdate) error {
	return s.mutate(id, actor, models.TimelineTriage, u.Notes, func(c *models.Call) error {
		c.Status = models.StatusTriaged
		c.Priority = u.Priority
		c.UrgencyIndicators = append([]string(nil), u.UrgencyIndicators...)
		if u.Origin != "" {
			c.Origin = u.Origin
		}
		if u.Source != "" {
			c.Source = u.Source
		}
		if u.ReportMethod != "" {
			c.ReportMethod = u.ReportMethod
		}
		return nil
	})
}

func (s *MemoryStore) VerifyCall(_ context.Context, id int64, actor models.Actor, u models.VerifyUpdate) error {
	return s.mutate(id, actor, models.TimelineVerification, u.Notes, func(c *models.Call) error {
		c.Status = models.StatusVerified
		c.VerificationStatus = u.Status
		c.VerificationMethod = u.Method
		return nil
	})
}

func (s *MemoryStore) DismissCall(_ context.Context, id int64, actor models.Actor, d models.Dismissal) error {
	return s.mutate(id, actor, models.TimelineDismissal, d.Notes, func(c *models.Call) error {
		now := s.now().UTC()
		c.Status = models.StatusDismissed
		c.ReportStatus = d.ReportStatus
		c.ClosedAt = &now
		return nil
	})
}

func (s *MemoryStore) MarkDuplicate(_ context.Context, id, duplicateOf int64, actor models.Actor, notes string) error {
	if id == duplicateOf {
		return &apperror.StoreProcedureError{Procedure: "cfs_mark_duplicate", Message: "A report cannot be a duplicate of itself.", Safe: true}
	}
	s.mu.Lock()
	_, err := s.call(duplicateOf)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.mutate(id, actor, models.TimelineDuplicate, notes, func(c *models.Call) error {
		now := s.now().UTC()
		target := duplicateOf
		c.Status = models.StatusDuplicate
		c.DuplicateOfID = &target
		c.ClosedAt = &now
		return nil
	})
}

func (s *MemoryStore) ConvertToIncident(_ context.Context, id int64, actor models.Actor, req models.IncidentRequest) (int64, error) {
	var incidentID int64
	err := s.mutate(id, actor, models.TimelineConversion, req.Description, func(c *models.Call) error {
		incidentID = s.next("incidents")
		c.Status = models.StatusDispatched
		c.IncidentID = &incidentID
		return nil
	})
	return incidentID, err
}

func (s *MemoryStore) TransferOwnership(_ context.Context, id, toOrganizationID int64, actor models.Actor, notes string) error {
	return s.mutate(id, actor, models.TimelineTransfer, notes, func(c *models.Call) error {
		c.OwningOrganizationID = toOrganizationID
		delete(s.grants, grantKey{cfsID: id, orgID: toOrganizationID})
		return nil
	})
}

func (s *MemoryStore) AddNote(_ context.Context, id int64, actor models.Actor, text string) error {
	return s.mutate(id, actor, models.TimelineNote, text, nil)
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, actor models.Actor, status models.Status, notes string) error {
	return s.mutate(id, actor, models.TimelineStatusChange, notes, func(c *models.Call) error {
		c.Status = status
		return nil
	})
}

func (s *MemoryStore) ListTimeline(_ context.Context, id int64) ([]models.TimelineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.call(id); err != nil {
		return nil, err
	}
	return append([]models.TimelineEntry(nil), s.timeline[id]...), nil
}

func (s *MemoryStore) UpsertOrgAccess(_ context.Context, actor models.Actor, g models.OrgAccessGrant) error {
	return s.mutate(g.CFSID, actor, models.TimelineAccessGrant, string(g.AccessLevel), func(c *models.Call) error {
		if c.OwningOrganizationID == g.OrganizationID {
			return &apperror.StoreProcedureError{Procedure: "cfs_upsert_org_access", Message: "The owning organization already has full access.", Safe: true}
		}
		g.GrantedBy = actor.ProfileID
		g.GrantedAt = s.now().UTC()
		s.grants[grantKey{cfsID: g.CFSID, orgID: g.OrganizationID}] = g
		return nil
	})
}

func (s *MemoryStore) RevokeOrgAccess(_ context.Context, cfsID, organizationID int64, actor models.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.call(cfsID)
	if err != nil {
		return err
	}
	key := grantKey{cfsID: cfsID, orgID: organizationID}
	if _, ok := s.grants[key]; !ok {
		return nil
	}
	delete(s.grants, key)
	s.appendEntry(c, actor, models.TimelineAccessRevoke, "")
	return nil
}

func (s *MemoryStore) ListOrgAccess(_ context.Context, cfsID int64) ([]models.OrgAccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrgAccessGrant
	for k, g := range s.grants {
		if k.cfsID == cfsID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrganizationID < out[j].OrganizationID })
	return out, nil
}

func (s *MemoryStore) UpsertPublicTracking(_ context.Context, cfsID int64, actor models.Actor, f models.TrackingFields) (string, error) {
	var code string
	err := s.mutate(cfsID, actor, models.TimelineTracking, "enabled", func(c *models.Call) error {
		t, ok := s.tracking[cfsID]
		if !ok {
			t = models.PublicTracking{CFSID: cfsID, TrackingCode: newTrackingCode()}
		}
		t.Category = f.Category
		t.Area = f.Area
		t.Summary = f.Summary
		t.UpdatedAt = s.now().UTC()
		s.tracking[cfsID] = t
		code = t.TrackingCode
		return nil
	})
	return code, err
}

func (s *MemoryStore) DisablePublicTracking(_ context.Context, cfsID int64, actor models.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.call(cfsID)
	if err != nil {
		return err
	}
	if _, ok := s.tracking[cfsID]; !ok {
		return nil
	}
	delete(s.tracking, cfsID)
	s.appendEntry(c, actor, models.TimelineTracking, "disabled")
	return nil
}

func (s *MemoryStore) ExpirePublicTracking(_ context.Context, closedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id := range s.tracking {
		c := s.calls[id]
		if c != nil && c.ReportStatus.Terminal() && c.ClosedAt != nil && c.ClosedAt.Before(closedBefore) {
			delete(s.tracking, id)
			n++
		}
	}
	return n, nil
}

// FailInsertAttachment makes every later InsertAttachment return err. A nil err
// restores normal behavior.
func (s *MemoryStore) FailInsertAttachment(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInsertAttachment = err
}

func (s *MemoryStore) InsertAttachment(_ context.Context, a models.Attachment) (int64, error) {
	actor := models.Actor{ProfileID: a.UploadedBy, OrganizationID: &a.OrganizationID}
	err := s.mutate(a.CFSID, actor, models.TimelineAttachment, "added "+a.FileName, func(c *models.Call) error {
		if s.failInsertAttachment != nil {
			return s.failInsertAttachment
		}
		a.ID = s.next("attachments")
		a.CreatedAt = s.now().UTC()
		s.attachments[a.ID] = a
		return nil
	})
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (s *MemoryStore) GetAttachment(_ context.Context, cfsID, attachmentID int64) (*models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attachments[attachmentID]
	if !ok || a.CFSID != cfsID {
		return nil, &apperror.NotFoundError{Resource: "attachment", ID: attachmentID}
	}
	return &a, nil
}

func (s *MemoryStore) ListAttachments(_ context.Context, cfsID int64) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Attachment
	for _, a := range s.attachments {
		if a.CFSID == cfsID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteAttachment(_ context.Context, cfsID, attachmentID int64, actor models.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attachments[attachmentID]
	if !ok || a.CFSID != cfsID {
		return &apperror.NotFoundError{Resource: "attachment", ID: attachmentID}
	}
	delete(s.attachments, attachmentID)
	if c, ok := s.calls[cfsID]; ok {
		s.appendEntry(c, actor, models.TimelineAttachment, "removed "+a.FileName)
	}
	return nil
}

// AttachmentCount returns how many metadata rows exist for a call
func (s *MemoryStore) AttachmentCount(cfsID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attachments {
		if a.CFSID == cfsID {
			n++
		}
	}
	return n
}
