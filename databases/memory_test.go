package databases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/models"
)

func seedCall(t *testing.T, s *MemoryStore) int64 {
	t.Helper()
	id, err := s.CreateCall(context.Background(), models.NewCall{
		OwningOrganizationID: 1,
		CreatedBy:            100,
		Narrative:            "Need food assistance urgently",
		ReceivedAt:           time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return id
}

func TestMemoryCreateCall(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)

	call, err := s.GetCall(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "CFS-2026-000001", call.ReportNumber)
	assert.Equal(t, models.StatusReceived, call.Status)
	assert.Equal(t, models.ReportStatusOpen, call.ReportStatus)

	entries, err := s.ListTimeline(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TimelineCreated, entries[0].Kind)
}

func TestMemoryGrantTwiceKeepsOneRow(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)
	actor := models.Actor{ProfileID: 100}
	ctx := context.Background()

	require.NoError(t, s.UpsertOrgAccess(ctx, actor, models.OrgAccessGrant{CFSID: id, OrganizationID: 7, AccessLevel: models.AccessView}))
	require.NoError(t, s.UpsertOrgAccess(ctx, actor, models.OrgAccessGrant{CFSID: id, OrganizationID: 7, AccessLevel: models.AccessEdit}))

	grants, err := s.ListOrgAccess(ctx, id)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, models.AccessEdit, grants[0].AccessLevel)
}

func TestMemoryGrantToOwnerRejected(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)

	err := s.UpsertOrgAccess(context.Background(), models.Actor{ProfileID: 100},
		models.OrgAccessGrant{CFSID: id, OrganizationID: 1, AccessLevel: models.AccessView})
	var spe *apperror.StoreProcedureError
	require.ErrorAs(t, err, &spe)
	assert.True(t, spe.Safe)
}

func TestMemoryRevokeWithoutGrant(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)

	assert.NoError(t, s.RevokeOrgAccess(context.Background(), id, 7, models.Actor{ProfileID: 100}))

	entries, _ := s.ListTimeline(context.Background(), id)
	assert.Len(t, entries, 1)
}

func TestMemoryMarkDuplicateOfItself(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)

	err := s.MarkDuplicate(context.Background(), id, id, models.Actor{ProfileID: 100}, "")
	assert.Equal(t, "A report cannot be a duplicate of itself.", apperror.SafeMessage(err))

	err = s.MarkDuplicate(context.Background(), id, 999, models.Actor{ProfileID: 100}, "")
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestMemoryPublicTrackingLifecycle(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)
	ctx := context.Background()
	actor := models.Actor{ProfileID: 100}

	code, err := s.UpsertPublicTracking(ctx, id, actor, models.TrackingFields{Category: models.TrackingFood, Area: "Eastside"})
	require.NoError(t, err)
	again, err := s.UpsertPublicTracking(ctx, id, actor, models.TrackingFields{Category: models.TrackingShelter, Area: "Eastside"})
	require.NoError(t, err)
	assert.Equal(t, code, again)

	np, err := s.GetNotifyProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, np.TrackingCode)
	assert.Equal(t, code, *np.TrackingCode)

	require.NoError(t, s.DisablePublicTracking(ctx, id, actor))
	require.NoError(t, s.DisablePublicTracking(ctx, id, actor))
	call, _ := s.GetCall(ctx, id)
	assert.Nil(t, call.Tracking)
}

func TestMemoryExpirePublicTracking(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	actor := models.Actor{ProfileID: 100}
	closed := seedCall(t, s)
	open := seedCall(t, s)

	for _, id := range []int64{closed, open} {
		_, err := s.UpsertPublicTracking(ctx, id, actor, models.TrackingFields{Category: models.TrackingOther, Area: "North"})
		require.NoError(t, err)
	}
	require.NoError(t, s.DismissCall(ctx, closed, actor, models.Dismissal{ReportStatus: models.ReportStatusResolved}))

	n, err := s.ExpirePublicTracking(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	call, _ := s.GetCall(ctx, open)
	assert.NotNil(t, call.Tracking)
}

func TestMemoryAttachmentScopedToCall(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	first := seedCall(t, s)
	second := seedCall(t, s)

	aid, err := s.InsertAttachment(ctx, models.Attachment{CFSID: first, OrganizationID: 1, UploadedBy: 100, FileName: "lease.pdf"})
	require.NoError(t, err)

	_, err = s.GetAttachment(ctx, second, aid)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	assert.IsType(t, &apperror.NotFoundError{}, s.DeleteAttachment(ctx, second, aid, models.Actor{ProfileID: 100}))

	require.NoError(t, s.DeleteAttachment(ctx, first, aid, models.Actor{ProfileID: 100}))
	assert.Zero(t, s.AttachmentCount(first))
}

func TestMemoryFailInsertAttachmentToggle(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)
	ctx := context.Background()
	insertErr := errors.New("mocked-error")
	attachment := models.Attachment{CFSID: id, OrganizationID: 1, UploadedBy: 100, FileName: "a.txt"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.FailInsertAttachment(insertErr)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.InsertAttachment(ctx, attachment)
		}()
	}
	wg.Wait()

	s.FailInsertAttachment(insertErr)
	_, err := s.InsertAttachment(ctx, attachment)
	assert.ErrorIs(t, err, insertErr)

	s.FailInsertAttachment(nil)
	aid, err := s.InsertAttachment(ctx, attachment)
	require.NoError(t, err)
	assert.NotZero(t, aid)
}

func TestMemoryTransferDropsNewOwnersGrant(t *testing.T) {
	s := NewMemory()
	id := seedCall(t, s)
	ctx := context.Background()
	actor := models.Actor{ProfileID: 100}

	require.NoError(t, s.UpsertOrgAccess(ctx, actor, models.OrgAccessGrant{CFSID: id, OrganizationID: 9, AccessLevel: models.AccessView}))
	require.NoError(t, s.TransferOwnership(ctx, id, 9, actor, ""))

	grants, err := s.ListOrgAccess(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, grants)
}
