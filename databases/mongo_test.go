package databases_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/databases"
	"github.com/linesmerrill/cfs-intake-api/databases/mocks"
	"github.com/linesmerrill/cfs-intake-api/models"
)

type mongoFixture struct {
	db       *mocks.DatabaseHelper
	client   *mocks.ClientHelper
	calls    *mocks.CollectionHelper
	counters *mocks.CollectionHelper
	access   *mocks.CollectionHelper
	files    *mocks.CollectionHelper
}

func newMongoFixture() *mongoFixture {
	f := &mongoFixture{
		db:       &mocks.DatabaseHelper{},
		client:   &mocks.ClientHelper{},
		calls:    &mocks.CollectionHelper{},
		counters: &mocks.CollectionHelper{},
		access:   &mocks.CollectionHelper{},
		files:    &mocks.CollectionHelper{},
	}
	f.db.On("Client").Return(f.client)
	f.db.On("Collection", "cfs_calls").Return(f.calls)
	f.db.On("Collection", "counters").Return(f.counters)
	f.db.On("Collection", "cfs_org_access").Return(f.access)
	f.db.On("Collection", "cfs_attachments").Return(f.files)
	f.client.On("UseTransaction", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) })
	return f
}

// sequence makes the counters collection hand out seq for every id request
func (f *mongoFixture) sequence(seq int64) {
	sr := &mocks.SingleResultHelper{}
	sr.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		reflect.ValueOf(args.Get(0)).Elem().FieldByName("Seq").SetInt(seq)
	})
	f.counters.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(sr)
}

func TestMongoCreateCall(t *testing.T) {
	f := newMongoFixture()
	f.sequence(42)
	f.calls.On("InsertOne", mock.Anything, mock.Anything).Return(int64(42), nil)

	store := databases.NewMongo(f.db)
	id, err := store.CreateCall(context.Background(), models.NewCall{
		OwningOrganizationID: 7,
		Narrative:            "Need food assistance urgently",
		ReceivedAt:           time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	f.calls.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestMongoCreateCallInsertFails(t *testing.T) {
	f := newMongoFixture()
	f.sequence(1)
	f.calls.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))

	store := databases.NewMongo(f.db)
	_, err := store.CreateCall(context.Background(), models.NewCall{OwningOrganizationID: 7})

	var spe *apperror.StoreProcedureError
	assert.ErrorAs(t, err, &spe)
	assert.False(t, spe.Safe)
}

func TestMongoGetAttachmentIsScopedToCall(t *testing.T) {
	f := newMongoFixture()
	sr := &mocks.SingleResultHelper{}
	sr.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	f.files.On("FindOne", mock.Anything, bson.M{"_id": int64(9), "cfsId": int64(10)}).Return(sr)

	store := databases.NewMongo(f.db)
	_, err := store.GetAttachment(context.Background(), 10, 9)

	var nfe *apperror.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "attachment", nfe.Resource)
}

func TestMongoRevokeWithoutGrantIsNoop(t *testing.T) {
	f := newMongoFixture()
	f.access.On("DeleteOne", mock.Anything, bson.M{"cfsId": int64(42), "organizationId": int64(7)}).Return(int64(0), nil)

	store := databases.NewMongo(f.db)
	err := store.RevokeOrgAccess(context.Background(), 42, 7, models.Actor{ProfileID: 1})

	assert.NoError(t, err)
	f.calls.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestMongoUpsertOrgAccessUpserts(t *testing.T) {
	f := newMongoFixture()
	f.sequence(5)

	f.access.On("UpdateOne", mock.Anything,
		bson.M{"cfsId": int64(42), "organizationId": int64(7)},
		mock.Anything,
		mock.MatchedBy(func(o *options.UpdateOptions) bool { return o.Upsert != nil && *o.Upsert }),
	).Return(&mongo.UpdateResult{UpsertedCount: 1}, nil)

	status := &mocks.SingleResultHelper{}
	status.On("Decode", mock.Anything).Return(nil)
	f.calls.On("FindOne", mock.Anything, bson.M{"_id": int64(42)}, mock.Anything).Return(status)
	f.calls.On("UpdateOne", mock.Anything, bson.M{"_id": int64(42)}, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	store := databases.NewMongo(f.db)
	err := store.UpsertOrgAccess(context.Background(), models.Actor{ProfileID: 1},
		models.OrgAccessGrant{CFSID: 42, OrganizationID: 7, AccessLevel: models.AccessEdit})

	assert.NoError(t, err)
	f.access.AssertExpectations(t)
	f.calls.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": int64(42)}, mock.Anything)
}

func TestMongoTransitionMissingCall(t *testing.T) {
	f := newMongoFixture()
	f.sequence(3)
	f.calls.On("UpdateOne", mock.Anything, bson.M{"_id": int64(404)}, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	store := databases.NewMongo(f.db)
	err := store.TriageCall(context.Background(), 404, models.Actor{ProfileID: 1}, models.TriageUpdate{Priority: models.PriorityRoutine})

	var nfe *apperror.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestMongoGrantToOwnerRejected(t *testing.T) {
	f := newMongoFixture()
	owner := &mocks.SingleResultHelper{}
	owner.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		reflect.ValueOf(args.Get(0)).Elem().FieldByName("OwningOrganizationID").SetInt(7)
	})
	f.calls.On("FindOne", mock.Anything, bson.M{"_id": int64(42)}, mock.Anything).Return(owner)

	store := databases.NewMongo(f.db)
	err := store.UpsertOrgAccess(context.Background(), models.Actor{ProfileID: 1},
		models.OrgAccessGrant{CFSID: 42, OrganizationID: 7, AccessLevel: models.AccessView})

	var spe *apperror.StoreProcedureError
	require.ErrorAs(t, err, &spe)
	assert.True(t, spe.Safe)
	assert.Equal(t, "The owning organization already has full access.", spe.Message)
	f.access.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.calls.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestMongoGrantOnMissingCall(t *testing.T) {
	f := newMongoFixture()
	missing := &mocks.SingleResultHelper{}
	missing.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	f.calls.On("FindOne", mock.Anything, bson.M{"_id": int64(404)}, mock.Anything).Return(missing)

	store := databases.NewMongo(f.db)
	err := store.UpsertOrgAccess(context.Background(), models.Actor{ProfileID: 1},
		models.OrgAccessGrant{CFSID: 404, OrganizationID: 7, AccessLevel: models.AccessView})

	var nfe *apperror.NotFoundError
	assert.ErrorAs(t, err, &nfe)
	f.access.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMongoTransferDropsNewOwnersGrant(t *testing.T) {
	f := newMongoFixture()
	f.sequence(6)
	f.access.On("DeleteOne", mock.Anything, bson.M{"cfsId": int64(42), "organizationId": int64(9)}).Return(int64(1), nil)

	status := &mocks.SingleResultHelper{}
	status.On("Decode", mock.Anything).Return(nil)
	f.calls.On("FindOne", mock.Anything, bson.M{"_id": int64(42)}, mock.Anything).Return(status)
	f.calls.On("UpdateOne", mock.Anything, bson.M{"_id": int64(42)},
		mock.MatchedBy(func(update bson.M) bool {
			set, ok := update["$set"].(bson.M)
			return ok && set["owningOrganizationId"] == int64(9)
		}),
	).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	store := databases.NewMongo(f.db)
	err := store.TransferOwnership(context.Background(), 42, 9, models.Actor{ProfileID: 1}, "")

	assert.NoError(t, err)
	f.access.AssertExpectations(t)
	f.calls.AssertExpectations(t)
}
