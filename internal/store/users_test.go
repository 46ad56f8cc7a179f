package store

import (
	"context"
	"testing"
	"time"

	"authcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func userDoc(id primitive.ObjectID, email string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "email", Value: email},
		{Key: "name", Value: "Alice"},
		{Key: "hashed_password", Value: "$2a$04$hash"},
		{Key: "is_active", Value: true},
		{Key: "refresh_token", Value: "stored-token"},
	}
}

func TestUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	ctx := context.Background()

	mt.Run("find by email hit", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "auth.users", mtest.FirstBatch, userDoc(id, "alice@example.com")))

		u, err := NewUsers(mt.Coll, time.Second).FindByEmail(ctx, "alice@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, id, u.ID)
		assert.Equal(mt, "Alice", u.Name)
		assert.True(mt, u.IsActive)
	})

	mt.Run("find by email miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "auth.users", mtest.FirstBatch))

		u, err := NewUsers(mt.Coll, time.Second).FindByEmail(ctx, "nobody@example.com")
		require.ErrorIs(mt, err, ErrNotFound)
		assert.Nil(mt, u)
	})

	mt.Run("find by malformed id is a miss", func(mt *mtest.T) {
		_, err := NewUsers(mt.Coll, time.Second).FindByID(ctx, "not-an-object-id")
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get refresh token", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "auth.users", mtest.FirstBatch, userDoc(id, "alice@example.com")))

		tok, err := NewUsers(mt.Coll, time.Second).GetRefreshToken(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "stored-token", tok)
	})

	mt.Run("create sets id and timestamps", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u, err := NewUsers(mt.Coll, time.Second).Create(ctx, &models.User{Email: "alice@example.com", HashedPassword: "h"})
		require.NoError(mt, err)
		assert.False(mt, u.ID.IsZero())
		assert.False(mt, u.CreatedAt.IsZero())
		assert.Equal(mt, u.CreatedAt, u.UpdatedAt)
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: auth.users index: email_unique",
		}))

		_, err := NewUsers(mt.Coll, time.Second).Create(ctx, &models.User{Email: "alice@example.com"})
		require.ErrorIs(mt, err, ErrDuplicateEmail)
	})

	mt.Run("save refresh token for unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := NewUsers(mt.Coll, time.Second).SaveRefreshToken(ctx, primitive.NewObjectID().Hex(), "tok")
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("save refresh token", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := NewUsers(mt.Coll, time.Second).SaveRefreshToken(ctx, primitive.NewObjectID().Hex(), "tok")
		require.NoError(mt, err)
	})

	mt.Run("revoke twice is not an error", func(mt *mtest.T) {
		id := primitive.NewObjectID().Hex()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
		)

		s := NewUsers(mt.Coll, time.Second)
		require.NoError(mt, s.RevokeRefreshToken(ctx, id))
		require.NoError(mt, s.RevokeRefreshToken(ctx, id))
	})

	mt.Run("record failed login", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := NewUsers(mt.Coll, time.Second).RecordFailedLogin(ctx, primitive.NewObjectID().Hex(), time.Now())
		require.NoError(mt, err)
	})

	mt.Run("driver errors are wrapped", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
			Name:    "BadValue",
		}))

		_, err := NewUsers(mt.Coll, time.Second).FindByEmail(ctx, "alice@example.com")
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrNotFound)
		assert.Contains(mt, err.Error(), "error retrieving user")
	})
}
