package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/technotes/user-service/internal/log"
)

const usersNS = "technotes.users"

func newMockManager(mt *mtest.T) *UserManager {
	return NewUserManager(mt.DB, log.NewNop())
}

func TestUserManager(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("EnsureIndexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, newMockManager(mt).EnsureIndexes(ctx))
	})

	mt.Run("ListUsers decodes snapshots", func(mt *mtest.T) {
		id1, id2 := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id1}, {Key: "username", Value: "dave"}, {Key: "roles", Value: bson.A{"Employee"}}, {Key: "active", Value: true}},
			bson.D{{Key: "_id", Value: id2}, {Key: "username", Value: "anna"}, {Key: "roles", Value: bson.A{"Manager", "Admin"}}, {Key: "active", Value: false}},
		))

		users, err := newMockManager(mt).ListUsers(ctx)
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, View{ID: id1, Username: "dave", Roles: []string{"Employee"}, Active: true}, users[0])
		assert.Equal(mt, []string{"Manager", "Admin"}, users[1].Roles)
		assert.False(mt, users[1].Active)
	})

	mt.Run("ListUsers empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		users, err := newMockManager(mt).ListUsers(ctx)
		require.NoError(mt, err)
		assert.Empty(mt, users)
	})

	mt.Run("FindUserByUsername found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id}, {Key: "username", Value: "Dave"}, {Key: "roles", Value: bson.A{"Employee"}}, {Key: "active", Value: true}},
		))

		view, err := newMockManager(mt).FindUserByUsername(ctx, "dave")
		require.NoError(mt, err)
		assert.Equal(mt, id, view.ID)
	})

	mt.Run("FindUserByUsername missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		_, err := newMockManager(mt).FindUserByUsername(ctx, "nobody")
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("GetUserByID keeps the password hash", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id}, {Key: "username", Value: "dave"}, {Key: "password", Value: "$2a$10$hash"}, {Key: "roles", Value: bson.A{"Employee"}}, {Key: "active", Value: true}},
		))

		u, err := newMockManager(mt).GetUserByID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, "$2a$10$hash", u.Password)
	})

	mt.Run("GetUserByID missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		_, err := newMockManager(mt).GetUserByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("CreateUser assigns an ID", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &User{Username: "dave", Password: "hash", Roles: []string{"Employee"}, Active: true}
		require.NoError(mt, newMockManager(mt).CreateUser(ctx, u))
		assert.False(mt, u.ID.IsZero())
	})

	mt.Run("CreateUser duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: technotes.users index: username_unique",
		}))

		err := newMockManager(mt).CreateUser(ctx, &User{Username: "dave"})
		assert.ErrorIs(mt, err, ErrUsernameTaken)
	})

	mt.Run("CreateUser rejected document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))

		err := newMockManager(mt).CreateUser(ctx, &User{Username: "dave"})
		assert.ErrorIs(mt, err, ErrInvalidUserData)
	})

	mt.Run("SaveUser", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := newMockManager(mt).SaveUser(ctx, &User{ID: primitive.NewObjectID(), Username: "dave"})
		assert.NoError(mt, err)
	})

	mt.Run("SaveUser missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := newMockManager(mt).SaveUser(ctx, &User{ID: primitive.NewObjectID(), Username: "dave"})
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("SaveUser duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := newMockManager(mt).SaveUser(ctx, &User{ID: primitive.NewObjectID(), Username: "anna"})
		assert.ErrorIs(mt, err, ErrUsernameTaken)
	})

	mt.Run("DeleteUser", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, newMockManager(mt).DeleteUser(ctx, primitive.NewObjectID()))
	})

	mt.Run("DeleteUser missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := newMockManager(mt).DeleteUser(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})
}
