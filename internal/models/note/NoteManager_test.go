package note

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/technotes/user-service/internal/log"
)

func TestNoteManager(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("EnsureIndexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, NewNoteManager(mt.DB, log.NewNop()).EnsureIndexes(ctx))
	})

	mt.Run("user with a note", func(mt *mtest.T) {
		userID, noteID := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "technotes.notes", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: noteID}, {Key: "user", Value: userID}, {Key: "title", Value: "Fix printer"}, {Key: "ticket", Value: 500}},
		))

		n, err := NewNoteManager(mt.DB, log.NewNop()).FindNoteByUser(ctx, userID)
		require.NoError(mt, err)
		assert.Equal(mt, noteID, n.ID)
		assert.Equal(mt, userID, n.User)
		assert.Equal(mt, 500, n.Ticket)
	})

	mt.Run("UserHasNotes true", func(mt *mtest.T) {
		userID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "technotes.notes", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "user", Value: userID}},
		))

		has, err := NewNoteManager(mt.DB, log.NewNop()).UserHasNotes(ctx, userID)
		require.NoError(mt, err)
		assert.True(mt, has)
	})

	mt.Run("UserHasNotes false", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "technotes.notes", mtest.FirstBatch))

		nm := NewNoteManager(mt.DB, log.NewNop())
		has, err := nm.UserHasNotes(ctx, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.False(mt, has)
	})

	mt.Run("command error is surfaced", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad query",
		}))

		has, err := NewNoteManager(mt.DB, log.NewNop()).UserHasNotes(ctx, primitive.NewObjectID())
		require.Error(mt, err)
		assert.False(mt, errors.Is(err, ErrNoteNotFound))
		assert.False(mt, has)
	})
}
