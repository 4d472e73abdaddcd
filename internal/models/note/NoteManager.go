// This file contains the NoteManager implementation, which reads the MongoDB notes collection.
// Only lookups by owning user are supported.

package note

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/technotes/user-service/internal/log"
)

// ErrNoteNotFound is returned when no note matches a lookup.
var ErrNoteNotFound = errors.New("note not found")

// CollectionName is the name of the notes collection.
const CollectionName = "notes"

type NoteManager struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewNoteManager creates a new instance of NoteManager.
func NewNoteManager(db *mongo.Database, logger *log.Logger) *NoteManager {
	return &NoteManager{
		collection: db.Collection(CollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the index backing lookups by user.
func (nm *NoteManager) EnsureIndexes(ctx context.Context) error {
	name, err := nm.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}},
		Options: options.Index().SetName("user"),
	})
	if err != nil {
		return fmt.Errorf("failed to create user index on notes: %w", err)
	}
	nm.logger.Infof("Ensured index %s on %s", name, CollectionName)
	return nil
}

// FindNoteByUser returns any one note assigned to the user.
// Returns ErrNoteNotFound if the user has no notes.
func (nm *NoteManager) FindNoteByUser(ctx context.Context, userID primitive.ObjectID) (*Note, error) {
	var n Note
	err := nm.collection.FindOne(ctx, bson.M{"user": userID}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return &n, nil
}

// UserHasNotes reports whether at least one note is assigned to the user.
func (nm *NoteManager) UserHasNotes(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	_, err := nm.FindNoteByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
