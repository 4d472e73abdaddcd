// This file contains the UserManager implementation, which is responsible for interacting with the MongoDB users collection.
// The UserManager struct contains a pointer to the users collection and a logger. Reads used for listing and duplicate checks
// return View snapshots; GetUserByID returns the full User, which can be mutated and written back with SaveUser.
//
// Usernames are compared case-insensitively. The unique index created by EnsureIndexes is the final word on duplicates;
// the lookup in FindUserByUsername only lets callers fail early.

package user

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

var (
	// ErrUserNotFound is returned when a requested user is not found in the database.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a username is already taken.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrInvalidUserData is returned when the database rejects a user document.
	ErrInvalidUserData = errors.New("invalid user data")
)

// CollectionName is the name of the users collection.
const CollectionName = "users"

// usernameCollation makes username matching case-insensitive, for both lookups and the unique index.
var usernameCollation = &options.Collation{Locale: "en", Strength: 2}

type UserManager struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewUserManager creates a new instance of UserManager.
func NewUserManager(db *mongo.Database, logger *log.Logger) *UserManager {
	return &UserManager{
		collection: db.Collection(CollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique, case-insensitive username index.
func (um *UserManager) EnsureIndexes(ctx context.Context) error {
	name, err := um.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetName("username_unique").
			SetUnique(true).
			SetCollation(usernameCollation),
	})
	if err != nil {
		return fmt.Errorf("failed to create username index: %w", err)
	}
	um.logger.Infof("Ensured index %s on %s", name, CollectionName)
	return nil
}

// ListUsers returns every user without the password field.
func (um *UserManager) ListUsers(ctx context.Context) ([]View, error) {
	cursor, err := um.collection.Find(ctx, bson.D{}, options.Find().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]View, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindUserByUsername retrieves a user snapshot by username, ignoring case.
// Returns ErrUserNotFound if no user has the username.
func (um *UserManager) FindUserByUsername(ctx context.Context, username string) (*View, error) {
	var view View
	err := um.collection.FindOne(
		ctx,
		bson.M{"username": username},
		options.FindOne().SetCollation(usernameCollation).SetProjection(bson.M{"password": 0}),
	).Decode(&view)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &view, nil
}

// GetUserByID retrieves a user from the database based on the given ID.
func (um *UserManager) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	var user User
	err := um.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user document. A zero ID is replaced with a fresh ObjectID.
// Returns ErrUsernameTaken on a duplicate username and ErrInvalidUserData if the document is otherwise rejected.
func (um *UserManager) CreateUser(ctx context.Context, user *User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := um.collection.InsertOne(ctx, user)
	if err != nil {
		return um.mapWriteError(err)
	}
	return nil
}

// SaveUser replaces the stored document with user.
// Returns ErrUserNotFound if the user no longer exists, ErrUsernameTaken on a duplicate username.
func (um *UserManager) SaveUser(ctx context.Context, user *User) error {
	result, err := um.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return um.mapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user with the given ID.
// Returns ErrUserNotFound if nothing was deleted.
func (um *UserManager) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	result, err := um.collection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (um *UserManager) mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrUsernameTaken
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		um.logger.Infof("User document rejected: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidUserData, err)
	}
	return err
}
