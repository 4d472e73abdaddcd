// This file contains the UserService, which implements listing, creating, updating and deleting users.
// Each call is a single check-then-write against the stores. The username lookup before a write is only an early exit;
// the unique index behind UserStore reports the races it misses as user.ErrUsernameTaken, which is handled the same way.
//
// The list cache and event publisher are best effort: their failures are logged and never fail a request.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/technotes/user-service/internal/log"
	"github.com/technotes/user-service/internal/models/user"
)

// Client-facing messages
const (
	MsgNoUsersFound      = "No users found"
	MsgDuplicateUsername = "Duplicate username"
	MsgInvalidUserData   = "Invalid user data received"
	MsgUserNotFound      = "User not found"
	MsgUserHasNotes      = "User has assigned notes"
	MsgPasswordTooLong   = "Password is too long"
)

// UserStore is the persistence the UserService needs. Implemented by user.UserManager.
type UserStore interface {
	ListUsers(ctx context.Context) ([]user.View, error)
	FindUserByUsername(ctx context.Context, username string) (*user.View, error)
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
	SaveUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, userID primitive.ObjectID) error
}

// NoteStore answers whether a user still has notes. Implemented by note.NoteManager.
type NoteStore interface {
	UserHasNotes(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// UserListCache caches the result of ListUsers. Implemented by cache.UserListCache.
type UserListCache interface {
	GetUsers(ctx context.Context) ([]user.View, bool, error)
	SetUsers(ctx context.Context, users []user.View) error
	Invalidate(ctx context.Context) error
}

// EventPublisher publishes user lifecycle events. Implemented by AMPQService.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, event *UserEvent) error
}

// UpdateUserInput holds the new state of a user. An empty Password keeps the current one.
type UpdateUserInput struct {
	ID       primitive.ObjectID
	Username string
	Roles    []string
	Active   bool
	Password string
}

// DefaultSideEffectTimeout bounds cache invalidation and event publishing after a write.
const DefaultSideEffectTimeout = 2 * time.Second

type UserService struct {
	users             UserStore
	notes             NoteStore
	cache             UserListCache
	publisher         EventPublisher
	bcryptCost        int
	sideEffectTimeout time.Duration
	logger            *log.Logger
}

// UserServiceOption configures optional collaborators of the UserService.
type UserServiceOption func(*UserService)

// WithListCache makes ListUsers read through cache.
func WithListCache(cache UserListCache) UserServiceOption {
	return func(s *UserService) {
		s.cache = cache
	}
}

// WithEventPublisher publishes an event after every successful write.
func WithEventPublisher(publisher EventPublisher) UserServiceOption {
	return func(s *UserService) {
		s.publisher = publisher
	}
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) UserServiceOption {
	return func(s *UserService) {
		s.bcryptCost = cost
	}
}

// WithSideEffectTimeout overrides DefaultSideEffectTimeout.
func WithSideEffectTimeout(timeout time.Duration) UserServiceOption {
	return func(s *UserService) {
		s.sideEffectTimeout = timeout
	}
}

func NewUserService(users UserStore, notes NoteStore, logger *log.Logger, opts ...UserServiceOption) *UserService {
	s := &UserService{
		users:             users,
		notes:             notes,
		bcryptCost:        bcrypt.DefaultCost,
		sideEffectTimeout: DefaultSideEffectTimeout,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListUsers returns every user without passwords.
// Returns a NotFound error if there are no users.
func (s *UserService) ListUsers(ctx context.Context) ([]user.View, error) {
	if s.cache != nil {
		cached, found, err := s.cache.GetUsers(ctx)
		if err != nil {
			s.logger.Errorf("Failed to read user list cache: %v", err)
		} else if found && len(cached) > 0 {
			s.logger.Debug("User list served from cache")
			return cached, nil
		}
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, NewNotFoundError(MsgNoUsersFound, nil)
	}

	if s.cache != nil {
		if err := s.cache.SetUsers(ctx, users); err != nil {
			s.logger.Errorf("Failed to fill user list cache: %v", err)
		}
	}
	return users, nil
}

// CreateUser hashes the password and stores a new active user.
// Returns a Conflict error if the username is taken, InvalidData if the store rejects the document.
func (s *UserService) CreateUser(ctx context.Context, username, password string, roles []string) (*user.User, error) {
	_, err := s.users.FindUserByUsername(ctx, username)
	if err == nil {
		return nil, NewConflictError(MsgDuplicateUsername, user.ErrUsernameTaken)
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	newUser := &user.User{
		Username: username,
		Roles:    roles,
		Active:   true,
	}
	if err := s.setPassword(newUser, password); err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, newUser); err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			return nil, NewConflictError(MsgDuplicateUsername, err)
		case errors.Is(err, user.ErrInvalidUserData):
			return nil, NewInvalidDataError(MsgInvalidUserData, err)
		default:
			return nil, err
		}
	}

	s.logger.Infof("User %s created with ID %s", newUser.Username, newUser.ID.Hex())
	s.afterWrite(ctx, UserCreated, newUser)
	return newUser, nil
}

// UpdateUser overwrites username, roles and active flag, and the password if one is given.
// Returns NotFound if the user does not exist, Conflict if another user has the username.
func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*user.User, error) {
	target, err := s.users.GetUserByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, NewNotFoundError(MsgUserNotFound, err)
		}
		return nil, err
	}

	duplicate, err := s.users.FindUserByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}
	if err == nil && duplicate.ID != target.ID {
		return nil, NewConflictError(MsgDuplicateUsername, user.ErrUsernameTaken)
	}

	target.Username = in.Username
	target.Roles = in.Roles
	target.Active = in.Active

	if in.Password != "" {
		if err := s.setPassword(target, in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.users.SaveUser(ctx, target); err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			return nil, NewConflictError(MsgDuplicateUsername, err)
		case errors.Is(err, user.ErrUserNotFound):
			return nil, NewNotFoundError(MsgUserNotFound, err)
		case errors.Is(err, user.ErrInvalidUserData):
			return nil, NewInvalidDataError(MsgInvalidUserData, err)
		default:
			return nil, err
		}
	}

	s.logger.Infof("User %s updated", target.ID.Hex())
	s.afterWrite(ctx, UserUpdated, target)
	return target, nil
}

// DeleteUser removes a user that has no notes and returns the removed user.
// Returns Conflict if the user has notes, NotFound if the user does not exist.
func (s *UserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) (*user.User, error) {
	hasNotes, err := s.notes.UserHasNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hasNotes {
		return nil, NewConflictError(MsgUserHasNotes, nil)
	}

	target, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, NewNotFoundError(MsgUserNotFound, err)
		}
		return nil, err
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, NewNotFoundError(MsgUserNotFound, err)
		}
		return nil, err
	}

	s.logger.Infof("User %s deleted", userID.Hex())
	s.afterWrite(ctx, UserDeleted, target)
	return target, nil
}

func (s *UserService) setPassword(u *user.User, password string) error {
	if err := u.SetPassword(password, s.bcryptCost); err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return NewValidationError(MsgPasswordTooLong, err)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return nil
}

// afterWrite drops the cached list and announces the change, giving up after sideEffectTimeout.
func (s *UserService) afterWrite(ctx context.Context, eventType string, u *user.User) {
	ctx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Errorf("Failed to invalidate user list cache: %v", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishUserEvent(ctx, NewUserEvent(eventType, u)); err != nil {
			s.logger.Errorf("Failed to publish %s event for user %s: %v", eventType, u.ID.Hex(), err)
		}
	}
}
