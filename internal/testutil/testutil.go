// Package testutil contains in-memory stand-ins for the stores, cache and event publisher used by the services,
// so handlers and services can be tested without MongoDB, Redis or RabbitMQ.
package testutil

import (
	"context"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/technotes/user-service/internal/models/user"
	"github.com/technotes/user-service/internal/services"
)

// UserStore is an in-memory services.UserStore. Usernames are unique ignoring case, like the unique index.
type UserStore struct {
	mu    sync.Mutex
	order []primitive.ObjectID
	users map[primitive.ObjectID]user.User

	// LookupMisses makes FindUserByUsername always miss, so only the uniqueness check on write catches duplicates.
	LookupMisses bool
	// CreateErr, when set, is returned by CreateUser instead of storing the user.
	CreateErr error
	// Err, when set, is returned by every call.
	Err error
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[primitive.ObjectID]user.User)}
}

// Seed stores u directly, assigning an ID if needed.
func (s *UserStore) Seed(u user.User) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.put(u)
	return u
}

// Get returns a copy of the stored user.
func (s *UserStore) Get(id primitive.ObjectID) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return clone(u), ok
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *UserStore) ListUsers(ctx context.Context) ([]user.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	views := make([]user.View, 0, len(s.order))
	for _, id := range s.order {
		u := s.users[id]
		views = append(views, u.View())
	}
	return views, nil
}

func (s *UserStore) FindUserByUsername(ctx context.Context, username string) (*user.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.LookupMisses {
		return nil, user.ErrUserNotFound
	}
	if u, ok := s.byUsername(username); ok {
		view := u.View()
		return &view, nil
	}
	return nil, user.ErrUserNotFound
}

func (s *UserStore) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := clone(u)
	return &c, nil
}

func (s *UserStore) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, taken := s.byUsername(u.Username); taken {
		return user.ErrUsernameTaken
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.put(clone(*u))
	return nil
}

func (s *UserStore) SaveUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	if other, taken := s.byUsername(u.Username); taken && other.ID != u.ID {
		return user.ErrUsernameTaken
	}
	s.users[u.ID] = clone(*u)
	return nil
}

func (s *UserStore) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[userID]; !ok {
		return user.ErrUserNotFound
	}
	delete(s.users, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *UserStore) put(u user.User) {
	if _, exists := s.users[u.ID]; !exists {
		s.order = append(s.order, u.ID)
	}
	s.users[u.ID] = u
}

func (s *UserStore) byUsername(username string) (user.User, bool) {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return user.User{}, false
}

func clone(u user.User) user.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

// NoteStore is an in-memory services.NoteStore keyed by owning user.
type NoteStore struct {
	mu     sync.Mutex
	counts map[primitive.ObjectID]int
	Err    error
}

func NewNoteStore() *NoteStore {
	return &NoteStore{counts: make(map[primitive.ObjectID]int)}
}

// AddNote assigns one more note to userID.
func (s *NoteStore) AddNote(userID primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID]++
}

func (s *NoteStore) UserHasNotes(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return s.counts[userID] > 0, nil
}

// ListCache is an in-memory services.UserListCache that counts its calls.
type ListCache struct {
	mu            sync.Mutex
	users         []user.View
	found         bool
	Hits          int
	Sets          int
	Invalidations int
	Err           error
}

func (c *ListCache) GetUsers(ctx context.Context) ([]user.View, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, false, c.Err
	}
	if c.found {
		c.Hits++
	}
	return c.users, c.found, nil
}

func (c *ListCache) SetUsers(ctx context.Context, users []user.View) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Sets++
	c.users = users
	c.found = true
	return nil
}

func (c *ListCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
	c.users = nil
	c.found = false
	return c.Err
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []services.UserEvent
	Err    error
	// Hang makes PublishUserEvent wait for ctx to be done, like a publish to an unreachable broker.
	Hang bool
}

func (p *Publisher) PublishUserEvent(ctx context.Context, event *services.UserEvent) error {
	if p.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, *event)
	return nil
}

// Events returns the events published so far.
func (p *Publisher) Events() []services.UserEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]services.UserEvent(nil), p.events...)
}
