// Package memory provides an in-process storage.Store.
//
// It mirrors the PostgreSQL backend's constraints (unique username and email,
// cascades on delete, newest-first ordering) so that services behave the same
// against either backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// Store is a mutex-guarded, map-backed storage.Store
type Store struct {
	mu sync.RWMutex

	users       map[int64]*models.User
	permissions map[int64]*models.PermissionSet
	patients    map[int64]*models.Patient
	doctors     map[int64]*models.Doctor
	mappings    map[int64]*models.Mapping
	issues      map[int64]*models.IssueRequest

	nextUser, nextPerm, nextPatient, nextDoctor, nextMapping, nextIssue int64

	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*models.User),
		permissions: make(map[int64]*models.PermissionSet),
		patients:    make(map[int64]*models.Patient),
		doctors:     make(map[int64]*models.Doctor),
		mappings:    make(map[int64]*models.Mapping),
		issues:      make(map[int64]*models.IssueRequest),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(ctx context.Context) error { return ctx.Err() }

// Close is a no-op
func (s *Store) Close() error { return nil }

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

// newestFirst orders by creation time then id, both descending
func newestFirst(ai, bi int64, at, bt time.Time) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return ai > bi
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User, perms *models.PermissionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return &storage.DuplicateError{Field: "username"}
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return &storage.DuplicateError{Field: "email"}
		}
	}

	s.nextUser++
	now := s.now()
	u.ID = s.nextUser
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = copyUser(u)

	if perms != nil {
		s.nextPerm++
		p := *perms
		p.ID = s.nextPerm
		p.UserID = u.ID
		s.permissions[u.ID] = &p
		perms.ID = p.ID
		perms.UserID = u.ID
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := s.GetUserByUsername(ctx, username)
	if err == storage.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) RecentUsers(ctx context.Context, limit int) ([]*models.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && strings.EqualFold(other.Email, *update.Email) {
				return nil, &storage.DuplicateError{Field: "email"}
			}
		}
	}

	next := copyUser(u)
	if update.FirstName != nil {
		next.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		next.LastName = *update.LastName
	}
	if update.Email != nil {
		next.Email = *update.Email
	}
	if update.Contact != nil {
		if *update.Contact == "" {
			next.Contact = nil
		} else {
			c := *update.Contact
			next.Contact = &c
		}
	}
	if update.IsActive != nil {
		next.IsActive = *update.IsActive
	}
	if update.Role != nil {
		next.Role = *update.Role
	}
	next.UpdatedAt = s.now()
	s.users[id] = next
	return copyUser(next), nil
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	delete(s.permissions, id)
	for issueID, issue := range s.issues {
		if issue.UserID == id {
			delete(s.issues, issueID)
		}
	}
	for _, p := range s.patients {
		if p.CreatedBy != nil && *p.CreatedBy == id {
			p.CreatedBy = nil
		}
	}
	for _, m := range s.mappings {
		if m.CreatedBy != nil && *m.CreatedBy == id {
			m.CreatedBy = nil
		}
	}
	for _, u := range s.users {
		if u.CreatedBy != nil && *u.CreatedBy == id {
			u.CreatedBy = nil
		}
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (models.UserCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c models.UserCounts
	for _, u := range s.users {
		c.Total++
		if u.IsActive {
			c.Active++
		}
		if u.Role == models.RoleAdmin {
			c.Admins++
		}
	}
	return c, nil
}

func (s *Store) CountsForUser(ctx context.Context, id int64) (models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c models.Counts
	for _, p := range s.patients {
		if p.CreatedBy != nil && *p.CreatedBy == id {
			c.Patients++
		}
	}
	for _, m := range s.mappings {
		if m.CreatedBy != nil && *m.CreatedBy == id {
			c.Mappings++
		}
	}
	for _, i := range s.issues {
		if i.UserID == id {
			c.IssueRequests++
		}
	}
	for _, u := range s.users {
		if u.CreatedBy != nil && *u.CreatedBy == id {
			c.CreatedUsers++
		}
	}
	return c, nil
}

// --- permissions ---

func (s *Store) GetPermissions(ctx context.Context, userID int64) (*models.PermissionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) UpsertPermissions(ctx context.Context, perms *models.PermissionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[perms.UserID]; !ok {
		return storage.ErrNotFound
	}
	c := *perms
	if existing, ok := s.permissions[perms.UserID]; ok {
		c.ID = existing.ID
	} else {
		s.nextPerm++
		c.ID = s.nextPerm
	}
	s.permissions[perms.UserID] = &c
	perms.ID = c.ID
	return nil
}
