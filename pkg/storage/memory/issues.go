package memory

import (
	"context"
	"sort"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

func (s *Store) issueView(i *models.IssueRequest) *models.IssueView {
	view := &models.IssueView{IssueRequest: *i}
	if u, ok := s.users[i.UserID]; ok {
		view.User = u.Summary()
	}
	return view
}

func (s *Store) CreateIssue(ctx context.Context, issue *models.IssueRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[issue.UserID]; !ok {
		return storage.ErrNotFound
	}
	s.nextIssue++
	now := s.now()
	issue.ID = s.nextIssue
	issue.CreatedAt = now
	issue.UpdatedAt = now
	c := *issue
	s.issues[issue.ID] = &c
	return nil
}

func (s *Store) GetIssue(ctx context.Context, id int64) (*models.IssueView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.issues[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.issueView(i), nil
}

func (s *Store) ListIssues(ctx context.Context, userID *int64) ([]*models.IssueView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.IssueView, 0, len(s.issues))
	for _, i := range s.issues {
		if userID != nil && i.UserID != *userID {
			continue
		}
		out = append(out, s.issueView(i))
	}
	sort.Slice(out, func(a, b int) bool {
		if userID == nil && out[a].Status != out[b].Status {
			return out[a].Status < out[b].Status
		}
		return newestFirst(out[a].ID, out[b].ID, out[a].CreatedAt, out[b].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateIssue(ctx context.Context, id int64, update models.IssueUpdate) (*models.IssueView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.issues[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Status != nil {
		i.Status = *update.Status
	}
	if update.Priority != nil {
		i.Priority = *update.Priority
	}
	if update.AdminNotes != nil {
		notes := *update.AdminNotes
		i.AdminNotes = &notes
	}
	i.UpdatedAt = s.now()
	return s.issueView(i), nil
}

func (s *Store) DeleteIssue(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.issues, id)
	return nil
}

func (s *Store) CountIssues(ctx context.Context, userID *int64) (models.IssueCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c models.IssueCounts
	for _, i := range s.issues {
		if userID != nil && i.UserID != *userID {
			continue
		}
		c.Total++
		if i.Status == models.StatusPending {
			c.Pending++
		}
	}
	return c, nil
}
