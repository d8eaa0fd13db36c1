// Package issues lets staff raise issue requests and admins triage them.
package issues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// CreateInput is a new issue request
type CreateInput struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// UpdateInput is an admin's triage update. Empty status or priority is ignored.
type UpdateInput struct {
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	AdminNotes *string `json:"adminNotes"`
}

// Service implements issue requests
type Service struct {
	store  storage.IssueStore
	gate   *rbac.Gate
	logger *observability.Logger
}

// NewService creates an issue service
func NewService(store storage.IssueStore, gate *rbac.Gate, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{store: store, gate: gate, logger: logger}
}

func parsePriority(s string) (models.IssuePriority, error) {
	p := models.IssuePriority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", apperr.Validation("Priority must be one of low, medium, high")
	}
	return p, nil
}

func parseStatus(s string) (models.IssueStatus, error) {
	st := models.IssueStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", apperr.Validation("Status must be one of pending, in-progress, resolved, rejected")
	}
	return st, nil
}

func (s *Service) get(ctx context.Context, id int64) (*models.IssueView, error) {
	issue, err := s.store.GetIssue(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Issue")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("get issue %d: %w", id, err))
	}
	return issue, nil
}

// Create files an issue owned by the caller
func (s *Service) Create(ctx context.Context, caller *auth.Principal, in CreateInput) (*models.IssueView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	if caller.IsSentinel() {
		return nil, apperr.SystemAccount("Default admin cannot submit issue requests. This is a system account.")
	}

	subject := strings.TrimSpace(in.Subject)
	description := strings.TrimSpace(in.Description)
	if subject == "" || description == "" {
		return nil, apperr.Validation("Subject and description are required")
	}

	priority := models.PriorityMedium
	if strings.TrimSpace(in.Priority) != "" {
		p, err := parsePriority(in.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}

	issue := &models.IssueRequest{
		UserID:      caller.ID,
		Subject:     subject,
		Description: description,
		Priority:    priority,
		Status:      models.StatusPending,
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("create issue: %w", err))
	}

	s.logger.WithFields(map[string]interface{}{
		"issue_id": issue.ID,
		"user_id":  caller.ID,
		"priority": string(priority),
	}).Info("issue created")

	return s.get(ctx, issue.ID)
}

// List returns every issue for admins and the caller's own otherwise
func (s *Service) List(ctx context.Context, caller *auth.Principal) ([]*models.IssueView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	var owner *int64
	if !caller.IsAdmin() {
		owner = &caller.ID
	}
	issues, err := s.store.ListIssues(ctx, owner)
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("list issues: %w", err))
	}
	return issues, nil
}

// Get returns an issue visible to the caller
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id int64) (*models.IssueView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	issue, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.GuardOwnership(caller, &issue.UserID); err != nil {
		return nil, err
	}
	return issue, nil
}

// Update triages an issue
func (s *Service) Update(ctx context.Context, caller *auth.Principal, id int64, in UpdateInput) (*models.IssueView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	var update models.IssueUpdate
	if strings.TrimSpace(in.Status) != "" {
		st, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		update.Status = &st
	}
	if strings.TrimSpace(in.Priority) != "" {
		p, err := parsePriority(in.Priority)
		if err != nil {
			return nil, err
		}
		update.Priority = &p
	}
	update.AdminNotes = in.AdminNotes

	issue, err := s.store.UpdateIssue(ctx, id, update)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Issue")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("update issue %d: %w", id, err))
	}

	s.logger.WithFields(map[string]interface{}{
		"issue_id":   id,
		"status":     string(issue.Status),
		"updated_by": caller.ID,
	}).Info("issue updated")
	return issue, nil
}

// Delete removes an issue owned by the caller, or any issue for admins
func (s *Service) Delete(ctx context.Context, caller *auth.Principal, id int64) error {
	if caller == nil {
		return apperr.ErrTokenMissing
	}
	issue, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gate.GuardOwnership(caller, &issue.UserID); err != nil {
		return err
	}
	if err := s.store.DeleteIssue(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("Issue")
		}
		return apperr.Internal("Server error", fmt.Errorf("delete issue %d: %w", id, err))
	}
	return nil
}

// PendingCount is the global pending total for admins and the caller's own otherwise
func (s *Service) PendingCount(ctx context.Context, caller *auth.Principal) (int64, error) {
	if caller == nil {
		return 0, apperr.ErrTokenMissing
	}
	var owner *int64
	if !caller.IsAdmin() {
		owner = &caller.ID
	}
	counts, err := s.store.CountIssues(ctx, owner)
	if err != nil {
		return 0, apperr.Internal("Server error", fmt.Errorf("count issues: %w", err))
	}
	return counts.Pending, nil
}
