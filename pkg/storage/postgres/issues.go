package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

const issueSelect = `
	SELECT i.id, i.user_id, i.subject, i.description, i.priority, i.status, i.admin_notes, i.created_at, i.updated_at,
		u.id, u.username, u.first_name, u.last_name, u.email, u.contact
	FROM issue_requests i
	LEFT JOIN users u ON u.id = i.user_id`

func scanIssue(row rowScanner) (*models.IssueView, error) {
	var (
		view                             models.IssueView
		priority, status                 string
		notes                            sql.NullString
		uID                              sql.NullInt64
		uUsername, uFirst, uLast, uEmail sql.NullString
		uContact                         sql.NullString
	)
	err := row.Scan(
		&view.ID, &view.UserID, &view.Subject, &view.Description, &priority, &status, &notes,
		&view.CreatedAt, &view.UpdatedAt,
		&uID, &uUsername, &uFirst, &uLast, &uEmail, &uContact,
	)
	if err != nil {
		return nil, err
	}
	view.Priority = models.IssuePriority(priority)
	view.Status = models.IssueStatus(status)
	view.AdminNotes = nullStringPtr(notes)
	if uID.Valid {
		view.User = &models.UserSummary{
			ID:        uID.Int64,
			Username:  uUsername.String,
			FirstName: uFirst.String,
			LastName:  uLast.String,
			Email:     uEmail.String,
			Contact:   nullStringPtr(uContact),
		}
	}
	return &view, nil
}

// CreateIssue inserts an issue request
func (s *Store) CreateIssue(ctx context.Context, issue *models.IssueRequest) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO issue_requests (user_id, subject, description, priority, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, issue.UserID, issue.Subject, issue.Description, string(issue.Priority), string(issue.Status)).
		Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", mapWriteErr(err))
	}
	return nil
}

// GetIssue retrieves an issue with its requester
func (s *Store) GetIssue(ctx context.Context, id int64) (*models.IssueView, error) {
	view, err := scanIssue(s.db.QueryRowContext(ctx, issueSelect+` WHERE i.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return view, nil
}

// ListIssues lists all issues by status then newest, or one user's newest first
func (s *Store) ListIssues(ctx context.Context, userID *int64) ([]*models.IssueView, error) {
	query := issueSelect + ` ORDER BY i.status ASC, i.created_at DESC, i.id DESC`
	var args []interface{}
	if userID != nil {
		query = issueSelect + ` WHERE i.user_id = $1 ORDER BY i.created_at DESC, i.id DESC`
		args = append(args, *userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	out := make([]*models.IssueView, 0)
	for rows.Next() {
		view, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		out = append(out, view)
	}
	return out, rows.Err()
}

// UpdateIssue applies an admin's partial update
func (s *Store) UpdateIssue(ctx context.Context, id int64, update models.IssueUpdate) (*models.IssueView, error) {
	var status, priority *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}
	if update.Priority != nil {
		v := string(*update.Priority)
		priority = &v
	}

	err := s.execOne(ctx, "update issue", `
		UPDATE issue_requests SET
			status = COALESCE($2, status),
			priority = COALESCE($3, priority),
			admin_notes = COALESCE($4, admin_notes),
			updated_at = NOW()
		WHERE id = $1
	`, id, status, priority, update.AdminNotes)
	if err != nil {
		return nil, err
	}
	return s.GetIssue(ctx, id)
}

// DeleteIssue removes an issue request
func (s *Store) DeleteIssue(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete issue", `DELETE FROM issue_requests WHERE id = $1`, id)
}

// CountIssues returns totals, system-wide or for one user
func (s *Store) CountIssues(ctx context.Context, userID *int64) (models.IssueCounts, error) {
	var c models.IssueCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'pending')
		FROM issue_requests
		WHERE $1::bigint IS NULL OR user_id = $1
	`, userID).Scan(&c.Total, &c.Pending)
	if err != nil {
		return c, fmt.Errorf("failed to count issues: %w", err)
	}
	return c, nil
}
