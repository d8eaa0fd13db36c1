package models

import "time"

// IssuePriority ranks an issue request
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
)

// IsValid reports whether p is a known priority
func (p IssuePriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IssueStatus tracks an issue request through review
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
	StatusRejected   IssueStatus = "rejected"
)

// IsValid reports whether s is a known status
func (s IssueStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// IssueRequest is a user-submitted escalation to admins
type IssueRequest struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"userId"`
	Subject     string        `json:"subject"`
	Description string        `json:"description"`
	Priority    IssuePriority `json:"priority"`
	Status      IssueStatus   `json:"status"`
	AdminNotes  *string       `json:"adminNotes"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IssueView is an issue with its requester resolved
type IssueView struct {
	IssueRequest
	User *UserSummary `json:"user"`
}

// IssueUpdate carries an admin's partial update
type IssueUpdate struct {
	Status     *IssueStatus
	Priority   *IssuePriority
	AdminNotes *string
}

// IssueCounts holds system-wide issue totals
type IssueCounts struct {
	Total   int64
	Pending int64
}
