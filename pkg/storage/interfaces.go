package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/carelink/pkg/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// ErrDuplicate matches any *DuplicateError via errors.Is
var ErrDuplicate = errors.New("duplicate")

// DuplicateError reports a unique-constraint violation on Field
type DuplicateError struct {
	Field string // "username" or "email"
	Err   error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// DuplicateField returns the violated field when err is a *DuplicateError
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}

// UserStore persists staff accounts
type UserStore interface {
	// CreateUser inserts u and, when perms is non-nil, its permission set in
	// one transaction. u.ID and timestamps are filled in on success.
	CreateUser(ctx context.Context, u *models.User, perms *models.PermissionSet) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// ListUsers returns every user, newest first
	ListUsers(ctx context.Context) ([]*models.User, error)
	RecentUsers(ctx context.Context, limit int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (models.UserCounts, error)
	// CountsForUser returns the records owned by one user
	CountsForUser(ctx context.Context, id int64) (models.Counts, error)
}

// PermissionStore persists USER capability flags
type PermissionStore interface {
	// GetPermissions returns ErrNotFound when the user has no row
	GetPermissions(ctx context.Context, userID int64) (*models.PermissionSet, error)
	UpsertPermissions(ctx context.Context, perms *models.PermissionSet) error
}

// PatientStore persists patients
type PatientStore interface {
	CreatePatient(ctx context.Context, p *models.Patient) error
	GetPatient(ctx context.Context, id int64) (*models.Patient, error)
	// ListPatients returns patients newest first. A nil scope lists all.
	ListPatients(ctx context.Context, scope *models.PatientScope) ([]*models.PatientView, error)
	UpdatePatient(ctx context.Context, p *models.Patient) error
	DeletePatient(ctx context.Context, id int64) error
	CountPatients(ctx context.Context) (int64, error)
}

// DoctorStore persists doctors
type DoctorStore interface {
	CreateDoctor(ctx context.Context, d *models.Doctor) error
	GetDoctor(ctx context.Context, id int64) (*models.Doctor, error)
	ListDoctors(ctx context.Context) ([]*models.DoctorView, error)
	UpdateDoctor(ctx context.Context, d *models.Doctor) error
	// DeleteDoctor also removes the doctor's mappings
	DeleteDoctor(ctx context.Context, id int64) error
	CountDoctors(ctx context.Context) (int64, error)
}

// MappingStore persists patient-doctor mappings
type MappingStore interface {
	CreateMapping(ctx context.Context, m *models.Mapping) error
	GetMapping(ctx context.Context, id int64) (*models.Mapping, error)
	// ListMappings returns mappings newest first. A nil scope lists all;
	// otherwise only mappings created by scope.CreatedBy.
	ListMappings(ctx context.Context, scope *models.PatientScope) ([]*models.MappingView, error)
	DoctorsForPatient(ctx context.Context, patientID int64) ([]*models.Doctor, error)
	UpdateMapping(ctx context.Context, m *models.Mapping) error
	DeleteMapping(ctx context.Context, id int64) error
	CountMappings(ctx context.Context) (int64, error)
}

// IssueStore persists issue requests
type IssueStore interface {
	CreateIssue(ctx context.Context, issue *models.IssueRequest) error
	GetIssue(ctx context.Context, id int64) (*models.IssueView, error)
	// ListIssues lists all issues ordered by status then newest when userID
	// is nil, otherwise one user's issues newest first
	ListIssues(ctx context.Context, userID *int64) ([]*models.IssueView, error)
	UpdateIssue(ctx context.Context, id int64, update models.IssueUpdate) (*models.IssueView, error)
	DeleteIssue(ctx context.Context, id int64) error
	CountIssues(ctx context.Context, userID *int64) (models.IssueCounts, error)
}

// HealthChecker reports backend health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Store is the full set of capabilities a backend provides
type Store interface {
	UserStore
	PermissionStore
	PatientStore
	DoctorStore
	MappingStore
	IssueStore
	HealthChecker
	Close() error
}

// Config for storage backend
type Config struct {
	Type string // "postgres" or "memory"

	// PostgreSQL config
	PostgresURL         string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration
	PostgresMaxIdleTime time.Duration
	AutoMigrate         bool

	// Redis config. Optional; enables the shared login limiter.
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:                "postgres",
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		AutoMigrate:         true,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
	}
}
