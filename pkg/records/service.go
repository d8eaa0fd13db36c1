package records

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// Options configures a Service
type Options struct {
	// EnforceOwnership restricts patient and mapping updates and deletes to
	// the creating user. Admins are never restricted.
	EnforceOwnership bool
	Logger           *observability.Logger
}

// Service implements doctor, patient and mapping operations
type Service struct {
	store            storage.Store
	gate             *rbac.Gate
	enforceOwnership bool
	logger           *observability.Logger
}

// NewService creates a records service
func NewService(store storage.Store, gate *rbac.Gate, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		store:            store,
		gate:             gate,
		enforceOwnership: opts.EnforceOwnership,
		logger:           logger,
	}
}

// scopeFor returns the listing scope of p: global for admins, own records otherwise
func scopeFor(p *auth.Principal) *models.PatientScope {
	if p.IsAdmin() {
		return nil
	}
	return &models.PatientScope{CreatedBy: p.ID}
}

// lookup translates a store read error
func lookup(entity string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(entity)
	}
	return apperr.Internal("Server error", fmt.Errorf("get %s: %w", entity, err))
}

func internal(op string, err error) error {
	return apperr.Internal("Server error", fmt.Errorf("%s: %w", op, err))
}

func (s *Service) guardOwner(p *auth.Principal, ownerID *int64) error {
	if !s.enforceOwnership {
		return nil
	}
	return s.gate.GuardOwnership(p, ownerID)
}
