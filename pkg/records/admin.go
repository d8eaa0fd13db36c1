package records

import (
	"context"

	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
)

const notAvailable = "N/A"

// AllPatients lists every patient with its creator
func (s *Service) AllPatients(ctx context.Context, caller *auth.Principal) ([]*models.PatientView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	patients, err := s.store.ListPatients(ctx, nil)
	if err != nil {
		return nil, internal("list patients", err)
	}
	return patients, nil
}

// AllDoctors lists every doctor with its mapping count
func (s *Service) AllDoctors(ctx context.Context, caller *auth.Principal) ([]*models.DoctorView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, internal("list doctors", err)
	}
	return doctors, nil
}

// AllMappings lists every mapping with its creator
func (s *Service) AllMappings(ctx context.Context, caller *auth.Principal) ([]*models.MappingView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	views, err := s.store.ListMappings(ctx, nil)
	if err != nil {
		return nil, internal("list mappings", err)
	}
	return withCreatorLabel(views, notAvailable), nil
}

func (s *Service) requireUser(ctx context.Context, id int64) error {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return lookup("User", err)
	}
	return nil
}

// UserPatients lists the patients created by one user
func (s *Service) UserPatients(ctx context.Context, caller *auth.Principal, userID int64) ([]*models.PatientView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	patients, err := s.store.ListPatients(ctx, &models.PatientScope{CreatedBy: userID})
	if err != nil {
		return nil, internal("list user patients", err)
	}
	return patients, nil
}

// UserMappings lists the mappings created by one user
func (s *Service) UserMappings(ctx context.Context, caller *auth.Principal, userID int64) ([]*models.MappingView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	views, err := s.store.ListMappings(ctx, &models.PatientScope{CreatedBy: userID})
	if err != nil {
		return nil, internal("list user mappings", err)
	}
	return views, nil
}
