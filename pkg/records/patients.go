package records

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
)

// PatientInput is a create or update request
type PatientInput struct {
	Name    string          `json:"name"`
	Age     json.RawMessage `json:"age"`
	Disease string          `json:"disease"`
	Contact *string         `json:"contact"`
}

func (in PatientInput) age() (int, error) {
	n, ok := coerceInt(in.Age)
	if !ok || n < 0 {
		return 0, apperr.Validation("Age must be a non-negative integer")
	}
	return int(n), nil
}

// visible reports whether p may see patient
func visible(p *auth.Principal, patient *models.Patient) bool {
	return p.IsAdmin() || p.Owns(patient.CreatedBy)
}

// CreatePatient adds a patient owned by the caller
func (s *Service) CreatePatient(ctx context.Context, caller *auth.Principal, in PatientInput) (*models.Patient, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapManagePatients); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	disease := strings.TrimSpace(in.Disease)
	if name == "" || disease == "" || len(in.Age) == 0 {
		return nil, apperr.Validation("Name, age, and disease are required")
	}
	age, err := in.age()
	if err != nil {
		return nil, err
	}

	p := &models.Patient{
		Name:      name,
		Age:       age,
		Disease:   disease,
		Contact:   trimmedPtr(in.Contact),
		CreatedBy: caller.CreatorID(),
	}
	if err := s.store.CreatePatient(ctx, p); err != nil {
		return nil, internal("create patient", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"patient_id": p.ID,
		"created_by": caller.ID,
	}).Info("patient created")
	return p, nil
}

// ListPatients returns all patients for admins and the caller's own otherwise
func (s *Service) ListPatients(ctx context.Context, caller *auth.Principal) ([]*models.PatientView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	patients, err := s.store.ListPatients(ctx, scopeFor(caller))
	if err != nil {
		return nil, internal("list patients", err)
	}
	return patients, nil
}

// GetPatient returns a patient the caller can see. Patients outside the
// caller's listing are reported as not found.
func (s *Service) GetPatient(ctx context.Context, caller *auth.Principal, id int64) (*models.Patient, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, lookup("Patient", err)
	}
	if !visible(caller, p) {
		return nil, apperr.NotFound("Patient")
	}
	return p, nil
}

// UpdatePatient changes a patient's details. Empty fields keep the stored value.
func (s *Service) UpdatePatient(ctx context.Context, caller *auth.Principal, id int64, in PatientInput) (*models.Patient, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapManagePatients); err != nil {
		return nil, err
	}

	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, lookup("Patient", err)
	}
	if err := s.guardOwner(caller, p.CreatedBy); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(in.Disease); v != "" {
		p.Disease = v
	}
	if len(in.Age) > 0 {
		age, err := in.age()
		if err != nil {
			return nil, err
		}
		p.Age = age
	}
	if in.Contact != nil {
		p.Contact = trimmedPtr(in.Contact)
	}

	if err := s.store.UpdatePatient(ctx, p); err != nil {
		return nil, lookup("Patient", err)
	}
	return p, nil
}

// DeletePatient removes a patient and its mappings
func (s *Service) DeletePatient(ctx context.Context, caller *auth.Principal, id int64) error {
	if err := s.gate.RequirePermission(ctx, caller, models.CapManagePatients); err != nil {
		return err
	}

	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return lookup("Patient", err)
	}
	if err := s.guardOwner(caller, p.CreatedBy); err != nil {
		return err
	}
	if err := s.store.DeletePatient(ctx, id); err != nil {
		return lookup("Patient", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"patient_id": id,
		"deleted_by": caller.ID,
	}).Info("patient deleted")
	return nil
}
