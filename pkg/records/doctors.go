package records

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
)

// DoctorInput is a create or update request. Experience accepts a number or
// a numeric string; anything else counts as 0.
type DoctorInput struct {
	Name       string          `json:"name"`
	Specialty  string          `json:"specialty"`
	Experience json.RawMessage `json:"experience"`
	Contact    *string         `json:"contact"`
}

func (in DoctorInput) experience() int {
	n, ok := coerceInt(in.Experience)
	if !ok {
		return 0
	}
	return int(n)
}

func (in DoctorInput) contact() string {
	if in.Contact == nil {
		return ""
	}
	return strings.TrimSpace(*in.Contact)
}

// CreateDoctor adds a doctor
func (s *Service) CreateDoctor(ctx context.Context, caller *auth.Principal, in DoctorInput) (*models.Doctor, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapManageDoctors); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	specialty := strings.TrimSpace(in.Specialty)
	if name == "" || specialty == "" {
		return nil, apperr.Validation("Name and specialty are required")
	}

	d := &models.Doctor{
		Name:       name,
		Specialty:  specialty,
		Experience: in.experience(),
		Contact:    in.contact(),
	}
	if err := s.store.CreateDoctor(ctx, d); err != nil {
		return nil, internal("create doctor", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"doctor_id":  d.ID,
		"created_by": caller.ID,
	}).Info("doctor created")
	return d, nil
}

// ListDoctors returns every doctor
func (s *Service) ListDoctors(ctx context.Context, caller *auth.Principal) ([]*models.DoctorView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, internal("list doctors", err)
	}
	return doctors, nil
}

// GetDoctor returns one doctor
func (s *Service) GetDoctor(ctx context.Context, caller *auth.Principal, id int64) (*models.Doctor, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return nil, lookup("Doctor", err)
	}
	return d, nil
}

// UpdateDoctor replaces a doctor's details. An empty name or specialty keeps
// the stored value; experience and contact are always replaced.
func (s *Service) UpdateDoctor(ctx context.Context, caller *auth.Principal, id int64, in DoctorInput) (*models.Doctor, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapManageDoctors); err != nil {
		return nil, err
	}

	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return nil, lookup("Doctor", err)
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		d.Name = v
	}
	if v := strings.TrimSpace(in.Specialty); v != "" {
		d.Specialty = v
	}
	d.Experience = in.experience()
	d.Contact = in.contact()

	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return nil, lookup("Doctor", err)
	}
	return d, nil
}

// DeleteDoctor removes a doctor and its mappings
func (s *Service) DeleteDoctor(ctx context.Context, caller *auth.Principal, id int64) error {
	if err := s.gate.RequirePermission(ctx, caller, models.CapManageDoctors); err != nil {
		return err
	}
	if err := s.store.DeleteDoctor(ctx, id); err != nil {
		return lookup("Doctor", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"doctor_id":  id,
		"deleted_by": caller.ID,
	}).Info("doctor deleted")
	return nil
}
