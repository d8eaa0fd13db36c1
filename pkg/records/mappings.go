package records

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

const unknownCreator = "Unknown"

// MappingInput is a create or update request. Ids may arrive as numbers or
// numeric strings.
type MappingInput struct {
	PatientID json.RawMessage `json:"patientId"`
	DoctorID  json.RawMessage `json:"doctorId"`
}

func (in MappingInput) ids() (patientID, doctorID int64, ok bool) {
	p, pok := coerceInt(in.PatientID)
	d, dok := coerceInt(in.DoctorID)
	return p, d, pok && dok && p > 0 && d > 0
}

// checkRefs verifies both ends of a mapping exist
func (s *Service) checkRefs(ctx context.Context, patientID, doctorID int64) error {
	if _, err := s.store.GetPatient(ctx, patientID); err != nil {
		return lookup("Patient", err)
	}
	if _, err := s.store.GetDoctor(ctx, doctorID); err != nil {
		return lookup("Doctor", err)
	}
	return nil
}

// refWriteErr translates a mapping write error. A foreign key failure means an
// end was deleted after checkRefs passed, so the ends are looked up again to
// report which one.
func (s *Service) refWriteErr(ctx context.Context, op string, m *models.Mapping, err error) error {
	if !errors.Is(err, storage.ErrNotFound) {
		return internal(op, err)
	}
	if refErr := s.checkRefs(ctx, m.PatientID, m.DoctorID); refErr != nil {
		return refErr
	}
	return apperr.NotFound("Mapping")
}

// CreateMapping assigns a doctor to a patient
func (s *Service) CreateMapping(ctx context.Context, caller *auth.Principal, in MappingInput) (*models.Mapping, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapCreateMappings); err != nil {
		return nil, err
	}

	patientID, doctorID, ok := in.ids()
	if !ok {
		return nil, apperr.Validation("Patient ID and Doctor ID are required")
	}
	if err := s.checkRefs(ctx, patientID, doctorID); err != nil {
		return nil, err
	}

	m := &models.Mapping{
		PatientID: patientID,
		DoctorID:  doctorID,
		CreatedBy: caller.CreatorID(),
	}
	if err := s.store.CreateMapping(ctx, m); err != nil {
		return nil, s.refWriteErr(ctx, "create mapping", m, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"mapping_id": m.ID,
		"patient_id": patientID,
		"doctor_id":  doctorID,
		"created_by": caller.ID,
	}).Info("mapping created")
	return m, nil
}

// withCreatorLabel fills missing creator names with label
func withCreatorLabel(views []*models.MappingView, label string) []*models.MappingView {
	for _, v := range views {
		if v.User == nil {
			v.UserName = label
			v.UserUsername = label
		}
	}
	return views
}

// ListMappings returns all mappings for admins and the caller's own otherwise
func (s *Service) ListMappings(ctx context.Context, caller *auth.Principal) ([]*models.MappingView, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapViewMappings); err != nil {
		return nil, err
	}
	views, err := s.store.ListMappings(ctx, scopeFor(caller))
	if err != nil {
		return nil, internal("list mappings", err)
	}
	return withCreatorLabel(views, unknownCreator), nil
}

// DoctorsForPatient lists the doctors assigned to a patient the caller can see
func (s *Service) DoctorsForPatient(ctx context.Context, caller *auth.Principal, patientID int64) ([]*models.Doctor, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapViewMappings); err != nil {
		return nil, err
	}

	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, lookup("Patient", err)
	}
	if !visible(caller, p) {
		return nil, apperr.NotFound("Patient")
	}

	doctors, err := s.store.DoctorsForPatient(ctx, patientID)
	if err != nil {
		return nil, internal("doctors for patient", err)
	}
	return doctors, nil
}

// UpdateMapping moves a mapping to a different patient or doctor. Omitted ids
// keep their stored value; both ends are re-validated.
func (s *Service) UpdateMapping(ctx context.Context, caller *auth.Principal, id int64, in MappingInput) (*models.Mapping, error) {
	if err := s.gate.RequirePermission(ctx, caller, models.CapCreateMappings); err != nil {
		return nil, err
	}

	m, err := s.store.GetMapping(ctx, id)
	if err != nil {
		return nil, lookup("Mapping", err)
	}
	if err := s.guardOwner(caller, m.CreatedBy); err != nil {
		return nil, err
	}

	if len(in.PatientID) > 0 {
		v, ok := coerceInt(in.PatientID)
		if !ok || v <= 0 {
			return nil, apperr.Validation("Invalid patient ID")
		}
		m.PatientID = v
	}
	if len(in.DoctorID) > 0 {
		v, ok := coerceInt(in.DoctorID)
		if !ok || v <= 0 {
			return nil, apperr.Validation("Invalid doctor ID")
		}
		m.DoctorID = v
	}
	if err := s.checkRefs(ctx, m.PatientID, m.DoctorID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateMapping(ctx, m); err != nil {
		return nil, s.refWriteErr(ctx, "update mapping", m, err)
	}
	return m, nil
}

// DeleteMapping removes a mapping
func (s *Service) DeleteMapping(ctx context.Context, caller *auth.Principal, id int64) error {
	if err := s.gate.RequirePermission(ctx, caller, models.CapCreateMappings); err != nil {
		return err
	}

	m, err := s.store.GetMapping(ctx, id)
	if err != nil {
		return lookup("Mapping", err)
	}
	if err := s.guardOwner(caller, m.CreatedBy); err != nil {
		return err
	}
	if err := s.store.DeleteMapping(ctx, id); err != nil {
		return lookup("Mapping", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"mapping_id": id,
		"deleted_by": caller.ID,
	}).Info("mapping deleted")
	return nil
}
