package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// CreatePatient inserts a patient
func (s *Store) CreatePatient(ctx context.Context, p *models.Patient) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO patients (name, age, disease, contact, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Age, p.Disease, p.Contact, p.CreatedBy).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", mapWriteErr(err))
	}
	return nil
}

const patientColumns = `p.id, p.name, p.age, p.disease, p.contact, p.created_by, p.created_at, p.updated_at`

func scanPatient(row rowScanner, extra ...interface{}) (*models.Patient, error) {
	var p models.Patient
	var contact sql.NullString
	var createdBy sql.NullInt64

	dest := append([]interface{}{
		&p.ID, &p.Name, &p.Age, &p.Disease, &contact, &createdBy, &p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Contact = nullStringPtr(contact)
	p.CreatedBy = nullInt64Ptr(createdBy)
	return &p, nil
}

// GetPatient retrieves a patient by id
func (s *Store) GetPatient(ctx context.Context, id int64) (*models.Patient, error) {
	p, err := scanPatient(s.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients p WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// ListPatients lists patients newest first with their creator's names
func (s *Store) ListPatients(ctx context.Context, scope *models.PatientScope) ([]*models.PatientView, error) {
	query := `
		SELECT ` + patientColumns + `,
			COALESCE(u.first_name || ' ' || u.last_name, ''),
			COALESCE(u.username, '')
		FROM patients p
		LEFT JOIN users u ON u.id = p.created_by`
	var args []interface{}
	if scope != nil {
		query += ` WHERE p.created_by = $1`
		args = append(args, scope.CreatedBy)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PatientView, 0)
	for rows.Next() {
		var view models.PatientView
		p, err := scanPatient(rows, &view.UserName, &view.UserUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		view.Patient = *p
		out = append(out, &view)
	}
	return out, rows.Err()
}

// UpdatePatient replaces a patient's clinical fields
func (s *Store) UpdatePatient(ctx context.Context, p *models.Patient) error {
	updated, err := scanPatient(s.db.QueryRowContext(ctx, `
		UPDATE patients p SET name = $2, age = $3, disease = $4, contact = $5, updated_at = NOW()
		WHERE p.id = $1
		RETURNING `+patientColumns,
		p.ID, p.Name, p.Age, p.Disease, p.Contact))
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	*p = *updated
	return nil
}

// DeletePatient removes a patient and, by cascade, its mappings
func (s *Store) DeletePatient(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete patient", `DELETE FROM patients WHERE id = $1`, id)
}

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// CountPatients returns the number of patients
func (s *Store) CountPatients(ctx context.Context) (int64, error) {
	return s.count(ctx, "patients")
}

const doctorColumns = `d.id, d.name, d.specialty, d.experience, d.contact, d.created_at, d.updated_at`

func scanDoctor(row rowScanner, extra ...interface{}) (*models.Doctor, error) {
	var d models.Doctor
	dest := append([]interface{}{
		&d.ID, &d.Name, &d.Specialty, &d.Experience, &d.Contact, &d.CreatedAt, &d.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDoctor inserts a doctor
func (s *Store) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO doctors (name, specialty, experience, contact)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, d.Name, d.Specialty, d.Experience, d.Contact).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

// GetDoctor retrieves a doctor by id
func (s *Store) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	d, err := scanDoctor(s.db.QueryRowContext(ctx, `SELECT `+doctorColumns+` FROM doctors d WHERE d.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return d, nil
}

// ListDoctors lists doctors newest first with their mapping counts
func (s *Store) ListDoctors(ctx context.Context) ([]*models.DoctorView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+doctorColumns+`,
			(SELECT COUNT(*) FROM mappings m WHERE m.doctor_id = d.id)
		FROM doctors d
		ORDER BY d.created_at DESC, d.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer rows.Close()

	out := make([]*models.DoctorView, 0)
	for rows.Next() {
		var view models.DoctorView
		d, err := scanDoctor(rows, &view.MappingCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		view.Doctor = *d
		out = append(out, &view)
	}
	return out, rows.Err()
}

// UpdateDoctor replaces a doctor's fields
func (s *Store) UpdateDoctor(ctx context.Context, d *models.Doctor) error {
	updated, err := scanDoctor(s.db.QueryRowContext(ctx, `
		UPDATE doctors d SET name = $2, specialty = $3, experience = $4, contact = $5, updated_at = NOW()
		WHERE d.id = $1
		RETURNING `+doctorColumns,
		d.ID, d.Name, d.Specialty, d.Experience, d.Contact))
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	*d = *updated
	return nil
}

// DeleteDoctor removes a doctor and, by cascade, its mappings
func (s *Store) DeleteDoctor(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete doctor", `DELETE FROM doctors WHERE id = $1`, id)
}

// CountDoctors returns the number of doctors
func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	return s.count(ctx, "doctors")
}

// CreateMapping inserts a mapping. Unknown patient or doctor ids fail with
// storage.ErrNotFound from the foreign keys.
func (s *Store) CreateMapping(ctx context.Context, m *models.Mapping) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mappings (patient_id, doctor_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.PatientID, m.DoctorID, m.CreatedBy).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create mapping: %w", mapWriteErr(err))
	}
	return nil
}

// GetMapping retrieves a mapping by id
func (s *Store) GetMapping(ctx context.Context, id int64) (*models.Mapping, error) {
	var m models.Mapping
	var createdBy sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, doctor_id, created_by, created_at FROM mappings WHERE id = $1
	`, id).Scan(&m.ID, &m.PatientID, &m.DoctorID, &createdBy, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	m.CreatedBy = nullInt64Ptr(createdBy)
	return &m, nil
}

// ListMappings lists mappings newest first with both ends and the creator.
// Every joined column is nullable.
func (s *Store) ListMappings(ctx context.Context, scope *models.PatientScope) ([]*models.MappingView, error) {
	query := `
		SELECT m.id, m.patient_id, m.doctor_id, m.created_by, m.created_at,
			p.id, p.name, p.age, p.disease, p.contact, p.created_by, p.created_at, p.updated_at,
			d.id, d.name, d.specialty, d.experience, d.contact, d.created_at, d.updated_at,
			u.id, u.username, u.first_name, u.last_name, u.email
		FROM mappings m
		LEFT JOIN patients p ON p.id = m.patient_id
		LEFT JOIN doctors d ON d.id = m.doctor_id
		LEFT JOIN users u ON u.id = m.created_by`
	var args []interface{}
	if scope != nil {
		query += ` WHERE m.created_by = $1`
		args = append(args, scope.CreatedBy)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	out := make([]*models.MappingView, 0)
	for rows.Next() {
		var (
			view                             models.MappingView
			mCreatedBy                       sql.NullInt64
			pID, pAge, pCreatedBy            sql.NullInt64
			pName, pDisease, pContact        sql.NullString
			pCreatedAt, pUpdatedAt           sql.NullTime
			dID, dExperience                 sql.NullInt64
			dName, dSpecialty, dContact      sql.NullString
			dCreatedAt, dUpdatedAt           sql.NullTime
			uID                              sql.NullInt64
			uUsername, uFirst, uLast, uEmail sql.NullString
		)
		err := rows.Scan(
			&view.ID, &view.PatientID, &view.DoctorID, &mCreatedBy, &view.CreatedAt,
			&pID, &pName, &pAge, &pDisease, &pContact, &pCreatedBy, &pCreatedAt, &pUpdatedAt,
			&dID, &dName, &dSpecialty, &dExperience, &dContact, &dCreatedAt, &dUpdatedAt,
			&uID, &uUsername, &uFirst, &uLast, &uEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		view.CreatedBy = nullInt64Ptr(mCreatedBy)

		if pID.Valid {
			view.Patient = &models.Patient{
				ID:        pID.Int64,
				Name:      pName.String,
				Age:       int(pAge.Int64),
				Disease:   pDisease.String,
				Contact:   nullStringPtr(pContact),
				CreatedBy: nullInt64Ptr(pCreatedBy),
				CreatedAt: pCreatedAt.Time,
				UpdatedAt: pUpdatedAt.Time,
			}
		}
		if dID.Valid {
			view.Doctor = &models.Doctor{
				ID:         dID.Int64,
				Name:       dName.String,
				Specialty:  dSpecialty.String,
				Experience: int(dExperience.Int64),
				Contact:    dContact.String,
				CreatedAt:  dCreatedAt.Time,
				UpdatedAt:  dUpdatedAt.Time,
			}
		}
		if uID.Valid {
			view.User = &models.UserSummary{
				ID:        uID.Int64,
				Username:  uUsername.String,
				FirstName: uFirst.String,
				LastName:  uLast.String,
				Email:     uEmail.String,
			}
			view.UserName = uFirst.String + " " + uLast.String
			view.UserUsername = uUsername.String
		}
		out = append(out, &view)
	}
	return out, rows.Err()
}

// DoctorsForPatient lists the doctors mapped to a patient, newest mapping first
func (s *Store) DoctorsForPatient(ctx context.Context, patientID int64) ([]*models.Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+doctorColumns+`
		FROM mappings m
		JOIN doctors d ON d.id = m.doctor_id
		WHERE m.patient_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors for patient: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateMapping re-points a mapping at a new patient and doctor
func (s *Store) UpdateMapping(ctx context.Context, m *models.Mapping) error {
	var createdBy sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		UPDATE mappings SET patient_id = $2, doctor_id = $3
		WHERE id = $1
		RETURNING id, patient_id, doctor_id, created_by, created_at
	`, m.ID, m.PatientID, m.DoctorID).Scan(&m.ID, &m.PatientID, &m.DoctorID, &createdBy, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", mapWriteErr(err))
	}
	m.CreatedBy = nullInt64Ptr(createdBy)
	return nil
}

// DeleteMapping removes a mapping
func (s *Store) DeleteMapping(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete mapping", `DELETE FROM mappings WHERE id = $1`, id)
}

// CountMappings returns the number of mappings
func (s *Store) CountMappings(ctx context.Context) (int64, error) {
	return s.count(ctx, "mappings")
}
