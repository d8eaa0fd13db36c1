package memory

import (
	"context"
	"sort"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// creatorNames resolves a creator id to display name and username.
// Caller holds s.mu.
func (s *Store) creatorNames(createdBy *int64) (*models.User, string, string) {
	if createdBy == nil {
		return nil, "", ""
	}
	u, ok := s.users[*createdBy]
	if !ok {
		return nil, "", ""
	}
	return u, u.FullName(), u.Username
}

// --- patients ---

func (s *Store) CreatePatient(ctx context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPatient++
	now := s.now()
	p.ID = s.nextPatient
	p.CreatedAt = now
	p.UpdatedAt = now
	c := *p
	s.patients[p.ID] = &c
	return nil
}

func (s *Store) GetPatient(ctx context.Context, id int64) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) ListPatients(ctx context.Context, scope *models.PatientScope) ([]*models.PatientView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.PatientView, 0, len(s.patients))
	for _, p := range s.patients {
		if scope != nil && (p.CreatedBy == nil || *p.CreatedBy != scope.CreatedBy) {
			continue
		}
		_, name, username := s.creatorNames(p.CreatedBy)
		out = append(out, &models.PatientView{Patient: *p, UserName: name, UserUsername: username})
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdatePatient(ctx context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = p.Name
	existing.Age = p.Age
	existing.Disease = p.Disease
	existing.Contact = p.Contact
	existing.UpdatedAt = s.now()
	*p = *existing
	return nil
}

func (s *Store) DeletePatient(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.patients, id)
	for mid, m := range s.mappings {
		if m.PatientID == id {
			delete(s.mappings, mid)
		}
	}
	return nil
}

func (s *Store) CountPatients(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.patients)), nil
}

// --- doctors ---

func (s *Store) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoctor++
	now := s.now()
	d.ID = s.nextDoctor
	d.CreatedAt = now
	d.UpdatedAt = now
	c := *d
	s.doctors[d.ID] = &c
	return nil
}

func (s *Store) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]*models.DoctorView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int64]int64)
	for _, m := range s.mappings {
		counts[m.DoctorID]++
	}
	out := make([]*models.DoctorView, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, &models.DoctorView{Doctor: *d, MappingCount: counts[d.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateDoctor(ctx context.Context, d *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.doctors[d.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = d.Name
	existing.Specialty = d.Specialty
	existing.Experience = d.Experience
	existing.Contact = d.Contact
	existing.UpdatedAt = s.now()
	*d = *existing
	return nil
}

func (s *Store) DeleteDoctor(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.doctors, id)
	for mid, m := range s.mappings {
		if m.DoctorID == id {
			delete(s.mappings, mid)
		}
	}
	return nil
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.doctors)), nil
}

// --- mappings ---

func (s *Store) CreateMapping(ctx context.Context, m *models.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[m.PatientID]; !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.doctors[m.DoctorID]; !ok {
		return storage.ErrNotFound
	}
	s.nextMapping++
	m.ID = s.nextMapping
	m.CreatedAt = s.now()
	c := *m
	s.mappings[m.ID] = &c
	return nil
}

func (s *Store) GetMapping(ctx context.Context, id int64) (*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (s *Store) ListMappings(ctx context.Context, scope *models.PatientScope) ([]*models.MappingView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.MappingView, 0, len(s.mappings))
	for _, m := range s.mappings {
		if scope != nil && (m.CreatedBy == nil || *m.CreatedBy != scope.CreatedBy) {
			continue
		}
		view := &models.MappingView{Mapping: *m}
		if p, ok := s.patients[m.PatientID]; ok {
			c := *p
			view.Patient = &c
		}
		if d, ok := s.doctors[m.DoctorID]; ok {
			c := *d
			view.Doctor = &c
		}
		if u, name, username := s.creatorNames(m.CreatedBy); u != nil {
			view.User = u.Summary()
			view.UserName = name
			view.UserUsername = username
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DoctorsForPatient(ctx context.Context, patientID int64) ([]*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ms []*models.Mapping
	for _, m := range s.mappings {
		if m.PatientID == patientID {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		return newestFirst(ms[i].ID, ms[j].ID, ms[i].CreatedAt, ms[j].CreatedAt)
	})
	out := make([]*models.Doctor, 0, len(ms))
	for _, m := range ms {
		if d, ok := s.doctors[m.DoctorID]; ok {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) UpdateMapping(ctx context.Context, m *models.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.mappings[m.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.patients[m.PatientID]; !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.doctors[m.DoctorID]; !ok {
		return storage.ErrNotFound
	}
	existing.PatientID = m.PatientID
	existing.DoctorID = m.DoctorID
	*m = *existing
	return nil
}

func (s *Store) DeleteMapping(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.mappings, id)
	return nil
}

func (s *Store) CountMappings(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.mappings)), nil
}
