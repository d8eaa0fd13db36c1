package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carelink/pkg/models"
)

// Empty listings must encode as [] so clients never see null.
func TestListings_EmptyEncodesAsArray(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		query string
		list  func(s *Store) (interface{}, error)
	}{
		{"users", "FROM users", func(s *Store) (interface{}, error) { return s.ListUsers(ctx) }},
		{"patients", "FROM patients", func(s *Store) (interface{}, error) {
			return s.ListPatients(ctx, &models.PatientScope{CreatedBy: 4})
		}},
		{"doctors", "FROM doctors", func(s *Store) (interface{}, error) { return s.ListDoctors(ctx) }},
		{"mappings", "FROM mappings", func(s *Store) (interface{}, error) { return s.ListMappings(ctx, nil) }},
		{"doctors for patient", "JOIN doctors", func(s *Store) (interface{}, error) { return s.DoctorsForPatient(ctx, 9) }},
		{"issues", "FROM issue_requests", func(s *Store) (interface{}, error) { return s.ListIssues(ctx, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery(tt.query).WillReturnRows(sqlmock.NewRows([]string{"id"}))

			got, err := tt.list(store)
			require.NoError(t, err)

			body, err := json.Marshal(got)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(body))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
