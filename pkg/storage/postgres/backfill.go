package postgres

import (
	"context"
	"fmt"
)

// BackfillMappingCreators assigns mappings that predate creator tracking to
// the oldest user. It returns the number of mappings updated; zero when there
// are no users or nothing to fix.
func (s *Store) BackfillMappingCreators(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mappings
		SET created_by = (SELECT id FROM users ORDER BY id ASC LIMIT 1)
		WHERE created_by IS NULL
			AND EXISTS (SELECT 1 FROM users)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill mapping creators: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read backfill result: %w", err)
	}
	return n, nil
}

// CountOrphanMappings returns the number of mappings without a creator
func (s *Store) CountOrphanMappings(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mappings WHERE created_by IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orphan mappings: %w", err)
	}
	return n, nil
}
