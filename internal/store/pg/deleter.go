package pg

import (
	"context"
	"fmt"

	"surveyhub.org/internal/job"
)

// DeleteWhere removes rows from the named table matching the filter. The
// identifiers interpolated into the statement come exclusively from the
// job package's closed table/column whitelist; the value is bound as a
// parameter. A job carrying anything outside the whitelist fails here and
// stays pending with its error count incremented.
func (s *Store) DeleteWhere(ctx context.Context, table job.Table, filter job.Filter) error {
	if err := job.Validate(table, filter); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`delete from %s where %s = $1`, table, filter.Column)
	if _, err := s.db.ExecContext(ctx, stmt, filter.Value); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
