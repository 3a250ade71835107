package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search on question stems and
// candidate feedback text, neither of which ent's schema annotations cover.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for question stem full-text search (catalog browsing/search).
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_questions_stem_gin
		ON questions USING gin(to_tsvector('english', stem))`)
	if err != nil {
		return fmt.Errorf("failed to create stem GIN index: %w", err)
	}

	// GIN index over the string values of the results JSON, which carry each
	// question's evaluator feedback (report review tooling).
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_evaluation_records_feedback_gin
		ON evaluation_records USING gin(to_tsvector('english', results))`)
	if err != nil {
		return fmt.Errorf("failed to create feedback GIN index: %w", err)
	}

	return nil
}
