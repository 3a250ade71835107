package store

import (
	"context"
	"time"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/ragquery"
)

// NewRagQuery is the input to CreateRagQuery.
type NewRagQuery struct {
	ID           string
	Purpose      string
	QueryText    string
	TopMatches   []string
	DeletedAfter time.Time
}

// CreateRagQuery logs a semantic-search query for audit purposes.
func (s *Store) CreateRagQuery(ctx context.Context, in NewRagQuery) (*ent.RagQuery, error) {
	var out *ent.RagQuery
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.RagQuery.Create().
			SetID(in.ID).
			SetPurpose(in.Purpose).
			SetQueryText(in.QueryText).
			SetDeletedAfter(in.DeletedAfter)
		if in.TopMatches != nil {
			b.SetTopMatches(in.TopMatches)
		}
		row, err := b.Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// SweepExpiredRagQueries deletes rows whose deleted_after has passed, in
// batches of at most limit to bound transaction size.
func (s *Store) SweepExpiredRagQueries(ctx context.Context, asOf time.Time, limit int) (int, error) {
	var n int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		ids, err := s.db.RagQuery.Query().
			Where(ragquery.DeletedAfterLT(asOf)).
			Limit(limit).
			IDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		deleted, err := s.db.RagQuery.Delete().
			Where(ragquery.IDIn(ids...)).
			Exec(ctx)
		if err != nil {
			return err
		}
		n = deleted
		return nil
	})
	return n, mapErr(err)
}
