// Package store implements the Document Store Facade: a single choke point
// in front of Postgres that every other component goes through instead of
// touching *ent.Client directly. It owns optimistic-concurrency (ETag/CAS)
// semantics, not-found/conflict error mapping, and retry-on-transient-error
// behavior, so the rest of the codebase can treat persistence as a plain
// Go interface.
package store

import (
	"context"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/pkg/retry"
)

// Store wraps an ent client and exposes CRUD + CAS operations for every
// container in the domain model.
type Store struct {
	db *ent.Client
}

// New constructs a Store over an already-migrated ent client.
func New(db *ent.Client) *Store {
	return &Store{db: db}
}

// withRetry runs op under the default retry policy, classifying Postgres
// connection failures as transient. Validation/not-found/constraint errors
// and ErrConflict are never retried: they are returned at once, unchanged,
// for the caller to map. Everything else goes through retry.ClassifyError,
// which treats any error it does not recognize as retryable.
func (s *Store) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	policy := retry.DefaultPolicy()
	policy.Classify = func(err error) retry.Action {
		if err == ErrConflict || ent.IsNotFound(err) || ent.IsConstraintError(err) || ent.IsValidationError(err) {
			return retry.ActionFail
		}
		return retry.ClassifyError(err)
	}
	return retry.Do(ctx, policy, op)
}

// Tx runs fn inside an ent transaction, committing on success and rolling
// back on any error (including a panic, which it re-raises after rollback).
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx *ent.Tx) error) error {
	tx, err := s.db.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return rerr
		}
		return err
	}

	return tx.Commit()
}
