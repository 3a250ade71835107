package store

import (
	"context"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/user"
)

// NewUser is the input to CreateUser.
type NewUser struct {
	ID          string
	Email       string
	DisplayName string
	Role        user.Role
}

// CreateUser registers a candidate or admin.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (*ent.User, error) {
	var out *ent.User
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.User.Create().
			SetID(in.ID).
			SetEmail(in.Email).
			SetRole(in.Role)
		if in.DisplayName != "" {
			b.SetDisplayName(in.DisplayName)
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

// GetUserByEmail resolves a user by their login email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ent.User, error) {
	var out *ent.User
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.User.Query().Where(user.Email(email)).Only(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}
