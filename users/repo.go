package users

import "context"

// Repo persists users. Implementations return errors.ErrNotFound for unknown users
// and errors.ErrConflict when an email is already taken.
type Repo interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
