package users

import (
	"context"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

// Authenticate looks a user up by email and checks the password.
// An unknown email and a wrong password both return a nil user and a nil error, and both
// pay for a bcrypt comparison at the hasher's cost. Only datastore faults are returned as errors.
func Authenticate(ctx context.Context, repo Repo, hasher *Hasher, email, password string) (*User, error) {
	user, err := repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			hasher.Compare(password, hasher.DummyHash())
			return nil, nil
		}
		return nil, apperrors.Wrapf(err, "[users Authenticate] lookup failed")
	}

	if !hasher.Compare(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}
