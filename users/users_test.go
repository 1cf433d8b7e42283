package users_test

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/users"
	fakeuserrepo "github.com/jrsteele09/go-sso-server/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "a@x.com"
	testPassword = "Secret123"
)

func seedUser(t *testing.T, repo users.Repo) *users.User {
	t.Helper()

	hash, err := users.NewHasher(bcrypt.MinCost).Hash(testPassword)
	require.NoError(t, err)

	u := &users.User{FirstName: "Ada", LastName: "Lovelace", Email: testEmail, PasswordHash: hash}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	seeded := seedUser(t, repo)
	hasher := users.NewHasher(bcrypt.MinCost)

	t.Run("valid credentials", func(t *testing.T) {
		u, err := users.Authenticate(ctx, repo, hasher, testEmail, testPassword)
		require.NoError(t, err)
		require.NotNil(t, u)
		require.Equal(t, seeded.ID, u.ID)
	})

	t.Run("email is case-normalized", func(t *testing.T) {
		u, err := users.Authenticate(ctx, repo, hasher, "  A@X.COM ", testPassword)
		require.NoError(t, err)
		require.NotNil(t, u)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		unknown, errUnknown := users.Authenticate(ctx, repo, hasher, "nobody@x.com", testPassword)
		wrong, errWrong := users.Authenticate(ctx, repo, hasher, testEmail, "Wrong1234")
		require.NoError(t, errUnknown)
		require.NoError(t, errWrong)
		require.Nil(t, unknown)
		require.Nil(t, wrong)
	})

	t.Run("datastore fault surfaces as error", func(t *testing.T) {
		_, err := users.Authenticate(ctx, failingRepo{}, hasher, testEmail, testPassword)
		require.Error(t, err)
		require.False(t, apperrors.Is(err, apperrors.ErrNotFound))
	})
}

func TestDummyHashUsesConfiguredCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 2} {
		hasher := users.NewHasher(cost)
		require.Equal(t, cost, hasher.Cost())

		dummyCost, err := bcrypt.Cost([]byte(hasher.DummyHash()))
		require.NoError(t, err)
		require.Equal(t, cost, dummyCost)
		require.Equal(t, hasher.DummyHash(), hasher.DummyHash())
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Secret123"))

	for _, pw := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		err := users.ValidatePasswordStrength(pw)
		require.Error(t, err, pw)
		require.True(t, apperrors.Is(err, apperrors.ErrValidation))
	}
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, users.ValidateEmail("a@x.com"))
	require.Error(t, users.ValidateEmail(""))
	require.Error(t, users.ValidateEmail("not-an-email"))
	require.Error(t, users.ValidateEmail("Ada <a@x.com>"))
}

func TestProfileOmitsPassword(t *testing.T) {
	u := &users.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: testEmail, PasswordHash: "hash"}
	p := u.Profile()
	require.Equal(t, users.Profile{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: testEmail}, p)
}

func TestFakeRepoRejectsDuplicateEmail(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	seedUser(t, repo)

	err := repo.Create(context.Background(), &users.User{Email: testEmail})
	require.True(t, apperrors.Is(err, apperrors.ErrConflict))
	require.Equal(t, 1, repo.Count())
}

type failingRepo struct{ users.Repo }

func (failingRepo) GetByEmail(context.Context, string) (*users.User, error) {
	return nil, errors.New("connection reset")
}
