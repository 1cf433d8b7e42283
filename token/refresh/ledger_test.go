package refresh_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-sso-server/token/refresh/repofake"
	"github.com/jrsteele09/go-sso-server/users"
	fakeuserrepo "github.com/jrsteele09/go-sso-server/users/repofake"
	"github.com/stretchr/testify/require"
)

type testScope struct {
	users    *fakeuserrepo.FakeUserRepo
	tokens   *refreshrepofake.FakeRefreshTokenRepo
	families *refreshrepofake.FakeFamilyRepo
}

func (s *testScope) Users() users.Repo                   { return s.users }
func (s *testScope) RefreshTokens() refresh.Repo         { return s.tokens }
func (s *testScope) RefreshFamilies() refresh.FamilyRepo { return s.families }

type stubIssuer struct {
	issued int
	err    error
}

func (s *stubIssuer) IssueAccessToken(u *users.User) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.issued++
	return "access-" + u.ID, nil
}

type testFixture struct {
	scope  *testScope
	issuer *stubIssuer
	ledger *refresh.Ledger
	user   *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	scope := &testScope{
		users:    fakeuserrepo.NewFakeUserRepo(),
		tokens:   refreshrepofake.NewFakeRefreshTokenRepo(),
		families: refreshrepofake.NewFakeFamilyRepo(),
	}
	user := &users.User{ID: uuid.New().String(), FirstName: "Ada", LastName: "Lovelace", Email: "a@x.com"}
	require.NoError(t, scope.users.Create(context.Background(), user))

	issuer := &stubIssuer{}
	return &testFixture{
		scope:  scope,
		issuer: issuer,
		ledger: refresh.NewLedger(issuer, config.New()),
		user:   user,
	}
}

func (f *testFixture) issue(t *testing.T) *refresh.Token {
	t.Helper()
	rt, err := f.ledger.Issue(context.Background(), f.scope, f.user.ID)
	require.NoError(t, err)
	return rt
}

func TestLedger_IssueStartsFamily(t *testing.T) {
	f := setupTestFixture(t)
	rt := f.issue(t)

	require.Len(t, rt.Token, 64)
	require.Equal(t, f.user.ID, rt.UserID)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), rt.ExpiresAt, time.Minute)

	family, err := f.scope.families.Get(context.Background(), rt.FamilyID)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, family.UserID)
}

func TestLedger_RotateKeepsFamilyAndExpiresOld(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	t1 := f.issue(t)

	rot, err := f.ledger.Rotate(ctx, f.scope, t1.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.Rotated, rot.Outcome)
	require.Equal(t, t1.FamilyID, rot.RefreshToken.FamilyID)
	require.NotEqual(t, t1.Token, rot.RefreshToken.Token)
	require.Equal(t, "access-"+f.user.ID, rot.AccessToken)
	require.Equal(t, f.user.ID, rot.User.ID)

	old, err := f.scope.tokens.Get(ctx, t1.Token)
	require.NoError(t, err, "a rotated token is retained as a reuse tripwire")
	require.True(t, old.IsExpired(time.Now()))
}

func TestLedger_ReplayRevokesFamily(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	t1 := f.issue(t)
	other := f.issue(t)

	rot, err := f.ledger.Rotate(ctx, f.scope, t1.Token)
	require.NoError(t, err)
	t2 := rot.RefreshToken

	replay, err := f.ledger.Rotate(ctx, f.scope, t1.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.Revoked, replay.Outcome)
	require.Equal(t, t1.FamilyID, replay.FamilyID)
	require.Empty(t, f.scope.tokens.ByFamily(t1.FamilyID))
	_, err = f.scope.families.Get(ctx, t1.FamilyID)
	require.Error(t, err)

	after, err := f.ledger.Rotate(ctx, f.scope, t2.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.Unknown, after.Outcome)

	untouched, err := f.ledger.Rotate(ctx, f.scope, other.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.Rotated, untouched.Outcome, "other families survive a revocation")
}

func TestLedger_NaturallyExpiredTokenRevokes(t *testing.T) {
	f := setupTestFixture(t)
	t1 := f.issue(t)

	refresh.NowTimeFunc = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	defer func() { refresh.NowTimeFunc = time.Now }()

	rot, err := f.ledger.Rotate(context.Background(), f.scope, t1.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.Revoked, rot.Outcome)
	require.Zero(t, f.scope.tokens.Count())
}

func TestLedger_UnknownToken(t *testing.T) {
	f := setupTestFixture(t)
	rot, err := f.ledger.Rotate(context.Background(), f.scope, "does-not-exist")
	require.NoError(t, err)
	require.Equal(t, refresh.Unknown, rot.Outcome)
}

func TestLedger_MissingOwnerIsServerError(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	rt, err := f.ledger.Issue(ctx, f.scope, uuid.New().String())
	require.NoError(t, err)

	_, err = f.ledger.Rotate(ctx, f.scope, rt.Token)
	require.Error(t, err)

	stored, err := f.scope.tokens.Get(ctx, rt.Token)
	require.NoError(t, err)
	require.False(t, stored.IsExpired(time.Now()), "failed rotation leaves the token live")
}

func TestLedger_IssuerFailure(t *testing.T) {
	f := setupTestFixture(t)
	rt := f.issue(t)
	f.issuer.err = errors.New("signer offline")

	_, err := f.ledger.Rotate(context.Background(), f.scope, rt.Token)
	require.Error(t, err)
}

func TestLedger_DeleteFamilyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	rt := f.issue(t)

	require.NoError(t, f.ledger.DeleteFamily(ctx, f.scope, rt.FamilyID))
	require.NoError(t, f.ledger.DeleteFamily(ctx, f.scope, rt.FamilyID))
	require.Zero(t, f.scope.tokens.Count())
	require.Zero(t, f.scope.families.Count())
}

func TestLedger_DeleteUserFamilies(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	keep := f.issue(t)
	f.issue(t)
	f.issue(t)

	deleted, err := f.ledger.DeleteUserFamilies(ctx, f.scope, f.user.ID, keep.FamilyID)
	require.NoError(t, err)
	require.Equal(t, 2, deleted)
	require.Equal(t, 1, f.scope.families.Count())
	require.Len(t, f.scope.tokens.ByFamily(keep.FamilyID), 1)
}

func TestLedger_Reap(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.issue(t)

	n, err := f.ledger.Reap(ctx, f.scope, time.Now(), 10)
	require.NoError(t, err)
	require.Zero(t, n, "live families are kept")

	n, err = f.ledger.Reap(ctx, f.scope, time.Now().Add(30*24*time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, f.scope.families.Count())
}
