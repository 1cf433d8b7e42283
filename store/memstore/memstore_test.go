package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/store/memstore"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

func newUser(id, email string) *users.User {
	return &users.User{ID: id, FirstName: "Ada", LastName: "Lovelace", Email: email}
}

func TestWithinTx_Commits(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		return scope.Users().Create(ctx, newUser("u1", "a@x.com"))
	})
	require.NoError(t, err)

	u, n, _, _ := s.Counts()
	require.Equal(t, 1, u)
	require.Equal(t, 0, n)

	got, err := s.Snapshot().Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		require.NoError(t, scope.Users().Create(ctx, newUser("u1", "a@x.com")))
		require.NoError(t, scope.RefreshFamilies().Create(ctx, &refresh.Family{ID: "f1", UserID: "u1", CreatedAt: time.Now()}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, _, f, _ := s.Counts()
	require.Zero(t, u)
	require.Zero(t, f)
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
			_ = scope.Users().Create(ctx, newUser("u1", "a@x.com"))
			panic("boom")
		})
	})

	u, _, _, _ := s.Counts()
	require.Zero(t, u)

	// The store is still usable after the panic
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		return scope.Users().Create(ctx, newUser("u1", "a@x.com"))
	}))
}

func TestWithinReadTx_DiscardsWrites(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.WithinReadTx(ctx, func(ctx context.Context, scope store.Scope) error {
		return scope.Users().Create(ctx, newUser("u1", "a@x.com"))
	}))

	err := s.WithinReadTx(ctx, func(ctx context.Context, scope store.Scope) error {
		_, err := scope.Users().GetByID(ctx, "u1")
		return err
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(context.Context, store.Scope) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestWithinTx_ConcurrentConditionalExpire(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		return scope.RefreshTokens().Create(ctx, &refresh.Token{Token: "t1", UserID: "u1", FamilyID: "f1", ExpiresAt: now.Add(time.Hour), CreatedAt: now})
	}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
				ok, err := scope.RefreshTokens().Expire(ctx, "t1", now)
				if err != nil {
					return err
				}
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, 1, winners)
}
