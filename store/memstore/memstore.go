// Package memstore is an in-process Transactor used for development and tests.
// A transaction works on a copy of every repository and swaps the copy in on commit.
package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-sso-server/sso"
	ssorepofake "github.com/jrsteele09/go-sso-server/sso/repofake"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-sso-server/token/refresh/repofake"
	"github.com/jrsteele09/go-sso-server/users"
	fakeuserrepo "github.com/jrsteele09/go-sso-server/users/repofake"
)

var _ store.Transactor = (*Store)(nil)

type Store struct {
	lock  sync.RWMutex
	state *scope
}

type scope struct {
	users    *fakeuserrepo.FakeUserRepo
	tokens   *refreshrepofake.FakeRefreshTokenRepo
	families *refreshrepofake.FakeFamilyRepo
	records  *ssorepofake.FakeSSORepo
}

func (s *scope) Users() users.Repo                   { return s.users }
func (s *scope) RefreshTokens() refresh.Repo         { return s.tokens }
func (s *scope) RefreshFamilies() refresh.FamilyRepo { return s.families }
func (s *scope) SSORecords() sso.Repo                { return s.records }

func (s *scope) clone() *scope {
	return &scope{
		users:    s.users.Clone(),
		tokens:   s.tokens.Clone(),
		families: s.families.Clone(),
		records:  s.records.Clone(),
	}
}

func New() *Store {
	return &Store{state: &scope{
		users:    fakeuserrepo.NewFakeUserRepo(),
		tokens:   refreshrepofake.NewFakeRefreshTokenRepo(),
		families: refreshrepofake.NewFakeFamilyRepo(),
		records:  ssorepofake.NewFakeSSORepo(),
	}}
}

// WithinTx serialises writers. Changes become visible only when fn returns nil.
func (m *Store) WithinTx(ctx context.Context, fn store.TxFunc) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	m.state = work
	return nil
}

// WithinReadTx runs fn against a snapshot. Writes made by fn are discarded.
func (m *Store) WithinReadTx(ctx context.Context, fn store.TxFunc) error {
	m.lock.RLock()
	snapshot := m.state.clone()
	m.lock.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, snapshot)
}

func (m *Store) Close() error {
	return nil
}

// Snapshot returns a committed copy of the repositories for inspection
func (m *Store) Snapshot() store.Scope {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state.clone()
}

// Counts reports the committed row counts per repository
func (m *Store) Counts() (usersN, tokensN, familiesN, recordsN int) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state.users.Count(), m.state.tokens.Count(), m.state.families.Count(), m.state.records.Count()
}
