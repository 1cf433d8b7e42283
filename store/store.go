package store

import (
	"context"

	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

// Scope is the set of repositories bound to one datastore transaction.
// It is passed explicitly to every multi-step operation.
type Scope interface {
	Users() users.Repo
	RefreshTokens() refresh.Repo
	RefreshFamilies() refresh.FamilyRepo
	SSORecords() sso.Repo
}

// TxFunc is the unit of work run inside a transaction
type TxFunc func(ctx context.Context, scope Scope) error

// Transactor opens transactions. The transaction commits when fn returns nil and
// rolls back when fn returns an error or panics.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	WithinReadTx(ctx context.Context, fn TxFunc) error
	Close() error
}
