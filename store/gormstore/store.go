// Package gormstore is the Postgres Transactor. Every repository of a Scope shares one
// database transaction.
package gormstore

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

var _ store.Transactor = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to databaseURL, optionally applying migrations first
func Open(ctx context.Context, databaseURL string, migrate bool) (*Store, error) {
	if migrate {
		if err := Migrate(ctx, databaseURL); err != nil {
			return nil, err
		}
	}
	db, err := Connect(ctx, databaseURL, 0)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

type scope struct {
	db *gorm.DB
}

func (s scope) Users() users.Repo                   { return &userRepository{db: s.db} }
func (s scope) RefreshTokens() refresh.Repo         { return &refreshTokenRepository{db: s.db} }
func (s scope) RefreshFamilies() refresh.FamilyRepo { return &familyRepository{db: s.db} }
func (s scope) SSORecords() sso.Repo                { return &ssoRecordRepository{db: s.db} }

func (s *Store) WithinTx(ctx context.Context, fn store.TxFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, scope{db: tx})
	})
}

func (s *Store) WithinReadTx(ctx context.Context, fn store.TxFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, scope{db: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

// Ping reports whether the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("[gormstore Ping] %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("[gormstore Close] %w", err)
	}
	return sqlDB.Close()
}
