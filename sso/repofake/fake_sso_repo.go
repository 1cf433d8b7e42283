package ssorepofake

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/sso"
)

var _ sso.Repo = (*FakeSSORepo)(nil)

type FakeSSORepo struct {
	records map[string]*sso.Record
	lock    sync.RWMutex
}

func NewFakeSSORepo() *FakeSSORepo {
	return &FakeSSORepo{records: make(map[string]*sso.Record)}
}

// Clone copies the repo state so a transaction can be discarded on rollback
func (r *FakeSSORepo) Clone() *FakeSSORepo {
	r.lock.RLock()
	defer r.lock.RUnlock()

	c := NewFakeSSORepo()
	for k, v := range r.records {
		c.records[k] = copyRecord(v)
	}
	return c
}

func (r *FakeSSORepo) Create(_ context.Context, record *sso.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return apperrors.ErrConflict
	}
	for _, existing := range r.records {
		if record.ReqIDHash != "" && existing.ReqIDHash == record.ReqIDHash {
			return apperrors.ErrConflict
		}
	}
	r.records[record.ID] = copyRecord(record)
	return nil
}

func (r *FakeSSORepo) GetByRequest(_ context.Context, reqIDHash string) (*sso.Record, error) {
	return r.find(func(rec *sso.Record) bool { return reqIDHash != "" && rec.ReqIDHash == reqIDHash })
}

func (r *FakeSSORepo) GetBySSOID(_ context.Context, ssoIDHash string) (*sso.Record, error) {
	return r.find(func(rec *sso.Record) bool { return ssoIDHash != "" && rec.SSOIDHash == ssoIDHash })
}

func (r *FakeSSORepo) Bind(_ context.Context, id, userID, ssoIDHash string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.ReqIDHash == "" || rec.UserID != nil {
		return false, nil
	}
	uid := userID
	rec.UserID = &uid
	rec.SSOIDHash = ssoIDHash
	rec.ReqIDHash = ""
	return true, nil
}

func (r *FakeSSORepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.records, id)
	return nil
}

func (r *FakeSSORepo) DeleteByRequest(_ context.Context, reqIDHash string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for id, rec := range r.records {
		if rec.ReqIDHash == reqIDHash {
			delete(r.records, id)
		}
	}
	return nil
}

func (r *FakeSSORepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	n := 0
	for id, rec := range r.records {
		if rec.ExpiresAt.Before(before) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored records
func (r *FakeSSORepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.records)
}

func (r *FakeSSORepo) find(match func(*sso.Record) bool) (*sso.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, rec := range r.records {
		if match(rec) {
			return copyRecord(rec), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func copyRecord(rec *sso.Record) *sso.Record {
	cp := *rec
	if rec.UserID != nil {
		uid := *rec.UserID
		cp.UserID = &uid
	}
	return &cp
}
