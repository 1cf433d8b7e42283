package refreshrepofake

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token/refresh"
)

var _ refresh.FamilyRepo = (*FakeFamilyRepo)(nil)

type FakeFamilyRepo struct {
	families map[string]*refresh.Family
	lock     sync.RWMutex
}

func NewFakeFamilyRepo() *FakeFamilyRepo {
	return &FakeFamilyRepo{
		families: make(map[string]*refresh.Family),
	}
}

// Clone copies the repo state so a transaction can be discarded on rollback
func (fr *FakeFamilyRepo) Clone() *FakeFamilyRepo {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	c := NewFakeFamilyRepo()
	for k, v := range fr.families {
		cp := *v
		c.families[k] = &cp
	}
	return c
}

func (fr *FakeFamilyRepo) Create(_ context.Context, family *refresh.Family) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if _, exists := fr.families[family.ID]; exists {
		return apperrors.ErrConflict
	}
	cp := *family
	fr.families[family.ID] = &cp
	return nil
}

func (fr *FakeFamilyRepo) Get(_ context.Context, id string) (*refresh.Family, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	f, ok := fr.families[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (fr *FakeFamilyRepo) Delete(_ context.Context, id string) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	delete(fr.families, id)
	return nil
}

func (fr *FakeFamilyRepo) ListByUser(_ context.Context, userID string) ([]*refresh.Family, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	out := make([]*refresh.Family, 0)
	for _, f := range fr.families {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the number of stored families
func (fr *FakeFamilyRepo) Count() int {
	fr.lock.RLock()
	defer fr.lock.RUnlock()
	return len(fr.families)
}
