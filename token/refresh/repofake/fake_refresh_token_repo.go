package refreshrepofake

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens   map[string]*refresh.Token
	families map[string]map[string]struct{} // family ID to token values
	lock     sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens:   make(map[string]*refresh.Token),
		families: make(map[string]map[string]struct{}),
	}
}

// Clone copies the repo state so a transaction can be discarded on rollback
func (tr *FakeRefreshTokenRepo) Clone() *FakeRefreshTokenRepo {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	c := NewFakeRefreshTokenRepo()
	for k, v := range tr.tokens {
		cp := *v
		c.tokens[k] = &cp
	}
	for fam, members := range tr.families {
		c.families[fam] = make(map[string]struct{}, len(members))
		for m := range members {
			c.families[fam][m] = struct{}{}
		}
	}
	return c
}

func (tr *FakeRefreshTokenRepo) Create(_ context.Context, rt *refresh.Token) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if _, exists := tr.tokens[rt.Token]; exists {
		return apperrors.ErrConflict
	}
	cp := *rt
	tr.tokens[rt.Token] = &cp
	if tr.families[rt.FamilyID] == nil {
		tr.families[rt.FamilyID] = make(map[string]struct{})
	}
	tr.families[rt.FamilyID][rt.Token] = struct{}{}
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(_ context.Context, token string) (*refresh.Token, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (tr *FakeRefreshTokenRepo) Expire(_ context.Context, token string, at time.Time) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok || rt.IsExpired(at) {
		return false, nil
	}
	rt.ExpiresAt = at
	return true, nil
}

func (tr *FakeRefreshTokenRepo) DeleteByFamily(_ context.Context, familyID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for token := range tr.families[familyID] {
		delete(tr.tokens, token)
	}
	delete(tr.families, familyID)
	return nil
}

func (tr *FakeRefreshTokenRepo) StaleFamilies(_ context.Context, before time.Time, limit int) ([]string, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	stale := make([]string, 0)
	for fam, members := range tr.families {
		newest := time.Time{}
		for token := range members {
			if exp := tr.tokens[token].ExpiresAt; exp.After(newest) {
				newest = exp
			}
		}
		if newest.Before(before) {
			stale = append(stale, fam)
		}
	}
	sort.Strings(stale)
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// ByFamily returns the tokens of a family, oldest first
func (tr *FakeRefreshTokenRepo) ByFamily(familyID string) []*refresh.Token {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	out := make([]*refresh.Token, 0, len(tr.families[familyID]))
	for token := range tr.families[familyID] {
		cp := *tr.tokens[token]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of stored tokens
func (tr *FakeRefreshTokenRepo) Count() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return len(tr.tokens)
}
