package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

// Clone copies the repo state so a transaction can be discarded on rollback
func (ur *FakeUserRepo) Clone() *FakeUserRepo {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	c := NewFakeUserRepo()
	for id, u := range ur.users {
		c.users[id] = u.Clone()
	}
	for email, id := range ur.emailIds {
		c.emailIds[email] = id
	}
	return c
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, taken := ur.emailIds[user.Email]; taken {
		return apperrors.Wrapf(apperrors.ErrConflict, "email %s", user.Email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user.Clone()
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if owner, taken := ur.emailIds[user.Email]; taken && owner != user.ID {
		return apperrors.Wrapf(apperrors.ErrConflict, "email %s", user.Email)
	}
	delete(ur.emailIds, existing.Email)
	ur.users[user.ID] = user.Clone()
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u.Clone(), nil
}

// Count returns the number of stored users
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
