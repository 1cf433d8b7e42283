package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

var (
	_ users.Repo         = (*userRepository)(nil)
	_ refresh.Repo       = (*refreshTokenRepository)(nil)
	_ refresh.FamilyRepo = (*familyRepository)(nil)
	_ sso.Repo           = (*ssoRecordRepository)(nil)
)

// translate maps driver errors onto the shared error taxonomy
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrapf(apperrors.ErrConflict, "%s", err.Error())
	default:
		return err
	}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *users.User) error {
	rec := toUserModel(user)
	return translate(r.db.WithContext(ctx).Create(&rec).Error)
}

func (r *userRepository) Update(ctx context.Context, user *users.User) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"updated_at":    user.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainUser(rec), nil
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *refresh.Token) error {
	rec := refreshTokenModel{
		Token:     token.Token,
		UserID:    token.UserID,
		FamilyID:  token.FamilyID,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}
	return translate(r.db.WithContext(ctx).Create(&rec).Error)
}

func (r *refreshTokenRepository) Get(ctx context.Context, token string) (*refresh.Token, error) {
	var rec refreshTokenModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainToken(rec), nil
}

func (r *refreshTokenRepository) Expire(ctx context.Context, token string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token = ?", token).
		Where("expires_at > ?", at).
		Update("expires_at", at)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *refreshTokenRepository) DeleteByFamily(ctx context.Context, familyID string) error {
	return translate(r.db.WithContext(ctx).Where("family_id = ?", familyID).Delete(&refreshTokenModel{}).Error)
}

func (r *refreshTokenRepository) StaleFamilies(ctx context.Context, before time.Time, limit int) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Select("family_id").
		Group("family_id").
		Having("MAX(expires_at) < ?", before).
		Order("family_id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []string
	if err := query.Pluck("family_id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

type familyRepository struct {
	db *gorm.DB
}

func (r *familyRepository) Create(ctx context.Context, family *refresh.Family) error {
	rec := familyModel{ID: family.ID, UserID: family.UserID, CreatedAt: family.CreatedAt}
	return translate(r.db.WithContext(ctx).Create(&rec).Error)
}

func (r *familyRepository) Get(ctx context.Context, id string) (*refresh.Family, error) {
	var rec familyModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainFamily(rec), nil
}

func (r *familyRepository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&familyModel{}).Error)
}

func (r *familyRepository) ListByUser(ctx context.Context, userID string) ([]*refresh.Family, error) {
	var rows []familyModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*refresh.Family, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainFamily(row))
	}
	return out, nil
}

type ssoRecordRepository struct {
	db *gorm.DB
}

func (r *ssoRecordRepository) Create(ctx context.Context, record *sso.Record) error {
	rec := toSSORecordModel(record)
	return translate(r.db.WithContext(ctx).Create(&rec).Error)
}

func (r *ssoRecordRepository) GetByRequest(ctx context.Context, reqIDHash string) (*sso.Record, error) {
	return r.take(ctx, "req_id_hash = ?", reqIDHash)
}

func (r *ssoRecordRepository) GetBySSOID(ctx context.Context, ssoIDHash string) (*sso.Record, error) {
	return r.take(ctx, "sso_id_hash = ?", ssoIDHash)
}

func (r *ssoRecordRepository) take(ctx context.Context, where string, value string) (*sso.Record, error) {
	var rec ssoRecordModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(where, value).
		Take(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return toDomainSSORecord(rec), nil
}

func (r *ssoRecordRepository) Bind(ctx context.Context, id, userID, ssoIDHash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&ssoRecordModel{}).
		Where("id = ?", id).
		Where("req_id_hash IS NOT NULL").
		Where("user_id IS NULL").
		Updates(map[string]any{
			"user_id":     userID,
			"sso_id_hash": ssoIDHash,
			"req_id_hash": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ssoRecordRepository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&ssoRecordModel{}).Error)
}

func (r *ssoRecordRepository) DeleteByRequest(ctx context.Context, reqIDHash string) error {
	return translate(r.db.WithContext(ctx).Where("req_id_hash = ?", reqIDHash).Delete(&ssoRecordModel{}).Error)
}

func (r *ssoRecordRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&ssoRecordModel{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return int(res.RowsAffected), nil
}
