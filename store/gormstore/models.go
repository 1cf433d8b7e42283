package gormstore

import (
	"time"

	"github.com/jrsteele09/go-sso-server/internal/utils"
	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

type userModel struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	FirstName    string    `gorm:"column:first_name"`
	LastName     string    `gorm:"column:last_name"`
	Email        string    `gorm:"column:email"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type familyModel struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string    `gorm:"column:user_id;type:uuid"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (familyModel) TableName() string { return "refresh_families" }

type refreshTokenModel struct {
	Token     string    `gorm:"column:token;primaryKey"`
	UserID    string    `gorm:"column:user_id;type:uuid"`
	FamilyID  string    `gorm:"column:family_id;type:uuid"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type ssoRecordModel struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey"`
	ReqIDHash  *string   `gorm:"column:req_id_hash"`
	SSOIDHash  *string   `gorm:"column:sso_id_hash"`
	UserID     *string   `gorm:"column:user_id;type:uuid"`
	ServiceURL string    `gorm:"column:service_url"`
	ExpiresAt  time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (ssoRecordModel) TableName() string { return "sso_records" }

func toUserModel(u *users.User) userModel {
	return userModel{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toDomainUser(m userModel) *users.User {
	return &users.User{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainToken(m refreshTokenModel) *refresh.Token {
	return &refresh.Token{
		Token:     m.Token,
		UserID:    m.UserID,
		FamilyID:  m.FamilyID,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func toDomainFamily(m familyModel) *refresh.Family {
	return &refresh.Family{ID: m.ID, UserID: m.UserID, CreatedAt: m.CreatedAt}
}

func toSSORecordModel(r *sso.Record) ssoRecordModel {
	return ssoRecordModel{
		ID:         r.ID,
		ReqIDHash:  utils.NilIfZero(r.ReqIDHash),
		SSOIDHash:  utils.NilIfZero(r.SSOIDHash),
		UserID:     r.UserID,
		ServiceURL: r.ServiceURL,
		ExpiresAt:  r.ExpiresAt,
		CreatedAt:  r.CreatedAt,
	}
}

func toDomainSSORecord(m ssoRecordModel) *sso.Record {
	return &sso.Record{
		ID:         m.ID,
		ReqIDHash:  utils.Value(m.ReqIDHash),
		SSOIDHash:  utils.Value(m.SSOIDHash),
		UserID:     m.UserID,
		ServiceURL: m.ServiceURL,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}
