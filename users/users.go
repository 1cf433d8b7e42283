package users

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxNameLength     = 100
	maxPasswordLength = 72 // bcrypt ignores anything past 72 bytes
)

type User struct {
	ID           string    `json:"id"`        // Unique identifier for the user
	FirstName    string    `json:"firstName"` // First name of the user
	LastName     string    `json:"lastName"`  // Last name of the user
	Email        string    `json:"email"`     // Unique, lower-cased email address
	PasswordHash string    `json:"-"`         // Hashed version of the user's password - never serialize
	CreatedAt    time.Time `json:"createdAt"` // Date and time when the user registered
	UpdatedAt    time.Time `json:"updatedAt"` // Last profile or password change
}

// Profile is the user representation returned to clients
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// Clone returns a copy that can be mutated without affecting the original
func (u *User) Clone() *User {
	c := *u
	return &c
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address is a single bare mailbox
func ValidateEmail(email string) error {
	if email == "" {
		return apperrors.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.NewValidationError("email", "must be a valid email address")
	}
	return nil
}

// ValidateName checks a first or last name
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidationError(field, "is required")
	}
	if len(name) > maxNameLength {
		return apperrors.NewValidationError(field, "must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return apperrors.NewValidationError("password", "must be at least 8 characters long")
	}
	if len(password) > maxPasswordLength {
		return apperrors.NewValidationError("password", "must be at most %d bytes long", maxPasswordLength)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return apperrors.NewValidationError("password", "must contain at least one uppercase letter")
	}
	if !hasLower {
		return apperrors.NewValidationError("password", "must contain at least one lowercase letter")
	}
	if !hasNumber {
		return apperrors.NewValidationError("password", "must contain at least one number")
	}

	return nil
}

// Hasher hashes and compares passwords with bcrypt
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash string
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

func (h *Hasher) Compare(password, hash string) bool {
	return CheckPasswordHash(password, hash)
}

// Cost is the bcrypt work factor new hashes are made with
func (h *Hasher) Cost() int {
	return h.cost
}

// DummyHash is compared against when no user matches, so a miss costs the same as a wrong password
func (h *Hasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = h.Hash("unknown-user-Passw0rd")
	})
	return h.dummyHash
}

func HashPassword(password string) (string, error) {
	return NewHasher(bcrypt.DefaultCost).Hash(password)
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
