package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := apperrors.NewValidationError("email", "must be a valid address, got %q", "nope")
	require.True(t, apperrors.Is(err, apperrors.ErrValidation))
	require.Equal(t, `email: must be a valid address, got "nope"`, err.Error())

	wrapped := fmt.Errorf("register: %w", err)
	var ve *apperrors.ValidationError
	require.True(t, apperrors.As(wrapped, &ve))
	require.Equal(t, "email", ve.Field)
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrInvalidToken, "[Ledger Rotate] token %s", "abc")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
	require.Equal(t, "[Ledger Rotate] token abc: invalid token", err.Error())
}
