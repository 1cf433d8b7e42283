package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-sso-server/events"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

func (f *testFixture) lastResetToken(t *testing.T) string {
	t.Helper()
	published := f.events.Events(events.PasswordResetRequested)
	require.NotEmpty(t, published)
	resetToken, ok := published[len(published)-1].Data["token"].(string)
	require.True(t, ok)
	return resetToken
}

func TestPasswordReset_FullFlow(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	reg := f.register(t, testUserEmail)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "A@x.com"))
	resetToken := f.lastResetToken(t)

	approval, err := f.service.ApprovePasswordReset(ctx, resetToken)
	require.NoError(t, err)
	require.NotEmpty(t, approval)

	_, err = f.service.ApprovePasswordReset(ctx, resetToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken, "reset tokens are single use")

	require.NoError(t, f.service.CompletePasswordReset(ctx, approval, testNewPassword))
	require.False(t, f.familyExists(t, reg.FamilyID), "every session ends")

	_, err = f.service.Login(ctx, testUserEmail, testUserPass)
	require.ErrorIs(t, err, apperrors.ErrAuthFailed)
	_, err = f.service.Login(ctx, testUserEmail, testNewPassword)
	require.NoError(t, err)

	err = f.service.CompletePasswordReset(ctx, approval, testNewPassword)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken, "approvals are single use")
}

func TestPasswordReset_UnknownEmailLooksTheSame(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "nobody@x.com"))
	require.Empty(t, f.events.Events(events.PasswordResetRequested))

	require.ErrorIs(t, f.service.RequestPasswordReset(context.Background(), "not-an-email"), apperrors.ErrValidation)
}

func TestPasswordReset_TokenKindsAreNotInterchangeable(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, testUserEmail)

	require.NoError(t, f.service.RequestPasswordReset(ctx, testUserEmail))
	resetToken := f.lastResetToken(t)

	err := f.service.CompletePasswordReset(ctx, resetToken, testNewPassword)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	// The misplaced reset token is still good for its own step
	approval, err := f.service.ApprovePasswordReset(ctx, resetToken)
	require.NoError(t, err)

	_, err = f.service.ApprovePasswordReset(ctx, approval)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.NoError(t, f.service.CompletePasswordReset(ctx, approval, testNewPassword))
}

func TestPasswordReset_WeakPasswordKeepsApproval(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.register(t, testUserEmail)

	require.NoError(t, f.service.RequestPasswordReset(ctx, testUserEmail))
	approval, err := f.service.ApprovePasswordReset(ctx, f.lastResetToken(t))
	require.NoError(t, err)

	require.ErrorIs(t, f.service.CompletePasswordReset(ctx, approval, "weak"), apperrors.ErrValidation)
	require.NoError(t, f.service.CompletePasswordReset(ctx, approval, testNewPassword))
}
