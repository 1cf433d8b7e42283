package sso_test

import (
	"testing"

	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := sso.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	sealed, err := c.Seal("user-1", "record-1")
	require.NoError(t, err)
	require.NotContains(t, sealed, "record-1")

	opened, err := c.Open("user-1", sealed)
	require.NoError(t, err)
	require.Equal(t, "record-1", opened)
}

func TestCipher_SealIsRandomised(t *testing.T) {
	c, err := sso.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	a, err := c.Seal("user-1", "record-1")
	require.NoError(t, err)
	b, err := c.Seal("user-1", "record-1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCipher_OpenRejects(t *testing.T) {
	c, err := sso.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	other, err := sso.NewCipher("another-secret-another-secret-xx")
	require.NoError(t, err)

	sealed, err := c.Seal("user-1", "record-1")
	require.NoError(t, err)

	_, err = c.Open("user-2", sealed)
	require.Error(t, err, "different user")

	_, err = other.Open("user-1", sealed)
	require.Error(t, err, "different secret")

	_, err = c.Open("user-1", "!!not-base64!!")
	require.Error(t, err)

	_, err = c.Open("user-1", "AAAA")
	require.Error(t, err, "too short")
}

func TestNewCipher_RequiresSecret(t *testing.T) {
	_, err := sso.NewCipher("")
	require.Error(t, err)
}
