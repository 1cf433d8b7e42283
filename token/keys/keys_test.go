package keys_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/stretchr/testify/require"
)

func TestKeyPairRoundTripThroughFile(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)

	pemData, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, os.WriteFile(path, []byte(pemData), 0o600))

	loaded, err := keys.LoadKeyPairFromFile("kid-1", path)
	require.NoError(t, err)

	want, err := kp.ToJWK()
	require.NoError(t, err)
	got, err := loaded.ToJWK()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadKeyPairFromPEM_Invalid(t *testing.T) {
	_, err := keys.LoadKeyPairFromPEM("kid", "not pem")
	require.Error(t, err)
}
