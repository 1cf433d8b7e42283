package token_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/jrsteele09/go-sso-server/users"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "0123456789abcdef0123456789abcdef"
	issuer    = "https://auth.example.com"
)

func testUser() *users.User {
	return &users.User{
		ID:        uuid.New().String(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "a@x.com",
	}
}

func newHMACIssuer(t *testing.T, secret string) *token.Issuer {
	t.Helper()
	t.Setenv("TOKEN_SECRET", secret)
	signer, err := token.NewSignerFromConfig(config.New())
	require.NoError(t, err)
	return token.NewIssuer(signer, issuer, config.New())
}

func TestIssueAndVerify(t *testing.T) {
	iss := newHMACIssuer(t, secretStr)
	u := testUser()

	raw, err := iss.IssueAccessToken(u)
	require.NoError(t, err)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.ID)
	require.Equal(t, u.Email, claims.Email)
	require.Equal(t, "Ada", claims.FirstName)
	require.Equal(t, "Lovelace", claims.LastName)
	require.NotEmpty(t, claims.RegisteredClaims.ID)
	require.WithinDuration(t, time.Now().Add(iss.TTL()), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerify_RejectsExpired(t *testing.T) {
	iss := newHMACIssuer(t, secretStr)
	raw, err := iss.IssueAccessToken(testUser())
	require.NoError(t, err)

	token.NowTimeFunc = func() time.Time { return time.Now().Add(2 * iss.TTL()) }
	defer func() { token.NowTimeFunc = time.Now }()

	_, err = iss.Verify(raw)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestVerify_RejectsOtherKey(t *testing.T) {
	raw, err := newHMACIssuer(t, "another-secret-another-secret-00").IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = newHMACIssuer(t, secretStr).Verify(raw)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestVerify_RejectsOtherAlgorithm(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("k1", 2048)
	require.NoError(t, err)
	rsaIssuer := token.NewIssuer(keys.NewKeyPairSigner(kp), issuer, config.New())

	raw, err := rsaIssuer.IssueAccessToken(testUser())
	require.NoError(t, err)
	_, err = rsaIssuer.Verify(raw)
	require.NoError(t, err)

	_, err = newHMACIssuer(t, secretStr).Verify(raw)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = rsaIssuer.Verify(noneToken)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestVerify_RejectsSchemaMismatch(t *testing.T) {
	iss := newHMACIssuer(t, secretStr)
	u := testUser()
	now := time.Now()

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"id": u.ID, "firstName": u.FirstName, "lastName": u.LastName, "email": u.Email,
			"iss": issuer, "sub": u.ID, "aud": []string{"sso-services"},
			"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(), "jti": uuid.New().String(),
		}
	}

	sign := func(c jwt.MapClaims) string {
		raw, err := token.NewHMACSigner(secretStr).Sign(c)
		require.NoError(t, err)
		return raw
	}

	_, err := iss.Verify(sign(base()))
	require.NoError(t, err, "correctly shaped token must verify")

	cases := map[string]func(jwt.MapClaims){
		"extra claim":    func(c jwt.MapClaims) { c["role"] = "admin" },
		"numeric email":  func(c jwt.MapClaims) { c["email"] = 42 },
		"missing iat":    func(c jwt.MapClaims) { delete(c, "iat") },
		"non uuid id":    func(c jwt.MapClaims) { c["id"] = "admin"; c["sub"] = "admin" },
		"sub mismatch":   func(c jwt.MapClaims) { c["sub"] = uuid.New().String() },
		"missing names":  func(c jwt.MapClaims) { delete(c, "firstName") },
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "other" },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
		"missing jti":    func(c jwt.MapClaims) { delete(c, "jti") },
		"missing exp":    func(c jwt.MapClaims) { delete(c, "exp") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			_, err := iss.Verify(sign(c))
			require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
		})
	}
}

func TestVerify_RejectsTamperedPayload(t *testing.T) {
	iss := newHMACIssuer(t, secretStr)
	raw, err := iss.IssueAccessToken(testUser())
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	m["email"] = "mallory@x.com"
	tampered, err := json.Marshal(m)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(tampered)

	_, err = iss.Verify(strings.Join(parts, "."))
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestJWKS(t *testing.T) {
	_, ok, err := newHMACIssuer(t, secretStr).JWKS()
	require.NoError(t, err)
	require.False(t, ok)

	kp, err := keys.GenerateRSAKeyPair("k1", 2048)
	require.NoError(t, err)
	jwks, ok, err := token.NewIssuer(keys.NewKeyPairSigner(kp), issuer, config.New()).JWKS()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "k1", jwks.Keys[0].Kid)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
}
