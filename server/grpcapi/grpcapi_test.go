package grpcapi_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/server/grpcapi"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/users"
)

const secretStr = "0123456789abcdef0123456789abcdef"

type fakeVerifier struct {
	issuer *token.Issuer
	user   *users.User
}

func (f *fakeVerifier) VerifyAccessToken(_ context.Context, raw string) (*token.Claims, *users.User, error) {
	if raw != "good" {
		return nil, nil, errors.New("bad token")
	}
	exp := jwt.NewNumericDate(time.Unix(1700000000, 0))
	return &token.Claims{ID: f.user.ID, Email: f.user.Email, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}, f.user, nil
}

func (f *fakeVerifier) Issuer() *token.Issuer {
	return f.issuer
}

func setupClient(t *testing.T) *grpc.ClientConn {
	t.Helper()
	t.Setenv("TOKEN_SECRET", secretStr)
	cfg := config.New()
	signer, err := token.NewSignerFromConfig(cfg)
	require.NoError(t, err)

	verifier := &fakeVerifier{
		issuer: token.NewIssuer(signer, "https://auth.example.com", cfg),
		user:   &users.User{ID: "3f1c5e0a-8d59-4c5e-9a55-2f1f0c7b6d11", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpcapi.NewServer(verifier)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestValidateToken(t *testing.T) {
	conn := setupClient(t)
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]any{"token": "good"})
	require.NoError(t, err)
	resp := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, "/sso.v1.TokenService/ValidateToken", req, resp))

	fields := resp.GetFields()
	require.True(t, fields["valid"].GetBoolValue())
	require.Equal(t, "ada@example.com", fields["email"].GetStringValue())
	require.Equal(t, "Ada", fields["first_name"].GetStringValue())
	require.Equal(t, float64(1700000000), fields["expires_at"].GetNumberValue())
}

func TestValidateToken_Rejects(t *testing.T) {
	conn := setupClient(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		code  codes.Code
	}{
		{"missing", "", codes.InvalidArgument},
		{"invalid", "bad", codes.Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := structpb.NewStruct(map[string]any{"token": tt.token})
			require.NoError(t, err)
			err = conn.Invoke(ctx, "/sso.v1.TokenService/ValidateToken", req, &structpb.Struct{})
			require.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestGetPublicKeys_HMACHasNone(t *testing.T) {
	conn := setupClient(t)

	resp := &structpb.Struct{}
	require.NoError(t, conn.Invoke(context.Background(), "/sso.v1.TokenService/GetPublicKeys", &emptypb.Empty{}, resp))
	require.Equal(t, "HS256", resp.GetFields()["algorithm"].GetStringValue())
	require.Empty(t, resp.GetFields()["keys"].GetListValue().GetValues())
}
