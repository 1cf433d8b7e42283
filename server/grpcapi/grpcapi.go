// Package grpcapi exposes token verification to downstream services over gRPC
package grpcapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/users"
)

const (
	ServiceName = "sso.v1.TokenService"

	methodValidateToken = "/" + ServiceName + "/ValidateToken"
	methodGetPublicKeys = "/" + ServiceName + "/GetPublicKeys"
)

// TokenVerifier is the part of the auth service the gRPC surface needs
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, raw string) (*token.Claims, *users.User, error)
	Issuer() *token.Issuer
}

type TokenService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKeys(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type TokenServer struct {
	verifier TokenVerifier
}

func NewTokenServer(verifier TokenVerifier) *TokenServer {
	return &TokenServer{verifier: verifier}
}

// NewServer builds a gRPC server carrying the token service and the standard health service
func NewServer(verifier TokenVerifier) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)
	Register(srv, NewTokenServer(verifier))
	return srv
}

func Register(server grpc.ServiceRegistrar, svc TokenService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*TokenService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    unaryHandler(methodValidateToken, func() *structpb.Struct { return &structpb.Struct{} }, svc.ValidateToken),
			},
			{
				MethodName: "GetPublicKeys",
				Handler:    unaryHandler(methodGetPublicKeys, func() *emptypb.Empty { return &emptypb.Empty{} }, svc.GetPublicKeys),
			},
		},
		Streams: []grpc.StreamDesc{},
	}, svc)
}

func (s *TokenServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := req.GetFields()["token"].GetStringValue()
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, user, err := s.verifier.VerifyAccessToken(ctx, raw)
	if err != nil || user == nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}
	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"user_id":    user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"expires_at": expiresAt,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

// GetPublicKeys returns the JWKS. HMAC deployments have no public keys and return an empty set.
func (s *TokenServer) GetPublicKeys(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	jwks, ok, err := s.verifier.Issuer().JWKS()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get keys: %v", err)
	}
	keys := []any{}
	if ok {
		// structpb only accepts plain maps and slices
		b, err := json.Marshal(jwks.Keys)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode keys: %v", err)
		}
		if err := json.Unmarshal(b, &keys); err != nil {
			return nil, status.Errorf(codes.Internal, "encode keys: %v", err)
		}
	}
	resp, err := structpb.NewStruct(map[string]any{
		"algorithm": s.verifier.Issuer().Algorithm(),
		"keys":      keys,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func unaryHandler[Req any, PReq interface{ *Req }](
	fullMethod string,
	newReq func() PReq,
	call func(context.Context, PReq) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := newReq()
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(PReq)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Info().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC request")
	return resp, err
}
