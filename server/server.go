package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/auth"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/services"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP surface drives
type Dependencies struct {
	Auth      *auth.Service
	Catalogue *services.Catalogue
	Logos     services.LogoStore // Optional, logo route answers 404 without it
	Health    []Pinger
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	router    chi.Router
	routes    []string
	config    config.Config
	auth      *auth.Service
	catalogue *services.Catalogue
	logos     services.LogoStore
	health    []Pinger
	cookies   *cookieJar
}

func New(cfg config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if deps.Catalogue == nil {
		return nil, errors.New("[Server New] service catalogue is required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		router:    chi.NewRouter(),
		config:    cfg,
		auth:      deps.Auth,
		catalogue: deps.Catalogue,
		logos:     deps.Logos,
		health:    deps.Health,
		cookies:   newCookieJar(cfg),
	}

	s.router.Use(
		middleware.RequestID,
		handlerMiddleware(s.LoggingMiddleware),
		handlerMiddleware(s.RecoverMiddleware),
		handlerMiddleware(s.CorsMiddleware),
	)
	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	method, path := splitPattern(pattern)
	s.routes = append(s.routes, pattern)
	if method == "" {
		s.router.Handle(path, handler)
		return
	}
	s.router.Method(method, path, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(pattern, http.HandlerFunc(handler))
}

func (s *Server) logRoutes() {
	if !s.config.IsDev() {
		return
	}
	for _, route := range s.routes {
		method, path := splitPattern(route)
		log.Debug().Str("method", method).Str("path", path).Msg("Route registered")
	}
}

// splitPattern splits "METHOD /path" into its parts. A pattern without a method matches every method.
func splitPattern(pattern string) (method, path string) {
	parts := strings.SplitN(pattern, " ", 2)
	if len(parts) > 1 {
		return parts[0], parts[1]
	}
	return "", parts[0]
}
