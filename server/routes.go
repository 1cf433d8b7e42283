package server

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	// Credentials and sessions
	s.RegisterRouteFunc("POST "+RouteUsers, ChainMiddleware(s.Login(), api...))
	s.RegisterRouteFunc("POST "+RouteUsersNew, ChainMiddleware(s.Register(), api...))
	s.RegisterRouteFunc("POST "+RouteRefreshToken, ChainMiddleware(s.RefreshToken(), api...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.Logout(), api...))
	s.RegisterRouteFunc("PUT "+RouteUsers, ChainMiddleware(s.UpdateProfile(), api...))
	s.RegisterRouteFunc("GET "+RouteUsersMe, ChainMiddleware(s.CurrentUser(), api...))

	// Password reset
	s.RegisterRouteFunc("POST "+RoutePasswordReset, ChainMiddleware(s.RequestPasswordReset(), api...))
	s.RegisterRouteFunc("POST "+RoutePasswordResetApprove, ChainMiddleware(s.ApprovePasswordReset(), api...))
	s.RegisterRouteFunc("POST "+RoutePasswordResetDone, ChainMiddleware(s.CompletePasswordReset(), api...))

	// SSO handoff
	s.RegisterRouteFunc("POST "+RouteSSO, ChainMiddleware(s.InitiateSSO(), api...))
	s.RegisterRouteFunc("POST "+RouteSSORedirect, ChainMiddleware(s.CompleteSSO(), api...))
	s.RegisterRouteFunc("GET "+RouteSSOToken, ChainMiddleware(s.ExchangeSSOToken(), api...))

	// Service catalogue
	s.RegisterRouteFunc("GET "+RouteServices, s.ListServices())
	s.RegisterRouteFunc("GET "+RouteServiceLogo, s.ServiceLogo())

	// Discovery and health
	s.RegisterRouteFunc("GET "+RouteWellKnownOpenID, s.WellKnownOpenIDConfig())
	s.RegisterRouteFunc("GET "+RouteWellKnownJWKS, s.WellKnownJWKS())
	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())
}
