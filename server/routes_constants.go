package server

const (
	RouteUsers                = "/users"
	RouteUsersNew             = "/users/new"
	RouteUsersMe              = "/users/me"
	RouteRefreshToken         = "/users/refresh-token"
	RouteLogout               = "/users/logout"
	RoutePasswordReset        = "/users/password-reset"
	RoutePasswordResetApprove = "/users/password-reset/approve"
	RoutePasswordResetDone    = "/users/password-reset/complete"

	RouteSSO         = "/sso"
	RouteSSORedirect = "/sso-redirect"
	RouteSSOToken    = "/sso-token"

	RouteServices    = "/services"
	RouteServiceLogo = "/services/{id}/logo"

	RouteWellKnownOpenID = "/.well-known/openid-configuration"
	RouteWellKnownJWKS   = "/.well-known/jwks.json"
	RouteHealth          = "/healthz"
)
