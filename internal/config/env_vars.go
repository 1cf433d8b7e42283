package config

import (
	"strings"
)

const (
	portEnvVar     = "PORT"
	grpcPortEnvVar = "GRPC_PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	authUIURLVar   = "AUTH_UI_URL"
	logLevelVar    = "LOG_LEVEL"
	envVar         = "ENV"

	devEnv = "DEV"
)

type EnvVars struct {
	src values
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	return addrFromPort(e.src.str(portEnvVar, "8080"))
}

// GetGRPCPort returns an empty string when the gRPC listener is disabled
func (e EnvVars) GetGRPCPort() string {
	return addrFromPort(e.src.str(grpcPortEnvVar, ""))
}

func (e EnvVars) GetAppName() string {
	return e.src.str(appNameVar, "Go SSO Server")
}

// GetBaseURL returns the public base URL of the SSO server (e.g., "https://auth.example.com").
// It is used as the token issuer.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.src.str(baseURLVar, "http://localhost:8080"), "/")
}

// GetAuthUIURL returns the login page that service UIs are sent to
func (e EnvVars) GetAuthUIURL() string {
	return e.src.str(authUIURLVar, "http://localhost:3000/login")
}

func (e EnvVars) GetLogLevel() string {
	return e.src.str(logLevelVar, "info")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.str(envVar, devEnv))
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == devEnv
}

func addrFromPort(port string) string {
	if port == "" || strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
