package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/services"
	"github.com/jrsteele09/go-sso-server/sso"
)

func TestNewBroker_PendingRequestsUseRefreshWindow(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_DAYS", "3")
	t.Setenv("AUTH_REQUEST_COOKIE_MAX_AGE", "10m")

	cipher, err := sso.NewCipher("a-server-secret-of-sufficient-length")
	require.NoError(t, err)

	broker := newBroker(config.New(), cipher, services.NewEmptyCatalogue("services.yaml"))
	require.Equal(t, 3*24*time.Hour, broker.RequestTTL())
}
