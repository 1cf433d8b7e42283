package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewValidationError("email", "is required"), http.StatusBadRequest},
		{apperrors.Wrapf(apperrors.ErrAuthFailed, "bad password"), http.StatusBadRequest},
		{apperrors.ErrInvalidToken, http.StatusBadRequest},
		{apperrors.ErrConflict, http.StatusBadRequest},
		{apperrors.ErrNotAuthorized, http.StatusUnauthorized},
		{apperrors.ErrForbidden, http.StatusForbidden},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{http.ErrHandlerTimeout, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.Wrapf(apperrors.ErrInternal, "dsn=postgres://secret"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")

	rec = httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.NewValidationError("email", "is required"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "email: is required")
}

func TestCookieJar_SignedValues(t *testing.T) {
	jar := &cookieJar{hashKey: []byte("0123456789abcdef0123456789abcdef")}
	settings := config.CookieSettings{Name: "sso_req", SameSite: http.SameSiteLaxMode, MaxAge: time.Minute}

	rec := httptest.NewRecorder()
	jar.set(rec, settings, "https://service.example/app?x=1")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	require.Equal(t, 60, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	require.Equal(t, "https://service.example/app?x=1", jar.get(req, settings))

	// A value signed for another cookie name is rejected
	other := config.CookieSettings{Name: "sso_id"}
	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: "sso_id", Value: cookies[0].Value})
	require.Empty(t, jar.get(forged, other))

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: "sso_req", Value: "aGFja2Vk." + "sig"})
	require.Empty(t, jar.get(tampered, settings))

	// Re-sign with another key is rejected
	otherKey := &cookieJar{hashKey: []byte("fedcba9876543210fedcba9876543210")}
	require.Empty(t, otherKey.get(req, settings))
}

func TestCookieJar_RejectsExpiredValues(t *testing.T) {
	jar := &cookieJar{hashKey: []byte("0123456789abcdef0123456789abcdef")}
	settings := config.CookieSettings{Name: "sso_req", MaxAge: time.Second}

	rec := httptest.NewRecorder()
	jar.set(rec, settings, "request-id")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	require.Equal(t, "request-id", jar.get(req, settings))

	time.Sleep(2100 * time.Millisecond)
	require.Empty(t, jar.get(req, settings))
}

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{}
	h := s.RecoverMiddleware(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, bearerToken(req))
	req.Header.Set("Authorization", "bearer abc")
	require.Equal(t, "abc", bearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	require.Empty(t, bearerToken(req))
}
