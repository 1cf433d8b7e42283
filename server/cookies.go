package server

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/internal/config"
)

// cookieJar writes and reads the signed, HttpOnly cookies of the SSO handoff.
// Values are securecookie encoded: the MAC covers the cookie name and a timestamp,
// and a value older than the cookie's max age is rejected on read.
type cookieJar struct {
	hashKey []byte
	domain  string
	secure  bool
}

func newCookieJar(cfg config.CookieConfig) *cookieJar {
	return &cookieJar{
		hashKey: []byte(cfg.GetCookieSecret()),
		domain:  cfg.GetCookieDomain(),
		secure:  cfg.GetSecureCookies(),
	}
}

// codec returns an encoder whose timestamp check matches the cookie lifetime.
// A zero max age means a session cookie, which gets no timestamp limit.
func (j *cookieJar) codec(settings config.CookieSettings) *securecookie.SecureCookie {
	return securecookie.New(j.hashKey, nil).MaxAge(int(settings.MaxAge.Seconds()))
}

func (j *cookieJar) set(w http.ResponseWriter, settings config.CookieSettings, value string) {
	encoded, err := j.codec(settings).Encode(settings.Name, value)
	if err != nil {
		log.Err(err).Str("cookie", settings.Name).Msg("Failed to encode cookie")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     settings.Name,
		Value:    encoded,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(settings.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: settings.SameSite,
	})
}

// get returns the verified value of a cookie. Missing, malformed, expired and forged cookies all read as "".
func (j *cookieJar) get(r *http.Request, settings config.CookieSettings) string {
	c, err := r.Cookie(settings.Name)
	if err != nil {
		return ""
	}
	var value string
	if err := j.codec(settings).Decode(settings.Name, c.Value, &value); err != nil {
		return ""
	}
	return value
}

func (j *cookieJar) clear(w http.ResponseWriter, settings config.CookieSettings) {
	http.SetCookie(w, &http.Cookie{
		Name:     settings.Name,
		Value:    "",
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: settings.SameSite,
	})
}
