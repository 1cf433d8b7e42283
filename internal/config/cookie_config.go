package config

import (
	"net/http"
	"strings"
	"time"
)

// CookieSettings describes one cookie the SSO broker writes
type CookieSettings struct {
	Name     string
	SameSite http.SameSite
	MaxAge   time.Duration
}

type CookieConfig interface {
	GetAuthRequestCookie() CookieSettings
	GetSSOCookie() CookieSettings
	GetServiceURLCookie() CookieSettings
	GetCookieSecret() string
	GetCookieDomain() string
	GetSecureCookies() bool
}

const (
	authRequestCookieVar = "AUTH_REQUEST_COOKIE"
	ssoCookieVar         = "SSO_COOKIE"
	serviceURLCookieVar  = "SERVICE_URL_COOKIE"
	cookieSecretVar      = "COOKIE_SECRET"
)

type Cookies struct {
	src values
}

var _ CookieConfig = Cookies{}

func (c Cookies) GetAuthRequestCookie() CookieSettings {
	return c.settings(authRequestCookieVar, 10*time.Minute)
}

func (c Cookies) GetSSOCookie() CookieSettings {
	return c.settings(ssoCookieVar, 5*time.Minute)
}

func (c Cookies) GetServiceURLCookie() CookieSettings {
	return c.settings(serviceURLCookieVar, 10*time.Minute)
}

func (c Cookies) GetCookieSecret() string {
	return c.src.str(cookieSecretVar, "")
}

func (c Cookies) GetCookieDomain() string {
	return c.src.str("COOKIE_DOMAIN", "")
}

func (c Cookies) GetSecureCookies() bool {
	return c.src.boolean("COOKIE_SECURE", !strings.EqualFold(c.src.str(envVar, devEnv), devEnv))
}

// settings reads NAME, NAME_SAMESITE and NAME_MAX_AGE. Cookies default to Lax so they
// survive the cross-site top-level navigation between the auth UI and a service UI.
func (c Cookies) settings(prefix string, defaultMaxAge time.Duration) CookieSettings {
	return CookieSettings{
		Name:     c.src.str(prefix, ""),
		SameSite: parseSameSite(c.src.str(prefix+"_SAMESITE", "lax")),
		MaxAge:   c.src.duration(prefix+"_MAX_AGE", defaultMaxAge),
	}
}

func (c Cookies) missing() []string {
	var problems []string
	for _, name := range []string{authRequestCookieVar, ssoCookieVar, serviceURLCookieVar} {
		if c.src.str(name, "") == "" {
			problems = append(problems, name+" is required")
		}
	}
	if secret := c.GetCookieSecret(); secret == "" {
		problems = append(problems, cookieSecretVar+" is required")
	} else if len(secret) < 32 {
		problems = append(problems, cookieSecretVar+" must be at least 32 characters")
	}
	return problems
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
