package handler

import (
	"net/http"
	"time"

	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/service"
)

// CookieConfig controls the session cookies.
//
// Secure cookies are also SameSite=None so a frontend on another origin
// (CORS_ORIGIN) can send them. Plain-HTTP development falls back to Lax,
// because browsers drop SameSite=None cookies that are not Secure.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if c.Secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	}
}

func (c CookieConfig) set(w http.ResponseWriter, tokens service.Tokens) {
	http.SetCookie(w, c.cookie(auth.AccessCookie, tokens.AccessToken, c.AccessTTL))
	http.SetCookie(w, c.cookie(auth.RefreshCookie, tokens.RefreshToken, c.RefreshTTL))
}

// clear expires both cookies. MaxAge -1 sends "Max-Age=0".
func (c CookieConfig) clear(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}
