// ABOUTME: Signed session cookie carrying the opaque session token
// ABOUTME: Uses gorilla/securecookie so a tampered cookie is rejected before any store lookup

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "manga_admin_session"

// CookieCodec signs (and optionally encrypts) the session cookie.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

// NewCookieCodec creates a codec. An empty hashKey generates random keys,
// which invalidates existing cookies whenever the process restarts.
func NewCookieCodec(hashKey, blockKey []byte) *CookieCodec {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(0)
	return &CookieCodec{sc: sc}
}

// Set writes the session cookie.
func (c *CookieCodec) Set(w http.ResponseWriter, r *http.Request, token string, expires time.Time) error {
	encoded, err := c.sc.Encode(SessionCookieName, token)
	if err != nil {
		return fmt.Errorf("encoding session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Token extracts the session token from the request cookie.
func (c *CookieCodec) Token(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", ErrSessionNotFound
	}
	var token string
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return token, nil
}

// Clear expires the session cookie in the browser.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
