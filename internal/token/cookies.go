package token

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "cp_access"
	RefreshCookie = "cp_refresh"
	CSRFCookie    = "cp_csrf"
)

// CookieOptions mirrors the deploy-specific cookie settings from config.
// Max ages are in seconds, gin-style.
type CookieOptions struct {
	Domain        string
	Secure        bool
	SameSite      string
	AccessMaxAge  int
	RefreshMaxAge int
}

func sameSiteMode(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SetAuthCookies writes the full cookie triple: HTTP-only access and refresh
// cookies, plus the readable CSRF mirror the client echoes in a header.
func SetAuthCookies(c *gin.Context, opts CookieOptions, accessToken, refreshToken, csrfToken string) {
	c.SetSameSite(sameSiteMode(opts.SameSite))
	c.SetCookie(AccessCookie, accessToken, opts.AccessMaxAge, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshCookie, refreshToken, opts.RefreshMaxAge, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(CSRFCookie, csrfToken, opts.AccessMaxAge, "/", opts.Domain, opts.Secure, false)
}

// ClearAuthCookies expires the triple; called on logout and on every refresh
// failure so a broken session never lingers half-authenticated.
func ClearAuthCookies(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(sameSiteMode(opts.SameSite))
	c.SetCookie(AccessCookie, "", -1, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(CSRFCookie, "", -1, "/", opts.Domain, opts.Secure, false)
}

func NewCSRFToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
