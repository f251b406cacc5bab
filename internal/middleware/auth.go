package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"property-manager/internal/auth"
)

// SessionCookie is the name of the session cookie
const SessionCookie = "pm_session"

const claimsKey = "claims"

// SessionVerifier resolves a session token to its claims
type SessionVerifier interface {
	Authenticate(token string) (*auth.Claims, error)
}

// SessionAuth loads the session from the pm_session cookie or a Bearer
// header. It never rejects; RequireRole and RequirePage do.
func SessionAuth(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(SessionCookie)
		}
		if token != "" {
			if claims, err := v.Authenticate(token); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// GetClaims returns the session claims or nil
func GetClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// Actor is the username of the session, or "anonymous"
func Actor(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Username()
	}
	return "anonymous"
}

// RequireRole rejects requests without a session (401) or with a role
// ranked below required (403)
func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !auth.HasRole(claims.Role, required) {
			Abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequirePage redirects to loginPath when there is no session
func RequirePage(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClaims(c) == nil {
			c.Redirect(http.StatusSeeOther, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}
