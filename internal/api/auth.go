package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      map[string]interface{} `json:"user"`
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expiresAt"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	user, token, err := h.Auth.Login(req.Username, req.Password)
	if err != nil {
		if common.IsErrorCode(err, common.ErrUnauthorized) {
			h.Audit.Record(c.Request.Context(), audit.ActionLoginFailed, req.Username, "user/"+req.Username, map[string]interface{}{"ip": c.ClientIP()})
		}
		h.fail(c, err)
		return
	}

	h.setSession(c, token)
	h.Audit.Record(c.Request.Context(), audit.ActionLogin, user.Username, "user/"+user.Username, map[string]interface{}{"ip": c.ClientIP()})
	ok(c, http.StatusOK, loginResponse{
		User:      user.Public(),
		Token:     token,
		ExpiresAt: h.now().Add(h.Auth.Tokens().TTL()).UTC(),
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.clearSession(c)
	ok(c, http.StatusOK, nil)
}

func (h *Handler) me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	data := gin.H{"username": claims.Username(), "role": claims.Role}
	if claims.ExpiresAt != nil {
		data["expiresAt"] = claims.ExpiresAt.Time
	}
	ok(c, http.StatusOK, data)
}

func (h *Handler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.Auth.Tokens().TTL().Seconds()), "/", "", h.CookieSecure, true)
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.CookieSecure, true)
}
