package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/models"
)

const defaultAuditLimit = 100

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.Store.Settings.Load()
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, settings)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var settings models.Settings
	if !h.bind(c, &settings) {
		return
	}
	if err := settings.Validate(); err != nil {
		h.fail(c, err)
		return
	}
	saved, err := h.Store.Settings.Save(settings)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "settings", nil)
	ok(c, http.StatusOK, saved)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.Store.Users.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	ok(c, http.StatusOK, out)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.Auth.CreateUser(req.Username, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "user/"+user.Username, map[string]interface{}{"role": user.Role})
	ok(c, http.StatusCreated, user.Public())
}

func (h *Handler) deleteUser(c *gin.Context) {
	username := c.Param("username")
	if err := h.Auth.DeleteUser(username); err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionDelete, "user/"+username, nil)
	ok(c, http.StatusOK, gin.H{"username": username})
}

func (h *Handler) listAudit(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultAuditLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	events, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, events)
}
