package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/models"
	"property-manager/internal/onboarding"
)

func (h *Handler) listOnboarding(c *gin.Context) {
	views, err := h.Onboarding.List(models.SubjectKind(c.Query("kind")))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, views)
}

func (h *Handler) getOnboarding(c *gin.Context) {
	view, err := h.Onboarding.Get(models.SubjectKind(c.Param("kind")), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

func (h *Handler) updateCheckpoints(c *gin.Context) {
	var flags models.Checkpoints
	if !h.bind(c, &flags) {
		return
	}
	view, change, err := h.Onboarding.UpdateCheckpoints(models.SubjectKind(c.Param("kind")), c.Param("id"), flags)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "checkpoints/"+view.SubjectID, map[string]interface{}{"done": view.Progress.Done})
	h.recordChange(c, change)
	ok(c, http.StatusOK, view)
}

type statusRequest struct {
	Status models.OnboardingStatus `json:"status"`
}

func (h *Handler) setOnboardingStatus(c *gin.Context) {
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	view, change, err := h.Onboarding.SetStatus(models.SubjectKind(c.Param("kind")), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recordChange(c, change)
	ok(c, http.StatusOK, view)
}

func (h *Handler) recordChange(c *gin.Context, change *onboarding.Change) {
	if change == nil {
		return
	}
	h.record(c, audit.ActionStatusChange, string(change.Kind)+"/"+change.SubjectID, map[string]interface{}{
		"from": change.From,
		"to":   change.To,
	})
}
