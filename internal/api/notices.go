package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/models"
	"property-manager/internal/notify"
)

func (h *Handler) listNotices(c *gin.Context) {
	tenantID := c.Query("tenantId")
	notices, err := h.Store.Notices.Find(func(n *models.Notice) bool {
		return tenantID == "" || n.TenantID == tenantID
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	sort.SliceStable(notices, func(i, j int) bool { return notices[i].CreatedAt.After(notices[j].CreatedAt) })
	ok(c, http.StatusOK, notices)
}

func (h *Handler) getNotice(c *gin.Context) {
	n, err := h.Store.Notices.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, n)
}

// createNotice stores a draft; sending is a separate step
func (h *Handler) createNotice(c *gin.Context) {
	var n models.Notice
	if !h.bind(c, &n) {
		return
	}
	n.ID = common.GenerateID()
	n.Status = models.NoticeDraft
	n.ProviderRef, n.Error, n.SentAt = "", "", nil
	n.CreatedAt = common.Now()
	n.Subject = strings.TrimSpace(n.Subject)
	if n.Kind == "" {
		n.Kind = "general"
	}
	if n.Channel == "" {
		n.Channel = "sms"
	}
	if err := n.Validate(); err != nil {
		h.fail(c, err)
		return
	}
	if err := notify.CheckBody(smsText(n)); err != nil {
		h.fail(c, err)
		return
	}

	tenant, err := h.Store.Tenants.Get(n.TenantID)
	if err != nil {
		h.fail(c, common.ErrInvalidInputf("tenant %q does not exist", n.TenantID))
		return
	}
	if n.PropertyID == "" {
		n.PropertyID = tenant.PropertyID
	}

	created, err := h.Store.Notices.Insert(n)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "notice/"+created.ID, map[string]interface{}{"tenant": created.TenantID, "kind": created.Kind})
	ok(c, http.StatusCreated, created)
}

// sendNotice delivers a draft or failed notice by SMS to the tenant's phone
// and stores the outcome on the notice
func (h *Handler) sendNotice(c *gin.Context) {
	id := c.Param("id")
	n, err := h.Store.Notices.Get(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if n.Status == models.NoticeSent {
		h.fail(c, common.ErrAlreadyExistsError("notice has already been sent"))
		return
	}
	tenant, err := h.Store.Tenants.Get(n.TenantID)
	if err != nil {
		h.fail(c, err)
		return
	}

	ref, sendErr := h.SMS.Send(c.Request.Context(), notify.NormalizePhone(tenant.Phone), smsText(n))
	if h.Metrics != nil {
		h.Metrics.RecordSMS(sendErr)
	}

	now := common.Now()
	updated, err := h.Store.Notices.Update(id, func(rec *models.Notice) error {
		if sendErr != nil {
			rec.Status = models.NoticeFailed
			rec.Error = sendErr.Error()
			return nil
		}
		rec.Status = models.NoticeSent
		rec.ProviderRef = ref
		rec.Error = ""
		rec.SentAt = &now
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if sendErr != nil {
		h.fail(c, sendErr)
		return
	}
	h.record(c, audit.ActionNoticeSent, "notice/"+id, map[string]interface{}{"tenant": n.TenantID, "ref": ref})
	ok(c, http.StatusOK, updated)
}

func smsText(n models.Notice) string {
	if n.Subject == "" {
		return n.Body
	}
	return n.Subject + ": " + n.Body
}
