package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/models"
)

func (h *Handler) listLeases(c *gin.Context) {
	tenantID, orgID := c.Query("tenantId"), c.Query("orgId")
	propertyID, status := c.Query("propertyId"), c.Query("status")
	leases, err := h.Store.Leases.Find(func(l *models.Lease) bool {
		return (tenantID == "" || l.TenantID == tenantID) &&
			(orgID == "" || l.OrgID == orgID) &&
			(propertyID == "" || l.PropertyID == propertyID) &&
			(status == "" || string(l.Status) == status)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, leases)
}

func (h *Handler) getLease(c *gin.Context) {
	l, err := h.Store.Leases.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

func (h *Handler) createLease(c *gin.Context) {
	var l models.Lease
	if !h.bind(c, &l) {
		return
	}
	l.ID = common.GenerateID()
	l.CreatedAt = common.Now()
	if l.Status == "" {
		l.Status = models.LeaseDraft
	}
	if err := h.checkLease(&l); err != nil {
		h.fail(c, err)
		return
	}

	created, err := h.Store.Leases.Insert(l)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "lease/"+created.ID, map[string]interface{}{"party": created.PartyID(), "unit": created.Unit})
	ok(c, http.StatusCreated, created)
}

func (h *Handler) updateLease(c *gin.Context) {
	var in models.Lease
	if !h.bind(c, &in) {
		return
	}
	id := c.Param("id")
	current, err := h.Store.Leases.Get(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	in.ID, in.CreatedAt = current.ID, current.CreatedAt
	if in.Status == "" {
		in.Status = current.Status
	}
	if err := h.checkLease(&in); err != nil {
		h.fail(c, err)
		return
	}

	updated, err := h.Store.Leases.Update(id, func(l *models.Lease) error {
		*l = in
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "lease/"+id, nil)
	ok(c, http.StatusOK, updated)
}

type endLeaseRequest struct {
	EndDate string `json:"endDate"`
}

// endLease marks a lease ended on the given date, today when omitted
func (h *Handler) endLease(c *gin.Context) {
	var req endLeaseRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}
	if req.EndDate == "" {
		req.EndDate = h.now().UTC().Format(common.DateLayout)
	}

	id := c.Param("id")
	updated, err := h.Store.Leases.Update(id, func(l *models.Lease) error {
		if l.Status == models.LeaseEnded {
			return common.ErrAlreadyExistsError("lease has already ended")
		}
		l.EndDate = req.EndDate
		l.Status = models.LeaseEnded
		return l.Validate()
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "lease/"+id, map[string]interface{}{"status": models.LeaseEnded, "endDate": updated.EndDate})
	ok(c, http.StatusOK, updated)
}

// checkLease validates the lease and that its party and property exist
func (h *Handler) checkLease(l *models.Lease) error {
	l.Unit = strings.TrimSpace(l.Unit)
	if err := l.Validate(); err != nil {
		return err
	}
	if err := h.requireProperty(l.PropertyID); err != nil {
		return err
	}
	subjectType, id := "tenant", l.TenantID
	if l.OrgID != "" {
		subjectType, id = "org", l.OrgID
	}
	exists, err := h.Store.SubjectExists(subjectType, id)
	if err != nil {
		return err
	}
	if !exists {
		return common.ErrInvalidInputf("%s %q does not exist", subjectType, id)
	}
	return nil
}
