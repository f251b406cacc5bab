package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/models"
)

func (h *Handler) listTenants(c *gin.Context) {
	tenants, err := h.Store.SearchTenants(c.Query("propertyId"), c.Query("status"), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tenants)
}

func (h *Handler) getTenant(c *gin.Context) {
	t, err := h.Store.Tenants.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

func (h *Handler) createTenant(c *gin.Context) {
	var t models.Tenant
	if !h.bind(c, &t) {
		return
	}
	t.ID = common.GenerateID()
	t.OnboardingStatus = models.StatusNotStarted
	t.CreatedAt = common.Now()
	if err := h.checkTenant(&t); err != nil {
		h.fail(c, err)
		return
	}

	created, err := h.Store.Tenants.Insert(t)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "tenant/"+created.ID, map[string]interface{}{"name": created.FullName()})
	ok(c, http.StatusCreated, created)
}

// updateTenant replaces the editable fields. The onboarding status is only
// changed through the onboarding endpoints.
func (h *Handler) updateTenant(c *gin.Context) {
	var in models.Tenant
	if !h.bind(c, &in) {
		return
	}
	id := c.Param("id")
	current, err := h.Store.Tenants.Get(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	in.ID, in.CreatedAt, in.OnboardingStatus = current.ID, current.CreatedAt, current.OnboardingStatus
	if err := h.checkTenant(&in); err != nil {
		h.fail(c, err)
		return
	}

	updated, err := h.Store.Tenants.Update(id, func(t *models.Tenant) error {
		*t = in
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "tenant/"+id, nil)
	ok(c, http.StatusOK, updated)
}

// deleteTenant refuses while leases point at the tenant and drops its checkpoints
func (h *Handler) deleteTenant(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Store.Tenants.Get(id); err != nil {
		h.fail(c, err)
		return
	}
	leases, err := h.Store.Leases.Find(func(l *models.Lease) bool { return l.TenantID == id })
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(leases) > 0 {
		h.fail(c, common.ErrAlreadyExistsError("tenant still has leases"))
		return
	}

	if err := h.Store.Tenants.Delete(id); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Onboarding.Forget(id); err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionDelete, "tenant/"+id, nil)
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) checkTenant(t *models.Tenant) error {
	t.FirstName = strings.TrimSpace(t.FirstName)
	t.LastName = strings.TrimSpace(t.LastName)
	t.PaymentRef = strings.TrimSpace(t.PaymentRef)
	if err := t.Validate(); err != nil {
		return err
	}
	if err := h.requireProperty(t.PropertyID); err != nil {
		return err
	}
	return h.checkPaymentRef(t.PaymentRef, t.ID)
}

func (h *Handler) listOrgs(c *gin.Context) {
	propertyID := c.Query("propertyId")
	orgs, err := h.Store.Orgs.Find(func(o *models.TenantOrg) bool {
		return propertyID == "" || o.PropertyID == propertyID
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, orgs)
}

func (h *Handler) getOrg(c *gin.Context) {
	o, err := h.Store.Orgs.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

func (h *Handler) createOrg(c *gin.Context) {
	var o models.TenantOrg
	if !h.bind(c, &o) {
		return
	}
	o.ID = common.GenerateID()
	o.OnboardingStatus = models.StatusNotStarted
	o.CreatedAt = common.Now()
	if err := h.checkOrg(&o); err != nil {
		h.fail(c, err)
		return
	}

	created, err := h.Store.Orgs.Insert(o)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "org/"+created.ID, map[string]interface{}{"name": created.Name})
	ok(c, http.StatusCreated, created)
}

func (h *Handler) updateOrg(c *gin.Context) {
	var in models.TenantOrg
	if !h.bind(c, &in) {
		return
	}
	id := c.Param("id")
	current, err := h.Store.Orgs.Get(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	in.ID, in.CreatedAt, in.OnboardingStatus = current.ID, current.CreatedAt, current.OnboardingStatus
	if err := h.checkOrg(&in); err != nil {
		h.fail(c, err)
		return
	}

	updated, err := h.Store.Orgs.Update(id, func(o *models.TenantOrg) error {
		*o = in
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "org/"+id, nil)
	ok(c, http.StatusOK, updated)
}

func (h *Handler) deleteOrg(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Store.Orgs.Get(id); err != nil {
		h.fail(c, err)
		return
	}
	leases, err := h.Store.Leases.Find(func(l *models.Lease) bool { return l.OrgID == id })
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(leases) > 0 {
		h.fail(c, common.ErrAlreadyExistsError("organisation still has leases"))
		return
	}

	if err := h.Store.Orgs.Delete(id); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Onboarding.Forget(id); err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionDelete, "org/"+id, nil)
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) checkOrg(o *models.TenantOrg) error {
	o.Name = strings.TrimSpace(o.Name)
	o.PaymentRef = strings.TrimSpace(o.PaymentRef)
	units := o.Units[:0]
	for _, u := range o.Units {
		if u = strings.TrimSpace(u); u != "" {
			units = append(units, u)
		}
	}
	o.Units = common.RemoveDuplicates(units)
	if err := o.Validate(); err != nil {
		return err
	}
	if err := h.requireProperty(o.PropertyID); err != nil {
		return err
	}
	return h.checkPaymentRef(o.PaymentRef, o.ID)
}

// checkPaymentRef rejects a reference already used by another tenant or
// org, since bank matching relies on it being unique
func (h *Handler) checkPaymentRef(ref, selfID string) error {
	if ref == "" {
		return nil
	}
	key := common.NormalizeKey(ref)
	tenants, err := h.Store.Tenants.Find(func(t *models.Tenant) bool {
		return t.ID != selfID && common.NormalizeKey(t.PaymentRef) == key
	})
	if err != nil {
		return err
	}
	orgs, err := h.Store.Orgs.Find(func(o *models.TenantOrg) bool {
		return o.ID != selfID && common.NormalizeKey(o.PaymentRef) == key
	})
	if err != nil {
		return err
	}
	if len(tenants)+len(orgs) > 0 {
		return common.ErrAlreadyExistsError("paymentRef " + ref + " is already in use")
	}
	return nil
}
