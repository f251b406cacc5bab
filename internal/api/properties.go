package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/models"
)

func (h *Handler) listProperties(c *gin.Context) {
	props, err := h.Store.Properties.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, props)
}

func (h *Handler) getProperty(c *gin.Context) {
	p, err := h.Store.Properties.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (h *Handler) createProperty(c *gin.Context) {
	var p models.Property
	if !h.bind(c, &p) {
		return
	}
	p.ID = common.GenerateID()
	p.Name = strings.TrimSpace(p.Name)
	p.CreatedAt = common.Now()
	if err := p.Validate(); err != nil {
		h.fail(c, err)
		return
	}

	created, err := h.Store.Properties.Insert(p)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "property/"+created.ID, map[string]interface{}{"name": created.Name})
	ok(c, http.StatusCreated, created)
}

func (h *Handler) updateProperty(c *gin.Context) {
	var in models.Property
	if !h.bind(c, &in) {
		return
	}
	id := c.Param("id")
	updated, err := h.Store.Properties.Update(id, func(p *models.Property) error {
		in.ID, in.CreatedAt = p.ID, p.CreatedAt
		in.Name = strings.TrimSpace(in.Name)
		if err := in.Validate(); err != nil {
			return err
		}
		*p = in
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionUpdate, "property/"+id, nil)
	ok(c, http.StatusOK, updated)
}

// deleteProperty refuses while tenants, orgs or leases still point at the property
func (h *Handler) deleteProperty(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Store.Properties.Get(id); err != nil {
		h.fail(c, err)
		return
	}

	tenants, err := h.Store.Tenants.Find(func(t *models.Tenant) bool { return t.PropertyID == id })
	if err != nil {
		h.fail(c, err)
		return
	}
	orgs, err := h.Store.Orgs.Find(func(o *models.TenantOrg) bool { return o.PropertyID == id })
	if err != nil {
		h.fail(c, err)
		return
	}
	leases, err := h.Store.Leases.Find(func(l *models.Lease) bool { return l.PropertyID == id })
	if err != nil {
		h.fail(c, err)
		return
	}
	if n := len(tenants) + len(orgs) + len(leases); n > 0 {
		h.fail(c, common.ErrAlreadyExistsError("property is still referenced by tenants, organisations or leases"))
		return
	}

	if err := h.Store.Properties.Delete(id); err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionDelete, "property/"+id, nil)
	ok(c, http.StatusOK, gin.H{"id": id})
}

// requireProperty reports a missing property as invalid input
func (h *Handler) requireProperty(id string) error {
	exists, err := h.Store.SubjectExists("property", id)
	if err != nil {
		return err
	}
	if !exists {
		return common.ErrInvalidInputf("property %q does not exist", id)
	}
	return nil
}
