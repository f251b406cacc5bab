package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/ledger"
	"property-manager/internal/middleware"
	"property-manager/internal/models"
	"property-manager/internal/onboarding"
)

const (
	loginPath      = "/login"
	dashboardRows  = 10
	ledgerPageRows = 200
)

var statusOptions = []models.OnboardingStatus{
	models.StatusNotStarted,
	models.StatusInProgress,
	models.StatusCompleted,
	models.StatusOnHold,
	models.StatusCancelled,
}

// ledgerRow is a transaction with its matched party resolved to a name
type ledgerRow struct {
	models.BankTransaction
	Party string
}

func (h *Handler) registerPages(r *gin.Engine, limiter *middleware.RateLimiter) {
	r.SetHTMLTemplate(h.Templates)

	r.GET(loginPath, h.loginPage)
	r.POST(loginPath, limiter.Limit(), h.loginSubmit)
	r.GET("/logout", h.logoutPage)

	pages := r.Group("", middleware.RequirePage(loginPath))
	pages.GET("/", h.dashboardPage)
	pages.GET("/tenants", h.tenantsPage)
	pages.GET("/tenants/:id", h.tenantPage)
	pages.GET("/onboarding", h.onboardingPage)
	pages.GET("/ledger", h.ledgerPage)
}

// render adds the session user and company name to every page
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = middleware.GetClaims(c)
	if settings, err := h.Store.Settings.Load(); err == nil {
		data["Company"] = settings.CompanyName
	}
	c.HTML(status, name, data)
}

func (h *Handler) pageError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= 500 {
		h.logger.Error("Page failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	h.render(c, status, "error.html", gin.H{"Title": "Error", "Status": status, "Message": clientMessage(err, status)})
}

func (h *Handler) loginPage(c *gin.Context) {
	if middleware.GetClaims(c) != nil {
		c.Redirect(http.StatusSeeOther, safeNext(c.Query("next")))
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Sign in", "Next": c.Query("next")})
}

func (h *Handler) loginSubmit(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	next := c.PostForm("next")

	user, token, err := h.Auth.Login(username, c.PostForm("password"))
	if err != nil {
		if common.IsErrorCode(err, common.ErrUnauthorized) {
			h.Audit.Record(c.Request.Context(), audit.ActionLoginFailed, username, "user/"+username, map[string]interface{}{"ip": c.ClientIP()})
		}
		h.render(c, StatusOf(err), "login.html", gin.H{
			"Title":    "Sign in",
			"Next":     next,
			"Username": username,
			"Error":    clientMessage(err, StatusOf(err)),
		})
		return
	}

	h.setSession(c, token)
	h.Audit.Record(c.Request.Context(), audit.ActionLogin, user.Username, "user/"+user.Username, map[string]interface{}{"ip": c.ClientIP()})
	c.Redirect(http.StatusSeeOther, safeNext(next))
}

func (h *Handler) logoutPage(c *gin.Context) {
	h.clearSession(c)
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *Handler) dashboardPage(c *gin.Context) {
	counts, err := h.Store.Counts()
	if err != nil {
		h.pageError(c, err)
		return
	}
	unmatched, err := h.Ledger.ListTransactions(c.Request.Context(), ledger.TransactionFilter{Unmatched: true, Limit: dashboardRows})
	if err != nil {
		h.pageError(c, err)
		return
	}
	views, err := h.Onboarding.List("")
	if err != nil {
		h.pageError(c, err)
		return
	}
	pending := []onboarding.View{}
	for _, v := range views {
		if v.Status != models.StatusCompleted && v.Status != models.StatusCancelled {
			pending = append(pending, v)
		}
	}

	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":     "Dashboard",
		"Counts":    counts,
		"Unmatched": unmatched,
		"Pending":   pending,
	})
}

func (h *Handler) tenantsPage(c *gin.Context) {
	query, status := c.Query("q"), c.Query("status")
	tenants, err := h.Store.SearchTenants(c.Query("propertyId"), status, query)
	if err != nil {
		h.pageError(c, err)
		return
	}
	sort.Slice(tenants, func(i, j int) bool {
		return strings.ToLower(tenants[i].FullName()) < strings.ToLower(tenants[j].FullName())
	})
	h.render(c, http.StatusOK, "tenants.html", gin.H{
		"Title":    "Tenants",
		"Tenants":  tenants,
		"Query":    query,
		"Status":   status,
		"Statuses": statusOptions,
	})
}

func (h *Handler) tenantPage(c *gin.Context) {
	id := c.Param("id")
	tenant, err := h.Store.Tenants.Get(id)
	if err != nil {
		h.pageError(c, err)
		return
	}
	view, err := h.Onboarding.Get(models.KindResidential, id)
	if err != nil {
		h.pageError(c, err)
		return
	}
	leases, err := h.Store.Leases.Find(func(l *models.Lease) bool { return l.TenantID == id })
	if err != nil {
		h.pageError(c, err)
		return
	}
	documents, err := h.Store.Documents.Find(func(d *models.Document) bool {
		return d.SubjectType == "tenant" && d.SubjectID == id
	})
	if err != nil {
		h.pageError(c, err)
		return
	}
	notices, err := h.Store.Notices.Find(func(n *models.Notice) bool { return n.TenantID == id })
	if err != nil {
		h.pageError(c, err)
		return
	}
	sort.Slice(notices, func(i, j int) bool { return notices[i].CreatedAt.After(notices[j].CreatedAt) })
	txs, err := h.Ledger.ListTransactions(c.Request.Context(), ledger.TransactionFilter{TenantID: id, Limit: ledgerPageRows})
	if err != nil {
		h.pageError(c, err)
		return
	}

	var property models.Property
	if p, err := h.Store.Properties.Get(tenant.PropertyID); err == nil {
		property = p
	}

	h.render(c, http.StatusOK, "tenant.html", gin.H{
		"Title":        tenant.FullName(),
		"Tenant":       tenant,
		"Property":     property,
		"Onboarding":   view,
		"Leases":       leases,
		"Documents":    documents,
		"Notices":      notices,
		"Transactions": txs,
	})
}

func (h *Handler) onboardingPage(c *gin.Context) {
	residential, err := h.Onboarding.List(models.KindResidential)
	if err != nil {
		h.pageError(c, err)
		return
	}
	commercial, err := h.Onboarding.List(models.KindCommercial)
	if err != nil {
		h.pageError(c, err)
		return
	}
	h.render(c, http.StatusOK, "onboarding.html", gin.H{
		"Title":       "Onboarding",
		"Residential": residential,
		"Commercial":  commercial,
	})
}

func (h *Handler) ledgerPage(c *gin.Context) {
	unmatched := c.Query("unmatched") == "true"
	txs, err := h.Ledger.ListTransactions(c.Request.Context(), ledger.TransactionFilter{Unmatched: unmatched, Limit: ledgerPageRows})
	if err != nil {
		h.pageError(c, err)
		return
	}
	rows := make([]ledgerRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, ledgerRow{BankTransaction: tx, Party: h.Store.PartyName(tx.TenantID, tx.OrgID)})
	}
	h.render(c, http.StatusOK, "ledger.html", gin.H{
		"Title":     "Ledger",
		"Rows":      rows,
		"Unmatched": unmatched,
	})
}

// safeNext only follows local redirects
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
