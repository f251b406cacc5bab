// Package api serves the JSON API and the server-rendered pages.
package api

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"property-manager/internal/audit"
	"property-manager/internal/auth"
	"property-manager/internal/datasets"
	"property-manager/internal/health"
	"property-manager/internal/ledger"
	"property-manager/internal/metrics"
	"property-manager/internal/middleware"
	"property-manager/internal/models"
	"property-manager/internal/notify"
	"property-manager/internal/onboarding"
	"property-manager/internal/reports"
	"property-manager/internal/storage/block"
	"property-manager/internal/store"
)

// Deps are the services the handlers work against
type Deps struct {
	Store      *store.Store
	Ledger     *ledger.Store
	Blobs      block.Storage
	Auth       *auth.Authenticator
	Onboarding *onboarding.Service
	Reports    *reports.Builder
	Datasets   *datasets.Service
	SMS        notify.Sender
	Audit      *audit.Recorder
	Metrics    *metrics.Metrics
	Health     *health.Checker
	Templates  *template.Template
	Logger     *zap.Logger

	CookieSecure   bool
	MaxUploadBytes int64
	LoginRate      float64
	LoginBurst     int
}

// Handler implements every route
type Handler struct {
	Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates the handler set
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 20 << 20
	}
	return &Handler{Deps: d, logger: d.Logger, now: time.Now}
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(d Deps) *gin.Engine {
	h := NewHandler(d)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID(), middleware.Recovery(h.logger), middleware.Logging(h.logger))
	if h.Metrics != nil {
		r.Use(middleware.Metrics(h.Metrics))
	}
	r.Use(middleware.SessionAuth(h.Auth))

	r.NoRoute(func(c *gin.Context) { middleware.Abort(c, http.StatusNotFound, "not found") })
	r.NoMethod(func(c *gin.Context) { middleware.Abort(c, http.StatusMethodNotAllowed, "method not allowed") })

	if h.Health != nil {
		r.GET("/health", gin.WrapH(h.Health))
	}
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	limiter := middleware.NewRateLimiter(h.LoginRate, h.LoginBurst, h.logger)

	api := r.Group("/api")
	api.POST("/auth/login", limiter.Limit(), h.login)
	api.POST("/auth/logout", h.logout)

	viewer := api.Group("", middleware.RequireRole(models.RoleViewer))
	manager := api.Group("", middleware.RequireRole(models.RoleManager))
	admin := api.Group("", middleware.RequireRole(models.RoleAdmin))

	viewer.GET("/auth/me", h.me)

	viewer.GET("/properties", h.listProperties)
	viewer.GET("/properties/:id", h.getProperty)
	manager.POST("/properties", h.createProperty)
	manager.PUT("/properties/:id", h.updateProperty)
	manager.DELETE("/properties/:id", h.deleteProperty)

	viewer.GET("/tenants", h.listTenants)
	viewer.GET("/tenants/:id", h.getTenant)
	manager.POST("/tenants", h.createTenant)
	manager.PUT("/tenants/:id", h.updateTenant)
	manager.DELETE("/tenants/:id", h.deleteTenant)

	viewer.GET("/orgs", h.listOrgs)
	viewer.GET("/orgs/:id", h.getOrg)
	manager.POST("/orgs", h.createOrg)
	manager.PUT("/orgs/:id", h.updateOrg)
	manager.DELETE("/orgs/:id", h.deleteOrg)

	viewer.GET("/leases", h.listLeases)
	viewer.GET("/leases/:id", h.getLease)
	manager.POST("/leases", h.createLease)
	manager.PUT("/leases/:id", h.updateLease)
	manager.POST("/leases/:id/end", h.endLease)

	viewer.GET("/onboarding", h.listOnboarding)
	viewer.GET("/onboarding/:kind/:id", h.getOnboarding)
	manager.PUT("/onboarding/:kind/:id/checkpoints", h.updateCheckpoints)
	manager.PUT("/onboarding/:kind/:id/status", h.setOnboardingStatus)

	viewer.GET("/documents", h.listDocuments)
	viewer.GET("/documents/:id/download", h.downloadDocument)
	manager.POST("/documents", h.uploadDocument)
	manager.DELETE("/documents/:id", h.deleteDocument)

	viewer.GET("/notices", h.listNotices)
	viewer.GET("/notices/:id", h.getNotice)
	manager.POST("/notices", h.createNotice)
	manager.POST("/notices/:id/send", h.sendNotice)

	viewer.GET("/ledger/transactions", h.listTransactions)
	manager.POST("/ledger/import", h.importTransactions)
	manager.PUT("/ledger/transactions/:id/match", h.matchTransaction)
	manager.POST("/ledger/rematch", h.rematch)

	viewer.GET("/payments", h.listPayments)
	manager.POST("/payments", h.createPayment)
	manager.DELETE("/payments/:id", h.deletePayment)

	viewer.GET("/meter-readings", h.listReadings)
	manager.POST("/meter-readings", h.createReading)

	viewer.GET("/reports", h.listReports)
	viewer.GET("/reports/:name", h.exportReport)

	viewer.GET("/datasets", h.listDatasets)
	viewer.GET("/datasets/:id", h.getDataset)
	viewer.GET("/datasets/:id/preview", h.previewDataset)
	viewer.GET("/datasets/:id/download", h.downloadDataset)
	manager.POST("/datasets", h.uploadDataset)
	manager.POST("/datasets/snapshot", h.snapshotDataset)
	manager.DELETE("/datasets/:id", h.deleteDataset)

	viewer.GET("/settings", h.getSettings)
	admin.PUT("/settings", h.updateSettings)

	admin.GET("/admin/users", h.listUsers)
	admin.POST("/admin/users", h.createUser)
	admin.DELETE("/admin/users/:username", h.deleteUser)
	admin.GET("/admin/audit", h.listAudit)

	if h.Templates != nil {
		h.registerPages(r, limiter)
	}
	return r
}

// record publishes an audit event for the current user
func (h *Handler) record(c *gin.Context, action, subject string, details map[string]interface{}) {
	h.Audit.Record(c.Request.Context(), action, middleware.Actor(c), subject, details)
}
