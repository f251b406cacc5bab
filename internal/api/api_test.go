package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"property-manager/internal/audit"
	"property-manager/internal/auth"
	"property-manager/internal/config"
	"property-manager/internal/datasets"
	"property-manager/internal/ledger"
	"property-manager/internal/metrics"
	"property-manager/internal/middleware"
	"property-manager/internal/models"
	"property-manager/internal/notify"
	"property-manager/internal/onboarding"
	"property-manager/internal/reports"
	"property-manager/internal/storage/block"
	"property-manager/internal/store"
	"property-manager/internal/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	deps   Deps
	events *audit.MemoryPublisher
	tokens map[string]string
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	s, err := store.Open(filepath.Join(dir, "data"))
	require.NoError(t, err)
	l, err := ledger.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	blobs, err := block.NewLocalFS(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	engine, err := datasets.NewEngine()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	tmpl, err := web.Templates()
	require.NoError(t, err)

	tokens := auth.NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), "property-manager-test", time.Hour)
	authn := auth.NewAuthenticator(s.Users, tokens, 4)
	builder := reports.NewBuilder(s, l)
	events := audit.NewMemoryPublisher()

	deps := Deps{
		Store:      s,
		Ledger:     l,
		Blobs:      blobs,
		Auth:       authn,
		Onboarding: onboarding.NewService(s),
		Reports:    builder,
		Datasets:   datasets.NewService(s, blobs, engine, builder, logger),
		SMS:        notify.NewLogSender(logger),
		Audit:      audit.NewRecorder(events, logger),
		Metrics:    metrics.New(),
		Templates:  tmpl,
		Logger:     logger,
		LoginRate:  100,
		LoginBurst: 100,
	}

	ts := &testServer{t: t, router: NewRouter(deps), deps: deps, events: events, tokens: map[string]string{}}
	for _, role := range []string{models.RoleViewer, models.RoleManager, models.RoleAdmin} {
		_, err := authn.CreateUser(role, testPassword, role)
		require.NoError(t, err)
		_, token, err := authn.Login(role, testPassword)
		require.NoError(t, err)
		ts.tokens[role] = token
	}
	return ts
}

func (ts *testServer) request(role, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[role])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) json(role, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		r = bytes.NewReader(raw)
	}
	rec := ts.request(role, method, path, r, "application/json")
	var env envelope
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// create posts body as a manager and decodes the created record into out
func (ts *testServer) create(path string, body, out interface{}) {
	ts.t.Helper()
	rec, env := ts.json(models.RoleManager, http.MethodPost, path, body)
	require.Equal(ts.t, http.StatusCreated, rec.Code, env.Error)
	require.NoError(ts.t, json.Unmarshal(env.Data, out))
}

func (ts *testServer) seedTenant() (models.Property, models.Tenant) {
	var p models.Property
	ts.create("/api/properties", gin.H{"name": "Elm Court", "address": "1 Elm Street", "kind": "residential", "unitCount": 4}, &p)
	var tenant models.Tenant
	ts.create("/api/tenants", gin.H{
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"phone":      "+44 7700 900123",
		"propertyId": p.ID,
		"unit":       "1A",
		"paymentRef": "PM-1001",
	}, &tenant)
	return p, tenant
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.json("", http.MethodPost, "/api/auth/login", gin.H{"username": "manager", "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.OK)
	assert.NotContains(t, string(env.Data), "passwordHash")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	ts.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"username":"manager"`)

	rec, env = ts.json("", http.MethodPost, "/api/auth/login", gin.H{"username": "manager", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.OK)
	assert.Equal(t, "invalid credentials", env.Error)

	actions := []string{}
	for _, e := range ts.events.Events() {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, audit.ActionLogin)
	assert.Contains(t, actions, audit.ActionLoginFailed)
}

func TestRoles(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.json("", http.MethodGet, "/api/properties", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.OK)

	rec, _ = ts.json(models.RoleViewer, http.MethodGet, "/api/properties", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.json(models.RoleViewer, http.MethodPost, "/api/properties", gin.H{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = ts.json(models.RoleManager, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = ts.json(models.RoleAdmin, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"username":"admin"`)
	assert.NotContains(t, string(env.Data), "passwordHash")
}

func TestNotFoundEnvelope(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.json(models.RoleViewer, http.MethodGet, "/api/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.OK)

	rec, env = ts.json(models.RoleViewer, http.MethodGet, "/api/properties/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.OK)
	assert.NotEmpty(t, env.Error)
}

func TestPropertyAndTenantLifecycle(t *testing.T) {
	ts := newTestServer(t)
	p, tenant := ts.seedTenant()
	assert.Equal(t, models.StatusNotStarted, tenant.OnboardingStatus)

	rec, env := ts.json(models.RoleManager, http.MethodPost, "/api/properties", gin.H{"name": "No address", "kind": "residential"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "address")

	rec, _ = ts.json(models.RoleManager, http.MethodPost, "/api/properties", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = ts.json(models.RoleManager, http.MethodPost, "/api/tenants", gin.H{
		"firstName": "Grace", "lastName": "Hopper", "propertyId": p.ID, "paymentRef": "PM-1001",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, env.Error)

	rec, _ = ts.json(models.RoleManager, http.MethodPost, "/api/tenants", gin.H{
		"firstName": "Grace", "lastName": "Hopper", "propertyId": "missing",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.json(models.RoleManager, http.MethodDelete, "/api/properties/"+p.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = ts.json(models.RoleViewer, http.MethodGet, "/api/tenants?q=lovelace", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []models.Tenant
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, tenant.ID, found[0].ID)

	rec, _ = ts.json(models.RoleManager, http.MethodDelete, "/api/tenants/"+tenant.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.json(models.RoleManager, http.MethodDelete, "/api/properties/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.json(models.RoleViewer, http.MethodGet, "/api/properties/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOnboardingCheckpoints(t *testing.T) {
	ts := newTestServer(t)
	_, tenant := ts.seedTenant()

	path := "/api/onboarding/residential/" + tenant.ID
	rec, env := ts.json(models.RoleManager, http.MethodPut, path+"/checkpoints", gin.H{"applicationReceived": true})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var view onboarding.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, models.StatusInProgress, view.Status)

	rec, env = ts.json(models.RoleManager, http.MethodPut, path+"/status", gin.H{"status": "on_hold"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, models.StatusOnHold, view.Status)

	rec, _ = ts.json(models.RoleManager, http.MethodPut, path+"/status", gin.H{"status": "nonsense"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.json(models.RoleViewer, http.MethodGet, "/api/onboarding/residential/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentUploadAndDownload(t *testing.T) {
	ts := newTestServer(t)
	_, tenant := ts.seedTenant()

	body, ct := multipartBody(t, map[string]string{"subjectType": "tenant", "subjectId": tenant.ID}, "passport.txt", "passport scan")
	rec := ts.request(models.RoleManager, http.MethodPost, "/api/documents", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var doc models.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "passport.txt", doc.Name)
	assert.Equal(t, "manager", doc.UploadedBy)
	assert.Len(t, doc.Checksum, 64)

	rec = ts.request(models.RoleViewer, http.MethodGet, "/api/documents/"+doc.ID+"/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "passport scan", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "passport.txt")

	body, ct = multipartBody(t, map[string]string{"subjectType": "tenant", "subjectId": "missing"}, "a.txt", "x")
	rec = ts.request(models.RoleManager, http.MethodPost, "/api/documents", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, map[string]string{"subjectType": "tenant", "subjectId": tenant.ID}, "", "")
	rec = ts.request(models.RoleManager, http.MethodPost, "/api/documents", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t)
	ts.deps.MaxUploadBytes = 64
	ts.router = NewRouter(ts.deps)
	_, tenant := ts.seedTenant()

	body, ct := multipartBody(t, map[string]string{"subjectType": "tenant", "subjectId": tenant.ID}, "big.txt", strings.Repeat("x", 4096))
	rec := ts.request(models.RoleManager, http.MethodPost, "/api/documents", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
}

func TestNoticeSend(t *testing.T) {
	ts := newTestServer(t)
	_, tenant := ts.seedTenant()

	var notice models.Notice
	ts.create("/api/notices", gin.H{"tenantId": tenant.ID, "subject": "Rent", "body": "Rent is due on the 1st"}, &notice)
	assert.Equal(t, models.NoticeDraft, notice.Status)
	assert.Equal(t, tenant.PropertyID, notice.PropertyID)

	rec, env := ts.json(models.RoleManager, http.MethodPost, "/api/notices/"+notice.ID+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &notice))
	assert.Equal(t, models.NoticeSent, notice.Status)
	assert.True(t, strings.HasPrefix(notice.ProviderRef, "log-"))
	assert.NotNil(t, notice.SentAt)

	rec, _ = ts.json(models.RoleManager, http.MethodPost, "/api/notices/"+notice.ID+"/send", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = ts.json(models.RoleManager, http.MethodPost, "/api/notices", gin.H{"tenantId": "missing", "subject": "x", "body": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// subject and body together must fit in one message
	rec, env = ts.json(models.RoleManager, http.MethodPost, "/api/notices", gin.H{
		"tenantId": tenant.ID,
		"subject":  "Rent",
		"body":     strings.Repeat("x", notify.MaxBodyLength),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "limit is")
}

const bankCSV = `Date,Description,Amount
2024-03-01,FASTER PAYMENT PM-1001 RENT,950.00
2024-03-02,CARD PAYMENT TESCO,-12.50
2024-03-03,RENT UNIT 9Z,700.00
not-a-date,broken,1.00
`

func TestLedgerImportAndMatch(t *testing.T) {
	ts := newTestServer(t)
	_, tenant := ts.seedTenant()

	body, ct := multipartBody(t, nil, "statement.csv", bankCSV)
	rec := ts.request(models.RoleManager, http.MethodPost, "/api/ledger/import", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var result ledger.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 1, result.Matched)
	assert.Len(t, result.Errors, 1)

	// the same statement as a raw body is recognised as already imported
	rec = ts.request(models.RoleManager, http.MethodPost, "/api/ledger/import", strings.NewReader(bankCSV), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, result.Matched)

	rec, env = ts.json(models.RoleViewer, http.MethodGet, "/api/ledger/transactions?unmatched=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unmatched []models.BankTransaction
	require.NoError(t, json.Unmarshal(env.Data, &unmatched))
	require.Len(t, unmatched, 2)

	rec, env = ts.json(models.RoleManager, http.MethodPut, "/api/ledger/transactions/"+unmatched[0].ID+"/match", gin.H{"tenantId": tenant.ID})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var tx models.BankTransaction
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, tenant.ID, tx.TenantID)
	assert.Equal(t, ledger.MatchedManual, tx.MatchedBy)

	rec, _ = ts.json(models.RoleManager, http.MethodPut, "/api/ledger/transactions/"+unmatched[1].ID+"/match", gin.H{"tenantId": "missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.json(models.RoleViewer, http.MethodGet, "/api/ledger/transactions?from=March", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.json(models.RoleViewer, http.MethodGet, "/api/ledger/transactions?from=2024-03-02&to=2024-03-02", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentsAndReadings(t *testing.T) {
	ts := newTestServer(t)
	p, tenant := ts.seedTenant()

	var payment models.ManualPayment
	ts.create("/api/payments", gin.H{"tenantId": tenant.ID, "amount": "950.00", "paidOn": "2024-03-05", "method": "cash"}, &payment)
	assert.Equal(t, "manager", payment.RecordedBy)

	rec, env := ts.json(models.RoleManager, http.MethodPost, "/api/payments", gin.H{"tenantId": tenant.ID, "amount": "10", "paidOn": "05/03/2024", "method": "cash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "paidOn")

	rec, _ = ts.json(models.RoleManager, http.MethodPost, "/api/payments", gin.H{"amount": "10", "paidOn": "2024-03-05", "method": "cash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.json(models.RoleManager, http.MethodDelete, "/api/payments/"+payment.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.json(models.RoleManager, http.MethodDelete, "/api/payments/"+payment.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var reading models.MeterReading
	ts.create("/api/meter-readings", gin.H{"propertyId": p.ID, "meterNumber": "E-1", "kind": "electricity", "reading": "100.5", "readOn": "2024-03-01"}, &reading)
	rec, _ = ts.json(models.RoleManager, http.MethodPost, "/api/meter-readings", gin.H{"propertyId": p.ID, "meterNumber": "E-1", "kind": "electricity", "reading": "99", "readOn": "2024-03-02"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportExport(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTenant()

	rec := ts.request(models.RoleViewer, http.MethodGet, "/api/reports/tenants", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tenants.csv")
	assert.Contains(t, rec.Body.String(), "Lovelace")

	rec = ts.request(models.RoleViewer, http.MethodGet, "/api/reports/tenants?format=xlsx", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.request(models.RoleViewer, http.MethodGet, "/api/reports/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.request(models.RoleViewer, http.MethodGet, "/api/reports/rent-roll?month=2024-13", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetSnapshotAndPreview(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTenant()

	rec, env := ts.json(models.RoleManager, http.MethodPost, "/api/datasets/snapshot", gin.H{"report": "tenants"})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	var ds models.Dataset
	require.NoError(t, json.Unmarshal(env.Data, &ds))
	assert.Equal(t, 1, ds.RowCount)
	assert.Equal(t, "snapshot:tenants", ds.Source)

	rec, env = ts.json(models.RoleViewer, http.MethodGet, "/api/datasets/"+ds.ID+"/preview?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var preview datasets.Preview
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, int64(1), preview.Total)
	require.Len(t, preview.Rows, 1)

	rec, _ = ts.json(models.RoleManager, http.MethodDelete, "/api/datasets/"+ds.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.json(models.RoleViewer, http.MethodGet, "/api/datasets/"+ds.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsAndAudit(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.json(models.RoleViewer, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings models.Settings
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, "GBP", settings.Currency)

	settings.CompanyName = "Acme Lettings"
	rec, _ = ts.json(models.RoleManager, http.MethodPut, "/api/settings", settings)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, env = ts.json(models.RoleAdmin, http.MethodPut, "/api/settings", settings)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	settings.RentDueDay = 31
	rec, _ = ts.json(models.RoleAdmin, http.MethodPut, "/api/settings", settings)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = ts.json(models.RoleAdmin, http.MethodGet, "/api/admin/audit?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []audit.Event
	require.NoError(t, json.Unmarshal(env.Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionUpdate, events[0].Action)
	assert.Equal(t, "admin", events[0].Actor)
}

func TestUserAdministration(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.json(models.RoleAdmin, http.MethodPost, "/api/admin/users", gin.H{"username": "clerk", "password": "short", "role": "viewer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, env.Error)

	rec, _ = ts.json(models.RoleAdmin, http.MethodPost, "/api/admin/users", gin.H{"username": "clerk", "password": testPassword, "role": "viewer"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = ts.json(models.RoleAdmin, http.MethodPost, "/api/admin/users", gin.H{"username": "clerk", "password": testPassword, "role": "viewer"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = ts.json(models.RoleAdmin, http.MethodDelete, "/api/admin/users/admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = ts.json(models.RoleAdmin, http.MethodDelete, "/api/admin/users/clerk", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPages(t *testing.T) {
	ts := newTestServer(t)
	_, tenant := ts.seedTenant()

	rec := ts.request("", http.MethodGet, "/tenants", nil, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Ftenants", rec.Header().Get("Location"))

	rec = ts.request("", http.MethodGet, "/login", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in")

	form := url.Values{"username": {"viewer"}, "password": {"wrong-password"}}
	rec = ts.request("", http.MethodPost, "/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")

	form = url.Values{"username": {"viewer"}, "password": {testPassword}, "next": {"//evil.example"}}
	rec = ts.request("", http.MethodPost, "/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	for _, path := range []string{"/", "/tenants", "/tenants/" + tenant.ID, "/onboarding", "/ledger"} {
		rec = ts.request(models.RoleViewer, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Sign out", path)
	}
	rec = ts.request(models.RoleViewer, http.MethodGet, "/tenants/"+tenant.ID, nil, "")
	assert.Contains(t, rec.Body.String(), "Ada Lovelace")

	rec = ts.request(models.RoleViewer, http.MethodGet, "/tenants/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/ledger?unmatched=true", safeNext("/ledger?unmatched=true"))
	assert.Equal(t, "/", safeNext(""))
	assert.Equal(t, "/", safeNext("https://evil.example"))
	assert.Equal(t, "/", safeNext("//evil.example"))
	assert.Equal(t, "/", safeNext(`/\evil.example`))
}
