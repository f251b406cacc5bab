package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/ledger"
	"property-manager/internal/middleware"
	"property-manager/internal/models"
)

func (h *Handler) listTransactions(c *gin.Context) {
	var f ledger.TransactionFilter
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		h.fail(c, err)
		return
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		h.fail(c, err)
		return
	}
	if f.Unmatched, err = queryBool(c, "unmatched"); err != nil {
		h.fail(c, err)
		return
	}
	if f.Limit, err = queryInt(c, "limit", common.DefaultListLimit); err != nil {
		h.fail(c, err)
		return
	}
	if f.Limit < 1 {
		h.fail(c, common.ErrInvalidInputError("limit must be positive"))
		return
	}
	f.TenantID, f.OrgID = c.Query("tenantId"), c.Query("orgId")

	txs, err := h.Ledger.ListTransactions(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, txs)
}

// importTransactions accepts a bank statement as a multipart "file" field or
// as a raw text/csv body
func (h *Handler) importTransactions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			h.fail(c, formError(err, "file is required"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.fail(c, err)
			return
		}
		defer f.Close()
		body = f
	}

	matcher, err := h.matcher()
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Ledger.Import(c.Request.Context(), body, matcher)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordImport(result.Inserted, result.Skipped, result.Matched, len(result.Errors))
	}
	h.record(c, audit.ActionImport, "batch/"+result.Batch, map[string]interface{}{
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
		"matched":  result.Matched,
		"errors":   len(result.Errors),
	})
	ok(c, http.StatusOK, result)
}

type matchRequest struct {
	TenantID string `json:"tenantId"`
	OrgID    string `json:"orgId"`
}

// matchTransaction assigns a transaction by hand; an empty body clears the match
func (h *Handler) matchTransaction(c *gin.Context) {
	var req matchRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.requireParty(req.TenantID, req.OrgID, false); err != nil {
		h.fail(c, err)
		return
	}

	id := c.Param("id")
	tx, err := h.Ledger.SetMatch(c.Request.Context(), id, req.TenantID, req.OrgID, ledger.MatchedManual)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionMatch, "transaction/"+id, map[string]interface{}{"tenantId": req.TenantID, "orgId": req.OrgID})
	ok(c, http.StatusOK, tx)
}

func (h *Handler) rematch(c *gin.Context) {
	matcher, err := h.matcher()
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.Ledger.Rematch(c.Request.Context(), matcher)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionMatch, "transactions", map[string]interface{}{"matched": n})
	ok(c, http.StatusOK, gin.H{"matched": n})
}

func (h *Handler) matcher() (*ledger.Matcher, error) {
	tenants, err := h.Store.Tenants.List()
	if err != nil {
		return nil, err
	}
	orgs, err := h.Store.Orgs.List()
	if err != nil {
		return nil, err
	}
	return ledger.NewMatcher(tenants, orgs), nil
}

func (h *Handler) listPayments(c *gin.Context) {
	payments, err := h.Ledger.ListPayments(c.Request.Context(), ledger.PaymentFilter{
		TenantID: c.Query("tenantId"),
		OrgID:    c.Query("orgId"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, payments)
}

type paymentRequest struct {
	TenantID  string          `json:"tenantId"`
	OrgID     string          `json:"orgId"`
	LeaseID   string          `json:"leaseId"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    string          `json:"paidOn"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Note      string          `json:"note"`
}

func (h *Handler) createPayment(c *gin.Context) {
	var req paymentRequest
	if !h.bind(c, &req) {
		return
	}
	paidOn, err := bodyDate("paidOn", req.PaidOn)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.requireParty(req.TenantID, req.OrgID, true); err != nil {
		h.fail(c, err)
		return
	}
	if req.LeaseID != "" {
		if _, err := h.Store.Leases.Get(req.LeaseID); err != nil {
			h.fail(c, common.ErrInvalidInputf("lease %q does not exist", req.LeaseID))
			return
		}
	}

	p, err := h.Ledger.CreatePayment(c.Request.Context(), models.ManualPayment{
		TenantID:   req.TenantID,
		OrgID:      req.OrgID,
		LeaseID:    req.LeaseID,
		Amount:     req.Amount,
		PaidOn:     paidOn,
		Method:     req.Method,
		Reference:  strings.TrimSpace(req.Reference),
		Note:       req.Note,
		RecordedBy: middleware.Actor(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "payment/"+p.ID, map[string]interface{}{"amount": p.Amount.StringFixed(2)})
	ok(c, http.StatusCreated, p)
}

func (h *Handler) deletePayment(c *gin.Context) {
	id := c.Param("id")
	if err := h.Ledger.DeletePayment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionDelete, "payment/"+id, nil)
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) listReadings(c *gin.Context) {
	readings, err := h.Ledger.ListReadings(c.Request.Context(), ledger.ReadingFilter{
		PropertyID:  c.Query("propertyId"),
		MeterNumber: c.Query("meterNumber"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, readings)
}

type readingRequest struct {
	PropertyID  string          `json:"propertyId"`
	Unit        string          `json:"unit"`
	MeterNumber string          `json:"meterNumber"`
	Kind        string          `json:"kind"`
	Reading     decimal.Decimal `json:"reading"`
	ReadOn      string          `json:"readOn"`
}

func (h *Handler) createReading(c *gin.Context) {
	var req readingRequest
	if !h.bind(c, &req) {
		return
	}
	readOn, err := bodyDate("readOn", req.ReadOn)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.requireProperty(req.PropertyID); err != nil {
		h.fail(c, err)
		return
	}

	r, err := h.Ledger.CreateReading(c.Request.Context(), models.MeterReading{
		PropertyID:  req.PropertyID,
		Unit:        strings.TrimSpace(req.Unit),
		MeterNumber: strings.TrimSpace(req.MeterNumber),
		Kind:        req.Kind,
		Reading:     req.Reading,
		ReadOn:      readOn,
		RecordedBy:  middleware.Actor(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "meter-reading/"+r.ID, map[string]interface{}{"meter": r.MeterNumber, "reading": r.Reading.String()})
	ok(c, http.StatusCreated, r)
}

// requireParty checks that the named tenant or org exists. With required
// set exactly one of the two must be given.
func (h *Handler) requireParty(tenantID, orgID string, required bool) error {
	if tenantID != "" && orgID != "" {
		return common.ErrInvalidInputError("set only one of tenantId or orgId")
	}
	if tenantID == "" && orgID == "" {
		if required {
			return common.ErrInvalidInputError("exactly one of tenantId or orgId is required")
		}
		return nil
	}
	subjectType, id := "tenant", tenantID
	if orgID != "" {
		subjectType, id = "org", orgID
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

func queryDate(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return bodyDate(name, raw)
}

func bodyDate(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, common.ErrInvalidInputf("%s is required", name)
	}
	t, err := common.ParseDate(raw)
	if err != nil {
		return time.Time{}, common.ErrInvalidInputf("%s must be YYYY-MM-DD", name)
	}
	return t, nil
}
