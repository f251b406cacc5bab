package models

import (
	"time"

	"github.com/shopspring/decimal"

	"property-manager/internal/common"
)

// LeaseStatus is the lifecycle state of a lease
type LeaseStatus string

const (
	LeaseDraft  LeaseStatus = "draft"
	LeaseActive LeaseStatus = "active"
	LeaseEnded  LeaseStatus = "ended"
)

// Lease binds a tenant or a tenant organisation to a unit for a period.
// Dates are calendar dates in 2006-01-02 form; EndDate may be empty for
// open-ended leases.
type Lease struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId,omitempty"`
	OrgID       string          `json:"orgId,omitempty"`
	PropertyID  string          `json:"propertyId"`
	Unit        string          `json:"unit"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate,omitempty"`
	MonthlyRent decimal.Decimal `json:"monthlyRent"`
	Deposit     decimal.Decimal `json:"deposit"`
	Status      LeaseStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (l *Lease) Identity() string    { return l.ID }
func (l *Lease) Touch(now time.Time) { l.UpdatedAt = now }

// Validate checks required fields and date ordering
func (l *Lease) Validate() error {
	if (l.TenantID == "") == (l.OrgID == "") {
		return common.ErrInvalidInputError("exactly one of tenantId or orgId is required")
	}
	if err := common.RequireFields("propertyId", l.PropertyID, "unit", l.Unit, "startDate", l.StartDate); err != nil {
		return err
	}
	start, err := common.ParseDate(l.StartDate)
	if err != nil {
		return common.ErrInvalidInputError("startDate must be YYYY-MM-DD")
	}
	if l.EndDate != "" {
		end, err := common.ParseDate(l.EndDate)
		if err != nil {
			return common.ErrInvalidInputError("endDate must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return common.ErrInvalidInputError("endDate is before startDate")
		}
	}
	if !l.MonthlyRent.IsPositive() {
		return common.ErrInvalidInputError("monthlyRent must be positive")
	}
	if l.Deposit.IsNegative() {
		return common.ErrInvalidInputError("deposit must not be negative")
	}
	switch l.Status {
	case LeaseDraft, LeaseActive, LeaseEnded:
	default:
		return common.ErrInvalidInputf("unknown lease status %q", l.Status)
	}
	return nil
}

// PartyID returns whichever of the tenant or org id is set
func (l *Lease) PartyID() string {
	if l.TenantID != "" {
		return l.TenantID
	}
	return l.OrgID
}

// ActiveOn reports whether the lease covers the given day
func (l *Lease) ActiveOn(day time.Time) bool {
	if l.Status != LeaseActive {
		return false
	}
	start, err := common.ParseDate(l.StartDate)
	if err != nil || day.Before(start) {
		return false
	}
	if l.EndDate == "" {
		return true
	}
	end, err := common.ParseDate(l.EndDate)
	return err == nil && !day.After(end)
}
