package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction categories
const (
	CategoryRent    = "rent"
	CategoryDeposit = "deposit"
	CategoryFee     = "fee"
	CategoryUtility = "utility"
	CategoryRefund  = "refund"
	CategoryOther   = "other"
)

// BankTransaction is one line of the bank feed. Amount is positive for
// credits and negative for debits.
type BankTransaction struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	ImportKey   string          `gorm:"uniqueIndex;size:64;not null" json:"importKey"`
	BookedOn    time.Time       `gorm:"index;not null" json:"bookedOn"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reference   string          `gorm:"size:120" json:"reference"`
	Unit        string          `gorm:"size:40" json:"unit"`
	TenantID    string          `gorm:"index;size:36" json:"tenantId"`
	OrgID       string          `gorm:"index;size:36" json:"orgId"`
	Category    string          `gorm:"size:20" json:"category"`
	MatchedBy   string          `gorm:"size:10" json:"matchedBy"`
	ImportBatch string          `gorm:"size:36" json:"importBatch"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Matched reports whether the transaction is assigned to a tenant or org
func (t *BankTransaction) Matched() bool {
	return t.TenantID != "" || t.OrgID != ""
}

// PaymentMethods lists the accepted manual payment methods
var PaymentMethods = []string{"cash", "cheque", "transfer", "card"}

// ManualPayment is a payment recorded by staff outside the bank feed
type ManualPayment struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	TenantID   string          `gorm:"index;size:36" json:"tenantId"`
	OrgID      string          `gorm:"index;size:36" json:"orgId"`
	LeaseID    string          `gorm:"size:36" json:"leaseId"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidOn     time.Time       `gorm:"index;not null" json:"paidOn"`
	Method     string          `gorm:"size:20;not null" json:"method"`
	Reference  string          `gorm:"size:120" json:"reference"`
	Note       string          `gorm:"size:1000" json:"note"`
	RecordedBy string          `gorm:"size:100" json:"recordedBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// MeterKinds lists the accepted utility meter kinds
var MeterKinds = []string{"electricity", "water", "gas"}

// MeterReading is a utility meter reading for a unit
type MeterReading struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	PropertyID  string          `gorm:"index;size:36;not null" json:"propertyId"`
	Unit        string          `gorm:"size:40" json:"unit"`
	MeterNumber string          `gorm:"index;size:60;not null" json:"meterNumber"`
	Kind        string          `gorm:"size:20;not null" json:"kind"`
	Reading     decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"reading"`
	ReadOn      time.Time       `gorm:"not null" json:"readOn"`
	RecordedBy  string          `gorm:"size:100" json:"recordedBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
