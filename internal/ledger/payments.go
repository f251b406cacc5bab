package ledger

import (
	"context"
	"fmt"
	"time"

	"property-manager/internal/common"
	"property-manager/internal/models"
)

// PaymentFilter narrows ListPayments
type PaymentFilter struct {
	TenantID string
	OrgID    string
	From     time.Time
	To       time.Time
}

// ValidatePayment checks a manual payment before it is stored
func ValidatePayment(p *models.ManualPayment) error {
	if (p.TenantID == "") == (p.OrgID == "") {
		return common.ErrInvalidInputError("exactly one of tenantId or orgId is required")
	}
	if !p.Amount.IsPositive() {
		return common.ErrInvalidInputError("amount must be positive")
	}
	if p.PaidOn.IsZero() {
		return common.ErrInvalidInputError("paidOn is required")
	}
	if !common.Contains(models.PaymentMethods, p.Method) {
		return common.ErrInvalidInputf("method must be one of %v", models.PaymentMethods)
	}
	if len(p.Note) > common.MaxNoteLength {
		return common.ErrInvalidInputError("note is too long")
	}
	return nil
}

// CreatePayment validates and stores a manual payment
func (s *Store) CreatePayment(ctx context.Context, p models.ManualPayment) (models.ManualPayment, error) {
	if err := ValidatePayment(&p); err != nil {
		return p, err
	}
	if p.ID == "" {
		p.ID = common.GenerateID()
	}
	p.PaidOn = p.PaidOn.UTC()
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return p, fmt.Errorf("failed to create payment: %w", err)
	}
	return p, nil
}

// ListPayments returns payments newest first
func (s *Store) ListPayments(ctx context.Context, f PaymentFilter) ([]models.ManualPayment, error) {
	q := s.db.WithContext(ctx).Model(&models.ManualPayment{})
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.OrgID != "" {
		q = q.Where("org_id = ?", f.OrgID)
	}
	if !f.From.IsZero() {
		q = q.Where("paid_on >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("paid_on < ?", f.To)
	}

	payments := []models.ManualPayment{}
	if err := q.Order("paid_on DESC, id").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// DeletePayment removes a manual payment
func (s *Store) DeletePayment(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ManualPayment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payment %q: %w", id, ErrNotFound)
	}
	return nil
}
