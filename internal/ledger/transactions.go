package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"property-manager/internal/common"
	"property-manager/internal/models"
)

// Match origins stored in MatchedBy
const (
	MatchedAuto   = "auto"
	MatchedManual = "manual"
)

const unmatchedCondition = "(tenant_id = '' OR tenant_id IS NULL) AND (org_id = '' OR org_id IS NULL)"

// TransactionFilter narrows ListTransactions. Zero values are ignored; a
// negative Limit lifts the default cap.
type TransactionFilter struct {
	From      time.Time
	To        time.Time
	TenantID  string
	OrgID     string
	Unmatched bool
	Limit     int
}

// InsertTransactions stores a batch, skipping lines whose import key already
// exists. matched counts the inserted lines that carry a tenant or org.
func (s *Store) InsertTransactions(ctx context.Context, txs []models.BankTransaction) (inserted, skipped, matched int, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range txs {
			if txs[i].ID == "" {
				txs[i].ID = common.GenerateID()
			}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "import_key"}},
				DoNothing: true,
			}).Create(&txs[i])
			if result.Error != nil {
				return fmt.Errorf("failed to insert transaction: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				skipped++
				continue
			}
			inserted++
			if txs[i].Matched() {
				matched++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, 0, err
	}
	return inserted, skipped, matched, nil
}

// ListTransactions returns transactions newest first
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, error) {
	q := s.db.WithContext(ctx).Model(&models.BankTransaction{})
	if !f.From.IsZero() {
		q = q.Where("booked_on >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("booked_on <= ?", f.To)
	}
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.OrgID != "" {
		q = q.Where("org_id = ?", f.OrgID)
	}
	if f.Unmatched {
		q = q.Where(unmatchedCondition)
	}
	switch {
	case f.Limit < 0:
		// exports read everything
	case f.Limit == 0 || f.Limit > common.DefaultListLimit:
		q = q.Limit(common.DefaultListLimit)
	default:
		q = q.Limit(f.Limit)
	}

	txs := []models.BankTransaction{}
	if err := q.Order("booked_on DESC, id").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// GetTransaction returns one transaction
func (s *Store) GetTransaction(ctx context.Context, id string) (models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return tx, notFound(err, "transaction", id)
	}
	return tx, nil
}

// SetMatch assigns a transaction to a tenant or org. Empty ids clear the match.
func (s *Store) SetMatch(ctx context.Context, id, tenantID, orgID, by string) (models.BankTransaction, error) {
	if tenantID != "" && orgID != "" {
		return models.BankTransaction{}, common.ErrInvalidInputError("set only one of tenantId or orgId")
	}
	if tenantID == "" && orgID == "" {
		by = ""
	}

	result := s.db.WithContext(ctx).Model(&models.BankTransaction{}).Where("id = ?", id).Updates(map[string]interface{}{
		"tenant_id":  tenantID,
		"org_id":     orgID,
		"matched_by": by,
		"updated_at": common.Now(),
	})
	if result.Error != nil {
		return models.BankTransaction{}, fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.BankTransaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	return s.GetTransaction(ctx, id)
}

// Rematch runs the matcher over every unmatched transaction and returns how
// many were assigned
func (s *Store) Rematch(ctx context.Context, m *Matcher) (int, error) {
	unmatched := []models.BankTransaction{}
	if err := s.db.WithContext(ctx).Where(unmatchedCondition).Order("booked_on, id").Find(&unmatched).Error; err != nil {
		return 0, fmt.Errorf("failed to list unmatched transactions: %w", err)
	}

	matched := 0
	for _, tx := range unmatched {
		tenantID, orgID := m.Match(tx)
		if tenantID == "" && orgID == "" {
			continue
		}
		if _, err := s.SetMatch(ctx, tx.ID, tenantID, orgID, MatchedAuto); err != nil {
			return matched, err
		}
		matched++
	}
	return matched, nil
}

// CreditsBetween returns the matched credits booked in [from, to)
func (s *Store) CreditsBetween(ctx context.Context, from, to time.Time) ([]models.BankTransaction, error) {
	txs := []models.BankTransaction{}
	err := s.db.WithContext(ctx).
		Where("booked_on >= ? AND booked_on < ?", from, to).
		Where("amount > 0").
		Where("((tenant_id <> '' AND tenant_id IS NOT NULL) OR (org_id <> '' AND org_id IS NOT NULL))").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	return txs, nil
}
