package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"property-manager/internal/common"
	"property-manager/internal/models"
)

// ReadingFilter narrows ListReadings
type ReadingFilter struct {
	PropertyID  string
	MeterNumber string
}

// CreateReading stores a meter reading. A reading lower than the latest one
// recorded for the same meter is rejected.
func (s *Store) CreateReading(ctx context.Context, r models.MeterReading) (models.MeterReading, error) {
	if err := common.RequireFields("propertyId", r.PropertyID, "meterNumber", r.MeterNumber, "kind", r.Kind); err != nil {
		return r, err
	}
	if !common.Contains(models.MeterKinds, r.Kind) {
		return r, common.ErrInvalidInputf("kind must be one of %v", models.MeterKinds)
	}
	if r.Reading.IsNegative() {
		return r, common.ErrInvalidInputError("reading must not be negative")
	}
	if r.ReadOn.IsZero() {
		return r, common.ErrInvalidInputError("readOn is required")
	}
	if r.ID == "" {
		r.ID = common.GenerateID()
	}
	r.ReadOn = r.ReadOn.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest models.MeterReading
		err := tx.Where("meter_number = ?", r.MeterNumber).Order("read_on DESC, created_at DESC").First(&latest).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("failed to load latest reading: %w", err)
		case r.Reading.LessThan(latest.Reading):
			return common.ErrInvalidInputf("reading %s is lower than the latest reading %s for meter %s",
				r.Reading.String(), latest.Reading.String(), r.MeterNumber)
		}

		if err := tx.Create(&r).Error; err != nil {
			return fmt.Errorf("failed to create reading: %w", err)
		}
		return nil
	})
	return r, err
}

// ListReadings returns readings newest first
func (s *Store) ListReadings(ctx context.Context, f ReadingFilter) ([]models.MeterReading, error) {
	q := s.db.WithContext(ctx).Model(&models.MeterReading{})
	if f.PropertyID != "" {
		q = q.Where("property_id = ?", f.PropertyID)
	}
	if f.MeterNumber != "" {
		q = q.Where("meter_number = ?", f.MeterNumber)
	}

	readings := []models.MeterReading{}
	if err := q.Order("read_on DESC, created_at DESC").Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	return readings, nil
}
