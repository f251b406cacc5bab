package models

import (
	"time"

	"property-manager/internal/common"
)

// PropertyKind distinguishes residential buildings from commercial ones
type PropertyKind string

const (
	PropertyResidential PropertyKind = "residential"
	PropertyCommercial  PropertyKind = "commercial"
)

// Property is a managed building or estate
type Property struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	City      string       `json:"city"`
	Kind      PropertyKind `json:"kind"`
	UnitCount int          `json:"unitCount"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (p *Property) Identity() string    { return p.ID }
func (p *Property) Touch(now time.Time) { p.UpdatedAt = now }

// Validate checks required fields
func (p *Property) Validate() error {
	if err := common.RequireFields("name", p.Name, "address", p.Address); err != nil {
		return err
	}
	if p.Kind != PropertyResidential && p.Kind != PropertyCommercial {
		return common.ErrInvalidInputf("kind must be %q or %q", PropertyResidential, PropertyCommercial)
	}
	if p.UnitCount < 0 {
		return common.ErrInvalidInputError("unitCount must not be negative")
	}
	return nil
}
