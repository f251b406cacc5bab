package models

import (
	"net/mail"
	"time"

	"property-manager/internal/common"
)

// TenantOrg is a commercial tenant organisation occupying one or more units
type TenantOrg struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	RegistrationNumber string           `json:"registrationNumber"`
	ContactName        string           `json:"contactName"`
	ContactEmail       string           `json:"contactEmail"`
	ContactPhone       string           `json:"contactPhone"`
	PropertyID         string           `json:"propertyId"`
	Units              []string         `json:"units"`
	PaymentRef         string           `json:"paymentRef"`
	OnboardingStatus   OnboardingStatus `json:"onboardingStatus"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

func (o *TenantOrg) Identity() string    { return o.ID }
func (o *TenantOrg) Touch(now time.Time) { o.UpdatedAt = now }

// Validate checks required fields
func (o *TenantOrg) Validate() error {
	if err := common.RequireFields("name", o.Name, "contactName", o.ContactName, "propertyId", o.PropertyID); err != nil {
		return err
	}
	if o.ContactEmail != "" {
		if _, err := mail.ParseAddress(o.ContactEmail); err != nil {
			return common.ErrInvalidInputError("contactEmail is not a valid address")
		}
	}
	return nil
}

// Occupies reports whether the organisation holds the given unit
func (o *TenantOrg) Occupies(unit string) bool {
	key := common.NormalizeKey(unit)
	for _, u := range o.Units {
		if common.NormalizeKey(u) == key {
			return true
		}
	}
	return false
}
