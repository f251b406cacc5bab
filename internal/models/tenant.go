package models

import (
	"net/mail"
	"strings"
	"time"

	"property-manager/internal/common"
)

// Tenant is a residential renter
type Tenant struct {
	ID               string           `json:"id"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	PropertyID       string           `json:"propertyId"`
	Unit             string           `json:"unit"`
	PaymentRef       string           `json:"paymentRef"`
	OnboardingStatus OnboardingStatus `json:"onboardingStatus"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (t *Tenant) Identity() string    { return t.ID }
func (t *Tenant) Touch(now time.Time) { t.UpdatedAt = now }

// FullName joins first and last name
func (t *Tenant) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// Validate checks required fields
func (t *Tenant) Validate() error {
	if err := common.RequireFields("firstName", t.FirstName, "lastName", t.LastName, "propertyId", t.PropertyID); err != nil {
		return err
	}
	if t.Email != "" {
		if _, err := mail.ParseAddress(t.Email); err != nil {
			return common.ErrInvalidInputError("email is not a valid address")
		}
	}
	if len(t.Notes) > common.MaxNoteLength {
		return common.ErrInvalidInputError("notes are too long")
	}
	return nil
}
