package models

import (
	"time"

	"property-manager/internal/common"
)

// Settings holds the company-wide preferences edited on the settings screen
type Settings struct {
	CompanyName        string    `json:"companyName"`
	Currency           string    `json:"currency"`
	SMSSenderID        string    `json:"smsSenderId"`
	RentDueDay         int       `json:"rentDueDay"`
	ReminderDaysBefore int       `json:"reminderDaysBefore"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (s *Settings) Touch(now time.Time) { s.UpdatedAt = now }

// DefaultSettings is what a fresh installation starts with
func DefaultSettings() Settings {
	return Settings{
		CompanyName:        "Property Manager",
		Currency:           "GBP",
		RentDueDay:         1,
		ReminderDaysBefore: 3,
	}
}

// Validate checks field ranges
func (s *Settings) Validate() error {
	if err := common.RequireFields("companyName", s.CompanyName, "currency", s.Currency); err != nil {
		return err
	}
	if len(s.Currency) != 3 {
		return common.ErrInvalidInputError("currency must be a 3-letter code")
	}
	if s.RentDueDay < 1 || s.RentDueDay > 28 {
		return common.ErrInvalidInputError("rentDueDay must be between 1 and 28")
	}
	if s.ReminderDaysBefore < 0 || s.ReminderDaysBefore > 27 {
		return common.ErrInvalidInputError("reminderDaysBefore must be between 0 and 27")
	}
	if len(s.SMSSenderID) > 11 {
		return common.ErrInvalidInputError("smsSenderId must be at most 11 characters")
	}
	return nil
}
