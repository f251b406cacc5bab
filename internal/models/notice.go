package models

import (
	"time"

	"property-manager/internal/common"
)

// NoticeStatus tracks delivery of a notice
type NoticeStatus string

const (
	NoticeDraft  NoticeStatus = "draft"
	NoticeSent   NoticeStatus = "sent"
	NoticeFailed NoticeStatus = "failed"
)

// NoticeKinds lists the accepted notice kinds
var NoticeKinds = []string{"general", "rent_reminder", "maintenance", "inspection"}

// Notice is a message to a tenant, delivered by SMS
type Notice struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenantId"`
	PropertyID  string       `json:"propertyId"`
	Kind        string       `json:"kind"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Channel     string       `json:"channel"`
	Status      NoticeStatus `json:"status"`
	ProviderRef string       `json:"providerRef,omitempty"`
	Error       string       `json:"error,omitempty"`
	SentAt      *time.Time   `json:"sentAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (n *Notice) Identity() string    { return n.ID }
func (n *Notice) Touch(now time.Time) { n.UpdatedAt = now }

// Validate checks required fields
func (n *Notice) Validate() error {
	if err := common.RequireFields("tenantId", n.TenantID, "subject", n.Subject, "body", n.Body); err != nil {
		return err
	}
	if !common.Contains(NoticeKinds, n.Kind) {
		return common.ErrInvalidInputf("unknown notice kind %q", n.Kind)
	}
	if n.Channel != "sms" {
		return common.ErrInvalidInputError("channel must be sms")
	}
	return nil
}
