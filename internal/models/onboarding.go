package models

import "time"

// OnboardingStatus is the derived or manually held state of an onboarding
type OnboardingStatus string

const (
	StatusNotStarted OnboardingStatus = "not_started"
	StatusInProgress OnboardingStatus = "in_progress"
	StatusCompleted  OnboardingStatus = "completed"
	StatusOnHold     OnboardingStatus = "on_hold"
	StatusCancelled  OnboardingStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s OnboardingStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// SubjectKind says whether an onboarding belongs to a Tenant or a TenantOrg
type SubjectKind string

const (
	KindResidential SubjectKind = "residential"
	KindCommercial  SubjectKind = "commercial"
)

// Checkpoints are the boolean onboarding milestones
type Checkpoints struct {
	ApplicationReceived bool `json:"applicationReceived"`
	IdentityVerified    bool `json:"identityVerified"`
	ReferencesChecked   bool `json:"referencesChecked"`
	DepositPaid         bool `json:"depositPaid"`
	LeaseSigned         bool `json:"leaseSigned"`
	KeysIssued          bool `json:"keysIssued"`
	CompanyVerified     bool `json:"companyVerified"`
	InsuranceProvided   bool `json:"insuranceProvided"`
	GuarantorSigned     bool `json:"guarantorSigned"`
}

// OnboardingCheckpoint stores the checkpoints of one subject. ID is the
// subject's id.
type OnboardingCheckpoint struct {
	ID          string      `json:"id"`
	SubjectKind SubjectKind `json:"subjectKind"`
	Checkpoints
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *OnboardingCheckpoint) Identity() string    { return c.ID }
func (c *OnboardingCheckpoint) Touch(now time.Time) { c.UpdatedAt = now }
