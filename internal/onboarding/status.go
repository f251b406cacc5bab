// Package onboarding derives onboarding status from checkpoint flags.
package onboarding

import (
	"property-manager/internal/common"
	"property-manager/internal/models"
)

// Flag names as they appear in JSON
const (
	FlagApplicationReceived = "applicationReceived"
	FlagIdentityVerified    = "identityVerified"
	FlagReferencesChecked   = "referencesChecked"
	FlagDepositPaid         = "depositPaid"
	FlagLeaseSigned         = "leaseSigned"
	FlagKeysIssued          = "keysIssued"
	FlagCompanyVerified     = "companyVerified"
	FlagInsuranceProvided   = "insuranceProvided"
	FlagGuarantorSigned     = "guarantorSigned"
)

var requiredFlags = map[models.SubjectKind][]string{
	models.KindResidential: {
		FlagApplicationReceived,
		FlagIdentityVerified,
		FlagReferencesChecked,
		FlagDepositPaid,
		FlagLeaseSigned,
		FlagKeysIssued,
	},
	models.KindCommercial: {
		FlagApplicationReceived,
		FlagCompanyVerified,
		FlagInsuranceProvided,
		FlagGuarantorSigned,
		FlagDepositPaid,
		FlagLeaseSigned,
		FlagKeysIssued,
	},
}

// Progress summarises how far an onboarding has come
type Progress struct {
	Done     int      `json:"done"`
	Required int      `json:"required"`
	Missing  []string `json:"missing"`
}

// RequiredFlags returns the checkpoint names that must all be set for kind
func RequiredFlags(kind models.SubjectKind) ([]string, error) {
	flags, ok := requiredFlags[kind]
	if !ok {
		return nil, common.ErrInvalidInputf("unknown onboarding kind %q", kind)
	}
	return append([]string(nil), flags...), nil
}

// Flag returns the value of a named checkpoint
func Flag(c models.Checkpoints, name string) bool {
	switch name {
	case FlagApplicationReceived:
		return c.ApplicationReceived
	case FlagIdentityVerified:
		return c.IdentityVerified
	case FlagReferencesChecked:
		return c.ReferencesChecked
	case FlagDepositPaid:
		return c.DepositPaid
	case FlagLeaseSigned:
		return c.LeaseSigned
	case FlagKeysIssued:
		return c.KeysIssued
	case FlagCompanyVerified:
		return c.CompanyVerified
	case FlagInsuranceProvided:
		return c.InsuranceProvided
	case FlagGuarantorSigned:
		return c.GuarantorSigned
	}
	return false
}

// ComputeProgress counts the required checkpoints that are set
func ComputeProgress(kind models.SubjectKind, c models.Checkpoints) (Progress, error) {
	flags, err := RequiredFlags(kind)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{Required: len(flags), Missing: []string{}}
	for _, name := range flags {
		if Flag(c, name) {
			p.Done++
		} else {
			p.Missing = append(p.Missing, name)
		}
	}
	return p, nil
}

// NextStatus derives the status that follows current given the checkpoints.
// on_hold and cancelled are only left through an explicit status change.
func NextStatus(current models.OnboardingStatus, kind models.SubjectKind, c models.Checkpoints) (models.OnboardingStatus, error) {
	p, err := ComputeProgress(kind, c)
	if err != nil {
		return current, err
	}
	if current == models.StatusOnHold || current == models.StatusCancelled {
		return current, nil
	}

	switch {
	case p.Done == p.Required:
		return models.StatusCompleted, nil
	case p.Done > 0:
		return models.StatusInProgress, nil
	default:
		return models.StatusNotStarted, nil
	}
}

// Transition applies a manual status change. Moving to on_hold or cancelled
// is always allowed; any other target re-derives the status from the
// checkpoints, which is how a held onboarding resumes.
func Transition(current, target models.OnboardingStatus, kind models.SubjectKind, c models.Checkpoints) (models.OnboardingStatus, error) {
	if !target.Valid() {
		return current, common.ErrInvalidInputf("unknown onboarding status %q", target)
	}
	switch target {
	case models.StatusOnHold:
		if current == models.StatusCancelled {
			return current, common.ErrInvalidInputError("a cancelled onboarding cannot be put on hold")
		}
		return target, nil
	case models.StatusCancelled:
		return target, nil
	}
	return NextStatus(models.StatusInProgress, kind, c)
}
