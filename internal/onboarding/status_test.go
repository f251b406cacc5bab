package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-manager/internal/common"
	"property-manager/internal/models"
)

func allResidential() models.Checkpoints {
	return models.Checkpoints{
		ApplicationReceived: true,
		IdentityVerified:    true,
		ReferencesChecked:   true,
		DepositPaid:         true,
		LeaseSigned:         true,
		KeysIssued:          true,
	}
}

func TestNextStatus(t *testing.T) {
	commercialMissingGuarantor := allResidential()
	commercialMissingGuarantor.CompanyVerified = true
	commercialMissingGuarantor.InsuranceProvided = true

	commercialDone := commercialMissingGuarantor
	commercialDone.GuarantorSigned = true

	tests := []struct {
		name    string
		current models.OnboardingStatus
		kind    models.SubjectKind
		flags   models.Checkpoints
		want    models.OnboardingStatus
	}{
		{"nothing set", models.StatusNotStarted, models.KindResidential, models.Checkpoints{}, models.StatusNotStarted},
		{"one flag", models.StatusNotStarted, models.KindResidential, models.Checkpoints{ApplicationReceived: true}, models.StatusInProgress},
		{"all residential", models.StatusInProgress, models.KindResidential, allResidential(), models.StatusCompleted},
		{"residential flags are not enough for commercial", models.StatusInProgress, models.KindCommercial, allResidential(), models.StatusInProgress},
		{"commercial missing guarantor", models.StatusInProgress, models.KindCommercial, commercialMissingGuarantor, models.StatusInProgress},
		{"commercial complete", models.StatusInProgress, models.KindCommercial, commercialDone, models.StatusCompleted},
		{"unrelated flag only", models.StatusNotStarted, models.KindResidential, models.Checkpoints{GuarantorSigned: true}, models.StatusNotStarted},
		{"completed goes back when a flag is cleared", models.StatusCompleted, models.KindResidential, models.Checkpoints{DepositPaid: true}, models.StatusInProgress},
		{"on hold is sticky", models.StatusOnHold, models.KindResidential, allResidential(), models.StatusOnHold},
		{"cancelled is sticky", models.StatusCancelled, models.KindResidential, models.Checkpoints{}, models.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.kind, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatus_UnknownKind(t *testing.T) {
	_, err := NextStatus(models.StatusNotStarted, "industrial", models.Checkpoints{})
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))
}

func TestComputeProgress(t *testing.T) {
	p, err := ComputeProgress(models.KindCommercial, models.Checkpoints{ApplicationReceived: true, LeaseSigned: true})
	require.NoError(t, err)

	assert.Equal(t, 2, p.Done)
	assert.Equal(t, 7, p.Required)
	assert.Equal(t, []string{
		FlagCompanyVerified,
		FlagInsuranceProvided,
		FlagGuarantorSigned,
		FlagDepositPaid,
		FlagKeysIssued,
	}, p.Missing)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current models.OnboardingStatus
		target  models.OnboardingStatus
		flags   models.Checkpoints
		want    models.OnboardingStatus
		wantErr bool
	}{
		{"hold", models.StatusInProgress, models.StatusOnHold, models.Checkpoints{}, models.StatusOnHold, false},
		{"cancel", models.StatusOnHold, models.StatusCancelled, models.Checkpoints{}, models.StatusCancelled, false},
		{"resume with no flags", models.StatusOnHold, models.StatusInProgress, models.Checkpoints{}, models.StatusNotStarted, false},
		{"resume complete", models.StatusOnHold, models.StatusInProgress, allResidential(), models.StatusCompleted, false},
		{"reopen cancelled", models.StatusCancelled, models.StatusNotStarted, models.Checkpoints{KeysIssued: true}, models.StatusInProgress, false},
		{"hold a cancelled onboarding", models.StatusCancelled, models.StatusOnHold, models.Checkpoints{}, models.StatusCancelled, true},
		{"unknown target", models.StatusInProgress, "paused", models.Checkpoints{}, models.StatusInProgress, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.target, models.KindResidential, tt.flags)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
