package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"property-manager/internal/models"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		desc string
		want Parsed
	}{
		{"RENT FLAT 1A MARCH", Parsed{Unit: "1A", Category: models.CategoryRent}},
		{"Transfer PM-1002 thanks", Parsed{Reference: "PM-1002", Category: models.CategoryOther}},
		{"apartment 12-B rental ref: ab77", Parsed{Unit: "12-B", Reference: "AB77", Category: models.CategoryRent}},
		{"APT.4 deposit", Parsed{Unit: "4", Category: models.CategoryDeposit}},
		{"Suite No. 200 late fee", Parsed{Unit: "200", Category: models.CategoryFee}},
		{"UNIT #7/2 water meter", Parsed{Unit: "7/2", Category: models.CategoryUtility}},
		{"REFUND deposit unit 3", Parsed{Unit: "3", Category: models.CategoryRefund}},
		{"REFERENCE 9981 payment", Parsed{Reference: "9981", Category: models.CategoryOther}},
		{"United Utilities", Parsed{Category: models.CategoryUtility}},
		{"", Parsed{Category: models.CategoryOther}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDescription(tt.desc))
		})
	}
}

func TestMatcher(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		name       string
		tx         models.BankTransaction
		wantTenant string
		wantOrg    string
	}{
		{"reference column", models.BankTransaction{Reference: "pm-1001", Description: "unit 2B"}, "t1", ""},
		{"reference in description", models.BankTransaction{Description: "PM-1002"}, "t2", ""},
		{"unique unit", models.BankTransaction{Description: "flat 1a"}, "t1", ""},
		{"org unit", models.BankTransaction{Description: "suite G2 rent"}, "", "o1"},
		{"org reference", models.BankTransaction{Reference: "ACME-77"}, "", "o1"},
		{"shared unit", models.BankTransaction{Description: "unit 3C"}, "", ""},
		{"unknown", models.BankTransaction{Description: "coffee"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenantID, orgID := m.Match(tt.tx)
			assert.Equal(t, tt.wantTenant, tenantID)
			assert.Equal(t, tt.wantOrg, orgID)
		})
	}
}
