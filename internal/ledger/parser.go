package ledger

import (
	"regexp"
	"strings"

	"property-manager/internal/models"
)

var (
	unitPattern      = regexp.MustCompile(`(?i)\b(?:UNIT|FLAT|APARTMENT|APT|SUITE)\b\.?\s*(?:NO\.\s*|NO\s+)?#?\s*([A-Z0-9]+(?:[-/][A-Z0-9]+)*)`)
	pmRefPattern     = regexp.MustCompile(`(?i)\b(PM-[A-Z0-9]+)\b`)
	labelRefPattern  = regexp.MustCompile(`(?i)\bREF(?:ERENCE)?\b(?:\s*[:#.]\s*|\s+)([A-Z0-9]+(?:-[A-Z0-9]+)*)`)
	refundPattern    = regexp.MustCompile(`(?i)\bREFUND(?:ED)?\b`)
	depositPattern   = regexp.MustCompile(`(?i)\bDEPOSIT\b`)
	utilityPattern   = regexp.MustCompile(`(?i)\b(?:ELECTRIC(?:ITY)?|WATER|GAS|UTILIT(?:Y|IES)|METER)\b`)
	feePattern       = regexp.MustCompile(`(?i)\b(?:FEES?|CHARGES?|LATE|PENALTY)\b`)
	rentPattern      = regexp.MustCompile(`(?i)\bRENT(?:AL)?\b`)
	categoryPatterns = []struct {
		category string
		pattern  *regexp.Regexp
	}{
		{models.CategoryRefund, refundPattern},
		{models.CategoryDeposit, depositPattern},
		{models.CategoryUtility, utilityPattern},
		{models.CategoryFee, feePattern},
		{models.CategoryRent, rentPattern},
	}
)

// Parsed holds what could be read out of a bank description
type Parsed struct {
	Unit      string `json:"unit"`
	Reference string `json:"reference"`
	Category  string `json:"category"`
}

// ParseDescription extracts a unit, a payment reference and a category guess.
// Unit and reference are upper-cased; missing parts are empty and the
// category falls back to "other".
func ParseDescription(desc string) Parsed {
	var p Parsed

	if m := unitPattern.FindStringSubmatch(desc); m != nil {
		p.Unit = strings.ToUpper(m[1])
	}

	if m := pmRefPattern.FindStringSubmatch(desc); m != nil {
		p.Reference = strings.ToUpper(m[1])
	} else if m := labelRefPattern.FindStringSubmatch(desc); m != nil {
		p.Reference = strings.ToUpper(m[1])
	}

	p.Category = models.CategoryOther
	for _, c := range categoryPatterns {
		if c.pattern.MatchString(desc) {
			p.Category = c.category
			break
		}
	}
	return p
}
