package ledger

import (
	"property-manager/internal/common"
	"property-manager/internal/models"
)

type party struct {
	tenantID string
	orgID    string
}

// Matcher assigns bank transactions to tenants or organisations by payment
// reference first and by unit second
type Matcher struct {
	byRef  map[string][]party
	byUnit map[string][]party
}

// NewMatcher indexes the payment references and units of tenants and orgs
func NewMatcher(tenants []models.Tenant, orgs []models.TenantOrg) *Matcher {
	m := &Matcher{byRef: map[string][]party{}, byUnit: map[string][]party{}}

	for _, t := range tenants {
		p := party{tenantID: t.ID}
		m.add(m.byRef, t.PaymentRef, p)
		m.add(m.byUnit, t.Unit, p)
	}
	for _, o := range orgs {
		p := party{orgID: o.ID}
		m.add(m.byRef, o.PaymentRef, p)
		for _, unit := range common.RemoveDuplicates(o.Units) {
			m.add(m.byUnit, unit, p)
		}
	}
	return m
}

func (m *Matcher) add(index map[string][]party, key string, p party) {
	key = common.NormalizeKey(key)
	if key == "" {
		return
	}
	index[key] = append(index[key], p)
}

// Match returns the tenant or org the transaction belongs to. Both ids are
// empty when nothing matches or more than one candidate does.
func (m *Matcher) Match(tx models.BankTransaction) (tenantID, orgID string) {
	parsed := ParseDescription(tx.Description)

	for _, ref := range []string{tx.Reference, parsed.Reference} {
		if p, ok := m.unique(m.byRef, ref); ok {
			return p.tenantID, p.orgID
		}
	}

	unit := tx.Unit
	if unit == "" {
		unit = parsed.Unit
	}
	if p, ok := m.unique(m.byUnit, unit); ok {
		return p.tenantID, p.orgID
	}
	return "", ""
}

func (m *Matcher) unique(index map[string][]party, key string) (party, bool) {
	key = common.NormalizeKey(key)
	if key == "" {
		return party{}, false
	}
	candidates := index[key]
	if len(candidates) != 1 {
		return party{}, false
	}
	return candidates[0], true
}
