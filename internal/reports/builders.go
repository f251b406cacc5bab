package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"property-manager/internal/common"
	"property-manager/internal/ledger"
	"property-manager/internal/models"
	"property-manager/internal/store"
)

// Report names
const (
	Properties    = "properties"
	Tenants       = "tenants"
	Orgs          = "orgs"
	Leases        = "leases"
	Transactions  = "transactions"
	Payments      = "payments"
	MeterReadings = "meter-readings"
	RentRoll      = "rent-roll"
)

// Names lists every report in display order
var Names = []string{Properties, Tenants, Orgs, Leases, Transactions, Payments, MeterReadings, RentRoll}

// Builder assembles report tables from the JSON store and the ledger
type Builder struct {
	store  *store.Store
	ledger *ledger.Store
	now    func() time.Time
}

// NewBuilder creates a report builder
func NewBuilder(s *store.Store, l *ledger.Store) *Builder {
	return &Builder{store: s, ledger: l, now: common.Now}
}

// Month is a calendar month given as YYYY-MM
type Month struct {
	Start time.Time
	End   time.Time
}

// ParseMonth parses YYYY-MM. An empty string means the month containing now.
func ParseMonth(s string, now time.Time) (Month, error) {
	var start time.Time
	if s == "" {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse("2006-01", s)
		if err != nil {
			return Month{}, common.ErrInvalidInputf("month must be YYYY-MM, got %q", s)
		}
		start = t
	}
	return Month{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// Label is the YYYY-MM form of the month
func (m Month) Label() string {
	return m.Start.Format("2006-01")
}

// Build renders the named report. month only applies to transactions,
// payments and the rent roll; an empty month exports every row except for
// the rent roll, which defaults to the current month.
func (b *Builder) Build(ctx context.Context, name, month string) (Table, error) {
	var (
		rows  []Row
		order []string
		err   error
	)

	var period *Month
	if month != "" || name == RentRoll {
		m, err := ParseMonth(month, b.now())
		if err != nil {
			return Table{}, err
		}
		period = &m
	}

	switch name {
	case Properties:
		rows, order, err = collect(b.store.Properties.List)
	case Tenants:
		rows, order, err = collect(b.store.Tenants.List)
	case Orgs:
		rows, order, err = collect(b.store.Orgs.List)
	case Leases:
		rows, order, err = collect(b.store.Leases.List)
	case Transactions:
		f := ledger.TransactionFilter{Limit: -1}
		if period != nil {
			f.From, f.To = period.Start, period.End.Add(-time.Second)
		}
		rows, order, err = collect(func() ([]models.BankTransaction, error) {
			return b.ledger.ListTransactions(ctx, f)
		})
	case Payments:
		f := ledger.PaymentFilter{}
		if period != nil {
			f.From, f.To = period.Start, period.End
		}
		rows, order, err = collect(func() ([]models.ManualPayment, error) {
			return b.ledger.ListPayments(ctx, f)
		})
	case MeterReadings:
		rows, order, err = collect(func() ([]models.MeterReading, error) {
			return b.ledger.ListReadings(ctx, ledger.ReadingFilter{})
		})
	case RentRoll:
		rows, order, err = b.rentRoll(ctx, *period)
	default:
		return Table{}, common.ErrNotFoundError("unknown report " + name)
	}
	if err != nil {
		return Table{}, err
	}
	return NewTable(rows, order...), nil
}

func collect[T any](list func() ([]T, error)) ([]Row, []string, error) {
	records, err := list()
	if err != nil {
		return nil, nil, err
	}
	rows, order := RowsOf(records)
	return rows, order, nil
}

// RentRollLine is one active lease in the rent roll
type RentRollLine struct {
	LeaseID     string          `json:"leaseId"`
	Party       string          `json:"party"`
	PartyType   string          `json:"partyType"`
	Property    string          `json:"property"`
	Unit        string          `json:"unit"`
	Month       string          `json:"month"`
	MonthlyRent decimal.Decimal `json:"monthlyRent"`
	Received    decimal.Decimal `json:"received"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// RentRollLines lists every lease active during the month with what was
// received for it in that month. Payments recorded against a lease count for
// that lease. Other receipts of a party fill its leases in start-date order,
// and anything left over lands on the last one.
func (b *Builder) RentRollLines(ctx context.Context, m Month) ([]RentRollLine, error) {
	leases, err := b.store.Leases.List()
	if err != nil {
		return nil, err
	}
	properties, err := b.store.Properties.List()
	if err != nil {
		return nil, err
	}
	propertyNames := make(map[string]string, len(properties))
	for _, p := range properties {
		propertyNames[p.ID] = p.Name
	}

	lastDay := m.End.AddDate(0, 0, -1)
	active := []*models.Lease{}
	inRoll := map[string]bool{}
	for i := range leases {
		l := &leases[i]
		if overlaps(l, m.Start, lastDay) {
			active = append(active, l)
			inRoll[l.ID] = true
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].StartDate != active[j].StartDate {
			return active[i].StartDate < active[j].StartDate
		}
		return active[i].ID < active[j].ID
	})

	direct := map[string]decimal.Decimal{}
	pooled := map[string]decimal.Decimal{}
	payments, err := b.ledger.ListPayments(ctx, ledger.PaymentFilter{From: m.Start, To: m.End})
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.LeaseID != "" && inRoll[p.LeaseID] {
			direct[p.LeaseID] = direct[p.LeaseID].Add(p.Amount)
			continue
		}
		key := partyKey(p.TenantID, p.OrgID)
		pooled[key] = pooled[key].Add(p.Amount)
	}
	credits, err := b.ledger.CreditsBetween(ctx, m.Start, m.End)
	if err != nil {
		return nil, err
	}
	for _, tx := range credits {
		key := partyKey(tx.TenantID, tx.OrgID)
		pooled[key] = pooled[key].Add(tx.Amount)
	}

	byParty := map[string][]*models.Lease{}
	for _, l := range active {
		key := partyKey(l.TenantID, l.OrgID)
		byParty[key] = append(byParty[key], l)
	}
	received := allocate(byParty, direct, pooled)

	lines := make([]RentRollLine, 0, len(active))
	for _, l := range active {
		partyType := "tenant"
		if l.OrgID != "" {
			partyType = "org"
		}
		got := received[l.ID]
		outstanding := l.MonthlyRent.Sub(got)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}
		lines = append(lines, RentRollLine{
			LeaseID:     l.ID,
			Party:       b.store.PartyName(l.TenantID, l.OrgID),
			PartyType:   partyType,
			Property:    propertyNames[l.PropertyID],
			Unit:        l.Unit,
			Month:       m.Label(),
			MonthlyRent: l.MonthlyRent,
			Received:    got,
			Outstanding: outstanding,
		})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Property != lines[j].Property {
			return lines[i].Property < lines[j].Property
		}
		return lines[i].Unit < lines[j].Unit
	})
	return lines, nil
}

// allocate returns the amount received per lease id. Leases of a party must
// be in start-date order.
func allocate(byParty map[string][]*models.Lease, direct, pooled map[string]decimal.Decimal) map[string]decimal.Decimal {
	received := make(map[string]decimal.Decimal, len(direct))
	for party, leases := range byParty {
		pool := pooled[party]
		for i, l := range leases {
			got := direct[l.ID]
			if i == len(leases)-1 {
				received[l.ID] = got.Add(pool)
				break
			}
			if due := l.MonthlyRent.Sub(got); due.IsPositive() && pool.IsPositive() {
				share := decimal.Min(due, pool)
				got = got.Add(share)
				pool = pool.Sub(share)
			}
			received[l.ID] = got
		}
	}
	return received
}

func (b *Builder) rentRoll(ctx context.Context, m Month) ([]Row, []string, error) {
	lines, err := b.RentRollLines(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	rows, order := RowsOf(lines)
	return rows, order, nil
}

func partyKey(tenantID, orgID string) string {
	if tenantID != "" {
		return "tenant:" + tenantID
	}
	return "org:" + orgID
}

// overlaps reports whether an active lease covers any day in [first, last]
func overlaps(l *models.Lease, first, last time.Time) bool {
	if l.Status != models.LeaseActive {
		return false
	}
	start, err := common.ParseDate(l.StartDate)
	if err != nil || start.After(last) {
		return false
	}
	if l.EndDate == "" {
		return true
	}
	end, err := common.ParseDate(l.EndDate)
	return err == nil && !end.Before(first)
}
