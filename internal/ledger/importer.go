package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"property-manager/internal/common"
	"property-manager/internal/models"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02"}

// LineError reports a CSV line that could not be imported
type LineError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ImportResult summarises a bank CSV import
type ImportResult struct {
	Batch    string      `json:"batch"`
	Inserted int         `json:"inserted"`
	Skipped  int         `json:"skipped"`
	Matched  int         `json:"matched"`
	Errors   []LineError `json:"errors"`
}

// ParseBankCSV reads a bank statement export. The header row must name the
// date, description and amount columns; credit and debit columns may stand
// in for amount. Lines that fail to parse are reported and left out.
func ParseBankCSV(r io.Reader) ([]models.BankTransaction, []LineError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, common.ErrInvalidInputError("csv file is empty")
		}
		return nil, nil, common.NewErrorWithCause(common.ErrInvalidInput, "invalid csv header", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[common.NormalizeKey(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	_, hasAmount := cols["amount"]
	_, hasCredit := cols["credit"]
	_, hasDebit := cols["debit"]
	for _, required := range []string{"date", "description"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, common.ErrInvalidInputf("csv header is missing the %s column", required)
		}
	}
	if !hasAmount && !hasCredit && !hasDebit {
		return nil, nil, common.ErrInvalidInputError("csv header is missing the amount column")
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	txs := []models.BankTransaction{}
	lineErrors := []LineError{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, nil, fmt.Errorf("failed to read csv: %w", err)
			}
			lineErrors = append(lineErrors, LineError{Line: parseErr.StartLine, Error: parseErr.Err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}

		booked, err := parseDate(field(record, "date"))
		if err != nil {
			lineErrors = append(lineErrors, LineError{Line: line, Error: err.Error()})
			continue
		}
		description := field(record, "description")
		if description == "" {
			lineErrors = append(lineErrors, LineError{Line: line, Error: "description is empty"})
			continue
		}
		amount, err := lineAmount(field(record, "amount"), field(record, "credit"), field(record, "debit"))
		if err != nil {
			lineErrors = append(lineErrors, LineError{Line: line, Error: err.Error()})
			continue
		}

		parsed := ParseDescription(description)
		reference := field(record, "reference")
		if reference == "" {
			reference = parsed.Reference
		}
		txs = append(txs, models.BankTransaction{
			ImportKey:   ImportKey(booked, description, amount, reference),
			BookedOn:    booked,
			Description: description,
			Amount:      amount,
			Reference:   reference,
			Unit:        parsed.Unit,
			Category:    parsed.Category,
		})
	}
	return txs, lineErrors, nil
}

// Import parses a bank CSV, matches each line and stores the new ones
func (s *Store) Import(ctx context.Context, r io.Reader, m *Matcher) (ImportResult, error) {
	txs, lineErrors, err := ParseBankCSV(r)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Batch: common.GenerateID(), Errors: lineErrors}
	for i := range txs {
		txs[i].ImportBatch = result.Batch
		if m == nil {
			continue
		}
		if tenantID, orgID := m.Match(txs[i]); tenantID != "" || orgID != "" {
			txs[i].TenantID, txs[i].OrgID, txs[i].MatchedBy = tenantID, orgID, MatchedAuto
		}
	}

	inserted, skipped, matched, err := s.InsertTransactions(ctx, txs)
	if err != nil {
		return result, err
	}
	result.Inserted, result.Skipped, result.Matched = inserted, skipped, matched
	return result, nil
}

// ImportKey identifies a bank line across repeated imports of the same statement
func ImportKey(booked time.Time, description string, amount decimal.Decimal, reference string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		booked.Format(common.DateLayout),
		description,
		amount.StringFixed(2),
		reference,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func lineAmount(amount, credit, debit string) (decimal.Decimal, error) {
	if amount != "" {
		return parseMoney(amount)
	}
	total := decimal.Zero
	if credit != "" {
		c, err := parseMoney(credit)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(c.Abs())
	}
	if debit != "" {
		d, err := parseMoney(debit)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Sub(d.Abs())
	}
	if credit == "" && debit == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	return total, nil
}

// parseMoney accepts currency symbols, thousands separators and
// parenthesised negatives
func parseMoney(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("£", "", "$", "", "€", "", ",", "", " ", "").Replace(s)
	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
