// Package normalize turns bank and credit-card CSV exports into the
// canonical transaction shape. Column roles are detected heuristically from
// the header row, amounts are reduced to a single sign convention (negative
// = money leaving the household), and account-number-like substrings are
// stripped from descriptions before they leave this package.
package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

// Result is the outcome of normalizing one file. A malformed row never
// aborts the file; it lands in Rejected with its raw content retained.
type Result struct {
	Transactions []*domain.Transaction
	Rejected     []domain.RejectedRow
}

// Header hints a column is an account identifier; those columns are never
// mapped to a role.
var accountColumnRe = regexp.MustCompile(`(?i)account|acct|card.?number|card.?no|last.?four`)

var (
	dateHintRe   = regexp.MustCompile(`(?i)date|posted|trans.?date|settlement`)
	descHintRe   = regexp.MustCompile(`(?i)desc|narr|memo|merchant|payee|detail|name`)
	amountHintRe = regexp.MustCompile(`(?i)amount|sum|value|total`)
	debitHintRe  = regexp.MustCompile(`(?i)debit|withdrawal|charge`)
	creditHintRe = regexp.MustCompile(`(?i)credit|deposit|payment`)
)

// Date layouts banks actually ship.
var dateLayouts = []string{
	"01/02/2006",
	"01/02/06",
	"2006-01-02",
	"01-02-2006",
	"02/01/2006",
	"2006/01/02",
}

// columnMap holds the detected index of each role, -1 when absent.
type columnMap struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
}

// CSV normalizes a raw CSV export. Rows whose date or amount cannot be
// parsed are retained as rejected rows; only a structurally unreadable file
// (no header, broken quoting throughout) returns an error.
func CSV(raw string, source domain.Source) (*Result, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", domain.ErrMalformedRecord)
	}
	cols := detectColumns(header)
	if cols.date == -1 {
		return nil, fmt.Errorf("no date column detected in header: %w", domain.ErrMalformedRecord)
	}

	res := &Result{}
	lineNo := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedRow{
				LineNo: lineNo,
				Raw:    rawLine(record),
				Reason: fmt.Sprintf("unreadable CSV row: %v", err),
			})
			continue
		}

		txn, err := normalizeRow(record, cols, source)
		if err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedRow{
				LineNo: lineNo,
				Raw:    rawLine(record),
				Reason: err.Error(),
			})
			continue
		}
		res.Transactions = append(res.Transactions, txn)
	}
	return res, nil
}

func detectColumns(header []string) columnMap {
	cols := columnMap{date: -1, description: -1, amount: -1, debit: -1, credit: -1}
	for i, col := range header {
		clean := strings.TrimSpace(col)
		if accountColumnRe.MatchString(clean) {
			continue
		}
		switch {
		case cols.date == -1 && dateHintRe.MatchString(clean):
			cols.date = i
		case cols.description == -1 && descHintRe.MatchString(clean):
			cols.description = i
		case cols.amount == -1 && amountHintRe.MatchString(clean):
			cols.amount = i
		case cols.debit == -1 && debitHintRe.MatchString(clean):
			cols.debit = i
		case cols.credit == -1 && creditHintRe.MatchString(clean):
			cols.credit = i
		}
	}
	return cols
}

func normalizeRow(record []string, cols columnMap, source domain.Source) (*domain.Transaction, error) {
	date, err := ParseDate(field(record, cols.date))
	if err != nil {
		return nil, err
	}

	rawDesc := strings.TrimSpace(field(record, cols.description))
	if rawDesc == "" {
		return nil, fmt.Errorf("empty description: %w", domain.ErrMalformedRecord)
	}

	amount, err := parseRowAmount(record, cols, source)
	if err != nil {
		return nil, err
	}

	return &domain.Transaction{
		MonthKey:            domain.MonthKeyOf(date),
		Date:                date,
		Description:         StripAccountInfo(rawDesc),
		OriginalDescription: rawDesc,
		Amount:              amount,
		Source:              source,
	}, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// ParseDate tries the known bank date layouts in order.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q: %w", raw, domain.ErrMalformedRecord)
}

// parseRowAmount reads the single amount column when present, falling back
// to split debit/credit columns. Split columns carry their own direction
// (debit is always money leaving), so the credit-card sign flip applies
// only to the single-column form, where card exports report charges as
// positive numbers.
func parseRowAmount(record []string, cols columnMap, source domain.Source) (float64, error) {
	if cols.amount != -1 {
		raw := strings.TrimSpace(field(record, cols.amount))
		val, err := ParseAmount(raw)
		if err != nil {
			return 0, err
		}
		if source == domain.SourceCreditCard {
			val = val.Neg()
		}
		f, _ := val.Float64()
		return f, nil
	}

	if debit := strings.TrimSpace(field(record, cols.debit)); debit != "" {
		val, err := ParseAmount(debit)
		if err != nil {
			return 0, err
		}
		f, _ := val.Abs().Neg().Float64()
		return f, nil
	}
	if credit := strings.TrimSpace(field(record, cols.credit)); credit != "" {
		val, err := ParseAmount(credit)
		if err != nil {
			return 0, err
		}
		f, _ := val.Abs().Float64()
		return f, nil
	}
	return 0, fmt.Errorf("no amount value: %w", domain.ErrMalformedRecord)
}

var amountNoiseRe = regexp.MustCompile(`[$ ,\x{00a0}]`)

// ParseAmount parses a currency string: symbols, thousands separators and
// non-breaking spaces are stripped, and parentheses mean negative.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := amountNoiseRe.ReplaceAllString(raw, "")
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount: %w", domain.ErrMalformedRecord)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", raw, domain.ErrMalformedRecord)
	}
	return d, nil
}

var (
	longDigitsRe  = regexp.MustCompile(`\b\d{4,}\b`)
	multiSpacesRe = regexp.MustCompile(`\s{2,}`)
)

// StripAccountInfo removes sequences that look like account or card
// numbers (runs of four or more digits) and collapses leftover whitespace.
func StripAccountInfo(desc string) string {
	cleaned := longDigitsRe.ReplaceAllString(desc, "")
	cleaned = multiSpacesRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

func rawLine(record []string) string {
	return strings.Join(record, ",")
}

// IsMalformed reports whether err stems from an unparseable record.
func IsMalformed(err error) bool {
	return errors.Is(err, domain.ErrMalformedRecord)
}
