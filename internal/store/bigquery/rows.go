package bigquery

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

// TransactionRow maps domain.Transaction onto the household.transactions
// table schema.
type TransactionRow struct {
	TransactionID string     `bigquery:"transaction_id"`
	UserID        string     `bigquery:"user_id"`
	MonthKey      string     `bigquery:"month_key"`
	TxDate        civil.Date `bigquery:"tx_date"`

	Description         string  `bigquery:"description"`
	OriginalDescription string  `bigquery:"original_description"`
	Amount              float64 `bigquery:"amount"`
	Source              string  `bigquery:"source"`

	Bucket                  bigquery.NullString  `bigquery:"bucket"`
	Confidence              float64              `bigquery:"confidence"`
	CategorizationSource    bigquery.NullString  `bigquery:"categorization_source"`
	CategorizationReasoning bigquery.NullString  `bigquery:"categorization_reasoning"`

	UploadID  string    `bigquery:"upload_id"`
	Locked    bool      `bigquery:"locked"`
	CreatedTS time.Time `bigquery:"created_ts"`
}

// RejectedRowRow retains an unparseable input line verbatim.
type RejectedRowRow struct {
	UploadID string    `bigquery:"upload_id"`
	LineNo   int64     `bigquery:"line_no"`
	Raw      string    `bigquery:"raw"`
	Reason   string    `bigquery:"reason"`
	CreatedTS time.Time `bigquery:"created_ts"`
}

// MerchantRow maps domain.MerchantEntry onto household.merchants. Unique per
// merchant key; the latest upsert wins.
type MerchantRow struct {
	MerchantKey         string    `bigquery:"merchant_key"`
	Bucket              string    `bigquery:"bucket"`
	OriginalDescription string    `bigquery:"original_description"`
	UpdatedTS           time.Time `bigquery:"updated_ts"`
}

// BucketRow maps domain.Bucket onto household.buckets.
type BucketRow struct {
	BucketID      string  `bigquery:"bucket_id"`
	Name          string  `bigquery:"name"`
	Emoji         string  `bigquery:"emoji"`
	MonthlyTarget float64 `bigquery:"monthly_target"`
	DisplayOrder  int64   `bigquery:"display_order"`
}

// MonthRow tracks the one-way lock flag per month key.
type MonthRow struct {
	MonthKey string                 `bigquery:"month_key"`
	Locked   bool                   `bigquery:"locked"`
	LockedTS bigquery.NullTimestamp `bigquery:"locked_ts"`
}

// PaystubRow maps domain.Paystub onto household.paystubs. Deductions are
// stored as a JSON blob.
type PaystubRow struct {
	PaystubID  string            `bigquery:"paystub_id"`
	UserID     string            `bigquery:"user_id"`
	MonthKey   string            `bigquery:"month_key"`
	SourceName string            `bigquery:"source_name"`
	PayDate    civil.Date        `bigquery:"pay_date"`
	GrossPay   float64           `bigquery:"gross_pay"`
	NetPay     float64           `bigquery:"net_pay"`
	Deductions bigquery.NullJSON `bigquery:"deductions"`
	RawFileKey string            `bigquery:"raw_file_key"`
	UploadedTS time.Time         `bigquery:"uploaded_ts"`
}

// BillRow maps domain.RecurringBill onto household.recurring_bills.
type BillRow struct {
	BillID     string  `bigquery:"bill_id"`
	Name       string  `bigquery:"name"`
	Amount     float64 `bigquery:"amount"`
	Bucket     string  `bigquery:"bucket"`
	DayOfMonth int64   `bigquery:"day_of_month"`
}

func transactionToRow(t *domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:       t.ID,
		UserID:              t.UserID,
		MonthKey:            t.MonthKey,
		TxDate:              civil.DateOf(t.Date),
		Description:         t.Description,
		OriginalDescription: t.OriginalDescription,
		Amount:              t.Amount,
		Source:              string(t.Source),
		Confidence:          t.Confidence,
		UploadID:            t.UploadID,
		Locked:              t.Locked,
		CreatedTS:           t.CreatedAt,
	}
	if t.Bucket != "" {
		row.Bucket = bigquery.NullString{StringVal: t.Bucket, Valid: true}
	}
	if t.CategorizationSource != "" {
		row.CategorizationSource = bigquery.NullString{StringVal: t.CategorizationSource, Valid: true}
	}
	if t.CategorizationReasoning != "" {
		row.CategorizationReasoning = bigquery.NullString{StringVal: t.CategorizationReasoning, Valid: true}
	}
	return row
}

func rowToTransaction(r *TransactionRow) *domain.Transaction {
	return &domain.Transaction{
		ID:                      r.TransactionID,
		UserID:                  r.UserID,
		MonthKey:                r.MonthKey,
		Date:                    r.TxDate.In(time.UTC),
		Description:             r.Description,
		OriginalDescription:     r.OriginalDescription,
		Amount:                  r.Amount,
		Source:                  domain.Source(r.Source),
		Bucket:                  r.Bucket.StringVal,
		Confidence:              r.Confidence,
		CategorizationSource:    r.CategorizationSource.StringVal,
		CategorizationReasoning: r.CategorizationReasoning.StringVal,
		UploadID:                r.UploadID,
		Locked:                  r.Locked,
		CreatedAt:               r.CreatedTS,
	}
}

func paystubToRow(p *domain.Paystub) *PaystubRow {
	row := &PaystubRow{
		PaystubID:  p.ID,
		UserID:     p.UserID,
		MonthKey:   p.MonthKey,
		SourceName: p.SourceName,
		PayDate:    civil.DateOf(p.PayDate),
		GrossPay:   p.GrossPay,
		NetPay:     p.NetPay,
		RawFileKey: p.RawFileKey,
		UploadedTS: p.UploadedAt,
	}
	if len(p.Deductions) > 0 {
		if b, err := json.Marshal(p.Deductions); err == nil {
			row.Deductions = bigquery.NullJSON{JSONVal: string(b), Valid: true}
		}
	}
	return row
}

func rowToPaystub(r *PaystubRow) *domain.Paystub {
	p := &domain.Paystub{
		ID:         r.PaystubID,
		UserID:     r.UserID,
		MonthKey:   r.MonthKey,
		SourceName: r.SourceName,
		PayDate:    r.PayDate.In(time.UTC),
		GrossPay:   r.GrossPay,
		NetPay:     r.NetPay,
		RawFileKey: r.RawFileKey,
		UploadedAt: r.UploadedTS,
	}
	if r.Deductions.Valid {
		var m map[string]float64
		if err := json.Unmarshal([]byte(r.Deductions.JSONVal), &m); err == nil {
			p.Deductions = m
		}
	}
	return p
}
