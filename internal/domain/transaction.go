package domain

import (
	"strings"
	"time"
	"unicode"
)

// Source identifies where a transaction entered the system.
type Source string

const (
	SourceBank           Source = "bank"
	SourceCreditCard     Source = "credit_card"
	SourceStatementPDF   Source = "statement-pdf"
	SourceStatementImage Source = "statement-image"
	SourceManual         Source = "manual"
)

// Categorization sources recorded on a transaction resolution.
const (
	ResolutionMerchantMemory = "merchant_memory"
	ResolutionAI             = "ai"
	ResolutionAIError        = "ai_error"
	ResolutionUserOverride   = "user_override"
	ResolutionRecurringBill  = "recurring_bill"
)

// Transaction is one normalized statement line. Amounts are signed with a
// single internal convention: negative = money leaving the household.
// Bucket stays empty until a categorization resolves it.
type Transaction struct {
	ID       string `json:"transactionId"`
	UserID   string `json:"userId"`
	MonthKey string `json:"monthKey"`

	Date                time.Time `json:"date"`
	Description         string    `json:"description"`
	OriginalDescription string    `json:"originalDescription"`
	Amount              float64   `json:"amount"`
	Source              Source    `json:"source"`

	Bucket                  string  `json:"bucket"`
	Confidence              float64 `json:"confidence"`
	CategorizationSource    string  `json:"categorizationSource"`
	CategorizationReasoning string  `json:"categorizationReasoning"`

	UploadID  string    `json:"uploadId"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"createdAt"`
}

// NeedsReview reports whether the transaction must be surfaced for manual
// confirmation. Confidence exactly at the threshold does NOT need review.
func (t *Transaction) NeedsReview(threshold float64) bool {
	return t.Bucket == "" || t.Confidence < threshold
}

// RejectedRow is a raw input line that could not be normalized. It is
// persisted as-is for later manual handling rather than being dropped.
type RejectedRow struct {
	UploadID string `json:"uploadId"`
	LineNo   int    `json:"lineNo"`
	Raw      string `json:"raw"`
	Reason   string `json:"reason"`
}

// MonthKeyOf derives the YYYY-MM month key for a date.
func MonthKeyOf(date time.Time) string {
	return date.Format("2006-01")
}

// merchantKeyMaxLen bounds the normalized key so trailing reference noise
// in long descriptions does not split one merchant into many keys.
const merchantKeyMaxLen = 64

// MerchantKey normalizes a transaction description into the key used for
// merchant-memory lookups: case-folded, whitespace-collapsed, length-capped.
func MerchantKey(description string) string {
	folded := strings.ToLower(strings.TrimSpace(description))
	fields := strings.FieldsFunc(folded, unicode.IsSpace)
	key := strings.Join(fields, " ")
	if len(key) > merchantKeyMaxLen {
		key = strings.TrimSpace(key[:merchantKeyMaxLen])
	}
	return key
}

// MerchantEntry maps a merchant key to the bucket a user confirmed for it.
// The mapping keeps no history: the latest confirmation wins.
type MerchantEntry struct {
	Key                 string    `json:"merchantKey"`
	Bucket              string    `json:"bucket"`
	OriginalDescription string    `json:"originalDescription"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
