// Package classify talks to the external Gemini model: batch bucket
// categorization for transaction descriptions, and structured extraction
// from statement PDFs/images and paystub documents.
package classify

import (
	"context"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

// Suggestion is one model-assigned categorization. An empty Bucket with
// confidence 0 means the model could not resolve the description.
type Suggestion struct {
	Bucket     string  `json:"bucket"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Reasoning  string  `json:"reasoning"`
}

// BatchCategorizer resolves transaction descriptions to bucket suggestions.
// The returned map is keyed by the input descriptions; every input has an
// entry, failed ones carrying an ai_error suggestion.
type BatchCategorizer interface {
	CategorizeBatch(ctx context.Context, descriptions []string) (map[string]Suggestion, error)
}

// StatementExtractor pulls transactions out of a statement document
// (PDF or image). Amounts come back already signed with the internal
// convention: negative = money leaving.
type StatementExtractor interface {
	ExtractStatement(ctx context.Context, data []byte, mimeType string, source domain.Source) ([]*domain.Transaction, error)
}

// PaystubExtractor pulls structured income data out of a paystub PDF.
type PaystubExtractor interface {
	ExtractPaystub(ctx context.Context, data []byte, mimeType string) (*domain.Paystub, error)
}

// BucketSource supplies the bucket taxonomy the model must choose from.
type BucketSource interface {
	ListBuckets(ctx context.Context) ([]*domain.Bucket, error)
}
