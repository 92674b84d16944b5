package classify

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

type stubBucketSource struct {
	buckets []*domain.Bucket
	err     error
}

func (s *stubBucketSource) ListBuckets(ctx context.Context) ([]*domain.Bucket, error) {
	return s.buckets, s.err
}

func defaultSource() *stubBucketSource {
	defaults := domain.DefaultBuckets()
	buckets := make([]*domain.Bucket, len(defaults))
	for i := range defaults {
		b := defaults[i]
		buckets[i] = &b
	}
	return &stubBucketSource{buckets: buckets}
}

func testGemini(generate func(ctx context.Context, parts []*genai.Part) (string, error)) *Gemini {
	return &Gemini{
		model:     "test-model",
		chunkSize: 20,
		buckets:   defaultSource(),
		generate:  generate,
	}
}

func TestCategorizeBatch_SingleChunk(t *testing.T) {
	calls := 0
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		calls++
		return `[
			{"bucket": "Dining & Coffee", "confidence": 0.95, "reasoning": "Coffee shop."},
			{"bucket": "Groceries", "confidence": 0.9, "reasoning": "Supermarket."}
		]`, nil
	})

	results, err := g.CategorizeBatch(context.Background(), []string{"STARBUCKS #12", "WHOLE FOODS"})
	if err != nil {
		t.Fatalf("CategorizeBatch() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("model calls = %d, want 1", calls)
	}
	got := results["STARBUCKS #12"]
	if got.Bucket != "Dining & Coffee" || got.Confidence != 0.95 || got.Source != domain.ResolutionAI {
		t.Errorf("suggestion = %+v", got)
	}
	if results["WHOLE FOODS"].Bucket != "Groceries" {
		t.Errorf("second suggestion = %+v", results["WHOLE FOODS"])
	}
}

func TestCategorizeBatch_Chunking(t *testing.T) {
	var chunkSizes []int
	g := testGemini(nil)
	g.chunkSize = 3
	g.generate = func(ctx context.Context, parts []*genai.Part) (string, error) {
		// Count the numbered transactions in the prompt to size the reply.
		count := 0
		for _, line := range strings.Split(parts[0].Text, "\n") {
			if len(line) > 2 && line[1] == '.' && line[0] >= '1' && line[0] <= '9' {
				count++
			}
		}
		chunkSizes = append(chunkSizes, count)
		items := make([]string, count)
		for i := range items {
			items[i] = `{"bucket": "Groceries", "confidence": 0.8, "reasoning": "Food."}`
		}
		return "[" + strings.Join(items, ",") + "]", nil
	}

	descs := []string{"A", "B", "C", "D", "E", "F", "G"}
	results, err := g.CategorizeBatch(context.Background(), descs)
	if err != nil {
		t.Fatalf("CategorizeBatch() error = %v", err)
	}
	if len(results) != len(descs) {
		t.Fatalf("results = %d, want %d", len(results), len(descs))
	}
	want := []int{3, 3, 1}
	if len(chunkSizes) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunkSizes, want)
	}
	for i := range want {
		if chunkSizes[i] != want[i] {
			t.Errorf("chunk %d size = %d, want %d", i, chunkSizes[i], want[i])
		}
	}
}

func TestCategorizeBatch_LengthMismatchFallsBackToSingles(t *testing.T) {
	calls := 0
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		calls++
		if calls == 1 {
			// chunk call: one item short
			return `[{"bucket": "Groceries", "confidence": 0.8, "reasoning": "x"}]`, nil
		}
		return `{"bucket": "Transport", "confidence": 0.7, "reasoning": "single"}`, nil
	})

	results, err := g.CategorizeBatch(context.Background(), []string{"SHELL OIL", "UBER TRIP"})
	if err != nil {
		t.Fatalf("CategorizeBatch() error = %v", err)
	}
	// 1 failed chunk call + 2 single calls
	if calls != 3 {
		t.Errorf("model calls = %d, want 3", calls)
	}
	for _, desc := range []string{"SHELL OIL", "UBER TRIP"} {
		if got := results[desc]; got.Bucket != "Transport" {
			t.Errorf("%s suggestion = %+v, want Transport", desc, got)
		}
	}
}

func TestCategorizeBatch_TotalFailureDegradesToAIError(t *testing.T) {
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		return "", fmt.Errorf("model unavailable")
	})

	results, err := g.CategorizeBatch(context.Background(), []string{"MYSTERY CHARGE"})
	if err != nil {
		t.Fatalf("CategorizeBatch() error = %v, want degraded result", err)
	}
	got := results["MYSTERY CHARGE"]
	if got.Bucket != "" || got.Confidence != 0 || got.Source != domain.ResolutionAIError {
		t.Errorf("suggestion = %+v, want empty ai_error", got)
	}
}

func TestCategorizeBatch_UnknownBucketZeroed(t *testing.T) {
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		return `[{"bucket": "Cryptocurrency", "confidence": 0.99, "reasoning": "x"}]`, nil
	})

	results, err := g.CategorizeBatch(context.Background(), []string{"COINBASE"})
	if err != nil {
		t.Fatalf("CategorizeBatch() error = %v", err)
	}
	got := results["COINBASE"]
	if got.Bucket != "" || got.Confidence != 0 {
		t.Errorf("unknown bucket must be zeroed, got %+v", got)
	}
	if got.Source != domain.ResolutionAI {
		t.Errorf("source = %q, want ai", got.Source)
	}
}

func TestCategorizeBatch_FencedResponse(t *testing.T) {
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		return "```json\n[{\"bucket\": \"Health\", \"confidence\": 0.85, \"reasoning\": \"Pharmacy.\"}]\n```", nil
	})

	results, err := g.CategorizeBatch(context.Background(), []string{"CVS PHARMACY"})
	if err != nil {
		t.Fatalf("CategorizeBatch() error = %v", err)
	}
	if got := results["CVS PHARMACY"]; got.Bucket != "Health" {
		t.Errorf("suggestion = %+v, want Health", got)
	}
}

func TestExtractStatement(t *testing.T) {
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		if len(parts) != 2 || parts[1].InlineData == nil {
			t.Fatalf("expected prompt + inline document, got %d parts", len(parts))
		}
		return `[
			{"date": "2026-01-15", "description": "STARBUCKS #1234 NEW YORK NY 10001", "amount": -4.85},
			{"date": "bad-date", "description": "SKIPPED", "amount": -1},
			{"date": "2026-01-20", "description": "", "amount": -2},
			{"date": "2026-02-01", "description": "PAYROLL ACME", "amount": 2450.004}
		]`, nil
	})

	txns, err := g.ExtractStatement(context.Background(), []byte("%PDF"), "application/pdf", domain.SourceBank)
	if err != nil {
		t.Fatalf("ExtractStatement() error = %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("transactions = %d, want 2 (invalid items skipped)", len(txns))
	}
	first := txns[0]
	if first.Description != "STARBUCKS #1234" {
		t.Errorf("description = %q, want trailing location stripped", first.Description)
	}
	if first.OriginalDescription != "STARBUCKS #1234 NEW YORK NY 10001" {
		t.Errorf("originalDescription = %q", first.OriginalDescription)
	}
	if first.MonthKey != "2026-01" || first.Source != domain.SourceBank {
		t.Errorf("monthKey/source = %q/%q", first.MonthKey, first.Source)
	}
	if got := txns[1].Amount; got != 2450.00 {
		t.Errorf("amount = %v, want rounded 2450.00", got)
	}
}

func TestExtractStatement_NoTransactions(t *testing.T) {
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		return `[]`, nil
	})
	_, err := g.ExtractStatement(context.Background(), []byte("img"), "image/png", domain.SourceCreditCard)
	if err == nil {
		t.Fatal("ExtractStatement() = nil error, want error for empty extraction")
	}
}

func TestExtractPaystub(t *testing.T) {
	g := testGemini(func(ctx context.Context, parts []*genai.Part) (string, error) {
		return `{
			"grossPay": 5000.00, "netPay": 3200.00, "payDate": "2026-01-15",
			"employer": "Acme Corp", "federalTax": 600.00, "stateTax": 250.00,
			"ficaMedicare": 382.50, "retirement": 400.00, "hsaFsa": 100.00,
			"debtPayments": 67.50, "otherDeductions": 0
		}`, nil
	})

	p, err := g.ExtractPaystub(context.Background(), []byte("%PDF"), "application/pdf")
	if err != nil {
		t.Fatalf("ExtractPaystub() error = %v", err)
	}
	if p.SourceName != "Acme Corp" || p.GrossPay != 5000.00 || p.NetPay != 3200.00 {
		t.Errorf("paystub = %+v", p)
	}
	if p.MonthKey != "2026-01" {
		t.Errorf("monthKey = %q, want 2026-01", p.MonthKey)
	}
	if got := p.Deductions[domain.DeductionFICA]; got != 382.50 {
		t.Errorf("fica = %v, want 382.50", got)
	}
	if _, ok := p.Deductions["otherDeductions"]; ok {
		t.Error("zero otherDeductions should be omitted")
	}
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"STARBUCKS #1234 NEW YORK NY 10001", "STARBUCKS #1234 NEW YORK"},
		{"AMAZON MKTPL xxxx1234", "AMAZON MKTPL"},
		{"PLAIN   MERCHANT", "PLAIN MERCHANT"},
		{"TRADER JOES", "TRADER JOES"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanDescription(tt.in); got != tt.want {
				t.Errorf("CleanDescription(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[1,2]`, `[1,2]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"chatty preamble", "Here you go:\n[1,2]\nHope that helps!", "[1,2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
