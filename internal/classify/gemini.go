package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/logger"
)

// Gemini implements BatchCategorizer, StatementExtractor and
// PaystubExtractor against the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	chunkSize int
	buckets   BucketSource

	// generate is swapped out in tests.
	generate func(ctx context.Context, parts []*genai.Part) (string, error)
}

// NewGemini creates a Gemini classifier. Credentials come from the
// environment (GEMINI_API_KEY or application default credentials).
func NewGemini(ctx context.Context, model string, chunkSize int, buckets BucketSource) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	g := &Gemini{
		client:    client,
		model:     model,
		chunkSize: chunkSize,
		buckets:   buckets,
	}
	g.generate = g.generateContent
	return g, nil
}

func (g *Gemini) generateContent(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// modelSuggestion is the shape the categorization prompt asks for.
type modelSuggestion struct {
	Bucket     string  `json:"bucket"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// CategorizeBatch resolves descriptions in chunks, one model call per
// chunk. A failed chunk falls back to per-description calls; descriptions
// that still fail get an ai_error suggestion rather than failing the batch.
func (g *Gemini) CategorizeBatch(ctx context.Context, descriptions []string) (map[string]Suggestion, error) {
	log := logger.FromContext(ctx)

	names, err := g.bucketNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategorizeBatch: loading buckets: %w", err)
	}

	results := make(map[string]Suggestion, len(descriptions))
	for start := 0; start < len(descriptions); start += g.chunkSize {
		end := start + g.chunkSize
		if end > len(descriptions) {
			end = len(descriptions)
		}
		chunk := descriptions[start:end]

		chunkResults, err := g.categorizeChunk(ctx, chunk, names)
		if err != nil {
			log.Warn().Err(err).Int("chunk_size", len(chunk)).
				Msg("chunk categorization failed, falling back to singles")
			chunkResults = g.categorizeSingles(ctx, chunk, names)
		}
		for desc, s := range chunkResults {
			results[desc] = s
		}
	}
	return results, nil
}

func (g *Gemini) bucketNames(ctx context.Context) ([]string, error) {
	buckets, err := g.buckets.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		defaults := domain.DefaultBuckets()
		names := make([]string, len(defaults))
		for i, b := range defaults {
			names[i] = b.Name
		}
		return names, nil
	}
	names := make([]string, len(buckets))
	for i, b := range buckets {
		names[i] = b.Name
	}
	return names, nil
}

func (g *Gemini) categorizeChunk(ctx context.Context, descriptions, bucketNames []string) (map[string]Suggestion, error) {
	var list strings.Builder
	for i, desc := range descriptions {
		fmt.Fprintf(&list, "%d. %q\n", i+1, desc)
	}
	namesJSON, _ := json.Marshal(bucketNames)

	prompt := fmt.Sprintf(`You are a personal finance categorizer. Categorize each of the following %d transactions into exactly ONE of these buckets:

%s

You MUST return EXACTLY %d results, one for each transaction, in the same order.

Respond with ONLY a valid JSON array:

[
    {"bucket": "<bucket name>", "confidence": <0.0 to 1.0>, "reasoning": "<one sentence>"},
    ...
]

Transactions:
%s`, len(descriptions), namesJSON, len(descriptions), list.String())

	raw, err := g.generate(ctx, []*genai.Part{{Text: prompt}})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrClassificationUnavailable)
	}

	var parsed []modelSuggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal chunk response: %w", err)
	}
	if len(parsed) != len(descriptions) {
		return nil, fmt.Errorf("chunk returned %d items, expected %d", len(parsed), len(descriptions))
	}

	known := make(map[string]bool, len(bucketNames))
	for _, n := range bucketNames {
		known[n] = true
	}

	results := make(map[string]Suggestion, len(descriptions))
	for i, desc := range descriptions {
		results[desc] = validateSuggestion(parsed[i], known)
	}
	return results, nil
}

// validateSuggestion zeroes out responses naming a bucket outside the
// known taxonomy.
func validateSuggestion(item modelSuggestion, known map[string]bool) Suggestion {
	if !known[item.Bucket] {
		return Suggestion{
			Source:    domain.ResolutionAI,
			Reasoning: fmt.Sprintf("Model suggested unknown bucket %q.", item.Bucket),
		}
	}
	return Suggestion{
		Bucket:     item.Bucket,
		Confidence: item.Confidence,
		Source:     domain.ResolutionAI,
		Reasoning:  item.Reasoning,
	}
}

func (g *Gemini) categorizeSingles(ctx context.Context, descriptions, bucketNames []string) map[string]Suggestion {
	results := make(map[string]Suggestion, len(descriptions))
	for _, desc := range descriptions {
		results[desc] = g.categorizeSingle(ctx, desc, bucketNames)
	}
	return results
}

func (g *Gemini) categorizeSingle(ctx context.Context, description string, bucketNames []string) Suggestion {
	namesJSON, _ := json.Marshal(bucketNames)
	prompt := fmt.Sprintf(`You are a personal finance categorizer. Given a transaction description, categorize it into exactly ONE of these buckets:

%s

Respond with valid JSON only:
{"bucket": "<bucket name>", "confidence": <0.0 to 1.0>, "reasoning": "<one sentence>"}

Transaction: %q`, namesJSON, description)

	raw, err := g.generate(ctx, []*genai.Part{{Text: prompt}})
	if err != nil {
		return Suggestion{
			Source:    domain.ResolutionAIError,
			Reasoning: fmt.Sprintf("Categorization failed: %v", err),
		}
	}

	var item modelSuggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &item); err != nil {
		return Suggestion{
			Source:    domain.ResolutionAIError,
			Reasoning: fmt.Sprintf("Unparseable model response: %v", err),
		}
	}

	known := make(map[string]bool, len(bucketNames))
	for _, n := range bucketNames {
		known[n] = true
	}
	return validateSuggestion(item, known)
}

// extractedTransaction is the shape the statement prompt asks for.
type extractedTransaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ExtractStatement sends a statement document to the model and converts
// its output into normalized transactions.
func (g *Gemini) ExtractStatement(ctx context.Context, data []byte, mimeType string, source domain.Source) ([]*domain.Transaction, error) {
	prompt := statementPrompt(source)

	parts := []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
	}
	raw, err := g.generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("ExtractStatement: %v: %w", err, domain.ErrClassificationUnavailable)
	}

	txns, err := parseExtractedStatement(raw, source)
	if err != nil {
		return nil, fmt.Errorf("ExtractStatement: %w", err)
	}
	return txns, nil
}

func statementPrompt(source domain.Source) string {
	label := "bank statement"
	signRule := "For bank statements: withdrawals/checks/payments are NEGATIVE, deposits/transfers-in are POSITIVE"
	if source == domain.SourceCreditCard {
		label = "credit card statement"
		signRule = "For credit cards: charges are NEGATIVE, payments/credits are POSITIVE"
	}

	return fmt.Sprintf(`You are a %s parser. Extract ALL transactions from this statement.

Return ONLY valid JSON, an array of transaction objects:

[
    {
        "date": "2026-01-15",
        "description": "STARBUCKS #1234",
        "amount": -4.85
    },
    ...
]

Rules:
- "date" must be in YYYY-MM-DD format
- "description" is the merchant/payee name, cleaned up (remove trailing city/state/ID if possible)
- Purchases/charges/debits = NEGATIVE amounts
- Refunds/credits/deposits = POSITIVE amounts
- %s
- Include ALL transactions, do not skip any
- Do NOT include balance entries, fee summaries, or interest unless they are actual line-item transactions
- Do NOT include headers, footers, or account information
- Return ONLY the JSON array, no markdown fences or extra text`, label, signRule)
}

func parseExtractedStatement(raw string, source domain.Source) ([]*domain.Transaction, error) {
	var items []extractedTransaction
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &items); err != nil {
		return nil, fmt.Errorf("unmarshal statement response: %w", err)
	}

	var out []*domain.Transaction
	for _, item := range items {
		if item.Date == "" || item.Description == "" {
			continue
		}
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			continue
		}
		amount, _ := decimal.NewFromFloat(item.Amount).Round(2).Float64()
		out = append(out, &domain.Transaction{
			MonthKey:            domain.MonthKeyOf(date),
			Date:                date,
			Description:         CleanDescription(item.Description),
			OriginalDescription: item.Description,
			Amount:              amount,
			Source:              source,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no transactions extracted from statement")
	}
	return out, nil
}

// extractedPaystub is the shape the paystub prompt asks for.
type extractedPaystub struct {
	GrossPay        float64 `json:"grossPay"`
	NetPay          float64 `json:"netPay"`
	PayDate         string  `json:"payDate"`
	Employer        string  `json:"employer"`
	FederalTax      float64 `json:"federalTax"`
	StateTax        float64 `json:"stateTax"`
	FicaMedicare    float64 `json:"ficaMedicare"`
	Retirement      float64 `json:"retirement"`
	HsaFsa          float64 `json:"hsaFsa"`
	DebtPayments    float64 `json:"debtPayments"`
	OtherDeductions float64 `json:"otherDeductions"`
}

// ExtractPaystub sends a paystub document to the model and returns the
// structured income data.
func (g *Gemini) ExtractPaystub(ctx context.Context, data []byte, mimeType string) (*domain.Paystub, error) {
	prompt := `You are a paystub parser. Extract the following information from this paystub.

Return ONLY valid JSON with these exact fields (use 0.00 for any field not found):

{
    "grossPay": <total gross pay for this pay period as a number>,
    "netPay": <net/take-home pay as a number>,
    "payDate": "<pay date in YYYY-MM-DD format>",
    "employer": "<employer/company name>",
    "federalTax": <federal income tax withheld as a number>,
    "stateTax": <state income tax withheld as a number>,
    "ficaMedicare": <Social Security + Medicare combined as a number>,
    "retirement": <401k + Roth 401k + IRA contributions combined as a number>,
    "hsaFsa": <HSA + FSA contributions combined as a number>,
    "debtPayments": <401k loan repayments + other debt deductions as a number>,
    "otherDeductions": <any other deductions not in the above categories as a number>
}

Important:
- All amounts should be for the CURRENT pay period only (not YTD)
- Use the "Current" column, NOT the "YTD" column
- federalTax = Federal Income Tax / FIT / Fed Withholding
- stateTax = State Income Tax / SIT / State Withholding
- ficaMedicare = Social Security (OASDI) + Medicare combined
- retirement = 401k + Roth 401k + 403b + IRA (employee contributions only)
- hsaFsa = Health Savings Account + Flexible Spending Account
- debtPayments = 401k Loan + any loan repayments deducted from pay
- otherDeductions = dental, vision, life insurance, disability, union dues, etc.
- Return ONLY the JSON, no markdown fences or extra text`

	parts := []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
	}
	raw, err := g.generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("ExtractPaystub: %v: %w", err, domain.ErrClassificationUnavailable)
	}

	p, err := parseExtractedPaystub(raw)
	if err != nil {
		return nil, fmt.Errorf("ExtractPaystub: %w", err)
	}
	return p, nil
}

func parseExtractedPaystub(raw string) (*domain.Paystub, error) {
	var item extractedPaystub
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &item); err != nil {
		return nil, fmt.Errorf("unmarshal paystub response: %w", err)
	}

	p := &domain.Paystub{
		SourceName: item.Employer,
		GrossPay:   item.GrossPay,
		NetPay:     item.NetPay,
		Deductions: map[string]float64{
			domain.DeductionFederalTax:  item.FederalTax,
			domain.DeductionStateTax:    item.StateTax,
			domain.DeductionFICA:        item.FicaMedicare,
			domain.DeductionRetirement:  item.Retirement,
			domain.DeductionHSAFSA:      item.HsaFsa,
			domain.DeductionDebtPayment: item.DebtPayments,
		},
	}
	if item.OtherDeductions != 0 {
		p.Deductions["otherDeductions"] = item.OtherDeductions
	}
	if p.SourceName == "" {
		p.SourceName = "Unknown"
	}
	if item.PayDate != "" {
		if date, err := time.Parse("2006-01-02", item.PayDate); err == nil {
			p.PayDate = date
			p.MonthKey = domain.MonthKeyOf(date)
		}
	}
	return p, nil
}

var (
	_ BatchCategorizer   = (*Gemini)(nil)
	_ StatementExtractor = (*Gemini)(nil)
	_ PaystubExtractor   = (*Gemini)(nil)
)
