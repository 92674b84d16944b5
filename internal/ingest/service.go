package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RonStack/leaky-buckets/internal/blob"
	"github.com/RonStack/leaky-buckets/internal/categorize"
	"github.com/RonStack/leaky-buckets/internal/classify"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/jobs"
	"github.com/RonStack/leaky-buckets/internal/logger"
	"github.com/RonStack/leaky-buckets/internal/normalize"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// Content types per upload extension.
var contentTypes = map[string]string{
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Service orchestrates the upload pipeline.
type Service struct {
	transactions store.TransactionRepository
	months       store.MonthRepository
	paystubs     store.PaystubRepository

	archive     blob.Archive
	categorizer *categorize.Categorizer
	extractor   classify.StatementExtractor
	paystubExt  classify.PaystubExtractor
	publisher   jobs.Publisher

	confidenceThreshold float64
}

// NewService wires the upload pipeline.
func NewService(
	transactions store.TransactionRepository,
	months store.MonthRepository,
	paystubs store.PaystubRepository,
	archive blob.Archive,
	categorizer *categorize.Categorizer,
	extractor classify.StatementExtractor,
	paystubExt classify.PaystubExtractor,
	publisher jobs.Publisher,
	confidenceThreshold float64,
) *Service {
	return &Service{
		transactions:        transactions,
		months:              months,
		paystubs:            paystubs,
		archive:             archive,
		categorizer:         categorizer,
		extractor:           extractor,
		paystubExt:          paystubExt,
		publisher:           publisher,
		confidenceThreshold: confidenceThreshold,
	}
}

// IngestCSV runs the synchronous pipeline over a CSV export.
func (s *Service) IngestCSV(ctx context.Context, userID, fileName string, raw []byte, source domain.Source) (*Receipt, error) {
	state := &State{
		UploadID:    uuid.New().String(),
		UserID:      userID,
		FileName:    fileName,
		ContentType: "text/csv",
		Source:      source,
		Raw:         raw,
	}
	steps := []Step{
		&archiveRawStep{archive: s.archive},
		&normalizeCSVStep{},
		&checkMonthLockStep{months: s.months},
		&categorizeStep{categorizer: s.categorizer},
		&persistStep{transactions: s.transactions},
		&receiptStep{threshold: s.confidenceThreshold},
	}
	if err := run(ctx, state, steps); err != nil {
		return nil, err
	}
	return state.Receipt, nil
}

// IngestDocument archives a PDF/image upload and queues the parse job.
// The returned job carries the id the client polls for completion.
func (s *Service) IngestDocument(ctx context.Context, userID, fileName string, data []byte, source domain.Source, kind jobs.Kind) (*jobs.ParseDocumentJob, error) {
	ext := strings.ToLower(path.Ext(fileName))
	contentType, ok := contentTypes[ext]
	if !ok || ext == ".csv" {
		return nil, fmt.Errorf("unsupported file format %q: use CSV, PDF, or image (PNG/JPG)", ext)
	}

	uploadID := uuid.New().String()
	rawKey := blob.RawKey(userID, uploadID, fileName)
	if err := s.archive.Store(ctx, rawKey, data, contentType); err != nil {
		return nil, fmt.Errorf("archiving upload: %w", err)
	}

	job := &jobs.ParseDocumentJob{
		Kind:     kind,
		UploadID: uploadID,
		UserID:   userID,
		RawKey:   rawKey,
		FileName: fileName,
		MIMEType: contentType,
		Source:   source,
	}
	if err := s.publisher.PublishParseDocument(ctx, job); err != nil {
		return nil, fmt.Errorf("queueing parse job: %w", err)
	}
	return job, nil
}

// ProcessDocumentJob is the jobs worker handler: fetch the archived file,
// extract, and run the rest of the pipeline.
func (s *Service) ProcessDocumentJob(ctx context.Context, job *jobs.ParseDocumentJob) error {
	log := logger.FromContext(ctx)
	log.Info().Str("job", job.JobID).Str("kind", string(job.Kind)).Str("file", job.FileName).
		Msg("processing document job")

	data, err := s.archive.Fetch(ctx, job.RawKey)
	if err != nil {
		return fmt.Errorf("fetching archived upload: %w", err)
	}

	if job.Kind == jobs.KindPaystub {
		return s.processPaystub(ctx, job, data)
	}

	state := &State{
		UploadID:    job.UploadID,
		UserID:      job.UserID,
		FileName:    job.FileName,
		ContentType: job.MIMEType,
		Source:      job.Source,
		Raw:         data,
		RawKey:      job.RawKey,
	}
	steps := []Step{
		&extractStatementStep{extractor: s.extractor},
		&checkMonthLockStep{months: s.months},
		&categorizeStep{categorizer: s.categorizer},
		&persistStep{transactions: s.transactions},
		&receiptStep{threshold: s.confidenceThreshold},
	}
	if err := run(ctx, state, steps); err != nil {
		return err
	}
	job.TransactionsProcessed = state.Receipt.TransactionsProcessed
	job.MonthKey = state.Receipt.MonthKey
	return nil
}

func (s *Service) processPaystub(ctx context.Context, job *jobs.ParseDocumentJob, data []byte) error {
	p, err := s.paystubExt.ExtractPaystub(ctx, data, job.MIMEType)
	if err != nil {
		return err
	}
	p.ID = uuid.New().String()
	p.UserID = job.UserID
	p.RawFileKey = job.RawKey
	p.UploadedAt = time.Now().UTC()
	if p.MonthKey == "" {
		p.MonthKey = domain.MonthKeyOf(time.Now().UTC())
	}
	if err := s.paystubs.InsertPaystub(ctx, p); err != nil {
		return fmt.Errorf("persisting paystub: %w", err)
	}
	job.MonthKey = p.MonthKey
	return nil
}

// transactionID derives a stable id from the row content and upload, so
// re-processing the same upload cannot duplicate rows under new ids.
func transactionID(tx *domain.Transaction, uploadID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s%v%s",
		tx.Date.Format("2006-01-02"), tx.Description, tx.Amount, uploadID)))
	return hex.EncodeToString(sum[:])[:16]
}

// ---- steps ----

type archiveRawStep struct {
	archive blob.Archive
}

func (s *archiveRawStep) Execute(ctx context.Context, state *State) error {
	key := blob.RawKey(state.UserID, state.UploadID, state.FileName)
	if err := s.archive.Store(ctx, key, state.Raw, state.ContentType); err != nil {
		return fmt.Errorf("archiving upload: %w", err)
	}
	state.RawKey = key
	return nil
}

type normalizeCSVStep struct{}

func (s *normalizeCSVStep) Execute(ctx context.Context, state *State) error {
	res, err := normalize.CSV(string(state.Raw), state.Source)
	if err != nil {
		return err
	}
	if len(res.Transactions) == 0 {
		return fmt.Errorf("no valid transactions found in CSV: %w", domain.ErrMalformedRecord)
	}
	state.Transactions = res.Transactions
	state.Rejected = res.Rejected
	return nil
}

type extractStatementStep struct {
	extractor classify.StatementExtractor
}

func (s *extractStatementStep) Execute(ctx context.Context, state *State) error {
	txs, err := s.extractor.ExtractStatement(ctx, state.Raw, state.ContentType, state.Source)
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// checkMonthLockStep rejects the whole upload when it targets a locked
// month. The month key comes from the first transaction, matching how the
// receipt reports it.
type checkMonthLockStep struct {
	months store.MonthRepository
}

func (s *checkMonthLockStep) Execute(ctx context.Context, state *State) error {
	state.MonthKey = state.Transactions[0].MonthKey
	mstate, err := s.months.GetMonthState(ctx, state.MonthKey)
	if err != nil {
		return fmt.Errorf("month state: %w", err)
	}
	if mstate.Locked {
		return fmt.Errorf("month %s: %w", state.MonthKey, domain.ErrMonthLocked)
	}
	return nil
}

type categorizeStep struct {
	categorizer *categorize.Categorizer
}

func (s *categorizeStep) Execute(ctx context.Context, state *State) error {
	return s.categorizer.Categorize(ctx, state.Transactions)
}

type persistStep struct {
	transactions store.TransactionRepository
}

func (s *persistStep) Execute(ctx context.Context, state *State) error {
	now := time.Now().UTC()
	for _, tx := range state.Transactions {
		tx.ID = transactionID(tx, state.UploadID)
		tx.UserID = state.UserID
		tx.UploadID = state.UploadID
		tx.CreatedAt = now
	}
	if err := s.transactions.InsertTransactions(ctx, state.Transactions); err != nil {
		return fmt.Errorf("persisting transactions: %w", err)
	}

	if len(state.Rejected) > 0 {
		for i := range state.Rejected {
			state.Rejected[i].UploadID = state.UploadID
		}
		if err := s.transactions.InsertRejectedRows(ctx, state.Rejected); err != nil {
			return fmt.Errorf("persisting rejected rows: %w", err)
		}
	}
	return nil
}

type receiptStep struct {
	threshold float64
}

func (s *receiptStep) Execute(ctx context.Context, state *State) error {
	total := decimal.Zero
	needsReview := 0
	for _, tx := range state.Transactions {
		total = total.Add(decimal.NewFromFloat(tx.Amount))
		if tx.NeedsReview(s.threshold) {
			needsReview++
		}
	}
	totalAmount, _ := total.Round(2).Float64()
	state.Receipt = &Receipt{
		UploadID:              state.UploadID,
		MonthKey:              state.MonthKey,
		TransactionsProcessed: len(state.Transactions),
		NeedsReview:           needsReview,
		RejectedRows:          len(state.Rejected),
		TotalAmount:           totalAmount,
		RawFileKey:            state.RawKey,
	}
	return nil
}
