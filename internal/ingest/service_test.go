package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RonStack/leaky-buckets/internal/blob"
	"github.com/RonStack/leaky-buckets/internal/categorize"
	"github.com/RonStack/leaky-buckets/internal/classify"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/jobs"
	"github.com/RonStack/leaky-buckets/internal/store/inmemory"
)

type stubClassifier struct {
	results map[string]classify.Suggestion
}

func (s *stubClassifier) CategorizeBatch(ctx context.Context, descriptions []string) (map[string]classify.Suggestion, error) {
	out := make(map[string]classify.Suggestion, len(descriptions))
	for _, d := range descriptions {
		if r, ok := s.results[d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

type stubExtractor struct {
	txs []*domain.Transaction
	err error
}

func (s *stubExtractor) ExtractStatement(ctx context.Context, data []byte, mimeType string, source domain.Source) ([]*domain.Transaction, error) {
	return s.txs, s.err
}

type stubPaystubExtractor struct {
	paystub *domain.Paystub
	err     error
}

func (s *stubPaystubExtractor) ExtractPaystub(ctx context.Context, data []byte, mimeType string) (*domain.Paystub, error) {
	return s.paystub, s.err
}

type capturePublisher struct {
	published []*jobs.ParseDocumentJob
}

func (p *capturePublisher) PublishParseDocument(ctx context.Context, job *jobs.ParseDocumentJob) error {
	p.published = append(p.published, job)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newService(st *inmemory.Store, cls *stubClassifier, ext *stubExtractor, pext *stubPaystubExtractor, pub *capturePublisher) (*Service, *blob.MemoryArchive) {
	archive := blob.NewMemoryArchive()
	cat := categorize.NewCategorizer(st, cls)
	return NewService(st, st, st, archive, cat, ext, pext, pub, 0.7), archive
}

const sampleCSV = "Date,Description,Amount\n" +
	"01/15/2026,STARBUCKS #12,-4.85\n" +
	"01/16/2026,WHOLE FOODS,-52.13\n" +
	"01/17/2026,MYSTERY VENDOR,-12.00\n" +
	"bad-date,BROKEN ROW,1.00\n"

func TestIngestCSV(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	if err := st.Upsert(ctx, &domain.MerchantEntry{
		Key:    domain.MerchantKey("STARBUCKS #12"),
		Bucket: "Dining & Coffee",
	}); err != nil {
		t.Fatal(err)
	}
	cls := &stubClassifier{results: map[string]classify.Suggestion{
		"WHOLE FOODS": {Bucket: "Groceries", Confidence: 0.92, Source: domain.ResolutionAI, Reasoning: "Supermarket."},
	}}
	svc, archive := newService(st, cls, &stubExtractor{}, &stubPaystubExtractor{}, &capturePublisher{})

	receipt, err := svc.IngestCSV(ctx, "u1", "export.csv", []byte(sampleCSV), domain.SourceBank)
	if err != nil {
		t.Fatalf("IngestCSV() error = %v", err)
	}

	if receipt.TransactionsProcessed != 3 {
		t.Errorf("processed = %d, want 3", receipt.TransactionsProcessed)
	}
	if receipt.RejectedRows != 1 {
		t.Errorf("rejected = %d, want 1", receipt.RejectedRows)
	}
	// STARBUCKS resolved by memory, WHOLE FOODS by the model, MYSTERY needs review
	if receipt.NeedsReview != 1 {
		t.Errorf("needsReview = %d, want 1", receipt.NeedsReview)
	}
	if receipt.MonthKey != "2026-01" {
		t.Errorf("monthKey = %q", receipt.MonthKey)
	}
	if receipt.TotalAmount != -68.98 {
		t.Errorf("totalAmount = %v, want -68.98", receipt.TotalAmount)
	}
	if archive.Len() != 1 {
		t.Errorf("archived objects = %d, want raw file archived", archive.Len())
	}

	txs, err := st.ListTransactionsByMonth(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("stored transactions = %d, want 3", len(txs))
	}
	for _, tx := range txs {
		if tx.ID == "" || tx.UploadID != receipt.UploadID || tx.UserID != "u1" {
			t.Errorf("stored transaction incomplete: %+v", tx)
		}
	}

	rejected, err := st.ListRejectedRows(ctx, receipt.UploadID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rejected) != 1 || rejected[0].Raw == "" {
		t.Errorf("rejected rows = %+v, want raw row retained", rejected)
	}
}

func TestIngestCSV_LockedMonth(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	if _, err := st.LockMonth(ctx, "2026-01", time.Now()); err != nil {
		t.Fatal(err)
	}
	svc, _ := newService(st, &stubClassifier{}, &stubExtractor{}, &stubPaystubExtractor{}, &capturePublisher{})

	_, err := svc.IngestCSV(ctx, "u1", "export.csv", []byte(sampleCSV), domain.SourceBank)
	if !errors.Is(err, domain.ErrMonthLocked) {
		t.Fatalf("error = %v, want ErrMonthLocked", err)
	}
	txs, err := st.ListTransactionsByMonth(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Errorf("stored transactions = %d, want none for a locked month", len(txs))
	}
}

func TestIngestCSV_EmptyFile(t *testing.T) {
	svc, _ := newService(inmemory.New(), &stubClassifier{}, &stubExtractor{}, &stubPaystubExtractor{}, &capturePublisher{})
	_, err := svc.IngestCSV(context.Background(), "u1", "export.csv", []byte("Date,Description,Amount\n"), domain.SourceBank)
	if !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("error = %v, want ErrMalformedRecord", err)
	}
}

func TestIngestDocument_QueuesJob(t *testing.T) {
	pub := &capturePublisher{}
	svc, archive := newService(inmemory.New(), &stubClassifier{}, &stubExtractor{}, &stubPaystubExtractor{}, pub)

	job, err := svc.IngestDocument(context.Background(), "u1", "statement.pdf", []byte("%PDF"), domain.SourceCreditCard, jobs.KindStatement)
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published jobs = %d, want 1", len(pub.published))
	}
	if job.MIMEType != "application/pdf" || job.Source != domain.SourceCreditCard {
		t.Errorf("job = %+v", job)
	}
	if archive.Len() != 1 {
		t.Error("raw document must be archived before queueing")
	}
}

func TestIngestDocument_UnsupportedFormat(t *testing.T) {
	svc, _ := newService(inmemory.New(), &stubClassifier{}, &stubExtractor{}, &stubPaystubExtractor{}, &capturePublisher{})
	if _, err := svc.IngestDocument(context.Background(), "u1", "notes.txt", []byte("hi"), domain.SourceBank, jobs.KindStatement); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestProcessDocumentJob_Statement(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	ext := &stubExtractor{txs: []*domain.Transaction{
		{
			MonthKey: "2026-02", Date: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
			Description: "NETFLIX.COM", OriginalDescription: "NETFLIX.COM",
			Amount: -15.49, Source: domain.SourceCreditCard,
		},
	}}
	cls := &stubClassifier{results: map[string]classify.Suggestion{
		"NETFLIX.COM": {Bucket: "Subscriptions", Confidence: 0.97, Source: domain.ResolutionAI, Reasoning: "Streaming."},
	}}
	pub := &capturePublisher{}
	svc, _ := newService(st, cls, ext, &stubPaystubExtractor{}, pub)

	job, err := svc.IngestDocument(ctx, "u1", "statement.pdf", []byte("%PDF"), domain.SourceCreditCard, jobs.KindStatement)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ProcessDocumentJob(ctx, job); err != nil {
		t.Fatalf("ProcessDocumentJob() error = %v", err)
	}
	if job.TransactionsProcessed != 1 || job.MonthKey != "2026-02" {
		t.Errorf("job result = %+v", job)
	}

	txs, err := st.ListTransactionsByMonth(ctx, "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Bucket != "Subscriptions" {
		t.Errorf("stored = %+v", txs)
	}
}

func TestProcessDocumentJob_Paystub(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	pext := &stubPaystubExtractor{paystub: &domain.Paystub{
		MonthKey:   "2026-01",
		SourceName: "Acme Corp",
		PayDate:    time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		GrossPay:   5000,
		NetPay:     3200,
	}}
	pub := &capturePublisher{}
	svc, _ := newService(st, &stubClassifier{}, &stubExtractor{}, pext, pub)

	job, err := svc.IngestDocument(ctx, "u1", "stub.pdf", []byte("%PDF"), domain.SourceBank, jobs.KindPaystub)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ProcessDocumentJob(ctx, job); err != nil {
		t.Fatalf("ProcessDocumentJob() error = %v", err)
	}

	stubs, err := st.ListPaystubsByMonth(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(stubs) != 1 {
		t.Fatalf("paystubs = %d, want 1", len(stubs))
	}
	p := stubs[0]
	if p.ID == "" || p.UserID != "u1" || p.RawFileKey == "" {
		t.Errorf("paystub incomplete: %+v", p)
	}
}

func TestProcessDocumentJob_LockedMonth(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	if _, err := st.LockMonth(ctx, "2026-02", time.Now()); err != nil {
		t.Fatal(err)
	}
	ext := &stubExtractor{txs: []*domain.Transaction{
		{MonthKey: "2026-02", Date: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
			Description: "X", Amount: -1, Source: domain.SourceBank},
	}}
	pub := &capturePublisher{}
	svc, _ := newService(st, &stubClassifier{}, ext, &stubPaystubExtractor{}, pub)

	job, err := svc.IngestDocument(ctx, "u1", "statement.pdf", []byte("%PDF"), domain.SourceBank, jobs.KindStatement)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ProcessDocumentJob(ctx, job); !errors.Is(err, domain.ErrMonthLocked) {
		t.Fatalf("error = %v, want ErrMonthLocked", err)
	}
}
