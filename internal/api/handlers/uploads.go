package handlers

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/ingest"
	"github.com/RonStack/leaky-buckets/internal/jobs"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// Uploads over this size are rejected before reading the body.
const maxUploadBytes = 20 << 20

// UploadsHandler accepts statement and paystub files.
type UploadsHandler struct {
	svc          *ingest.Service
	transactions store.TransactionRepository
	log          zerolog.Logger
}

// NewUploadsHandler creates a new uploads handler.
func NewUploadsHandler(svc *ingest.Service, transactions store.TransactionRepository, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{svc: svc, transactions: transactions, log: log}
}

// Upload handles POST /api/upload. CSVs run the pipeline synchronously
// and return a receipt; PDFs and images are queued and return a job to
// poll.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	fileName := header.Filename
	ext := strings.ToLower(path.Ext(fileName))

	switch ext {
	case ".csv", ".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported file format: use CSV, PDF, or image (PNG/JPG)")
		return
	}

	if ext == ".csv" {
		source := domain.SourceBank
		if r.FormValue("source") == string(domain.SourceCreditCard) {
			source = domain.SourceCreditCard
		}
		receipt, err := h.svc.IngestCSV(ctx, userID, fileName, data, source)
		if err != nil {
			writeDomainError(w, h.log, err, "Failed to process CSV upload")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, receipt)
		return
	}

	kind := jobs.KindStatement
	if r.FormValue("kind") == string(jobs.KindPaystub) {
		kind = jobs.KindPaystub
	}
	source := domain.SourceStatementImage
	if ext == ".pdf" {
		source = domain.SourceStatementPDF
	}

	job, err := h.svc.IngestDocument(ctx, userID, fileName, data, source, kind)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to queue document upload")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("file", fileName).Msg("Parse job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// ListRejected handles GET /api/uploads/{uploadId}/rejected. Rejected rows
// are kept verbatim so nothing silently disappears from an upload.
func (h *UploadsHandler) ListRejected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uploadID := chi.URLParam(r, "uploadId")

	rows, err := h.transactions.ListRejectedRows(ctx, uploadID)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list rejected rows")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uploadId": uploadID,
		"rejected": rows,
		"count":    len(rows),
	})
}
