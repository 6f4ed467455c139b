package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/extract"
	"github.com/finqa/invoice-qc/internal/models"
	"github.com/finqa/invoice-qc/internal/pdf"
	"github.com/finqa/invoice-qc/internal/repository"
	"github.com/finqa/invoice-qc/internal/validate"
)

// Handlers contains all HTTP request handlers.
type Handlers struct {
	reader    *pdf.Reader
	assembler *extract.Assembler
	validator *validate.Validator
	reports   *repository.ReportRepository
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	reader *pdf.Reader,
	assembler *extract.Assembler,
	validator *validate.Validator,
	reports *repository.ReportRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		reader:    reader,
		assembler: assembler,
		validator: validator,
		reports:   reports,
		logger:    logger,
	}
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// RuleInfo describes one rule of the active catalog.
type RuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// ValidateJSONRequest is the body for POST /api/validate-json.
type ValidateJSONRequest struct {
	Invoices []models.Invoice `json:"invoices" binding:"required"`
}

// ExtractAndValidateResponse is the body for POST /api/extract-and-validate.
type ExtractAndValidateResponse struct {
	ExtractedInvoices []models.Invoice         `json:"extracted_invoices"`
	ValidationReport  *models.ValidationReport `json:"validation_report"`
}

// SaveReportResponse is the body for POST /api/reports.
type SaveReportResponse struct {
	ID string `json:"id"`
}

// HealthCheck handles GET /api/health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "invoice-qc",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ListRules handles GET /api/rules.
func (h *Handlers) ListRules(c *gin.Context) {
	rules := h.validator.Rules()
	info := make([]RuleInfo, 0, len(rules))
	for _, r := range rules {
		info = append(info, RuleInfo{
			Name:        r.Name(),
			Description: r.Description(),
			Severity:    string(r.Severity()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"rules": info})
}

// ValidateJSON handles POST /api/validate-json: validates a batch of
// already-extracted invoice records.
func (h *Handlers) ValidateJSON(c *gin.Context) {
	var req ValidateJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	report, err := h.validator.ValidateBatch(req.Invoices)
	if err != nil {
		h.logger.Error("validation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "validation failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExtractAndValidate handles POST /api/extract-and-validate: accepts PDF
// uploads, runs the full pipeline, and returns both the extracted
// records and the validation report.
func (h *Handlers) ExtractAndValidate(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid multipart form: " + err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no files uploaded"})
		return
	}

	tempDir, err := os.MkdirTemp("", "invoice_qc_upload_*")
	if err != nil {
		h.logger.Error("failed to create temp dir", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "upload handling failed"})
		return
	}
	defer os.RemoveAll(tempDir)

	docs := make([]models.Document, 0, len(files))
	for _, file := range files {
		name := filepath.Base(file.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file " + name + " is not a PDF"})
			return
		}

		dst := filepath.Join(tempDir, name)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			h.logger.Error("failed to save upload", zap.String("file", name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "upload handling failed"})
			return
		}

		doc, err := h.reader.ReadDocument(dst)
		if err != nil {
			// The document still enters the batch as a skeleton so it
			// shows up in the report.
			h.logger.Error("failed to read uploaded PDF", zap.String("file", name), zap.Error(err))
		}
		docs = append(docs, doc)
	}

	invoices := h.assembler.ExtractBatch(c.Request.Context(), docs)
	report, err := h.validator.ValidateBatch(invoices)
	if err != nil {
		h.logger.Error("validation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "validation failed"})
		return
	}

	c.JSON(http.StatusOK, ExtractAndValidateResponse{
		ExtractedInvoices: invoices,
		ValidationReport:  report,
	})
}

// SaveReport handles POST /api/reports.
func (h *Handlers) SaveReport(c *gin.Context) {
	var report models.ValidationReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid report body: " + err.Error()})
		return
	}

	id, err := h.reports.Save(&report)
	if err != nil {
		h.logger.Error("failed to save report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save report"})
		return
	}
	c.JSON(http.StatusOK, SaveReportResponse{ID: id})
}

// ListReports handles GET /api/reports?limit=N.
func (h *Handlers) ListReports(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	reports, err := h.reports.ListRecent(limit)
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list reports"})
		return
	}
	if reports == nil {
		reports = []repository.StoredReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
