package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
	"github.com/finqa/invoice-qc/pkg/database"
)

// StoredReport is a persisted validation report with its storage
// metadata.
type StoredReport struct {
	ID        string                  `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Report    models.ValidationReport `json:"report"`
}

// ReportRepository stores validation reports for history and analytics.
type ReportRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewReportRepository creates a report repository and ensures its schema
// exists.
func NewReportRepository(db *database.DB, logger *zap.Logger) (*ReportRepository, error) {
	repo := &ReportRepository{db: db, logger: logger}
	if err := repo.init(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ReportRepository) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS validation_reports (
	id               TEXT PRIMARY KEY,
	created_at       DATETIME NOT NULL,
	total_invoices   INTEGER NOT NULL,
	valid_invoices   INTEGER NOT NULL,
	invalid_invoices INTEGER NOT NULL,
	report_json      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validation_reports_created_at
	ON validation_reports (created_at DESC);`

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create report schema: %w", err)
	}
	return nil
}

// Save persists a report and returns its generated id.
func (r *ReportRepository) Save(report *models.ValidationReport) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	err = r.db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO validation_reports
				(id, created_at, total_invoices, valid_invoices, invalid_invoices, report_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, createdAt,
			report.Summary.TotalInvoices,
			report.Summary.ValidInvoices,
			report.Summary.InvalidInvoices,
			string(payload),
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	r.logger.Info("validation report saved",
		zap.String("report_id", id),
		zap.Int("total_invoices", report.Summary.TotalInvoices))

	return id, nil
}

// ListRecent returns the most recently saved reports, newest first.
func (r *ReportRepository) ListRecent(limit int) ([]StoredReport, error) {
	rows, err := r.db.Query(
		`SELECT id, created_at, report_json
		 FROM validation_reports
		 ORDER BY created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		var stored StoredReport
		var payload string
		if err := rows.Scan(&stored.ID, &stored.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &stored.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report %s: %w", stored.ID, err)
		}
		reports = append(reports, stored)
	}
	return reports, rows.Err()
}
