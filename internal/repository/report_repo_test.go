package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
	"github.com/finqa/invoice-qc/pkg/database"
)

func testRepo(t *testing.T) *ReportRepository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "reports.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewReportRepository(db, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func testReport(total, valid int) *models.ValidationReport {
	return &models.ValidationReport{
		Summary: models.ValidationSummary{
			TotalInvoices:   total,
			ValidInvoices:   valid,
			InvalidInvoices: total - valid,
			ErrorCounts:     map[string]int{},
			WarningCounts:   map[string]int{},
		},
		Results: []models.InvoiceValidationResult{
			{
				InvoiceID: "INV-1",
				IsValid:   valid == total,
				Errors:    []models.ValidationError{},
				Warnings:  []models.ValidationError{},
			},
		},
	}
}

func TestReportRepository_SaveAndListRecent(t *testing.T) {
	repo := testRepo(t)

	id1, err := repo.Save(testReport(3, 2))
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := repo.Save(testReport(5, 5))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	stored, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	ids := []string{stored[0].ID, stored[1].ID}
	assert.ElementsMatch(t, []string{id1, id2}, ids)
	for _, s := range stored {
		assert.False(t, s.CreatedAt.IsZero())
	}

	byID := map[string]StoredReport{stored[0].ID: stored[0], stored[1].ID: stored[1]}
	assert.Equal(t, 3, byID[id1].Report.Summary.TotalInvoices)
	assert.Equal(t, 5, byID[id2].Report.Summary.TotalInvoices)
	require.Len(t, byID[id1].Report.Results, 1)
	assert.Equal(t, "INV-1", byID[id1].Report.Results[0].InvoiceID)
}

func TestReportRepository_ListRecentLimit(t *testing.T) {
	repo := testRepo(t)

	for i := 0; i < 5; i++ {
		_, err := repo.Save(testReport(1, 1))
		require.NoError(t, err)
	}

	stored, err := repo.ListRecent(3)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestReportRepository_EmptyStore(t *testing.T) {
	repo := testRepo(t)

	stored, err := repo.ListRecent(10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestReportRepository_SchemaIsIdempotent(t *testing.T) {
	repo := testRepo(t)

	// A second repository over the same store must not fail on the
	// existing schema.
	again, err := NewReportRepository(repo.db, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, again)
}
