// Package pdf is the document collaborator: it turns PDF files into the
// raw page text and table grids the extraction core consumes. The core
// itself never touches files.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

// Reader reads PDF files into Documents.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a new PDF reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadDocument reads one PDF file, concatenating text across all pages
// and deriving table grids from whitespace-aligned line runs.
func (r *Reader) ReadDocument(path string) (models.Document, error) {
	doc := models.Document{SourceFile: filepath.Base(path)}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return doc, fmt.Errorf("unsupported file type: %s", ext)
	}
	if _, err := os.Stat(path); err != nil {
		return doc, fmt.Errorf("cannot access %s: %w", path, err)
	}

	fz, err := fitz.New(path)
	if err != nil {
		return doc, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer fz.Close()

	var text strings.Builder
	for page := 0; page < fz.NumPage(); page++ {
		pageText, err := fz.Text(page)
		if err != nil {
			r.logger.Warn("failed to extract page text",
				zap.String("file", doc.SourceFile),
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		text.WriteString(pageText)
	}

	doc.Text = text.String()
	doc.Tables = detectTables(doc.Text)

	r.logger.Debug("read PDF",
		zap.String("file", doc.SourceFile),
		zap.Int("pages", fz.NumPage()),
		zap.Int("tables", len(doc.Tables)))

	return doc, nil
}

// ReadDirectory reads every PDF in a directory, sorted by name. A file
// that cannot be read still yields a document carrying its name with no
// content, so it is never silently dropped from a batch.
func (r *Reader) ReadDirectory(dir string) ([]models.Document, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(paths)

	r.logger.Info("reading PDF directory",
		zap.String("dir", dir),
		zap.Int("files", len(paths)))

	docs := make([]models.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := r.ReadDocument(path)
		if err != nil {
			r.logger.Error("failed to read PDF",
				zap.String("file", filepath.Base(path)),
				zap.Error(err))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

var cellSeparator = regexp.MustCompile(`\t|\s{2,}`)

// detectTables derives table grids from runs of consecutive lines that
// split into two or more whitespace-separated columns. This is a
// best-effort stand-in for real table geometry: good enough for grid-like
// invoice layouts, and harmless when it misfires because the table
// interpreter gates on header vocabulary anyway.
func detectTables(text string) []models.Table {
	var tables []models.Table
	var current models.Table

	flush := func() {
		// A grid needs at least a header row and one data row.
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		cells := cellSeparator.Split(trimmed, -1)
		if trimmed == "" || len(cells) < 2 {
			flush()
			continue
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		current = append(current, cells)
	}
	flush()

	return tables
}
