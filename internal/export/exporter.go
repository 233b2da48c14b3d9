package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fincore-statement-engine/internal/config"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/statement_service"
)

// Supported artifact formats.
const (
	FormatPDF   = "pdf"
	FormatExcel = "xlsx"
	FormatCSV   = "csv"
)

// ErrUnsupportedFormat is returned when Render is asked for a format the
// exporter has no renderer for.
type ErrUnsupportedFormat struct {
	Format string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported export format: %s", e.Format)
}

// FileExporter renders statements into local files and returns URLs under
// the configured base URL. Artifacts are written atomically via a temp file
// rename so partially rendered files are never served.
type FileExporter struct {
	logger    *slog.Logger
	outputDir string
	baseURL   string
}

func NewFileExporter(logger *slog.Logger, cfg *config.ExportConfig) (*FileExporter, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export output dir %s: %w", cfg.OutputDir, err)
	}
	return &FileExporter{
		logger:    logger,
		outputDir: cfg.OutputDir,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Render produces the statement artifact in the requested format.
// Format matching is case-insensitive and "excel" is accepted as an alias
// for xlsx.
func (e *FileExporter) Render(ctx context.Context, st *statement.Statement, format string, options map[string]string) (*statement_service.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "excel" {
		normalized = FormatExcel
	}

	var (
		data []byte
		err  error
	)
	switch normalized {
	case FormatPDF:
		data, err = renderPDF(st, options)
	case FormatExcel:
		data, err = renderExcel(st, options)
	case FormatCSV:
		data, err = renderCSV(st)
	default:
		return nil, &ErrUnsupportedFormat{Format: format}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render statement %s as %s: %w", st.ID, normalized, err)
	}

	filename := e.filename(st, normalized)
	if err := e.writeAtomic(filename, data); err != nil {
		return nil, err
	}

	e.logger.Info("Rendered statement artifact",
		"statement_id", st.ID.String(),
		"format", normalized,
		"filename", filename,
		"size_bytes", len(data),
	)

	return &statement_service.ExportResult{
		URL:       e.baseURL + "/" + filename,
		Filename:  filename,
		SizeBytes: int64(len(data)),
	}, nil
}

func (e *FileExporter) filename(st *statement.Statement, format string) string {
	return fmt.Sprintf("statement_%s_v%d_%s.%s",
		st.ID.String(), st.Version, time.Now().UTC().Format("20060102T150405Z"), format)
}

func (e *FileExporter) writeAtomic(filename string, data []byte) error {
	target := filepath.Join(e.outputDir, filename)
	tmp, err := os.CreateTemp(e.outputDir, filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize export file: %w", err)
	}
	return nil
}
