package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"companywise/internal/config"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	// BOMPrefix adds a UTF-8 BOM so Excel detects the encoding.
	BOMPrefix bool
	// OmitHeaders skips the header row.
	OmitHeaders bool
}

// WriteCSV writes the table to w.
func WriteCSV(w io.Writer, t Table, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if !opts.OmitHeaders {
		if err := writer.Write(Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, row := range t.Rows {
		if err := writer.Write(row.strings()); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVWriter writes export files under the exports directory.
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at paths.ExportsDir.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteFile exports t in format f and returns the full path written.
// Relative names resolve inside the exports directory.
func (w *CSVWriter) WriteFile(name string, t Table, f Format) (string, error) {
	if name == "" {
		name = t.FileName(f)
	}
	fullPath := w.resolvePath(name)

	w.logger.Info("Writing export file",
		slog.String("full_path", fullPath),
		slog.String("format", string(f)),
		slog.Int("record_count", len(t.Rows)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(file, t, f); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return fullPath, nil
}

func (w *CSVWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) || w.paths == nil {
		return name
	}
	return w.paths.ExportPath(name)
}
