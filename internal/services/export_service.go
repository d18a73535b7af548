package services

import (
	"context"
	"io"

	"companywise/internal/exporter"
)

// ExportService renders a problem view, joined with completion, to a file
// format.
type ExportService struct {
	catalog  *CatalogService
	progress *ProgressService
	files    *exporter.CSVWriter
}

// NewExportService creates an export service. files may be nil when only
// streaming exports are needed.
func NewExportService(catalog *CatalogService, progress *ProgressService, files *exporter.CSVWriter) *ExportService {
	return &ExportService{catalog: catalog, progress: progress, files: files}
}

// Table loads q and joins it with identity's completion state.
func (s *ExportService) Table(ctx context.Context, identity string, q ProblemQuery) (exporter.Table, error) {
	list, err := s.catalog.Problems(ctx, q)
	if err != nil {
		return exporter.Table{}, err
	}
	completed, err := s.progress.Completed(ctx, identity)
	if err != nil {
		return exporter.Table{}, err
	}
	return exporter.NewTable(list.Company, list.Window.ID, list.View, completed), nil
}

// Write streams the export of q to w and returns the suggested file name.
func (s *ExportService) Write(ctx context.Context, w io.Writer, identity string, q ProblemQuery, format exporter.Format) (string, error) {
	table, err := s.Table(ctx, identity, q)
	if err != nil {
		return "", err
	}
	return table.FileName(format), exporter.Write(w, table, format)
}

// WriteFile exports q into the exports directory (or to name when it is
// absolute) and returns the path written.
func (s *ExportService) WriteFile(ctx context.Context, identity string, q ProblemQuery, format exporter.Format, name string) (string, error) {
	table, err := s.Table(ctx, identity, q)
	if err != nil {
		return "", err
	}
	return s.files.WriteFile(name, table, format)
}
