package services

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"companywise/internal/datasource"
	"companywise/internal/infrastructure"
	"companywise/internal/problems"
)

// ProblemQuery selects a company table and the view applied to it.
type ProblemQuery struct {
	Company string
	Window  problems.Window
	View    problems.ViewState
}

// Table is a parsed company/window table before any view is applied.
type Table struct {
	Company string
	Window  problems.Window
	Records []problems.Record
	Stats   problems.ParseStats
}

// ProblemList is a table with a view applied.
type ProblemList struct {
	Company string              `json:"company"`
	Window  problems.Window     `json:"window"`
	State   problems.ViewState  `json:"state"`
	View    problems.View       `json:"view"`
	Stats   problems.ParseStats `json:"stats"`
}

// CatalogService loads company tables and runs the problem pipeline.
type CatalogService struct {
	source  datasource.Source
	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
	logger  *slog.Logger

	warmOnLoad bool
	warmed     sync.Map // company -> struct{}
}

// NewCatalogService creates a catalog over source. metrics may be nil.
func NewCatalogService(source datasource.Source, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		source:  source,
		metrics: metrics,
		tracer:  otel.Tracer("companywise/services"),
		logger:  logger.With(slog.String("service", "catalog")),
	}
}

// Companies returns the sorted company names containing search,
// case-insensitively. An empty search returns all companies.
func (s *CatalogService) Companies(ctx context.Context, search string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.companies")
	defer span.End()

	names, err := s.source.Companies(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "companies unavailable")
		s.logger.WarnContext(ctx, "company list unavailable", slog.String("error", err.Error()))
		return nil, classifyLoadError(err, "")
	}
	return problems.FilterCompanies(names, search), nil
}

// Windows lists the selectable windows in order.
func (s *CatalogService) Windows() []problems.Window {
	return problems.Windows()
}

// Load fetches and parses the table for company and window.
func (s *CatalogService) Load(ctx context.Context, company string, window problems.Window) (Table, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.load", trace.WithAttributes(
		attribute.String("company", company),
		attribute.String("window", window.ID),
	))
	defer span.End()

	start := time.Now()
	raw, err := s.source.Table(ctx, company, window)
	if err != nil {
		infrastructure.RecordDataLoad(ctx, s.metrics, company, window.ID, time.Since(start), 0, 0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.logger.WarnContext(ctx, "failed to load problems",
			slog.String("company", company),
			slog.String("window", window.ID),
			slog.String("error", err.Error()))
		return Table{}, classifyLoadError(err, company)
	}

	records, stats, err := problems.ParseReader(bytes.NewReader(raw))
	infrastructure.RecordDataLoad(ctx, s.metrics, company, window.ID, time.Since(start), stats.Rows, stats.DroppedRows, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		s.logger.WarnContext(ctx, "failed to parse problems",
			slog.String("company", company),
			slog.String("window", window.ID),
			slog.String("error", err.Error()))
		return Table{}, classifyLoadError(err, company)
	}

	if stats.DroppedRows > 0 || stats.CoercedFields > 0 {
		s.logger.DebugContext(ctx, "lenient parse",
			slog.String("company", company),
			slog.String("window", window.ID),
			slog.Int("dropped_rows", stats.DroppedRows),
			slog.Int("coerced_fields", stats.CoercedFields))
	}
	span.SetAttributes(attribute.Int("rows", len(records)))
	s.maybeWarm(ctx, company)
	return Table{Company: company, Window: window, Records: records, Stats: stats}, nil
}

// WarmOnLoad makes the first successful load of each company fetch its
// remaining windows in the background. Only useful over a cached source.
func (s *CatalogService) WarmOnLoad(enabled bool) {
	s.warmOnLoad = enabled
}

// Warm fetches every window of company concurrently and reports how many
// were fetched.
func (s *CatalogService) Warm(ctx context.Context, company string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.warm", trace.WithAttributes(
		attribute.String("company", company),
	))
	defer span.End()

	tables, err := datasource.Preload(ctx, s.source, company)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preload failed")
		return 0, classifyLoadError(err, company)
	}
	return len(tables), nil
}

func (s *CatalogService) maybeWarm(ctx context.Context, company string) {
	if !s.warmOnLoad {
		return
	}
	if _, loaded := s.warmed.LoadOrStore(company, struct{}{}); loaded {
		return
	}
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		n, err := s.Warm(wctx, company)
		if err != nil {
			s.warmed.Delete(company)
			s.logger.DebugContext(wctx, "preload failed",
				slog.String("company", company),
				slog.String("error", err.Error()))
			return
		}
		s.logger.DebugContext(wctx, "preloaded company",
			slog.String("company", company),
			slog.Int("windows", n))
	}()
}

// Problems loads the table for q and applies its view.
func (s *CatalogService) Problems(ctx context.Context, q ProblemQuery) (ProblemList, error) {
	table, err := s.Load(ctx, q.Company, q.Window)
	if err != nil {
		return ProblemList{}, err
	}
	return table.Apply(q.View), nil
}

// Apply runs the view pipeline over the table.
func (t Table) Apply(state problems.ViewState) ProblemList {
	return ProblemList{
		Company: t.Company,
		Window:  t.Window,
		State:   state,
		View:    state.Apply(t.Records),
		Stats:   t.Stats,
	}
}
