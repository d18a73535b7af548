package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"companywise/internal/problems"
)

// FallbackSource tries each source in order and returns the first success.
type FallbackSource struct {
	sources []Source
	logger  *slog.Logger
}

func NewFallbackSource(logger *slog.Logger, sources ...Source) *FallbackSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSource{
		sources: sources,
		logger:  logger.With(slog.String("component", "datasource.fallback")),
	}
}

func (s *FallbackSource) Companies(ctx context.Context) ([]string, error) {
	var errs []error
	for i, src := range s.sources {
		names, err := src.Companies(ctx)
		if err == nil {
			return names, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.DebugContext(ctx, "company list source failed, trying next",
			slog.Int("source", i),
			slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: all sources failed: %w", ErrDataUnavailable, errors.Join(errs...))
}

func (s *FallbackSource) Table(ctx context.Context, company string, window problems.Window) ([]byte, error) {
	if err := ValidateCompany(company); err != nil {
		return nil, err
	}

	var errs []error
	for i, src := range s.sources {
		data, err := src.Table(ctx, company, window)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.DebugContext(ctx, "table source failed, trying next",
			slog.Int("source", i),
			slog.String("company", company),
			slog.String("window", window.ID),
			slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: all sources failed: %w", ErrDataUnavailable, errors.Join(errs...))
}
