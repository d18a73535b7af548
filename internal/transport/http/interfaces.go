package http

import (
	"context"
	"io"

	"companywise/internal/exporter"
	"companywise/internal/problems"
	"companywise/internal/progress"
	"companywise/internal/security"
	"companywise/internal/services"
)

// CatalogService is the catalog as used by the API.
type CatalogService interface {
	Companies(ctx context.Context, search string) ([]string, error)
	Windows() []problems.Window
	Problems(ctx context.Context, q services.ProblemQuery) (services.ProblemList, error)
}

// ProgressService is the progress tracker as used by the API.
type ProgressService interface {
	Get(ctx context.Context, identity string) (progress.State, error)
	Toggle(ctx context.Context, identity, title string) (services.ToggleResult, error)
	Calendar(ctx context.Context, identity, month string) (progress.Calendar, error)
	Migrate(ctx context.Context, identity string) (services.MigrationResult, error)
	Summary(ctx context.Context, identity string, records []problems.Record) (progress.Summary, error)
	Completed(ctx context.Context, identity string) (func(title string) bool, error)
}

// ExportService streams exports.
type ExportService interface {
	Write(ctx context.Context, w io.Writer, identity string, q services.ProblemQuery, format exporter.Format) (string, error)
}

// AuthService signs users in and out.
type AuthService interface {
	Login(ctx context.Context, profile *security.Profile) (services.LoginResult, error)
	Logout(ctx context.Context, claims *security.Claims)
}
