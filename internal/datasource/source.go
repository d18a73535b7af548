// Package datasource fetches the raw company list and the per-window
// problem tables from the local data directory or the upstream GitHub
// repository.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"companywise/internal/problems"
)

var (
	// ErrDataUnavailable is wrapped by every fetch failure.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidCompany rejects names that could escape the data root.
	ErrInvalidCompany = errors.New("invalid company name")
)

// Source yields raw data for the pipeline.
type Source interface {
	// Companies returns the company names, sorted.
	Companies(ctx context.Context) ([]string, error)

	// Table returns the raw CSV text for company and window.
	Table(ctx context.Context, company string, window problems.Window) ([]byte, error)
}

// ValidateCompany rejects empty names and names with path separators or
// parent references.
func ValidateCompany(company string) error {
	switch {
	case strings.TrimSpace(company) == "":
		return fmt.Errorf("%w: empty", ErrInvalidCompany)
	case strings.ContainsAny(company, `/\`), company == ".", company == "..":
		return fmt.Errorf("%w: %q", ErrInvalidCompany, company)
	}
	return nil
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

func sortedCopy(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
