package services

import (
	"context"
	"errors"

	"companywise/internal/datasource"
	apierrors "companywise/internal/errors"
	"companywise/internal/problems"
)

var (
	// ErrStaleSelection is returned by Browser when a newer selection
	// superseded the one being loaded.
	ErrStaleSelection = errors.New("selection superseded")

	// ErrNoCompanySelected is returned by Browser operations that need a
	// loaded company.
	ErrNoCompanySelected = errors.New("no company selected")

	// ErrAnonymousMigration is returned when migrating without a signed-in
	// identity.
	ErrAnonymousMigration = errors.New("sign in to migrate anonymous progress")
)

// classifyLoadError maps data-layer failures onto AppErrors so transports
// can render them uniformly. Context errors pass through unchanged.
func classifyLoadError(err error, company string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var parseErr *problems.ParseError
	switch {
	case errors.Is(err, datasource.ErrInvalidCompany):
		return apierrors.NewAppValidationError(err.Error()).WithContext("company", company)
	case errors.As(err, &parseErr):
		return apierrors.NewParsingError("failed to load", err).WithContext("company", company)
	case errors.Is(err, datasource.ErrDataUnavailable):
		return apierrors.NewNetworkError("failed to load", err).WithContext("company", company)
	}
	return apierrors.NewNetworkError("failed to load", err).WithContext("company", company)
}
