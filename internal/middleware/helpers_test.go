package middleware

import (
	"log/slog"

	apierrors "companywise/internal/errors"
)

func newErrorHandler(logger *slog.Logger) *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(logger, false)
}
