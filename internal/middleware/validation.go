package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "companywise/internal/errors"
	"companywise/internal/problems"
)

// ValidationMiddleware provides request validation using struct tags
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator:    NewValidator(),
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  64 * 1024,
	}
}

// NewValidator returns a validator with the domain tags registered:
// window, difficulty, sortcol and yearmonth.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("window", isWindow)
	_ = v.RegisterValidation("difficulty", isDifficulty)
	_ = v.RegisterValidation("sortcol", isSortColumn)
	_ = v.RegisterValidation("yearmonth", isYearMonth)

	// Report JSON or query names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// ValidateRequest enforces the body size limit and rejects malformed JSON
// before handlers decode it.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size",
				map[string]interface{}{
					"max_size": m.maxBodySize,
					"size":     r.ContentLength,
				},
			))
			return
		}

		if r.Body != nil && r.Body != http.NoBody {
			body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBodySize+1))
			if err != nil {
				m.logger.ErrorContext(r.Context(), "failed to read request body",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}
			if int64(len(body)) > m.maxBodySize {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusRequestEntityTooLarge,
					"PAYLOAD_TOO_LARGE",
					"Request body exceeds maximum allowed size",
				))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			if len(body) > 0 && !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					"INVALID_JSON",
					"Request body contains invalid JSON",
				))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateWith runs validate over v and converts failures into an APIError.
func ValidateWith(validate *validator.Validate, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator ensures requests have proper content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeProblem(w, ProblemFromStatus(
				http.StatusUnsupportedMediaType,
				fmt.Sprintf("Unsupported content type %q", contentType),
				GetRequestID(r.Context()),
			))
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "window":
		ids := make([]string, 0, len(problems.Windows()))
		for _, w := range problems.Windows() {
			ids = append(ids, w.ID)
		}
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(ids, ", "))
	case "difficulty":
		return fmt.Sprintf("%s must be one of: ALL, EASY, MEDIUM, HARD", field)
	case "sortcol":
		return fmt.Sprintf("%s must be one of: difficulty, title, frequency, acceptance", field)
	case "yearmonth":
		return fmt.Sprintf("%s must be formatted as YYYY-MM", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// Custom validators. Empty values are accepted; combine with required
// where a value is mandatory.

func isWindow(fl validator.FieldLevel) bool {
	_, err := problems.ParseWindow(fl.Field().String())
	return err == nil
}

func isDifficulty(fl validator.FieldLevel) bool {
	_, ok := problems.ParseDifficultyFilter(fl.Field().String())
	return ok
}

func isSortColumn(fl validator.FieldLevel) bool {
	_, err := problems.ParseColumn(fl.Field().String())
	return err == nil
}

func isYearMonth(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse("2006-01", value)
	return err == nil
}
