package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apierrors "companywise/internal/errors"
	"companywise/internal/middleware"
	"companywise/internal/security"
)

// ToggleRequest is the body of POST /api/progress/toggle.
type ToggleRequest struct {
	Title string `json:"title" validate:"required,max=512"`
}

type calendarQuery struct {
	Month string `query:"month" validate:"omitempty,yearmonth"`
}

// ProgressHandler serves the caller's progress, streak and calendar.
type ProgressHandler struct {
	progress     ProgressService
	validate     *validator.Validate
	input        *security.InputValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewProgressHandler creates a progress handler.
func NewProgressHandler(progress ProgressService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ProgressHandler {
	logger = logger.With(slog.String("handler", "progress"))
	input := security.NewInputValidator(nil)
	input.SetLogger(logger)
	return &ProgressHandler{
		progress:     progress,
		validate:     middleware.NewValidator(),
		input:        input,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Routes returns the progress routes.
func (h *ProgressHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Post("/toggle", h.Toggle)
	r.Get("/calendar", h.Calendar)
	r.Post("/migrate", h.Migrate)
	return r
}

// Get handles GET /api/progress. It is the session start: the daily
// streak is evaluated before the state is returned.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.progress.Get(r.Context(), identityOf(r).Key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, state)
}

// Toggle handles POST /api/progress/toggle
func (h *ProgressHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := middleware.ValidateWith(h.validate, req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	res := h.input.ValidateTitle(r.Context(), req.Title)
	if !res.IsValid {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("title", res.Err().Error()))
		return
	}

	identity := identityOf(r)
	result, err := h.progress.Toggle(r.Context(), identity.Key, res.SanitizedValue)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "completion toggled",
		slog.String("title", result.Title),
		slog.Bool("completed", result.Completed),
		slog.Bool("anonymous", identity.Anonymous()))
	respond(w, r, result)
}

// Calendar handles GET /api/progress/calendar?month=YYYY-MM
func (h *ProgressHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := calendarQuery{Month: r.URL.Query().Get("month")}
	if err := middleware.ValidateWith(h.validate, q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	cal, err := h.progress.Calendar(r.Context(), identityOf(r).Key, q.Month)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, cal)
}

// Migrate handles POST /api/progress/migrate: the anonymous progress is
// merged into the signed-in identity.
func (h *ProgressHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	identity := identityOf(r)
	if identity.Anonymous() {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
		return
	}

	result, err := h.progress.Migrate(r.Context(), identity.Key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, result)
}
