package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "companywise/internal/errors"
	"companywise/internal/exporter"
	"companywise/internal/middleware"
	"companywise/internal/problems"
	"companywise/internal/security"
	"companywise/internal/services"
)

// viewQuery holds the query parameters shared by the problem endpoints.
type viewQuery struct {
	Window     string `query:"window" validate:"omitempty,window"`
	Difficulty string `query:"difficulty" validate:"omitempty,difficulty"`
	Search     string `query:"search" validate:"max=200"`
	Sort       string `query:"sort" validate:"omitempty,sortcol"`
	Asc        string `query:"asc" validate:"omitempty,boolean"`
	Format     string `query:"format" validate:"omitempty,oneof=csv xlsx excel"`
}

func parseViewQuery(r *http.Request) viewQuery {
	q := r.URL.Query()
	return viewQuery{
		Window:     q.Get("window"),
		Difficulty: q.Get("difficulty"),
		Search:     q.Get("search"),
		Sort:       q.Get("sort"),
		Asc:        q.Get("asc"),
		Format:     q.Get("format"),
	}
}

// problemsRow is a record with its completion flag.
type problemsRow struct {
	problems.Record
	Completed bool `json:"completed"`
}

type problemsResponse struct {
	Company string              `json:"company"`
	Window  problems.Window     `json:"window"`
	State   problems.ViewState  `json:"state"`
	Records []problemsRow       `json:"records"`
	Count   int                 `json:"count"`
	Total   int                 `json:"total"`
	Stats   problems.ParseStats `json:"stats"`
}

// CatalogHandler serves companies, windows, problem views, summaries and
// exports.
type CatalogHandler struct {
	catalog      CatalogService
	progress     ProgressService
	export       ExportService
	validate     *validator.Validate
	input        *security.InputValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog CatalogService, progress ProgressService, export ExportService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CatalogHandler {
	logger = logger.With(slog.String("handler", "catalog"))
	input := security.NewInputValidator(nil)
	input.SetLogger(logger)
	return &CatalogHandler{
		catalog:      catalog,
		progress:     progress,
		export:       export,
		validate:     middleware.NewValidator(),
		input:        input,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Routes returns the catalog routes.
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/windows", h.Windows)
	r.Get("/companies", h.Companies)
	r.Route("/companies/{company}", func(r chi.Router) {
		r.Use(h.CompanyCtx)
		r.Get("/problems", h.Problems)
		r.Get("/summary", h.Summary)
		r.Get("/export", h.Export)
	})
	return r
}

type companyKey struct{}

// CompanyCtx validates the {company} path parameter.
func (h *CatalogHandler) CompanyCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		res := h.input.ValidateCompanyName(ctx, chi.URLParam(r, "company"))
		if !res.IsValid {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("company", res.Err().Error()))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, companyKey{}, res.SanitizedValue)))
	})
}

func companyFrom(r *http.Request) string {
	company, _ := r.Context().Value(companyKey{}).(string)
	return company
}

// Windows handles GET /api/windows
func (h *CatalogHandler) Windows(w http.ResponseWriter, r *http.Request) {
	windows := h.catalog.Windows()
	respondList(w, r, windows, len(windows))
}

// Companies handles GET /api/companies?search=
func (h *CatalogHandler) Companies(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	if search != "" {
		res := h.input.ValidateSearchTerm(r.Context(), search)
		if !res.IsValid {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("search", res.Err().Error()))
			return
		}
		search = res.SanitizedValue
	}

	companies, err := h.catalog.Companies(r.Context(), search)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, companies, len(companies))
}

// query builds the service query from validated parameters.
func (h *CatalogHandler) query(r *http.Request) (services.ProblemQuery, viewQuery, error) {
	vq := parseViewQuery(r)
	if err := middleware.ValidateWith(h.validate, vq); err != nil {
		return services.ProblemQuery{}, vq, err
	}

	window, err := problems.ParseWindow(vq.Window)
	if err != nil {
		return services.ProblemQuery{}, vq, apierrors.ErrValidation("window", err.Error())
	}
	difficulty, _ := problems.ParseDifficultyFilter(vq.Difficulty)
	column, err := problems.ParseColumn(vq.Sort)
	if err != nil {
		return services.ProblemQuery{}, vq, apierrors.ErrValidation("sort", err.Error())
	}
	ascending := true
	if vq.Asc != "" {
		ascending, _ = strconv.ParseBool(vq.Asc)
	}

	search := vq.Search
	if search != "" {
		res := h.input.ValidateSearchTerm(r.Context(), search)
		if !res.IsValid {
			return services.ProblemQuery{}, vq, apierrors.ErrValidation("search", res.Err().Error())
		}
		search = res.SanitizedValue
	}

	return services.ProblemQuery{
		Company: companyFrom(r),
		Window:  window,
		View: problems.ViewState{
			Difficulty: difficulty,
			Search:     search,
			Sort:       problems.SortState{Column: column, Ascending: ascending},
		},
	}, vq, nil
}

// Problems handles GET /api/companies/{company}/problems
func (h *CatalogHandler) Problems(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	list, err := h.catalog.Problems(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	completed, err := h.progress.Completed(r.Context(), identityOf(r).Key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rows := make([]problemsRow, 0, len(list.View.Records))
	for _, rec := range list.View.Records {
		rows = append(rows, problemsRow{Record: rec, Completed: completed(rec.Title)})
	}

	respondList(w, r, problemsResponse{
		Company: list.Company,
		Window:  list.Window,
		State:   list.State,
		Records: rows,
		Count:   list.View.Count(),
		Total:   list.View.Total,
		Stats:   list.Stats,
	}, list.View.Count())
}

// Summary handles GET /api/companies/{company}/summary
func (h *CatalogHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	list, err := h.catalog.Problems(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	identity := identityOf(r).Key
	if _, err := h.progress.Get(r.Context(), identity); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary, err := h.progress.Summary(r.Context(), identity, list.View.Records)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, summary)
}

// Export handles GET /api/companies/{company}/export?format=csv|xlsx
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	q, vq, err := h.query(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(vq.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	var buf bytes.Buffer
	name, err := h.export.Write(r.Context(), &buf, identityOf(r).Key, q, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "export generated",
		slog.String("company", q.Company),
		slog.String("window", q.Window.ID),
		slog.String("format", string(format)),
		slog.Int("bytes", buf.Len()))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	render.Status(r, http.StatusOK)
	_, _ = buf.WriteTo(w)
}
