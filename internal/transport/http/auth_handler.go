package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "companywise/internal/errors"
	"companywise/internal/security"
)

// LoginRequest is the optional body of POST /api/auth/login. An empty body
// signs in the demo profile.
type LoginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// AuthHandler serves mock sign-in and sign-out.
type AuthHandler struct {
	auth         AuthService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(auth AuthService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		logger:       logger.With(slog.String("handler", "auth")),
		errorHandler: errorHandler,
	}
}

// Routes returns the auth routes.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
	return r
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var profile *security.Profile
	if req != (LoginRequest{}) {
		profile = &security.Profile{Name: req.Name, Email: req.Email, Image: req.Image}
	}

	result, err := h.auth.Login(r.Context(), profile)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, result)
}

// Logout handles POST /api/auth/logout. The presented token is revoked.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := identityOf(r)
	if identity.Anonymous() || identity.Claims == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
		return
	}
	h.auth.Logout(r.Context(), identity.Claims)
	respond(w, r, map[string]string{"message": "signed out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := identityOf(r)
	if identity.Anonymous() || identity.Claims == nil {
		respond(w, r, map[string]interface{}{"anonymous": true})
		return
	}
	respond(w, r, map[string]interface{}{
		"anonymous":  false,
		"identity":   identity.Key,
		"profile":    identity.Claims.Profile(),
		"expires_at": identity.Claims.ExpiresAt.Time,
	})
}
