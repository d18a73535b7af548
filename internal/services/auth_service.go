package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "companywise/internal/errors"
	"companywise/internal/progress"
	"companywise/internal/security"
)

// LoginResult is returned by a successful sign-in.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Profile   security.Profile `json:"profile"`
	Identity  string           `json:"identity"`
	Migrated  bool             `json:"migrated"`
	Progress  progress.State   `json:"progress"`
}

// AuthService signs users in with a mock profile and binds their progress
// session. Switching identity re-reads progress under the new key; the
// anonymous state is merged only when migrateOnSignIn is set.
type AuthService struct {
	tokens          *security.TokenIssuer
	progress        *ProgressService
	validate        *validator.Validate
	migrateOnSignIn bool
	logger          *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(tokens *security.TokenIssuer, progress *ProgressService, migrateOnSignIn bool, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		tokens:          tokens,
		progress:        progress,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		migrateOnSignIn: migrateOnSignIn,
		logger:          logger.With(slog.String("service", "auth")),
	}
}

// Login issues a token for profile. A nil profile signs in the demo user.
func (s *AuthService) Login(ctx context.Context, profile *security.Profile) (LoginResult, error) {
	p := security.DemoProfile
	if profile != nil {
		p = *profile
	}
	if err := s.validate.Struct(p); err != nil {
		return LoginResult{}, apierrors.NewAppValidationError(fmt.Sprintf("%v: %v", security.ErrInvalidProfile, err))
	}

	token, claims, err := s.tokens.Issue(p)
	if err != nil {
		return LoginResult{}, err
	}
	identity := p.Identity()

	result := LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   p,
		Identity:  identity,
	}

	if s.migrateOnSignIn {
		m, err := s.progress.Migrate(ctx, identity)
		if err != nil {
			// Sign-in still succeeds; the anonymous blob stays for a later retry.
			s.logger.WarnContext(ctx, "migration on sign-in failed",
				slog.String("identity", identity),
				slog.String("error", err.Error()))
		}
		result.Migrated = m.Merged
	}
	state, err := s.progress.Get(ctx, identity)
	if err != nil {
		return LoginResult{}, err
	}
	result.Progress = state

	s.logger.InfoContext(ctx, "signed in",
		slog.String("identity", identity),
		slog.Bool("migrated", result.Migrated))
	return result, nil
}

// Logout revokes the token behind claims and closes the identity's session.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) {
	if claims == nil {
		return
	}
	s.tokens.Revoke(claims)
	s.progress.Forget(claims.Subject)
	s.logger.InfoContext(ctx, "signed out", slog.String("identity", claims.Subject))
}
