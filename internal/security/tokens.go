package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for malformed, expired or revoked tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidProfile is returned when a profile cannot be signed in.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile is the signed-in user as shown in the UI.
type Profile struct {
	Name  string `json:"name" validate:"required,max=128"`
	Email string `json:"email" validate:"required,email,max=254"`
	Image string `json:"image,omitempty" validate:"omitempty,url,max=2048"`
}

// DemoProfile is the profile used by the mock sign-in flow.
var DemoProfile = Profile{
	Name:  "Demo User",
	Email: "demo@example.com",
	Image: "https://github.com/shadcn.png",
}

// Identity returns the key that progress is stored under for this profile.
func (p Profile) Identity() string {
	return strings.ToLower(strings.TrimSpace(p.Email))
}

// Claims are the JWT claims carried by identity tokens. The subject is the
// identity key.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
	jwt.RegisteredClaims
}

// Profile returns the profile embedded in the claims.
func (c *Claims) Profile() Profile {
	return Profile{Name: c.Name, Email: c.Email, Image: c.Image}
}

// TokenIssuer signs and verifies HS256 identity tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewTokenIssuer creates an issuer. An empty secret gets a random one, so
// tokens are only valid for the lifetime of the process.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &TokenIssuer{
		secret:  key,
		ttl:     ttl,
		issuer:  issuer,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue signs a token for profile.
func (ti *TokenIssuer) Issue(profile Profile) (string, *Claims, error) {
	identity := profile.Identity()
	if identity == "" {
		return "", nil, fmt.Errorf("%w: email is required", ErrInvalidProfile)
	}

	now := ti.now()
	claims := &Claims{
		Name:  profile.Name,
		Email: profile.Email,
		Image: profile.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Validate parses and verifies a token.
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if ti.isRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke invalidates the token behind claims until it would have expired.
func (ti *TokenIssuer) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	expiry := ti.now().Add(ti.ttl)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.revoked[claims.ID] = expiry
	ti.pruneLocked()
}

func (ti *TokenIssuer) isRevoked(id string) bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	_, ok := ti.revoked[id]
	return ok
}

func (ti *TokenIssuer) pruneLocked() {
	now := ti.now()
	for id, exp := range ti.revoked {
		if now.After(exp) {
			delete(ti.revoked, id)
		}
	}
}

// TTL returns the lifetime of issued tokens.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}
