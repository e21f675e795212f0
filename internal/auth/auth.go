// Package auth verifies bearer tokens issued by the external auth service
// and carries the resulting caller through the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

type ctxKey struct{}

// Claims is the token payload: sub holds the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errBadRole = errors.New("unknown role")

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates raw and returns the caller it identifies.
func (v *Verifier) Parse(raw string) (model.Caller, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return model.Caller{}, err
	}
	if !tok.Valid || claims.Subject == "" {
		return model.Caller{}, jwt.ErrTokenInvalidClaims
	}
	role := model.Role(claims.Role)
	switch role {
	case model.RoleAdministrator, model.RoleCoordinator, model.RoleProfessional, model.RoleClient:
	default:
		return model.Caller{}, errBadRole
	}
	return model.Caller{UserID: claims.Subject, Role: role}, nil
}

// Sign issues a token for the given caller. The server never mints tokens
// for end users; this exists for tooling and tests.
func (v *Verifier) Sign(c model.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			deny(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		caller, err := v.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			deny(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireRole allows the request through only when the caller holds one of
// roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CallerFrom(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if !allowed[c.Role] {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c model.Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// CallerFrom extracts the caller stored by Middleware.
func CallerFrom(ctx context.Context) (model.Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(model.Caller)
	return c, ok
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}
