package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Claims is the JWT claims structure issued by the identity provider.
type Claims struct {
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Status   string   `json:"status"`
	Features []string `json:"features"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller extracted from a verified token.
// Role, Status and Features are hints from the token; authoritative
// values live in the user record.
type Identity struct {
	UserID   string
	Email    string
	Role     model.Role
	Status   model.AccountStatus
	Features []string
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// ContextWithIdentity injects an identity into the context. Used by tests
// and by the auth middleware.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// ValidateToken verifies an HS256 token and returns its claims.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v (expected HMAC)", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func identityFromClaims(claims *Claims) Identity {
	id := Identity{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Role:     model.Role(claims.Role),
		Status:   model.AccountStatus(claims.Status),
		Features: claims.Features,
	}
	if id.Role == "" {
		id.Role = model.RoleClientDemo
	}
	if id.Status == "" {
		id.Status = model.StatusTrial
	}
	if id.Features == nil {
		id.Features = []string{}
	}
	return id
}

// Auth returns a middleware that requires a valid bearer token and puts
// the caller's identity into the request context.
func Auth(jwtSecret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("Missing Authorization header")
				http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				logger.Warn().Str("path", r.URL.Path).Msg("Malformed Authorization header")
				http.Error(w, "Unauthorized: malformed authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := ValidateToken(parts[1], jwtSecret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					logger.Warn().Str("path", r.URL.Path).Msg("Expired token")
					http.Error(w, "Unauthorized: token expired", http.StatusUnauthorized)
					return
				}
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to validate token")
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			if claims.Subject == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("Token missing subject claim")
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithIdentity(r.Context(), identityFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
