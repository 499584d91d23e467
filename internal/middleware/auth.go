// internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "seo-insights-backend/pkg/errors"
	"seo-insights-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

type contextKey string

const claimsContextKey contextKey = "claims"

// Claims is the payload of tokens issued by the account service.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth rejects requests without a valid HS256 bearer token.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.SendErrorResponse(w, r, apperrors.NewUnauthorizedError("authentication token not found"))
				return
			}

			claims, err := parseAuthorization(authHeader, secret)
			if err != nil {
				utils.SendErrorResponse(w, r, apperrors.NewUnauthorizedError("authentication failed: "+err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth lets anonymous requests through; they are then limited by IP
// only. A token that is present but invalid is still rejected.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parseAuthorization(authHeader, secret)
			if err != nil {
				utils.SendErrorResponse(w, r, apperrors.NewUnauthorizedError("authentication failed: "+err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// AdminOnly must run after Auth.
func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				utils.SendErrorResponse(w, r, apperrors.NewUnauthorizedError("authentication required"))
				return
			}
			if claims.Role != RoleAdmin {
				utils.SendErrorResponse(w, r, apperrors.NewForbiddenError("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseAuthorization(header, secret string) (*Claims, error) {
	// Check if it's a Bearer token
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("invalid authorization format, expected: Bearer <token>")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return nil, errors.New("bearer token is empty")
	}

	return VerifyToken(tokenString, secret)
}

// VerifyToken validates an HS256 token and returns its claims.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("subject not found in token")
	}

	return claims, nil
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext returns the token subject, or "" for anonymous callers.
func GetUserIDFromContext(ctx context.Context) string {
	if claims, ok := GetClaimsFromContext(ctx); ok {
		return claims.Subject
	}
	return ""
}
