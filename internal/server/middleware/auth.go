// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	companyIDKey ContextKey = "companyID"
	userIDKey    ContextKey = "userID"
)

// TokenValidator is an interface for validating JWT tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (ClaimsGetter, error)
}

// ClaimsGetter extracts the tenant and actor identity from token claims.
type ClaimsGetter interface {
	GetCompanyID() uuid.UUID
	GetUserID() uuid.UUID
}

// AuthMiddleware creates middleware that validates JWT tokens and adds the
// company and user IDs to the request context. Every authenticated route is
// company-scoped; handlers must never accept a company ID from the request
// body or query string.
func AuthMiddleware(jwtService TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), companyIDKey, claims.GetCompanyID())
			ctx = context.WithValue(ctx, userIDKey, claims.GetUserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCompanyID extracts the authenticated company ID from the request context.
func GetCompanyID(r *http.Request) (uuid.UUID, error) {
	companyID, ok := r.Context().Value(companyIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("company ID not found in request context")
	}
	return companyID, nil
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user ID not found in request context")
	}
	return userID, nil
}

// CompanyIDKey returns the context key for company ID (for testing purposes).
func CompanyIDKey() ContextKey {
	return companyIDKey
}

// UserIDKey returns the context key for user ID (for testing purposes).
func UserIDKey() ContextKey {
	return userIDKey
}
