/**
 * @description
 * This file contains custom middleware for the HTTP router. The mass-payout
 * service is an internal backend, so every mutating endpoint is protected by
 * a shared-secret service token (HS256 JWT) issued by the platform gateway.
 *
 * @dependencies
 * - net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CallerContextKey is a custom type for the context key to avoid collisions.
type CallerContextKey string

const callerIDKey CallerContextKey = "callerID"

// ServiceAuthMiddleware creates a middleware that validates HS256 service
// tokens signed with the shared secret.
func ServiceAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
				return
			}
			if !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			// The 'sub' claim identifies the calling service.
			callerID, ok := claims["sub"].(string)
			if !ok || callerID == "" {
				http.Error(w, "Caller ID not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerIDKey, callerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCallerID retrieves the authenticated caller's service ID from the context.
func GetCallerID(ctx context.Context) (string, bool) {
	callerID, ok := ctx.Value(callerIDKey).(string)
	return callerID, ok
}
