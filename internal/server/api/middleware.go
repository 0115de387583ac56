package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/greenpanipat/plantation-tracker/pkg/utils"
)

type contextKey string

const (
	userClaimsKey contextKey = "userClaims"
)

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromHeader(r)
		if !ok {
			respondErrorJSON(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		ctx := context.WithValue(r.Context(), userClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware attaches claims when a valid bearer token is present
// and passes the request through otherwise. Used on plant creation, where a
// form-field identity is accepted as a fallback when no session exists.
func OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := claimsFromHeader(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userClaimsKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFromHeader(r *http.Request) (*utils.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := utils.ValidateJWT(parts[1], os.Getenv("JWT_SECRET"))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func GetUserClaims(r *http.Request) *utils.Claims {
	claims, ok := r.Context().Value(userClaimsKey).(*utils.Claims)
	if !ok {
		return nil
	}
	return claims
}

var (
	adminEmailsOnce sync.Once
	adminEmailSet   map[string]struct{}
)

func loadAdminEmails() {
	adminEmailSet = make(map[string]struct{})

	// Set ADMIN_EMAILS=email1@example.com,email2@example.com
	if raw := os.Getenv("ADMIN_EMAILS"); raw != "" {
		for _, email := range strings.Split(raw, ",") {
			email = strings.TrimSpace(strings.ToLower(email))
			if email != "" {
				adminEmailSet[email] = struct{}{}
			}
		}
	}
}

// IsAdminEmail reports whether the email is flagged admin. The same check
// gates the /admin routes and widens the delete-ownership rule.
func IsAdminEmail(email string) bool {
	adminEmailsOnce.Do(loadAdminEmails)
	_, ok := adminEmailSet[strings.ToLower(email)]
	return ok
}

func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserClaims(r)
		if claims == nil {
			respondErrorJSON(w, http.StatusUnauthorized, "missing authorization claims")
			return
		}

		if !IsAdminEmail(claims.Email) {
			respondErrorJSON(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
