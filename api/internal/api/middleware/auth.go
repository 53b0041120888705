package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// AccessTokenCookie is the cookie browsers carry the access token in.
const AccessTokenCookie = "locker_access_token"

type AuthMiddleware struct {
	AuthService domain.AuthService
	UserRepo    domain.UserRepository // 🛡️ Real-time Zero-Trust checks
	Logger      *slog.Logger
}

func NewAuthMiddleware(authService domain.AuthService, userRepo domain.UserRepository, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		AuthService: authService,
		UserRepo:    userRepo,
		Logger:      logger,
	}
}

// RequireAuthentication verifies the access token and places *domain.UserClaims
// on the request context.
func (m *AuthMiddleware) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.AuthService.ValidateAccessToken(r.Context(), tokenString)
		if err != nil {
			writeJSONError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// 🛡️ Zero-Trust: Verify user is still active in the DB (Ghost Token Prevention)
		user, err := m.UserRepo.GetByID(r.Context(), claims.Subject)
		if err != nil || !user.IsActive {
			m.Logger.Warn("Attempted access with ghost token", slog.String("user_id", claims.Subject.String()))
			writeJSONError(w, "Account suspended", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), domain.UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken prefers the Authorization header (CLI flow) over the cookie (browser flow).
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
