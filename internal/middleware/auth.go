package middleware

import (
	"context"
	"net/http"
	"strings"

	"challan-backend/internal/auth"
	"challan-backend/pkg/utils"
)

type contextKey string

const StudentIDKey contextKey = "student_id"
const CampusIDKey contextKey = "campus_id"
const RoleKey contextKey = "role"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(w, "Invalid authorization format")
			return
		}

		m.serveWithToken(w, r, parts[1], next)
	})
}

// AuthenticateQuery reads the token from the "token" query parameter.
// Browsers cannot set headers on websocket handshakes.
func (m *AuthMiddleware) AuthenticateQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			unauthorized(w, "token query parameter required")
			return
		}
		m.serveWithToken(w, r, token, next)
	})
}

func (m *AuthMiddleware) serveWithToken(w http.ResponseWriter, r *http.Request, token string, next http.Handler) {
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		unauthorized(w, "Invalid or expired token")
		return
	}

	ctx := context.WithValue(r.Context(), StudentIDKey, claims.StudentID)
	ctx = context.WithValue(ctx, CampusIDKey, claims.CampusID)
	ctx = context.WithValue(ctx, RoleKey, claims.Role)

	next.ServeHTTP(w, r.WithContext(ctx))
}

func unauthorized(w http.ResponseWriter, msg string) {
	utils.JSON(w, http.StatusUnauthorized, utils.ErrorBody{Error: "unauthorized", Message: msg})
}

// GetStudentIDFromContext extracts student ID from request context
func GetStudentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(StudentIDKey).(string)
	return id, ok && id != ""
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
