package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"RiderPayroll/internal/auth"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
	"RiderPayroll/internal/utils"
)

// UserContextKey - ключ для сохранения данных пользователя в контексте запроса.
var UserContextKey = &contextKey{"User"}

// ClaimsContextKey - ключ для сохранения claims предъявленного токена в контексте.
// Нужен обработчику выхода, чтобы отозвать именно предъявленный токен.
var ClaimsContextKey = &contextKey{"Claims"}

type contextKey struct {
	name string
}

// AuthMiddleware проверяет заголовок Authorization с bearer-токеном.
// Пользователь загружается из базы: токен удаленного пользователя недействителен.
// AuthMiddleware validates the Authorization bearer token. The user is loaded
// from the database: a deleted user's token is worthless.
func AuthMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				log.Printf("AuthMiddleware: недействительный токен: %v", err)
				switch {
				case errors.Is(err, auth.ErrTokenRevoked):
					writeJSONError(w, http.StatusUnauthorized, "Access token has been revoked")
				case errors.Is(err, auth.ErrTokenExpired):
					writeJSONError(w, http.StatusUnauthorized, "Token has expired")
				default:
					writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				}
				return
			}

			// Получаем полную информацию о пользователе из нашей БД
			user, err := db.GetUserByUsername(claims.Subject)
			if err != nil {
				log.Printf("AuthMiddleware: пользователь %s не найден: %v", claims.Subject, err)
				writeJSONError(w, http.StatusUnauthorized, "User not found")
				return
			}

			// Сохраняем пользователя и claims в контексте запроса для обработчиков
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleMiddleware проверяет, соответствует ли роль пользователя требуемой.
func RoleMiddleware(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := r.Context().Value(UserContextKey).(models.User)
			if !ok {
				writeJSONError(w, http.StatusForbidden, "User data not found in context")
				return
			}

			if !utils.IsRoleOrHigher(user.Role, requiredRole) {
				writeJSONError(w, http.StatusForbidden, "Not authorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
