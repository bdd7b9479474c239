package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"RiderPayroll/internal/auth"
	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
)

// jsonResponse - вспомогательная структура для стандартного ответа API
type jsonResponse struct {
	Status  string      `json:"status"` // "success" или "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RegisterRequest - тело запроса регистрации. Роль не принимается:
// новые учетные записи всегда получают роль курьера.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest - тело запроса входа.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest - тело запроса обновления access-токена.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest - необязательное тело запроса выхода с refresh-токеном.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ResetPasswordRequest - тело запроса сброса пароля по токену.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UpdatePasswordRequest - тело запроса смены собственного пароля.
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// --- Вспомогательные функции для JSON-ответов ---
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: message, Data: data})
}

// decodeJSONBody разбирает тело запроса; при ошибке сразу пишет 400.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// logAction записывает действие пользователя в журнал аудита.
// Отказ журнала не ломает основной сценарий.
func logAction(username, action string) {
	if err := db.AddAuditLog(username, action); err != nil {
		log.Printf("logAction: не удалось записать действие '%s' в журнал: %v", action, err)
	}
}

// RegisterHandler создает новую учетную запись курьера.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("RegisterHandler: ошибка хэширования пароля: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	user, err := db.CreateUser(req.Username, hashed, constants.ROLE_USER)
	if err != nil {
		if errors.Is(err, db.ErrUsernameTaken) {
			writeJSONError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		log.Printf("RegisterHandler: ошибка создания пользователя: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	logAction(user.Username, constants.ACTION_REGISTER)
	writeJSONSuccess(w, "User registered successfully", map[string]interface{}{"user_id": user.ID})
}

// LoginHandler проверяет учетные данные и выдает пару токенов.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := db.GetUserByUsername(req.Username)
	if err != nil || !auth.CheckPassword(req.Password, user.Password) {
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	accessToken, err := deps.Tokens.GenerateAccessToken(user.Username, user.Role, auth.AccessTokenTTL)
	if err != nil {
		log.Printf("LoginHandler: ошибка выпуска access-токена: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	refreshToken, err := deps.Tokens.GenerateRefreshToken(user.Username)
	if err != nil {
		log.Printf("LoginHandler: ошибка выпуска refresh-токена: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	logAction(user.Username, constants.ACTION_LOGIN)
	writeJSONSuccess(w, "Login successful", map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
		"role":          user.Role,
	})
}

// RefreshHandler выдает новый access-токен по действующему refresh-токену.
// Роль берется из базы, а не из токена: смена роли вступает в силу сразу.
func RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeJSONError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	claims, err := deps.Tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenRevoked) {
			writeJSONError(w, http.StatusUnauthorized, "Refresh token has been revoked")
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	user, err := db.GetUserByUsername(claims.Subject)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	accessToken, err := deps.Tokens.GenerateAccessToken(user.Username, user.Role, auth.AccessTokenTTL)
	if err != nil {
		log.Printf("RefreshHandler: ошибка выпуска access-токена: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	writeJSONSuccess(w, "Token refreshed successfully", map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "bearer",
		"role":         user.Role,
	})
}

// LogoutHandler отзывает предъявленный access-токен и, если передан, refresh-токен.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	if claims, ok := r.Context().Value(ClaimsContextKey).(*auth.Claims); ok {
		deps.Tokens.Revoke(claims)
	}

	// Тело необязательное: refresh-токен отзывается, только если его прислали.
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		if refreshClaims, err := deps.Tokens.ValidateRefreshToken(req.RefreshToken); err == nil {
			deps.Tokens.Revoke(refreshClaims)
		}
	}

	logAction(user.Username, constants.ACTION_LOGOUT)
	writeJSONSuccess(w, fmt.Sprintf("User %s logged out successfully", user.Username), nil)
}

// ResetPasswordHandler устанавливает новый пароль по токену сброса.
func ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeJSONError(w, http.StatusBadRequest, "token and new_password are required")
		return
	}

	claims, err := deps.Tokens.ValidateAccessToken(req.Token)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}

	user, err := db.GetUserByUsername(claims.Subject)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("ResetPasswordHandler: ошибка хэширования пароля: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	if err := db.UpdateUserPassword(user.Username, hashed); err != nil {
		log.Printf("ResetPasswordHandler: ошибка обновления пароля: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	logAction(user.Username, constants.ACTION_RESET_PASSWORD)
	writeJSONSuccess(w, "Password reset successful", nil)
}

// MeHandler возвращает имя и роль текущего пользователя.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSONSuccess(w, "User info retrieved successfully", map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
}

// ProfileHandler возвращает профиль текущего пользователя.
func ProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSONSuccess(w, "Profile retrieved successfully", user)
}

// UpdatePasswordHandler меняет пароль текущего пользователя после проверки старого.
func UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req UpdatePasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeJSONError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}

	if !auth.CheckPassword(req.OldPassword, user.Password) {
		writeJSONError(w, http.StatusUnauthorized, "Old password is incorrect")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("UpdatePasswordHandler: ошибка хэширования пароля: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}
	if err := db.UpdateUserPassword(user.Username, hashed); err != nil {
		log.Printf("UpdatePasswordHandler: ошибка обновления пароля: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	logAction(user.Username, fmt.Sprintf("Updated password for user %s", user.Username))
	writeJSONSuccess(w, "Password updated successfully", nil)
}
