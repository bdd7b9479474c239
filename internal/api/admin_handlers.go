package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
	"RiderPayroll/internal/utils"

	"github.com/go-chi/chi/v5"
)

// AdminUpdateUserRequest - тело запроса смены роли пользователя.
type AdminUpdateUserRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// GenerateResetTokenRequest - тело запроса выпуска токена сброса пароля.
type GenerateResetTokenRequest struct {
	Username string `json:"username"`
}

// adminUser достает администратора из контекста запроса.
func adminUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return models.User{}, false
	}
	return user, true
}

// ListUsersHandler возвращает всех пользователей.
func ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminUser(w, r)
	if !ok {
		return
	}

	users, err := db.GetAllUsers()
	if err != nil {
		log.Printf("ListUsersHandler: ошибка получения списка пользователей: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []models.User{}
	}

	logAction(admin.Username, constants.ACTION_VIEW_ADMIN)
	writeJSONSuccess(w, "Users retrieved successfully", users)
}

// UpdateUserHandler меняет роль пользователя.
func UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminUser(w, r)
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeJSONError(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Role != constants.ROLE_USER && req.Role != constants.ROLE_ADMIN {
		writeJSONError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	if err := db.UpdateUserRole(req.Username, req.Role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("UpdateUserHandler: ошибка обновления роли '%s': %v", req.Username, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	logAction(admin.Username, fmt.Sprintf("User %s updated to role %s", req.Username, req.Role))
	writeJSONSuccess(w, "User updated successfully", nil)
}

// DeleteUserHandler удаляет учетную запись пользователя.
func DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminUser(w, r)
	if !ok {
		return
	}

	username := chi.URLParam(r, "username")
	if username == "" {
		writeJSONError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := db.DeleteUser(username); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("DeleteUserHandler: ошибка удаления пользователя '%s': %v", username, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	logAction(admin.Username, fmt.Sprintf("User %s deleted by admin", username))
	writeJSONSuccess(w, fmt.Sprintf("User %s deleted successfully", username), nil)
}

// GetAuditLogsHandler возвращает страницу журнала аудита.
// username и action — подстрочные фильтры поиска, skip/limit — пагинация.
func GetAuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	skip := 0
	if skipParam := query.Get("skip"); skipParam != "" {
		parsed, err := strconv.Atoi(skipParam)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, "Invalid skip parameter")
			return
		}
		skip = parsed
	}

	limit := constants.LogsPerPage
	if limitParam := query.Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			writeJSONError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}
	if limit > constants.MaxLogsPerPage {
		limit = constants.MaxLogsPerPage
	}

	startDate, endDate, err := utils.ParseDateRange(query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD")
		return
	}

	logs, err := db.GetAuditLogs(query.Get("username"), query.Get("action"), startDate, endDate, skip, limit)
	if err != nil {
		log.Printf("GetAuditLogsHandler: ошибка получения журнала аудита: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	writeJSONSuccess(w, "Audit logs retrieved successfully", map[string]interface{}{
		"skip":  skip,
		"limit": limit,
		"logs":  logs,
	})
}

// GenerateResetTokenHandler выпускает короткоживущий токен сброса пароля
// для указанного пользователя.
func GenerateResetTokenHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminUser(w, r)
	if !ok {
		return
	}

	var req GenerateResetTokenRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeJSONError(w, http.StatusBadRequest, "username is required")
		return
	}

	user, err := db.GetUserByUsername(req.Username)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	resetToken, err := deps.Tokens.GenerateResetToken(user.Username)
	if err != nil {
		log.Printf("GenerateResetTokenHandler: ошибка выпуска токена сброса для '%s': %v", user.Username, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate reset token")
		return
	}

	logAction(admin.Username, constants.ACTION_GEN_RESET_TOKEN)
	writeJSONSuccess(w, "Reset token generated", map[string]interface{}{
		"reset_token": resetToken,
	})
}
