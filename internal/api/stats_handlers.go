package api

import (
	"log"
	"net/http"

	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
)

// GetDashboardStatsHandler возвращает агрегаты по ведомостям.
// Администратор видит глобальную сводку, курьер — только свою
// (по строгому совпадению имени с username).
func GetDashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	logAction(user.Username, constants.ACTION_VIEW_DASHBOARD)

	if user.Role == constants.ROLE_ADMIN {
		stats, err := db.GetRiderStats()
		if err != nil {
			log.Printf("GetDashboardStatsHandler: ошибка получения общей статистики: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to fetch dashboard stats")
			return
		}
		writeJSONSuccess(w, "Statistics retrieved successfully", map[string]interface{}{
			"role":         user.Role,
			"total_riders": stats.TotalRiders,
			"total_hours":  stats.TotalHours,
			"avg_hours":    stats.AvgHours,
		})
		return
	}

	stats, err := db.GetRiderStatsByName(user.Username)
	if err != nil {
		log.Printf("GetDashboardStatsHandler: ошибка получения статистики для '%s': %v", user.Username, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch dashboard stats")
		return
	}
	writeJSONSuccess(w, "Statistics retrieved successfully", map[string]interface{}{
		"role":        user.Role,
		"username":    user.Username,
		"total_hours": stats.TotalHours,
		"avg_hours":   stats.AvgHours,
	})
}
