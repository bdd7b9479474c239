package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"RiderPayroll/internal/models"
)

// AddAuditLog записывает действие пользователя в журнал аудита.
// Ошибка записи не должна ломать основную операцию — вызывающий код сам
// решает, игнорировать её или нет.
// AddAuditLog writes a user action to the audit log. A write failure must not
// break the main operation — the caller decides whether to ignore it.
func AddAuditLog(username, action string) error {
	_, err := DB.Exec(`
        INSERT INTO audit_logs (username, action, timestamp)
        VALUES ($1, $2, NOW())`, username, action)
	if err != nil {
		log.Printf("AddAuditLog: ошибка записи действия '%s' пользователя '%s': %v", action, username, err)
		return err
	}
	return nil
}

// GetAuditLogs возвращает страницу журнала аудита, отсортированную по времени
// (новые сверху). username и action — подстрочные фильтры поиска (ILIKE),
// startDate/endDate ограничивают timestamp, skip/limit задают страницу.
// GetAuditLogs returns a page of the audit log ordered by timestamp (newest
// first). username and action are substring search filters (ILIKE),
// startDate/endDate bound timestamp, skip/limit select the page.
func GetAuditLogs(username, action string, startDate, endDate *time.Time, skip, limit int) ([]models.AuditLog, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if username != "" {
		conditions = append(conditions, fmt.Sprintf("username ILIKE $%d", argID))
		args = append(args, "%"+username+"%")
		argID++
	}
	if action != "" {
		conditions = append(conditions, fmt.Sprintf("action ILIKE $%d", argID))
		args = append(args, "%"+action+"%")
		argID++
	}
	if startDate != nil && endDate != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp BETWEEN $%d AND $%d", argID, argID+1))
		args = append(args, *startDate, *endDate)
		argID += 2
	}

	query := "SELECT id, username, action, timestamp FROM audit_logs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC OFFSET $%d LIMIT $%d", argID, argID+1)
	args = append(args, skip, limit)

	rows, err := DB.Query(query, args...)
	if err != nil {
		log.Printf("GetAuditLogs: ошибка получения журнала аудита: %v", err)
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if errScan := rows.Scan(&l.ID, &l.Username, &l.Action, &l.Timestamp); errScan != nil {
			log.Printf("GetAuditLogs: ошибка сканирования записи журнала: %v", errScan)
			continue
		}
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		log.Printf("GetAuditLogs: ошибка после итерации по строкам: %v", err)
		return nil, err
	}
	return logs, nil
}
