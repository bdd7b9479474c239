package models

import "time"

// AuditLog — запись журнала действий пользователей.
// AuditLog is one user action record.
type AuditLog struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
