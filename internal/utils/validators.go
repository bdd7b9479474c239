package utils

import (
	"fmt"
	"log"
	"time"

	"RiderPayroll/internal/constants"
)

// ParseDateRange разбирает пару query-параметров start_date/end_date в формате
// ГГГГ-ММ-ДД. Обе даты либо заданы, либо отсутствуют; конец диапазона
// расширяется до конца суток, чтобы фильтр включал записи за последний день.
// ParseDateRange parses the start_date/end_date query parameter pair in
// YYYY-MM-DD format. Either both dates are set or neither; the range end is
// extended to the end of the day so the filter includes the last day's rows.
func ParseDateRange(startStr, endStr string) (*time.Time, *time.Time, error) {
	if startStr == "" && endStr == "" {
		return nil, nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, nil, fmt.Errorf("start_date и end_date должны быть указаны вместе")
	}

	start, err := time.Parse(constants.DateParamLayout, startStr)
	if err != nil {
		return nil, nil, fmt.Errorf("некорректный формат start_date '%s', ожидается ГГГГ-ММ-ДД", startStr)
	}
	end, err := time.Parse(constants.DateParamLayout, endStr)
	if err != nil {
		return nil, nil, fmt.Errorf("некорректный формат end_date '%s', ожидается ГГГГ-ММ-ДД", endStr)
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("end_date раньше start_date")
	}

	endOfDay := end.Add(24*time.Hour - time.Nanosecond)
	return &start, &endOfDay, nil
}

// IsRoleOrHigher проверяет, соответствует ли роль пользователя минимально требуемой роли.
// Иерархия ролей: User < Admin
// IsRoleOrHigher checks if the user's role meets the minimum required role.
// Role hierarchy: User < Admin
func IsRoleOrHigher(userRole string, requiredRole string) bool {
	roleHierarchy := map[string]int{
		constants.ROLE_USER:  0,
		constants.ROLE_ADMIN: 1,
	}

	userLevel, okUser := roleHierarchy[userRole]
	requiredLevel, okRequired := roleHierarchy[requiredRole]

	if !okUser || !okRequired {
		log.Printf("IsRoleOrHigher: неизвестная роль при сравнении: userRole='%s', requiredRole='%s'", userRole, requiredRole)
		return false // Если одна из ролей неизвестна, считаем, что доступ запрещен / If one of the roles is unknown, access is considered denied
	}
	return userLevel >= requiredLevel
}
