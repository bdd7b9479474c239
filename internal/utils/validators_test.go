package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiderPayroll/internal/constants"
)

func TestParseDateRange(t *testing.T) {
	t.Run("BothEmpty", func(t *testing.T) {
		start, end, err := ParseDateRange("", "")
		require.NoError(t, err)
		assert.Nil(t, start)
		assert.Nil(t, end)
	})

	t.Run("OneSided", func(t *testing.T) {
		_, _, err := ParseDateRange("2024-07-01", "")
		require.Error(t, err)

		_, _, err = ParseDateRange("", "2024-07-31")
		require.Error(t, err)
	})

	t.Run("BadFormat", func(t *testing.T) {
		_, _, err := ParseDateRange("01-07-2024", "31-07-2024")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start_date")
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		_, _, err := ParseDateRange("2024-07-31", "2024-07-01")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "раньше")
	})

	t.Run("EndExtendsToEndOfDay", func(t *testing.T) {
		start, end, err := ParseDateRange("2024-07-01", "2024-07-31")
		require.NoError(t, err)
		require.NotNil(t, start)
		require.NotNil(t, end)

		assert.True(t, start.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
		// Конец диапазона — последний наносекундный миг 31 июля.
		assert.True(t, end.Equal(time.Date(2024, 7, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)))
		assert.True(t, end.Before(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("SingleDayRange", func(t *testing.T) {
		start, end, err := ParseDateRange("2024-07-15", "2024-07-15")
		require.NoError(t, err)
		inDay := time.Date(2024, 7, 15, 18, 30, 0, 0, time.UTC)
		assert.True(t, !inDay.Before(*start) && !inDay.After(*end))
	})
}

func TestIsRoleOrHigher(t *testing.T) {
	cases := []struct {
		name     string
		userRole string
		required string
		want     bool
	}{
		{"AdminMeetsAdmin", constants.ROLE_ADMIN, constants.ROLE_ADMIN, true},
		{"AdminMeetsUser", constants.ROLE_ADMIN, constants.ROLE_USER, true},
		{"UserMeetsUser", constants.ROLE_USER, constants.ROLE_USER, true},
		{"UserBelowAdmin", constants.ROLE_USER, constants.ROLE_ADMIN, false},
		{"UnknownUserRole", "owner", constants.ROLE_USER, false},
		{"UnknownRequiredRole", constants.ROLE_ADMIN, "owner", false},
		{"EmptyRole", "", constants.ROLE_USER, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRoleOrHigher(tc.userRole, tc.required))
		})
	}
}

func TestDateParamLayoutRoundTrip(t *testing.T) {
	parsed, err := time.Parse(constants.DateParamLayout, "2024-07-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15", parsed.Format(constants.DateParamLayout))
}
