package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveAdmin(t *testing.T) {
	t.Helper()
	prev := Admin
	t.Cleanup(func() { Admin = prev })
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	assert.NoError(t, n.Send("сообщение в пустоту"))
}

func TestSendToAdminWithoutInit(t *testing.T) {
	saveAdmin(t)
	Admin = nil

	// Не должно ни паниковать, ни требовать сети.
	SendToAdmin("импорт завершён")
}

func TestInitNotifierDisabledWithoutCredentials(t *testing.T) {
	saveAdmin(t)
	Admin = nil

	require.NoError(t, InitNotifier("", 123, false))
	assert.Nil(t, Admin)

	require.NoError(t, InitNotifier("123:token", 0, false))
	assert.Nil(t, Admin)
}
