package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"RiderPayroll/internal/auth"
	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
)

// testHarness поднимает роутер с моком БД и настоящим сервисом токенов.
type testHarness struct {
	router *chi.Mux
	mock   sqlmock.Sqlmock
	tokens *auth.TokenService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	prevDB := db.DB
	db.DB = mockDB
	t.Cleanup(func() {
		db.DB = prevDB
		mockDB.Close()
	})

	tokens := auth.NewTokenService("test-access-secret", "test-refresh-secret", auth.NewMemoryRevocationStore())

	router := chi.NewRouter()
	SetupRoutes(router, ApiDependencies{Tokens: tokens})

	return &testHarness{router: router, mock: mock, tokens: tokens}
}

// do выполняет запрос к тестовому роутеру. body != nil сериализуется в JSON,
// token != "" уходит в заголовок Authorization.
func (h *testHarness) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// dataMap достает Data ответа как объект.
func dataMap(t *testing.T, resp jsonResponse) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data должен быть JSON-объектом, получено %T", resp.Data)
	return data
}

var userColumns = []string{"id", "username", "password", "role", "created_at"}

func testAdmin() models.User {
	return models.User{ID: 1, Username: "boss", Password: "irrelevant-hash", Role: constants.ROLE_ADMIN, CreatedAt: time.Now()}
}

func testRider() models.User {
	return models.User{ID: 2, Username: "Jane Doe", Password: "irrelevant-hash", Role: constants.ROLE_USER, CreatedAt: time.Now()}
}

// expectUserLookup регистрирует выборку пользователя (его делает и
// AuthMiddleware на каждый защищенный запрос).
func (h *testHarness) expectUserLookup(user models.User) {
	h.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=$1")).
		WithArgs(user.Username).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(user.ID, user.Username, user.Password, user.Role, user.CreatedAt))
}

func (h *testHarness) expectAudit() {
	h.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func (h *testHarness) accessToken(t *testing.T, user models.User) string {
	t.Helper()
	token, err := h.tokens.GenerateAccessToken(user.Username, user.Role, auth.AccessTokenTTL)
	require.NoError(t, err)
	return token
}
