package api

import (
	"database/sql"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"RiderPayroll/internal/utils"
)

var riderColumns = []string{
	"sno", "careem_captain_id", "person_code", "card_no", "designation", "doj", "name",
	"total_working_hours", "no_of_days", "total_orders", "actual_order_pay",
	"total_excess_pay_bonus_and_dist_pay", "gross_pay", "total_cod_cash_on_delivery",
	"vendor_fee", "traffic_fine", "loan_saladv_os_fine", "training_fee", "net_salary",
	"remarks", "filename", "imported_at",
}

// paymentRow собирает строку ведомости для мока: только sno, имя, часы,
// файл и метка импорта, остальное NULL.
func paymentRow(rows *sqlmock.Rows, sno int64, name string, hours int64, filename string) *sqlmock.Rows {
	return rows.AddRow(
		sno, nil, nil, nil, nil, nil, name,
		hours, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil, nil, nil,
		nil, filename, time.Now(),
	)
}

func TestAdminGetRidersHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)
		rows := sqlmock.NewRows(riderColumns)
		paymentRow(rows, 1, "Jane Doe", 57, "july.xlsx")
		paymentRow(rows, 2, "John Smith", 42, "july.xlsx")
		h.mock.ExpectQuery(regexp.QuoteMeta("FROM rider_payments")).WillReturnRows(rows)

		rec := h.do(t, http.MethodGet, "/api/admin/riders", token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		payments, ok := resp.Data.([]interface{})
		require.True(t, ok)
		require.Len(t, payments, 2)
		first, ok := payments[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Jane Doe", first["name"])
		assert.Equal(t, float64(57), first["total_working_hours"])
		assert.Nil(t, first["card_no"])
	})

	t.Run("InvalidOrder", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)

		rec := h.do(t, http.MethodGet, "/api/admin/riders?order=sideways", token, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid order parameter", decodeResponse(t, rec).Message)
	})

	t.Run("InvalidDates", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)

		rec := h.do(t, http.MethodGet, "/api/admin/riders?start_date=01-07-2024&end_date=31-07-2024", token, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid date format, use YYYY-MM-DD", decodeResponse(t, rec).Message)
	})

	t.Run("DateRangeFiltersImportedAt", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)
		h.mock.ExpectQuery(regexp.QuoteMeta("WHERE imported_at BETWEEN $1 AND $2")).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(riderColumns))

		rec := h.do(t, http.MethodGet, "/api/admin/riders?start_date=2024-07-01&end_date=2024-07-31", token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})
}

func TestGetMyPaymentsHandler(t *testing.T) {
	h := newTestHarness(t)
	rider := testRider()

	token := h.accessToken(t, rider)
	h.expectUserLookup(rider)
	rows := sqlmock.NewRows(riderColumns)
	paymentRow(rows, 5, rider.Username, 57, "july.xlsx")
	h.mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).
		WithArgs(rider.Username).
		WillReturnRows(rows)

	rec := h.do(t, http.MethodGet, "/api/my/payments", token, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	payments, ok := decodeResponse(t, rec).Data.([]interface{})
	require.True(t, ok)
	require.Len(t, payments, 1)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGetRiderCardQRHandler(t *testing.T) {
	t.Run("InvalidSno", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)

		rec := h.do(t, http.MethodGet, "/api/admin/riders/abc/card-qr", token, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid sno parameter", decodeResponse(t, rec).Message)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)
		h.mock.ExpectQuery(regexp.QuoteMeta("SELECT card_no FROM rider_payments WHERE sno = $1")).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		rec := h.do(t, http.MethodGet, "/api/admin/riders/99/card-qr", token, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Card number not found", decodeResponse(t, rec).Message)
	})

	t.Run("Success", func(t *testing.T) {
		t.Setenv("CARD_ENCRYPTION_KEY_HEX", strings.Repeat("ab", 32))
		require.NoError(t, utils.InitEncryptionKey())
		encryptedCard, err := utils.EncryptCardNumber("4111222233334444")
		require.NoError(t, err)

		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)
		h.mock.ExpectQuery(regexp.QuoteMeta("SELECT card_no FROM rider_payments WHERE sno = $1")).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"card_no"}).AddRow(encryptedCard))

		rec := h.do(t, http.MethodGet, "/api/admin/riders/5/card-qr", token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		// PNG начинается с фиксированной сигнатуры.
		assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
	})
}

func TestExportRidersHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)
		rows := sqlmock.NewRows(riderColumns)
		paymentRow(rows, 1, "Jane Doe", 57, "july.xlsx")
		h.mock.ExpectQuery(regexp.QuoteMeta("FROM rider_payments")).WillReturnRows(rows)
		h.expectAudit()

		rec := h.do(t, http.MethodGet, "/api/admin/riders/export", token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

		f, err := excelize.OpenReader(rec.Body)
		require.NoError(t, err)
		defer f.Close()
		sheetRows, err := f.GetRows("Riders")
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(sheetRows), 2)
		assert.Equal(t, "Sno", sheetRows[0][0])
		assert.Equal(t, "Name", sheetRows[0][6])
		assert.Equal(t, "1", sheetRows[1][0])
		assert.Equal(t, "Jane Doe", sheetRows[1][6])
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("SelectedSnos", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)
		rows := sqlmock.NewRows(riderColumns)
		paymentRow(rows, 5, "Jane Doe", 57, "july.xlsx")
		paymentRow(rows, 6, "John Smith", 42, "july.xlsx")
		h.mock.ExpectQuery(regexp.QuoteMeta("WHERE sno = ANY($1)")).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(rows)
		h.expectAudit()

		rec := h.do(t, http.MethodGet, "/api/admin/riders/export?snos=5,6", token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("InvalidSnos", func(t *testing.T) {
		h := newTestHarness(t)
		admin := testAdmin()

		token := h.accessToken(t, admin)
		h.expectUserLookup(admin)

		rec := h.do(t, http.MethodGet, "/api/admin/riders/export?snos=5,abc", token, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid snos parameter", decodeResponse(t, rec).Message)
	})
}
