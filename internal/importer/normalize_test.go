package importer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCleanHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Careem Captain ID.\n ", "Careem Captain ID."},
		{"Total  Working   Hours", "Total Working Hours"},
		{"Net Salary", "Net Salary"},
		{"\r\nPerson Code\r", "Person Code"},
		{"Name", "Name"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanHeader(tc.in))
	}
}

func TestNormalizeTable_MapsMessyHeaders(t *testing.T) {
	rows := [][]string{
		{"Rider Payment Sheet"},
		{"Careem Captain ID.\n ", "Total  Working   Hours", "Name"},
		{"98765", "57", "Jane Doe"},
	}

	normalized, err := NormalizeTable(rows)
	require.NoError(t, err)
	require.Len(t, normalized, 1)

	row := normalized[0]
	assert.Equal(t, "98765", row["careem_captain_id"])
	assert.Equal(t, "57", row["total_working_hours"])
	assert.Equal(t, "Jane Doe", row["name"])
}

func TestNormalizeTable_FiltersServiceRows(t *testing.T) {
	rows := [][]string{
		{"title"},
		{"Name", "Gross Pay"},
		{"Jane Doe", "1500.5"},
		{"Grand Total", "99999"},
		{"", "123"},
		{"", ""},
	}

	normalized, err := NormalizeTable(rows)
	require.NoError(t, err)
	require.Len(t, normalized, 1)
	assert.Equal(t, "Jane Doe", normalized[0]["name"])
}

func TestNormalizeTable_IdentifierCleanup(t *testing.T) {
	rows := [][]string{
		{"title"},
		{"Careem Captain ID.", "Person Code", "Name"},
		{"12345.0", "  ABCD  ", "Jane Doe"},
		{"", "X1", "Bob"},
	}

	normalized, err := NormalizeTable(rows)
	require.NoError(t, err)
	require.Len(t, normalized, 2)

	assert.Equal(t, "12345", normalized[0]["careem_captain_id"])
	assert.Equal(t, "ABCD", normalized[0]["person_code"])

	_, ok := normalized[1]["careem_captain_id"]
	assert.False(t, ok, "пустой идентификатор должен остаться null")
	assert.Equal(t, "X1", normalized[1]["person_code"])
}

func TestNormalizeTable_SentinelsBecomeNull(t *testing.T) {
	rows := [][]string{
		{"title"},
		{"Name", "DOJ", "Total Working Hours", "Net Salary", "Vendor Fee", "Remarks"},
		{"Jane Doe", "NaT", "NaN", "inf", "-inf", "#N/A"},
		{"Bob", "2024-01-15", "40", "900.5", "10", "ok"},
	}

	normalized, err := NormalizeTable(rows)
	require.NoError(t, err)
	require.Len(t, normalized, 2)

	first := normalized[0]
	assert.Equal(t, "Jane Doe", first["name"])
	for _, column := range []string{"doj", "total_working_hours", "net_salary", "vendor_fee", "remarks"} {
		_, ok := first[column]
		assert.False(t, ok, "колонка %s должна стать null", column)
	}

	second := normalized[1]
	assert.Equal(t, "2024-01-15", second["doj"])
	assert.Equal(t, "40", second["total_working_hours"])
	assert.Equal(t, "ok", second["remarks"])
}

func TestNormalizeTable_DropsSnoColumn(t *testing.T) {
	rows := [][]string{
		{"title"},
		{"sno", "Name"},
		{"1", "Jane Doe"},
	}

	normalized, err := NormalizeTable(rows)
	require.NoError(t, err)
	require.Len(t, normalized, 1)

	_, ok := normalized[0]["sno"]
	assert.False(t, ok)
}

func TestNormalizeTable_MissingNameColumn(t *testing.T) {
	rows := [][]string{
		{"title"},
		{"Careem Captain ID.", "Gross Pay"},
		{"12345", "1500"},
	}

	_, err := NormalizeTable(rows)
	require.ErrorIs(t, err, ErrParse)
}

func TestNormalizeTable_NoHeaderRow(t *testing.T) {
	_, err := NormalizeTable([][]string{{"only a title"}})
	require.ErrorIs(t, err, ErrParse)
}

func TestBuildPayments_TypedValues(t *testing.T) {
	row := CanonicalRow{
		"name":                "Jane Doe",
		"careem_captain_id":   "98765",
		"doj":                 "2024-01-15",
		"total_working_hours": "57.0",
		"no_of_days":          "26",
		"total_orders":        "abc",
		"gross_pay":           "1234.56",
		"remarks":             "ok",
	}

	payments := BuildPayments([]CanonicalRow{row})
	require.Len(t, payments, 1)
	p := payments[0]

	assert.Equal(t, "Jane Doe", p.Name)
	require.True(t, p.CareemCaptainID.Valid)
	assert.Equal(t, "98765", p.CareemCaptainID.String)
	require.True(t, p.DOJ.Valid)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), p.DOJ.Time)
	require.True(t, p.TotalWorkingHours.Valid)
	assert.Equal(t, int64(57), p.TotalWorkingHours.Int64)
	require.True(t, p.NoOfDays.Valid)
	assert.Equal(t, int64(26), p.NoOfDays.Int64)
	assert.False(t, p.TotalOrders.Valid, "нечисловое значение должно стать null")
	require.True(t, p.GrossPay.Valid)
	assert.InDelta(t, 1234.56, p.GrossPay.Float64, 0.0001)
	assert.False(t, p.NetSalary.Valid)
	require.True(t, p.Remarks.Valid)
	assert.Equal(t, "ok", p.Remarks.String)
}

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		require.NoError(t, f.Close())
	}()

	sheet := f.GetSheetList()[0]
	for r, cells := range rows {
		for c, value := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestNormalizePayments_Workbook(t *testing.T) {
	workbook := buildWorkbook(t, [][]string{
		{"Rider Payment Sheet"},
		{"Careem Captain ID.\n ", "Person Code", "Name", "DOJ", "Total  Working   Hours", "Gross Pay"},
		{"12345.0", "PC-1", "Jane Doe", "2024-01-15", "57", "1500.5"},
		{"99", "PC-2", "Grand Total", "", "", ""},
		{"88", "PC-3", "", "", "", ""},
	})

	payments, err := NormalizePayments(workbook)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	p := payments[0]
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "12345", p.CareemCaptainID.String)
	assert.Equal(t, "PC-1", p.PersonCode.String)
	require.True(t, p.DOJ.Valid)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), p.DOJ.Time)
	require.True(t, p.TotalWorkingHours.Valid)
	assert.Equal(t, int64(57), p.TotalWorkingHours.Int64)
	require.True(t, p.GrossPay.Valid)
	assert.InDelta(t, 1500.5, p.GrossPay.Float64, 0.0001)
}

func TestNormalizePayments_NotASpreadsheet(t *testing.T) {
	_, err := NormalizePayments(bytes.NewReader([]byte("definitely not xlsx")))
	require.ErrorIs(t, err, ErrParse)
}
