package importer

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"RiderPayroll/internal/models"

	"github.com/xuri/excelize/v2"
)

// ErrParse возвращается, когда структура ведомости не поддаётся нормализации
// (например, в книге нет листов или отсутствует обязательная колонка Name).
// ErrParse is returned when the sheet structure cannot be normalized,
// e.g. the workbook has no sheets or the mandatory Name column is missing.
var ErrParse = errors.New("некорректная структура ведомости")

// headerFieldMap - словарь заголовков ведомости: очищенный заголовок -> каноничное имя поля.
// Заголовки, которых нет в словаре, проходят дальше как есть и типизацией игнорируются.
// headerFieldMap maps cleaned sheet headers to canonical field names.
// Headers not in the map pass through as-is and are ignored by typing.
var headerFieldMap = map[string]string{
	"Careem Captain ID.":                   "careem_captain_id",
	"Person Code":                          "person_code",
	"Card No":                              "card_no",
	"Designation":                          "designation",
	"DOJ":                                  "doj",
	"Name":                                 "name",
	"Total Working Hours":                  "total_working_hours",
	"No. of days":                          "no_of_days",
	"Total orders":                         "total_orders",
	"Actual Order pay":                     "actual_order_pay",
	"Total Excess pay (Bonus & Dist. pay)": "total_excess_pay_bonus_and_dist_pay",
	"Gross Pay":                            "gross_pay",
	"Total COD {Cash on Delivery}":         "total_cod_cash_on_delivery",
	"Vendor Fee":                           "vendor_fee",
	"Traffic fine":                         "traffic_fine",
	"Loan, Sal.Adv, OS fine":               "loan_saladv_os_fine",
	"Training Fee":                         "training_fee",
	"Net Salary":                           "net_salary",
	"Remarks":                              "remarks",
}

// CanonicalRow - одна строка ведомости после нормализации: каноничное имя поля -> сырое
// строковое значение. Отсутствующий ключ означает null.
// CanonicalRow is one normalized sheet row: canonical field name -> raw string value.
// An absent key means null.
type CanonicalRow map[string]string

// grandTotalMarker - имя итоговой строки выгрузки, которая не подлежит импорту.
const grandTotalMarker = "Grand Total"

var (
	headerJunkReplacer = strings.NewReplacer("\n", " ", "\r", " ", " ", " ")
	spaceRunRe         = regexp.MustCompile(` +`)
)

// dojLayouts - форматы дат, которые встречаются в колонке DOJ выгрузок.
var dojLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/06",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"2-Jan-06",
	"02-Jan-2006",
	time.RFC3339,
}

// CleanHeader приводит заголовок колонки к каноничному виду: переводы строк, возвраты
// каретки и неразрывные пробелы заменяются пробелом, края обрезаются, последовательности
// пробелов схлопываются в один.
// CleanHeader canonicalizes a column header: newlines, carriage returns and
// non-breaking spaces become a single space, edges are trimmed, space runs collapse.
func CleanHeader(header string) string {
	cleaned := headerJunkReplacer.Replace(header)
	cleaned = strings.TrimSpace(cleaned)
	return spaceRunRe.ReplaceAllString(cleaned, " ")
}

// isMissingSentinel сообщает, является ли значение ячейки маркером отсутствия данных.
// Пустые и осмысленно "пустые" значения выгрузок (NaN, NaT, inf и ошибки Excel)
// считаются null независимо от регистра.
func isMissingSentinel(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "nan", "nat", "inf", "+inf", "-inf", "#n/a":
		return true
	}
	return false
}

// normalizeIdentifier чистит внешний идентификатор: хвост ".0" от числового экспорта
// отрезается, иначе значение просто обрезается по краям.
// normalizeIdentifier cleans an external identifier: a ".0" tail from numeric
// export is cut off, otherwise the value is just trimmed.
func normalizeIdentifier(value string) string {
	if strings.HasSuffix(value, ".0") {
		return strings.TrimSuffix(value, ".0")
	}
	return strings.TrimSpace(value)
}

// NormalizeTable выполняет строковую нормализацию сырой таблицы ведомости.
// Заголовки берутся со второй физической строки (первая строка выгрузки - титульная).
// Строки без имени, итоговая строка "Grand Total" и полностью пустые строки отбрасываются.
// NormalizeTable performs string-level normalization of a raw sheet table.
// Headers live on the second physical row (the first row of the export is a title).
// Rows without a name, the "Grand Total" summary row and fully empty rows are dropped.
func NormalizeTable(rows [][]string) ([]CanonicalRow, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: в таблице нет строки заголовков", ErrParse)
	}

	// Имена колонок по индексу; заголовки вне словаря проходят как есть.
	columns := make([]string, len(rows[1]))
	nameSeen := false
	for i, rawHeader := range rows[1] {
		header := CleanHeader(rawHeader)
		if canonical, ok := headerFieldMap[header]; ok {
			columns[i] = canonical
			if canonical == "name" {
				nameSeen = true
			}
		} else {
			columns[i] = header
		}
	}
	if !nameSeen {
		return nil, fmt.Errorf("%w: отсутствует обязательная колонка Name", ErrParse)
	}

	normalized := make([]CanonicalRow, 0, len(rows)-2)
	for _, cells := range rows[2:] {
		if rowIsEmpty(cells) {
			continue
		}

		row := make(CanonicalRow, len(columns))
		skip := false
		for i, column := range columns {
			if i >= len(cells) || column == "" || column == "sno" {
				continue
			}
			value := cells[i]
			// Итоговую строку выгрузки не импортируем.
			if column == "name" && value == grandTotalMarker {
				skip = true
				break
			}
			if isMissingSentinel(value) {
				continue
			}
			row[column] = value
		}
		if skip {
			continue
		}

		for _, column := range []string{"careem_captain_id", "person_code"} {
			if value, ok := row[column]; ok {
				row[column] = normalizeIdentifier(value)
			}
		}

		// Строки без имени отбрасываются молча.
		if _, ok := row["name"]; !ok {
			continue
		}
		normalized = append(normalized, row)
	}
	return normalized, nil
}

func rowIsEmpty(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseNullInt приводит ячейку к целому: принимает и "57", и "57.0" от числового
// экспорта; дробные значения округляются, мусор и не-числа становятся null.
func parseNullInt(row CanonicalRow, column string) models.NullInt64 {
	value, ok := row[column]
	if !ok {
		return models.NullInt64{}
	}
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return models.NullInt64{NullInt64: sql.NullInt64{Int64: n, Valid: true}}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return models.NullInt64{}
	}
	return models.NullInt64{NullInt64: sql.NullInt64{Int64: int64(math.Round(f)), Valid: true}}
}

// parseNullFloat приводит ячейку к числу с плавающей точкой; NaN, бесконечности
// и мусор становятся null.
func parseNullFloat(row CanonicalRow, column string) models.NullFloat64 {
	value, ok := row[column]
	if !ok {
		return models.NullFloat64{}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return models.NullFloat64{}
	}
	return models.NullFloat64{NullFloat64: sql.NullFloat64{Float64: f, Valid: true}}
}

// parseNullString возвращает ячейку как есть; отсутствующий ключ означает null.
func parseNullString(row CanonicalRow, column string) models.NullString {
	value, ok := row[column]
	if !ok {
		return models.NullString{}
	}
	return models.NullString{NullString: sql.NullString{String: value, Valid: true}}
}

// parseNullDate приводит ячейку DOJ к дате; нераспознанный формат становится null.
func parseNullDate(row CanonicalRow, column string) models.NullTime {
	value, ok := row[column]
	if !ok {
		return models.NullTime{}
	}
	value = strings.TrimSpace(value)
	for _, layout := range dojLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.NullTime{NullTime: sql.NullTime{Time: t, Valid: true}}
		}
	}
	log.Printf("parseNullDate: не удалось разобрать дату %q, значение обнулено", value)
	return models.NullTime{}
}

// BuildPayments превращает нормализованные строки в типизированные записи выплат.
// Локальные дефекты значений (нечисловой стаж, кривая дата) нормализуются в null
// и не прерывают импорт.
// BuildPayments turns normalized rows into typed payment records. Local value
// defects (non-numeric hours, a bad date) normalize to null and never abort the import.
func BuildPayments(rows []CanonicalRow) []models.RiderPayment {
	payments := make([]models.RiderPayment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, models.RiderPayment{
			CareemCaptainID:               parseNullString(row, "careem_captain_id"),
			PersonCode:                    parseNullString(row, "person_code"),
			CardNo:                        parseNullString(row, "card_no"),
			Designation:                   parseNullString(row, "designation"),
			DOJ:                           parseNullDate(row, "doj"),
			Name:                          row["name"],
			TotalWorkingHours:             parseNullInt(row, "total_working_hours"),
			NoOfDays:                      parseNullInt(row, "no_of_days"),
			TotalOrders:                   parseNullInt(row, "total_orders"),
			ActualOrderPay:                parseNullFloat(row, "actual_order_pay"),
			TotalExcessPayBonusAndDistPay: parseNullFloat(row, "total_excess_pay_bonus_and_dist_pay"),
			GrossPay:                      parseNullFloat(row, "gross_pay"),
			TotalCODCashOnDelivery:        parseNullInt(row, "total_cod_cash_on_delivery"),
			VendorFee:                     parseNullFloat(row, "vendor_fee"),
			TrafficFine:                   parseNullFloat(row, "traffic_fine"),
			LoanSalAdvOSFine:              parseNullFloat(row, "loan_saladv_os_fine"),
			TrainingFee:                   parseNullFloat(row, "training_fee"),
			NetSalary:                     parseNullFloat(row, "net_salary"),
			Remarks:                       parseNullString(row, "remarks"),
		})
	}
	return payments
}

// NormalizePayments читает книгу xlsx и прогоняет первый лист через нормализацию
// до готовых к вставке записей.
// NormalizePayments reads an xlsx workbook and runs its first sheet through
// normalization down to insert-ready records.
func NormalizePayments(r io.Reader) ([]models.RiderPayment, error) {
	rows, err := readSheetRows(r)
	if err != nil {
		return nil, err
	}
	normalized, err := NormalizeTable(rows)
	if err != nil {
		return nil, err
	}
	return BuildPayments(normalized), nil
}

// readSheetRows открывает книгу и возвращает все строки первого листа.
func readSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Printf("readSheetRows: ошибка закрытия книги: %v", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: в книге нет листов", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return rows, nil
}
