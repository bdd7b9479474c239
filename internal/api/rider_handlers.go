package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
	"RiderPayroll/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"github.com/xuri/excelize/v2"
)

// riderListParams разбирает общие query-параметры списка ведомостей:
// order (asc|desc, по умолчанию asc) и пару start_date/end_date.
// При ошибке сам пишет 400 и возвращает ok=false.
func riderListParams(w http.ResponseWriter, r *http.Request) (string, *time.Time, *time.Time, bool) {
	order := r.URL.Query().Get("order")
	if order == "" {
		order = "asc"
	}
	if order != "asc" && order != "desc" {
		writeJSONError(w, http.StatusBadRequest, "Invalid order parameter")
		return "", nil, nil, false
	}

	startDate, endDate, err := utils.ParseDateRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD")
		return "", nil, nil, false
	}
	return order, startDate, endDate, true
}

// AdminGetRidersHandler возвращает строки ведомостей с фильтром по дате импорта.
func AdminGetRidersHandler(w http.ResponseWriter, r *http.Request) {
	order, startDate, endDate, ok := riderListParams(w, r)
	if !ok {
		return
	}

	payments, err := db.GetRiderPayments(order, startDate, endDate)
	if err != nil {
		log.Printf("AdminGetRidersHandler: ошибка получения ведомостей: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch riders")
		return
	}
	if payments == nil {
		payments = []models.RiderPayment{}
	}
	writeJSONSuccess(w, "Riders retrieved successfully", payments)
}

// exportHeaders — порядок колонок выгрузки. Совпадает с порядком riderRowValues.
var exportHeaders = []string{
	"Sno", "Careem Captain ID", "Person Code", "Card No", "Designation",
	"DOJ", "Name", "Total Working Hours", "No. of Days", "Total Orders",
	"Actual Order Pay", "Total excess pay, Bonus & dist pay", "Gross Pay",
	"Total COD (Cash on Delivery)", "Vendor Fee", "Traffic Fine",
	"Loan, Sal.Adv & O.S Fine", "Training Fee", "Net Salary", "Remarks",
	"Filename", "Imported At",
}

// riderRowValues раскладывает строку ведомости в порядке exportHeaders.
// nil означает пустую ячейку.
func riderRowValues(p models.RiderPayment) []interface{} {
	values := make([]interface{}, 0, len(exportHeaders))
	values = append(values, p.Sno)

	appendString := func(ns models.NullString) {
		if ns.Valid {
			values = append(values, ns.String)
		} else {
			values = append(values, nil)
		}
	}
	appendInt := func(ni models.NullInt64) {
		if ni.Valid {
			values = append(values, ni.Int64)
		} else {
			values = append(values, nil)
		}
	}
	appendFloat := func(nf models.NullFloat64) {
		if nf.Valid {
			values = append(values, nf.Float64)
		} else {
			values = append(values, nil)
		}
	}

	appendString(p.CareemCaptainID)
	appendString(p.PersonCode)
	appendString(p.CardNo)
	appendString(p.Designation)
	if p.DOJ.Valid {
		values = append(values, p.DOJ.Time.Format(constants.DateParamLayout))
	} else {
		values = append(values, nil)
	}
	values = append(values, p.Name)
	appendInt(p.TotalWorkingHours)
	appendInt(p.NoOfDays)
	appendInt(p.TotalOrders)
	appendFloat(p.ActualOrderPay)
	appendFloat(p.TotalExcessPayBonusAndDistPay)
	appendFloat(p.GrossPay)
	appendInt(p.TotalCODCashOnDelivery)
	appendFloat(p.VendorFee)
	appendFloat(p.TrafficFine)
	appendFloat(p.LoanSalAdvOSFine)
	appendFloat(p.TrainingFee)
	appendFloat(p.NetSalary)
	appendString(p.Remarks)
	values = append(values, p.Filename)
	values = append(values, p.ImportedAt.Format(time.RFC3339))
	return values
}

// parseSnosParam разбирает CSV-список sno из query-параметра.
func parseSnosParam(param string) ([]int64, error) {
	parts := strings.Split(param, ",")
	snos := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sno, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректное значение sno '%s': %w", part, err)
		}
		snos = append(snos, sno)
	}
	return snos, nil
}

// ExportRidersHandler отдает ведомости как сгенерированный Excel-файл.
// ?snos=1,2,3 выгружает только отмеченные строки, иначе действует тот же
// фильтр, что и в списке.
func ExportRidersHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var payments []models.RiderPayment
	var err error
	if snosParam := r.URL.Query().Get("snos"); snosParam != "" {
		snos, errParse := parseSnosParam(snosParam)
		if errParse != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid snos parameter")
			return
		}
		payments, err = db.GetRiderPaymentsBySnos(snos)
	} else {
		order, startDate, endDate, okParams := riderListParams(w, r)
		if !okParams {
			return
		}
		payments, err = db.GetRiderPayments(order, startDate, endDate)
	}
	if err != nil {
		log.Printf("ExportRidersHandler: ошибка получения данных для выгрузки: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to export riders")
		return
	}

	f := excelize.NewFile()
	sheetName := "Riders"
	index, _ := f.NewSheet(sheetName)
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	for rowIdx, p := range payments {
		for colIdx, value := range riderRowValues(p) {
			if value == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	filename := fmt.Sprintf("riders_export_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := f.Write(w); err != nil {
		// Заголовки уже ушли, осталось только залогировать.
		log.Printf("ExportRidersHandler: ошибка записи Excel-файла в ответ: %v", err)
		return
	}

	log.Printf("ExportRidersHandler: пользователь %s выгрузил %d строк в '%s'.", user.Username, len(payments), filename)
	logAction(user.Username, constants.ACTION_EXPORT_RIDERS)
}

// GetRiderCardQRHandler отдает расшифрованный номер карты курьера как QR-код PNG.
func GetRiderCardQRHandler(w http.ResponseWriter, r *http.Request) {
	snoParam := chi.URLParam(r, "sno")
	sno, err := strconv.ParseInt(snoParam, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid sno parameter")
		return
	}

	cardNo, err := db.GetRiderCardBySno(sno)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Card number not found")
		return
	}

	// qrcode.Medium — уровень коррекции ошибок, 256 — размер в пикселях.
	qrBytes, err := qrcode.Encode(cardNo, qrcode.Medium, 256)
	if err != nil {
		log.Printf("GetRiderCardQRHandler: ошибка генерации QR-кода для sno %d: %v", sno, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	// Номер карты — чувствительные данные, кэшировать нельзя.
	w.Header().Set("Cache-Control", "no-store")
	w.Write(qrBytes)
}

// GetMyPaymentsHandler возвращает строки ведомостей текущего пользователя.
// Имя сравнивается строго на равенство с username.
func GetMyPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	payments, err := db.GetRiderPaymentsByName(user.Username)
	if err != nil {
		log.Printf("GetMyPaymentsHandler: ошибка получения выплат для '%s': %v", user.Username, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch payments")
		return
	}
	if payments == nil {
		payments = []models.RiderPayment{}
	}
	writeJSONSuccess(w, "Payments retrieved successfully", payments)
}
