package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"RiderPayroll/internal/models"
	"RiderPayroll/internal/utils"

	"github.com/lib/pq"
)

// ErrDuplicateFilename возвращается, когда вставка партии нарушает уникальность
// rider_payments.filename — то есть файл уже был импортирован (в том числе
// конкурирующим запуском, прошедшим проверку одновременно с нами).
// ErrDuplicateFilename is returned when a batch insert violates the
// rider_payments.filename uniqueness, i.e. the file was already imported
// (including by a concurrent run that passed the guard check at the same time).
var ErrDuplicateFilename = errors.New("файл с таким именем уже импортирован")

// uniqueViolationCode — код ошибки PostgreSQL для нарушения уникальности.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// riderPaymentColumns — список колонок для SELECT в порядке сканирования.
const riderPaymentColumns = `sno, careem_captain_id, person_code, card_no, designation, doj, name,
        total_working_hours, no_of_days, total_orders, actual_order_pay,
        total_excess_pay_bonus_and_dist_pay, gross_pay, total_cod_cash_on_delivery,
        vendor_fee, traffic_fine, loan_saladv_os_fine, training_fee, net_salary,
        remarks, filename, imported_at`

// RiderPaymentExistsByFilename проверяет, была ли уже импортирована ведомость
// с таким именем файла. Это оптимизация быстрого пути: гарантию от дублей даёт
// уникальное ограничение в БД, а не эта проверка.
// RiderPaymentExistsByFilename checks whether a sheet with this filename was
// already imported. This is a fast-path optimization: the duplicate guarantee
// comes from the unique constraint in the DB, not from this check.
func RiderPaymentExistsByFilename(filename string) (bool, error) {
	var exists bool
	err := DB.QueryRow("SELECT EXISTS(SELECT 1 FROM rider_payments WHERE filename = $1)", filename).Scan(&exists)
	if err != nil {
		log.Printf("RiderPaymentExistsByFilename: ошибка проверки файла '%s': %v", filename, err)
		return false, err
	}
	return exists, nil
}

// insertRiderPaymentWithinTx вставляет одну строку ведомости в рамках транзакции.
// Номер карты шифруется перед записью.
// insertRiderPaymentWithinTx inserts one sheet row within a transaction.
// The card number is encrypted before being written.
func insertRiderPaymentWithinTx(tx *sql.Tx, p models.RiderPayment, filename string, importedAt time.Time) (int64, error) {
	cardNoArg := p.CardNo
	if cardNoArg.Valid && cardNoArg.String != "" {
		encrypted, errEnc := utils.EncryptCardNumber(cardNoArg.String)
		if errEnc != nil {
			log.Printf("insertRiderPaymentWithinTx: ошибка шифрования номера карты для '%s': %v", p.Name, errEnc)
			return 0, fmt.Errorf("ошибка шифрования номера карты: %w", errEnc)
		}
		cardNoArg.String = encrypted
	}

	var sno int64
	query := `
        INSERT INTO rider_payments (
            careem_captain_id, person_code, card_no, designation, doj, name,
            total_working_hours, no_of_days, total_orders, actual_order_pay,
            total_excess_pay_bonus_and_dist_pay, gross_pay, total_cod_cash_on_delivery,
            vendor_fee, traffic_fine, loan_saladv_os_fine, training_fee, net_salary,
            remarks, filename, imported_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
        RETURNING sno`
	err := tx.QueryRow(query,
		p.CareemCaptainID,
		p.PersonCode,
		cardNoArg,
		p.Designation,
		p.DOJ,
		p.Name,
		p.TotalWorkingHours,
		p.NoOfDays,
		p.TotalOrders,
		p.ActualOrderPay,
		p.TotalExcessPayBonusAndDistPay,
		p.GrossPay,
		p.TotalCODCashOnDelivery,
		p.VendorFee,
		p.TrafficFine,
		p.LoanSalAdvOSFine,
		p.TrainingFee,
		p.NetSalary,
		p.Remarks,
		filename,
		importedAt,
	).Scan(&sno)
	if err != nil {
		return 0, err
	}
	return sno, nil
}

// InsertRiderPaymentBatch записывает все строки одной ведомости единой
// транзакцией: либо сохраняются все строки, либо ни одной. Каждая строка
// штампуется одним и тем же filename и imported_at.
// Возвращает число записанных строк.
// InsertRiderPaymentBatch writes all rows of one sheet as a single
// transaction: either every row persists or none. Every row is stamped with
// the same filename and imported_at. Returns the number of rows written.
func InsertRiderPaymentBatch(payments []models.RiderPayment, filename string, importedAt time.Time) (int64, error) {
	tx, err := DB.Begin()
	if err != nil {
		log.Printf("InsertRiderPaymentBatch: ошибка начала транзакции для файла '%s': %v", filename, err)
		return 0, err
	}
	defer tx.Rollback() // Rollback if commit is not called

	var inserted int64
	for i := range payments {
		if _, err = insertRiderPaymentWithinTx(tx, payments[i], filename, importedAt); err != nil {
			if isUniqueViolation(err) {
				log.Printf("InsertRiderPaymentBatch: файл '%s' уже импортирован (нарушение уникальности): %v", filename, err)
				return 0, fmt.Errorf("%w: %s", ErrDuplicateFilename, filename)
			}
			log.Printf("InsertRiderPaymentBatch: ошибка вставки строки %d для файла '%s': %v", i+1, filename, err)
			return 0, fmt.Errorf("ошибка вставки строки %d: %w", i+1, err)
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		log.Printf("InsertRiderPaymentBatch: ошибка коммита транзакции для файла '%s': %v", filename, err)
		return 0, err
	}
	log.Printf("InsertRiderPaymentBatch: файл '%s': записано %d строк, метка импорта %s.", filename, inserted, importedAt.Format(time.RFC3339))
	return inserted, nil
}

// scanRiderPayment сканирует одну строку выборки и расшифровывает номер карты.
// scanRiderPayment scans one result row and decrypts the card number.
func scanRiderPayment(rows *sql.Rows) (models.RiderPayment, error) {
	var p models.RiderPayment
	err := rows.Scan(
		&p.Sno,
		&p.CareemCaptainID,
		&p.PersonCode,
		&p.CardNo,
		&p.Designation,
		&p.DOJ,
		&p.Name,
		&p.TotalWorkingHours,
		&p.NoOfDays,
		&p.TotalOrders,
		&p.ActualOrderPay,
		&p.TotalExcessPayBonusAndDistPay,
		&p.GrossPay,
		&p.TotalCODCashOnDelivery,
		&p.VendorFee,
		&p.TrafficFine,
		&p.LoanSalAdvOSFine,
		&p.TrainingFee,
		&p.NetSalary,
		&p.Remarks,
		&p.Filename,
		&p.ImportedAt,
	)
	if err != nil {
		return p, err
	}
	if p.CardNo.Valid && p.CardNo.String != "" {
		decrypted, errDec := utils.DecryptCardNumber(p.CardNo.String)
		if errDec != nil {
			// Не валим всю выборку из-за одной нечитаемой карты.
			log.Printf("scanRiderPayment: ошибка дешифрования номера карты для sno %d: %v", p.Sno, errDec)
			p.CardNo = models.NullString{}
		} else {
			p.CardNo.String = decrypted
		}
	}
	return p, nil
}

func collectRiderPayments(rows *sql.Rows) ([]models.RiderPayment, error) {
	defer rows.Close()
	var payments []models.RiderPayment
	for rows.Next() {
		p, errScan := scanRiderPayment(rows)
		if errScan != nil {
			log.Printf("collectRiderPayments: ошибка сканирования строки: %v", errScan)
			continue
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		log.Printf("collectRiderPayments: ошибка после итерации по строкам: %v", err)
		return nil, err
	}
	return payments, nil
}

// GetRiderPayments возвращает строки ведомостей, отсортированные по sno.
// order — "asc" или "desc" (проверяется обработчиком). startDate/endDate
// (опционально) ограничивают imported_at.
// GetRiderPayments returns sheet rows ordered by sno.
// order is "asc" or "desc" (validated by the handler). Optional
// startDate/endDate bound imported_at.
func GetRiderPayments(order string, startDate, endDate *time.Time) ([]models.RiderPayment, error) {
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM rider_payments", riderPaymentColumns)
	args := []interface{}{}
	if startDate != nil && endDate != nil {
		query += " WHERE imported_at BETWEEN $1 AND $2"
		args = append(args, *startDate, *endDate)
	}
	query += fmt.Sprintf(" ORDER BY sno %s", direction)

	rows, err := DB.Query(query, args...)
	if err != nil {
		log.Printf("GetRiderPayments: ошибка получения ведомостей: %v", err)
		return nil, err
	}
	return collectRiderPayments(rows)
}

// GetRiderPaymentsByName возвращает строки ведомостей для одного курьера.
// Имя сравнивается строго на равенство: подстрочный поиск здесь недопустим,
// иначе один пользователь увидит чужие выплаты.
// GetRiderPaymentsByName returns sheet rows for a single rider.
// The name is compared for exact equality: substring matching here would let
// one user see someone else's payments.
func GetRiderPaymentsByName(name string) ([]models.RiderPayment, error) {
	query := fmt.Sprintf("SELECT %s FROM rider_payments WHERE name = $1 ORDER BY imported_at DESC, sno ASC", riderPaymentColumns)
	rows, err := DB.Query(query, name)
	if err != nil {
		log.Printf("GetRiderPaymentsByName: ошибка получения ведомостей для '%s': %v", name, err)
		return nil, err
	}
	return collectRiderPayments(rows)
}

// GetRiderPaymentsBySnos возвращает строки с указанными sno (для выгрузки
// отмеченных строк в Excel).
// GetRiderPaymentsBySnos returns rows with the given snos (for exporting
// selected rows to Excel).
func GetRiderPaymentsBySnos(snos []int64) ([]models.RiderPayment, error) {
	if len(snos) == 0 {
		return []models.RiderPayment{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM rider_payments WHERE sno = ANY($1) ORDER BY sno ASC", riderPaymentColumns)
	rows, err := DB.Query(query, pq.Int64Array(snos))
	if err != nil {
		log.Printf("GetRiderPaymentsBySnos: ошибка получения ведомостей по списку sno: %v", err)
		return nil, err
	}
	return collectRiderPayments(rows)
}

// GetRiderCardBySno извлекает расшифрованный номер карты курьера по sno записи.
// GetRiderCardBySno retrieves the decrypted rider card number by record sno.
func GetRiderCardBySno(sno int64) (string, error) {
	var encryptedCardNo sql.NullString
	err := DB.QueryRow("SELECT card_no FROM rider_payments WHERE sno = $1", sno).Scan(&encryptedCardNo)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("запись с sno %d не найдена", sno)
		}
		log.Printf("GetRiderCardBySno: ошибка получения номера карты для sno %d: %v", sno, err)
		return "", err
	}

	if !encryptedCardNo.Valid || encryptedCardNo.String == "" {
		return "", fmt.Errorf("номер карты не указан для записи sno %d", sno)
	}

	decryptedCard, errDecrypt := utils.DecryptCardNumber(encryptedCardNo.String)
	if errDecrypt != nil {
		log.Printf("GetRiderCardBySno: ошибка дешифрования номера карты для sno %d: %v", sno, errDecrypt)
		return "", fmt.Errorf("ошибка дешифрования номера карты")
	}
	return decryptedCard, nil
}

// GetRiderStats возвращает глобальные агрегаты по всем ведомостям.
// GetRiderStats returns global aggregates over all sheets.
func GetRiderStats() (models.RiderStats, error) {
	var stats models.RiderStats
	err := DB.QueryRow(`
        SELECT COUNT(sno),
               COALESCE(SUM(total_working_hours), 0),
               COALESCE(AVG(total_working_hours), 0)
        FROM rider_payments`).Scan(&stats.TotalRiders, &stats.TotalHours, &stats.AvgHours)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetRiderStats: ошибка получения статистики: %v", err)
		return stats, fmt.Errorf("ошибка получения статистики по ведомостям: %w", err)
	}
	return stats, nil
}

// GetRiderStatsByName возвращает агрегаты по ведомостям одного курьера.
// Имя — строгое равенство, как и в GetRiderPaymentsByName.
// GetRiderStatsByName returns aggregates for a single rider's sheets.
// The name is an exact match, same as GetRiderPaymentsByName.
func GetRiderStatsByName(name string) (models.RiderStats, error) {
	var stats models.RiderStats
	err := DB.QueryRow(`
        SELECT COUNT(sno),
               COALESCE(SUM(total_working_hours), 0),
               COALESCE(AVG(total_working_hours), 0)
        FROM rider_payments
        WHERE name = $1`, name).Scan(&stats.TotalRiders, &stats.TotalHours, &stats.AvgHours)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetRiderStatsByName: ошибка получения статистики для '%s': %v", name, err)
		return stats, fmt.Errorf("ошибка получения статистики курьера: %w", err)
	}
	return stats, nil
}

// DeleteRiderPaymentsByFilename удаляет все строки одной импортированной
// ведомости. После удаления файл можно импортировать заново — это
// административный путь исправления испорченной выгрузки.
// DeleteRiderPaymentsByFilename deletes all rows of one imported sheet.
// After deletion the file can be imported again — the administrative path
// for fixing a broken upload.
func DeleteRiderPaymentsByFilename(filename string) (int64, error) {
	res, err := DB.Exec("DELETE FROM rider_payments WHERE filename = $1", filename)
	if err != nil {
		log.Printf("DeleteRiderPaymentsByFilename: ошибка удаления строк файла '%s': %v", filename, err)
		return 0, err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		log.Printf("DeleteRiderPaymentsByFilename: ошибка получения числа удалённых строк для '%s': %v", filename, err)
		return 0, err
	}
	log.Printf("DeleteRiderPaymentsByFilename: файл '%s': удалено %d строк.", filename, rowsAffected)
	return rowsAffected, nil
}
