package models

import "time"

// RiderPayment — одна строка ведомости выплат курьеру за расчётный период.
// Создаётся только транзакцией импорта; никогда не обновляется.
// RiderPayment is one payroll sheet row for a rider for a pay period.
// Created only by the import transaction; never updated.
type RiderPayment struct {
	Sno                           int64       `json:"sno"`
	CareemCaptainID               NullString  `json:"careem_captain_id"`
	PersonCode                    NullString  `json:"person_code"`
	CardNo                        NullString  `json:"card_no"` // В БД хранится зашифрованным, наружу отдаётся расшифрованным / Stored encrypted, returned decrypted
	Designation                   NullString  `json:"designation"`
	DOJ                           NullTime    `json:"doj"`
	Name                          string      `json:"name"`
	TotalWorkingHours             NullInt64   `json:"total_working_hours"`
	NoOfDays                      NullInt64   `json:"no_of_days"`
	TotalOrders                   NullInt64   `json:"total_orders"`
	ActualOrderPay                NullFloat64 `json:"actual_order_pay"`
	TotalExcessPayBonusAndDistPay NullFloat64 `json:"total_excess_pay_bonus_and_dist_pay"`
	GrossPay                      NullFloat64 `json:"gross_pay"`
	TotalCODCashOnDelivery        NullInt64   `json:"total_cod_cash_on_delivery"`
	VendorFee                     NullFloat64 `json:"vendor_fee"`
	TrafficFine                   NullFloat64 `json:"traffic_fine"`
	LoanSalAdvOSFine              NullFloat64 `json:"loan_saladv_os_fine"`
	TrainingFee                   NullFloat64 `json:"training_fee"`
	NetSalary                     NullFloat64 `json:"net_salary"`
	Remarks                       NullString  `json:"remarks"`
	Filename                      string      `json:"filename"`
	ImportedAt                    time.Time   `json:"imported_at"`
}

// RiderStats — агрегаты по ведомостям для дашборда.
// RiderStats holds payroll aggregates for the dashboard.
type RiderStats struct {
	TotalRiders int64   `json:"total_riders"`
	TotalHours  float64 `json:"total_hours"`
	AvgHours    float64 `json:"avg_hours"`
}
