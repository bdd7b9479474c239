package constants

// Роли пользователей
// User roles
const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// Действия для журнала аудита (фиксированные; параметризованные действия
// собираются через fmt.Sprintf в обработчиках).
// Audit log actions (fixed ones; parameterized actions are built with
// fmt.Sprintf in the handlers).
const (
	ACTION_REGISTER        = "register"
	ACTION_LOGIN           = "login"
	ACTION_LOGOUT          = "logout"
	ACTION_RESET_PASSWORD  = "reset_password"
	ACTION_IMPORT_DATA     = "import_data"
	ACTION_EXPORT_RIDERS   = "export_riders"
	ACTION_DELETE_IMPORT   = "delete_import"
	ACTION_VIEW_ADMIN      = "Viewed Admin Panel"
	ACTION_VIEW_DASHBOARD  = "Viewed Dashboard Stats"
	ACTION_GEN_RESET_TOKEN = "generate_reset_token"
)

// Исходы запуска импорта. Значения попадают в ответ API и в уведомления.
// Import run outcomes. The values go into API responses and notifications.
const (
	IMPORT_OUTCOME_IMPORTED = "imported"
	IMPORT_OUTCOME_SKIPPED  = "skipped"
	IMPORT_OUTCOME_EMPTY    = "empty"
	IMPORT_OUTCOME_NOTHING  = "nothing"
	IMPORT_OUTCOME_FAILED   = "failed"
)

// Политика очистки сохранённых вложений после импорта.
// Cleanup policy for staged attachments after an import run.
const (
	CLEANUP_KEEP   = "keep"
	CLEANUP_DELETE = "delete"
)

// Пагинация
// Pagination
const (
	LogsPerPage    = 10
	MaxLogsPerPage = 100
)

// Формат дат в query-параметрах (start_date / end_date).
// Date format for query parameters (start_date / end_date).
const DateParamLayout = "2006-01-02"

// Ожидаемое расширение вложения с ведомостью.
// Expected payroll attachment extension.
const SpreadsheetExt = ".xlsx"

// ImportOutcomeDisplayMap — русские подписи исходов для уведомлений.
// ImportOutcomeDisplayMap contains Russian outcome captions for notifications.
var ImportOutcomeDisplayMap = map[string]string{
	IMPORT_OUTCOME_IMPORTED: "Импортировано",
	IMPORT_OUTCOME_SKIPPED:  "Файл уже импортирован",
	IMPORT_OUTCOME_EMPTY:    "В файле нет строк для импорта",
	IMPORT_OUTCOME_NOTHING:  "Нет писем или вложений",
	IMPORT_OUTCOME_FAILED:   "Ошибка импорта",
}
