package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/importer"
	"RiderPayroll/internal/notify"

	"github.com/go-chi/chi/v5"
)

// ImportRunner запускает один проход импорта ведомости из почты.
// Интерфейс отвязывает обработчик от оркестратора ради тестов.
type ImportRunner interface {
	Run(ctx context.Context) importer.Result
}

// ImportDataHandler запускает импорт ведомости из почтового ящика.
// Любой штатный исход (включая "нечего импортировать") — это 200;
// 502 отдается только при реальном сбое почты, разбора или БД.
func ImportDataHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminUser(w, r)
	if !ok {
		return
	}
	if deps.Importer == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Import is not configured")
		return
	}

	result := deps.Importer.Run(r.Context())
	notifyImportOutcome(result)
	logAction(admin.Username, constants.ACTION_IMPORT_DATA)

	if result.Outcome == importer.OutcomeFailed {
		writeJSONError(w, http.StatusBadGateway, result.Message())
		return
	}

	data := map[string]interface{}{
		"outcome":   string(result.Outcome),
		"row_count": result.RowCount,
	}
	if result.Filename != "" {
		data["filename"] = result.Filename
	}
	if result.Outcome == importer.OutcomeImported {
		data["imported_at"] = result.ImportedAt
	}
	writeJSONSuccess(w, result.Message(), data)
}

// notifyImportOutcome отправляет администратору в Telegram итог запуска.
func notifyImportOutcome(result importer.Result) {
	caption, ok := constants.ImportOutcomeDisplayMap[string(result.Outcome)]
	if !ok {
		caption = string(result.Outcome)
	}

	text := fmt.Sprintf("Импорт ведомости: %s.", caption)
	if result.Filename != "" {
		text += fmt.Sprintf(" Файл: %s.", result.Filename)
	}
	if result.Outcome == importer.OutcomeImported {
		text += fmt.Sprintf(" Строк: %d.", result.RowCount)
	}
	if result.Outcome == importer.OutcomeFailed && result.Err != nil {
		text += fmt.Sprintf(" Причина: %v.", result.Err)
	}
	notify.SendToAdmin(text)
}

// DeleteImportHandler удаляет все строки одной импортированной ведомости,
// чтобы исправленный файл можно было импортировать заново.
func DeleteImportHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminUser(w, r)
	if !ok {
		return
	}

	filename := chi.URLParam(r, "filename")
	if filename == "" {
		writeJSONError(w, http.StatusBadRequest, "filename is required")
		return
	}

	deleted, err := db.DeleteRiderPaymentsByFilename(filename)
	if err != nil {
		log.Printf("DeleteImportHandler: ошибка удаления ведомости '%s': %v", filename, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete import")
		return
	}
	if deleted == 0 {
		writeJSONError(w, http.StatusNotFound, "Import not found")
		return
	}

	logAction(admin.Username, constants.ACTION_DELETE_IMPORT)
	writeJSONSuccess(w, fmt.Sprintf("Import '%s' deleted successfully", filename), map[string]interface{}{
		"filename":     filename,
		"deleted_rows": deleted,
	})
}
