package importer

import (
	"fmt"
	"log"
	"os"

	"RiderPayroll/internal/constants"
)

// CleanupPolicy решает судьбу сохраненного вложения после завершения импорта.
// CleanupPolicy decides what happens to the staged attachment once an import run ends.
type CleanupPolicy interface {
	Apply(stagedPath string) error
}

// StagedFileCleanup - файловая политика очистки каталога выгрузки.
// Режим "keep" оставляет файл для ручного разбора, "delete" убирает его сразу.
type StagedFileCleanup struct {
	Mode string
}

// NewStagedFileCleanup создает политику очистки; неизвестный режим приводится к "keep".
func NewStagedFileCleanup(mode string) StagedFileCleanup {
	if mode != constants.CLEANUP_KEEP && mode != constants.CLEANUP_DELETE {
		log.Printf("NewStagedFileCleanup: неизвестный режим очистки %q, используется %q", mode, constants.CLEANUP_KEEP)
		mode = constants.CLEANUP_KEEP
	}
	return StagedFileCleanup{Mode: mode}
}

// Apply применяет политику к сохраненному файлу. Ошибка очистки не влияет на
// исход импорта: оркестратор ее только логирует.
func (c StagedFileCleanup) Apply(stagedPath string) error {
	if c.Mode != constants.CLEANUP_DELETE {
		log.Printf("StagedFileCleanup: файл %s оставлен в каталоге выгрузки", stagedPath)
		return nil
	}
	if err := os.Remove(stagedPath); err != nil {
		return fmt.Errorf("не удалось удалить файл выгрузки %s: %w", stagedPath, err)
	}
	log.Printf("StagedFileCleanup: файл %s удален", stagedPath)
	return nil
}
