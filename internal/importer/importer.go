// Пакет importer реализует конвейер импорта ведомостей выплат: получение вложения
// из почты, защита от повторного импорта, нормализация таблицы и атомарная запись.
// Package importer implements the payment sheet import pipeline: mailbox fetch,
// duplicate guard, table normalization and an atomic write.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/models"
)

// AttachmentFetcher - источник файлов ведомостей.
type AttachmentFetcher interface {
	// FetchLatest возвращает имя файла из письма и путь к сохраненной копии.
	FetchLatest(ctx context.Context) (filename string, stagedPath string, err error)
}

// PaymentStore - транзакционное хранилище записей выплат.
// PaymentStore is the transactional rider payment store.
type PaymentStore interface {
	ExistsByFilename(filename string) (bool, error)
	// InsertBatch вставляет все записи атомарно: либо все строки, либо ни одной.
	InsertBatch(payments []models.RiderPayment, filename string, importedAt time.Time) (int64, error)
}

// DBPaymentStore - адаптер PaymentStore поверх пакета db.
type DBPaymentStore struct{}

func (DBPaymentStore) ExistsByFilename(filename string) (bool, error) {
	return db.RiderPaymentExistsByFilename(filename)
}

func (DBPaymentStore) InsertBatch(payments []models.RiderPayment, filename string, importedAt time.Time) (int64, error) {
	return db.InsertRiderPaymentBatch(payments, filename, importedAt)
}

// PersistenceError - ошибка уровня хранилища, в том числе проигранная гонка
// за уникальность имени файла.
// PersistenceError is a store-level failure, including a lost filename
// uniqueness race.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ошибка хранилища: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Outcome - исход одного запуска импорта.
type Outcome string

const (
	OutcomeImported Outcome = constants.IMPORT_OUTCOME_IMPORTED
	OutcomeSkipped  Outcome = constants.IMPORT_OUTCOME_SKIPPED
	OutcomeEmpty    Outcome = constants.IMPORT_OUTCOME_EMPTY
	OutcomeNothing  Outcome = constants.IMPORT_OUTCOME_NOTHING
	OutcomeFailed   Outcome = constants.IMPORT_OUTCOME_FAILED
)

// Result - отчет о запуске импорта. Err заполняется для исходов nothing и failed.
// Result reports one import run. Err is set for the nothing and failed outcomes.
type Result struct {
	Outcome    Outcome
	Filename   string
	RowCount   int64
	ImportedAt time.Time
	Err        error
}

// Message возвращает человекочитаемое описание исхода для ответа API.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeImported:
		return fmt.Sprintf("Imported %d rows from '%s' at %s", r.RowCount, r.Filename, r.ImportedAt.Format(time.RFC3339))
	case OutcomeSkipped:
		return fmt.Sprintf("File '%s' was already imported", r.Filename)
	case OutcomeEmpty:
		return fmt.Sprintf("No rows to import in '%s'", r.Filename)
	case OutcomeNothing:
		if errors.Is(r.Err, ErrNoAttachment) {
			return "No Excel attachment found"
		}
		return "No emails found"
	case OutcomeFailed:
		return fmt.Sprintf("Import failed: %v", r.Err)
	}
	return constants.ImportOutcomeDisplayMap[string(r.Outcome)]
}

// Service - оркестратор импорта: фетчер -> защита от дубликата -> нормализация ->
// транзакция. Конвейер линейный, падение любого этапа завершает запуск.
// Service orchestrates the import: fetcher -> duplicate guard -> normalization ->
// transaction. The pipeline is linear; any stage failure ends the run.
type Service struct {
	fetcher AttachmentFetcher
	store   PaymentStore
	cleanup CleanupPolicy
}

// NewService собирает оркестратор импорта из его этапов.
func NewService(fetcher AttachmentFetcher, store PaymentStore, cleanup CleanupPolicy) *Service {
	return &Service{fetcher: fetcher, store: store, cleanup: cleanup}
}

// Run выполняет один запуск импорта и всегда возвращает определенный исход.
// Этапы не перезапускаются; частично записанных партий не бывает.
// Run executes one import run and always returns a definite outcome.
// Stages are never retried; there are no partially written batches.
func (s *Service) Run(ctx context.Context) Result {
	filename, stagedPath, err := s.fetcher.FetchLatest(ctx)
	if err != nil {
		if errors.Is(err, ErrNoMessages) || errors.Is(err, ErrNoAttachment) {
			log.Printf("Service.Run: нечего импортировать: %v", err)
			return Result{Outcome: OutcomeNothing, Err: err}
		}
		log.Printf("Service.Run: ошибка получения вложения: %v", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	// Политика очистки применяется ровно один раз на каждый сохраненный файл.
	defer func() {
		if cerr := s.cleanup.Apply(stagedPath); cerr != nil {
			log.Printf("Service.Run: ошибка очистки файла выгрузки: %v", cerr)
		}
	}()

	exists, err := s.store.ExistsByFilename(filename)
	if err != nil {
		perr := &PersistenceError{Err: err}
		log.Printf("Service.Run: ошибка проверки дубликата: %v", perr)
		return Result{Outcome: OutcomeFailed, Filename: filename, Err: perr}
	}
	if exists {
		log.Printf("Service.Run: файл %s уже импортирован, пропускаем", filename)
		return Result{Outcome: OutcomeSkipped, Filename: filename}
	}

	payments, err := normalizeStagedFile(stagedPath)
	if err != nil {
		log.Printf("Service.Run: ошибка нормализации файла %s: %v", filename, err)
		return Result{Outcome: OutcomeFailed, Filename: filename, Err: err}
	}
	if len(payments) == 0 {
		log.Printf("Service.Run: в файле %s не осталось строк после нормализации", filename)
		return Result{Outcome: OutcomeEmpty, Filename: filename}
	}

	// Все строки партии получают один и тот же момент импорта.
	importedAt := time.Now().UTC()
	count, err := s.store.InsertBatch(payments, filename, importedAt)
	if err != nil {
		perr := &PersistenceError{Err: err}
		log.Printf("Service.Run: ошибка записи партии из файла %s: %v", filename, perr)
		return Result{Outcome: OutcomeFailed, Filename: filename, Err: perr}
	}

	log.Printf("Service.Run: импортировано %d строк из файла %s", count, filename)
	return Result{
		Outcome:    OutcomeImported,
		Filename:   filename,
		RowCount:   count,
		ImportedAt: importedAt,
	}
}

// normalizeStagedFile открывает сохраненное вложение и прогоняет его через нормализацию.
func normalizeStagedFile(stagedPath string) ([]models.RiderPayment, error) {
	file, err := os.Open(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл выгрузки %s: %w", stagedPath, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Printf("normalizeStagedFile: ошибка закрытия файла %s: %v", stagedPath, cerr)
		}
	}()
	return NormalizePayments(file)
}
