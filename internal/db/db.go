// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var DB *sql.DB // Глобальная переменная для хранения подключения к БД

// InitDB инициализирует соединение с базой данных и выполняет миграции.
func InitDB() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL не установлена")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("ошибка парсинга DATABASE_URL: %v", err)
	}

	query := parsedURL.Query()
	// Пример: query.Set("sslmode", "require")
	parsedURL.RawQuery = query.Encode()
	finalURL := parsedURL.String()

	DB, err = sql.Open("postgres", finalURL)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	DB.SetMaxOpenConns(50)
	DB.SetMaxIdleConns(20)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}

	log.Println("Успешное подключение к базе данных.")

	// Step 1: Create tables if they don't exist
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %v", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after Rollback
		} else if err != nil {
			log.Printf("Откат транзакции из-за ошибки: %v", err)
			tx.Rollback()
		}
	}()

	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'user',
            created_at TIMESTAMP DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS audit_logs (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL,
            action TEXT NOT NULL,
            timestamp TIMESTAMP DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS rider_payments (
            sno SERIAL PRIMARY KEY,
            careem_captain_id TEXT,
            person_code TEXT,
            card_no TEXT,
            designation TEXT,
            doj TIMESTAMP,
            name TEXT NOT NULL,
            total_working_hours INTEGER,
            no_of_days INTEGER,
            total_orders INTEGER,
            actual_order_pay FLOAT,
            total_excess_pay_bonus_and_dist_pay FLOAT,
            gross_pay FLOAT,
            total_cod_cash_on_delivery INTEGER,
            vendor_fee FLOAT,
            traffic_fine FLOAT,
            loan_saladv_os_fine FLOAT,
            training_fee FLOAT,
            net_salary FLOAT,
            remarks TEXT,
            filename TEXT NOT NULL UNIQUE,
            imported_at TIMESTAMP NOT NULL
        );
    `
	_, err = tx.Exec(createTablesSQL)
	if err != nil {
		return fmt.Errorf("ошибка создания таблиц: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("ошибка фиксации транзакции создания таблиц: %v", err)
	}
	log.Println("Создание таблиц (если не существуют) завершено.")

	// Step 2: Perform schema migrations (e.g., adding new columns to existing tables)
	err = migrateDBSchema()
	if err != nil {
		return fmt.Errorf("ошибка выполнения миграции схемы: %v", err)
	}
	log.Println("Миграция схемы базы данных успешно завершена.")

	// Step 3: Create indexes
	// CREATE INDEX IF NOT EXISTS идемпотентен, выполняем после миграций,
	// когда все колонки гарантированно существуют.
	createIndexesSQL := `
        CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
        CREATE INDEX IF NOT EXISTS idx_audit_logs_username ON audit_logs(username);
        CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
        CREATE INDEX IF NOT EXISTS idx_rider_payments_filename ON rider_payments(filename);
        CREATE INDEX IF NOT EXISTS idx_rider_payments_imported_at ON rider_payments(imported_at);
        CREATE INDEX IF NOT EXISTS idx_rider_payments_name ON rider_payments(name);
    `
	indexStatements := strings.Split(strings.TrimSpace(createIndexesSQL), ";")
	for _, stmt := range indexStatements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		_, errIdx := DB.Exec(trimmedStmt)
		if errIdx != nil {
			log.Printf("Предупреждение: ошибка при создании индекса ('%s'): %v. Проверьте логи.", trimmedStmt, errIdx)
		}
	}
	log.Println("Создание индексов (если не существуют) завершено.")

	log.Println("Инициализация базы данных успешно завершена.")
	return nil
}

// migrateDBSchema выполняет необходимые миграции схемы базы данных.
// This function should be idempotent.
func migrateDBSchema() error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			// Уникальность filename — страховка от гонки двух одновременных
			// импортов одного файла: проверка на уровне приложения не атомарна
			// с записью, ограничение в БД — атомарно.
			name: "rider_payments.filename_unique",
			sql: `DO $$
                  BEGIN
                      IF NOT EXISTS (
                          SELECT 1 FROM pg_constraint
                          WHERE conrelid = 'rider_payments'::regclass
                          AND conname = 'rider_payments_filename_key'
                      ) AND EXISTS (
                          SELECT 1 FROM information_schema.tables
                          WHERE table_name = 'rider_payments'
                      ) THEN
                          ALTER TABLE rider_payments ADD CONSTRAINT rider_payments_filename_key UNIQUE (filename);
                      END IF;
                  END$$;`,
		},
		{
			name: "users.created_at",
			sql: `ALTER TABLE users
                  ADD COLUMN IF NOT EXISTS created_at TIMESTAMP DEFAULT NOW();`,
		},
		{
			name: "rider_payments.remarks",
			sql: `ALTER TABLE rider_payments
                  ADD COLUMN IF NOT EXISTS remarks TEXT;`,
		},
	}

	for _, migration := range migrations {
		_, err := DB.Exec(migration.sql)
		if err != nil {
			if strings.Contains(err.Error(), "already exists") ||
				(migration.name == "rider_payments.filename_unique" && strings.Contains(err.Error(), "could not create unique index") && strings.Contains(err.Error(), "contains duplicate values")) {
				log.Printf("INFO: Миграция '%s' пропущена (объект уже существует или данные нарушают его). Детали: %v", migration.name, err)
			} else {
				return fmt.Errorf("ошибка миграции схемы ('%s'): %v", migration.name, err)
			}
		} else {
			log.Printf("INFO: Миграция ('%s') успешно применена или объект уже существовал.", migration.name)
		}
	}

	log.Println("Миграция схемы базы данных успешно выполнена (или не требовалась).")
	return nil
}

// CloseDB закрывает соединение с базой данных.
func CloseDB() {
	if DB != nil {
		DB.Close()
		log.Println("Соединение с базой данных закрыто.")
	}
}
