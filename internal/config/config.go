// internal/config/config.go
package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"RiderPayroll/internal/constants"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL         string
	AppEnv              string
	ListenAddr          string
	JWTSecretKey        string
	JWTRefreshSecretKey string
	DBHost              string
	DBPort              string
	DBUser              string
	DBPassword          string
	DBName              string

	// Почтовый ящик, из которого забираются ведомости.
	IMAPAddr  string
	EmailUser string
	EmailPass string

	// Каталог для сохранения вложений и политика их очистки после импорта.
	ImportStagingDir string
	ImportCleanup    string

	// Уведомления об исходах импорта (опционально).
	TelegramToken string
	AdminChatID   int64
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		AppEnv:              os.Getenv("ENV"),
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
		JWTSecretKey:        os.Getenv("JWT_SECRET_KEY"),
		JWTRefreshSecretKey: os.Getenv("JWT_REFRESH_SECRET_KEY"),
		IMAPAddr:            os.Getenv("IMAP_ADDR"),
		EmailUser:           os.Getenv("EMAIL_USER"),
		EmailPass:           os.Getenv("EMAIL_PASS"),
		ImportStagingDir:    os.Getenv("IMPORT_STAGING_DIR"),
		ImportCleanup:       os.Getenv("IMPORT_CLEANUP"),
		TelegramToken:       os.Getenv("TELEGRAM_APITOKEN"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if cfg.IMAPAddr == "" {
		log.Println("Предупреждение: IMAP_ADDR не установлен, используется imap.gmail.com:993.")
		cfg.IMAPAddr = "imap.gmail.com:993"
	}
	if cfg.EmailUser == "" || cfg.EmailPass == "" {
		log.Println("Предупреждение: EMAIL_USER/EMAIL_PASS не установлены. Импорт ведомостей из почты не будет работать.")
	}

	if cfg.ImportStagingDir == "" {
		cfg.ImportStagingDir = "attachments"
	}
	switch cfg.ImportCleanup {
	case constants.CLEANUP_KEEP, constants.CLEANUP_DELETE:
	case "":
		cfg.ImportCleanup = constants.CLEANUP_KEEP
	default:
		log.Printf("Предупреждение: некорректное значение IMPORT_CLEANUP ('%s'), используется '%s'.", cfg.ImportCleanup, constants.CLEANUP_KEEP)
		cfg.ImportCleanup = constants.CLEANUP_KEEP
	}

	var err error
	adminChatIDStr := os.Getenv("ADMIN_CHAT_ID")
	if adminChatIDStr != "" {
		cfg.AdminChatID, err = strconv.ParseInt(adminChatIDStr, 10, 64)
		if err != nil {
			log.Printf("Предупреждение: не удалось прочитать ADMIN_CHAT_ID: %v. Установлено в 0.", err)
			cfg.AdminChatID = 0
		}
	}
	if cfg.TelegramToken == "" {
		log.Println("Предупреждение: TELEGRAM_APITOKEN не установлен. Уведомления об импорте отключены.")
	} else if cfg.AdminChatID == 0 {
		log.Println("Предупреждение: ADMIN_CHAT_ID не установлен. Уведомления об импорте отключены.")
	}

	if cfg.JWTSecretKey == "" {
		log.Println("Критическая ошибка: JWT_SECRET_KEY не установлен.")
	}
	if cfg.JWTRefreshSecretKey == "" {
		log.Println("Критическая ошибка: JWT_REFRESH_SECRET_KEY не установлен.")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Критическая ошибка: DATABASE_URL не установлен.")
	} else {
		parsedURL, parseErr := url.Parse(cfg.DatabaseURL)
		if parseErr != nil {
			log.Printf("Критическая ошибка: ошибка парсинга DATABASE_URL: %v", parseErr)
		} else {
			cfg.DBHost = parsedURL.Hostname()
			cfg.DBPort = parsedURL.Port()
			if cfg.DBPort == "" {
				cfg.DBPort = "5432"
			}
			cfg.DBUser = parsedURL.User.Username()
			cfg.DBPassword, _ = parsedURL.User.Password()
			cfg.DBName = strings.TrimPrefix(parsedURL.Path, "/")
		}
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}
