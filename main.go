package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"RiderPayroll/internal/api"
	"RiderPayroll/internal/auth"
	"RiderPayroll/internal/config"
	"RiderPayroll/internal/db"
	"RiderPayroll/internal/importer"
	"RiderPayroll/internal/notify"
	"RiderPayroll/internal/utils"
)

func main() {
	// --- Блок инициализации ---
	err := godotenv.Load()
	if err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	if err := utils.InitEncryptionKey(); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать ключ шифрования: %v", err)
	}

	if err := db.InitDB(); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
	}
	defer db.CloseDB()

	if err := notify.InitNotifier(cfg.TelegramToken, cfg.AdminChatID, cfg.AppEnv == "dev"); err != nil {
		// Уведомления не критичны для работы API: живем дальше без них.
		log.Printf("Предупреждение: не удалось инициализировать Telegram-уведомления: %v", err)
	}

	// --- Аутентификация ---
	revocationStore := auth.NewMemoryRevocationStore()
	sweeperStop := make(chan struct{})
	defer close(sweeperStop)
	go revocationStore.StartSweeper(time.Hour, sweeperStop)

	tokenService := auth.NewTokenService(cfg.JWTSecretKey, cfg.JWTRefreshSecretKey, revocationStore)

	// --- Импорт ведомостей из почты ---
	fetcher := importer.NewMailboxFetcher(importer.MailboxConfig{
		Addr:       cfg.IMAPAddr,
		Username:   cfg.EmailUser,
		Password:   cfg.EmailPass,
		StagingDir: cfg.ImportStagingDir,
	})
	importService := importer.NewService(
		fetcher,
		importer.DBPaymentStore{},
		importer.NewStagedFileCleanup(cfg.ImportCleanup),
	)

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()

	// ГЛОБАЛЬНЫЕ MIDDLEWARES ДОЛЖНЫ ИДТИ ПЕРЕД api.SetupRoutes
	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, api.ApiDependencies{
		Tokens:   tokenService,
		Importer: importService,
	})

	// Обработка запроса иконки, чтобы избежать ошибки 404 в логах
	apiRouter.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	log.Printf("Запуск HTTP-сервера на %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, apiRouter); err != nil {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
	}
}
