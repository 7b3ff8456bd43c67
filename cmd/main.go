package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"boltshare/internal/auth"
	"boltshare/internal/config"
	"boltshare/internal/handler"
	"boltshare/internal/preview"
	"boltshare/internal/repository"
	"boltshare/internal/service"
	"boltshare/internal/service/s3"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	// Сначала подключаемся к системной базе postgres, которая всегда существует
	pgCfg := cfg.Database
	pgCfg.Name = "postgres"
	pgDB, err := sqlx.Connect("postgres", pgCfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	// Проверяем, существует ли база данных сервиса
	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	// Если базы нет, создаем её
	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Database.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", cfg.Database.GetDSN())
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://migrations", cfg.Database.GetURL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Хранилище записей: PostgreSQL, либо карта в памяти процесса, если
	// база не сконфигурирована. Второй вариант не переживает рестарт и
	// не масштабируется на несколько инстансов
	var db *sqlx.DB
	var fileRepo repository.FileRecords
	var accountRepo repository.Accounts

	if appConfig.DatabaseConfigured() {
		db, err = connectWithRetry(appConfig, 5, time.Second*5)
		if err != nil {
			log.Fatalf("Failed to connect to database after retries: %v", err)
		}
		defer db.Close()

		if err := runMigrations(appConfig); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}

		fileRepo = repository.NewFileRepository(db)
		accountRepo = repository.NewAccountRepository(db)
	} else {
		log.Println("Database is not configured, using in-memory store (single process only)")
		fileRepo = repository.NewMemoryFileRepository()
		accountRepo = repository.NewMemoryAccountRepository()
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Сессии живут в памяти процесса
	sessions := auth.NewSessionManager(appConfig.Server.SecureCookie)

	// Инициализация сервисов
	fileService := service.NewFileService(fileRepo, s3Client)
	accountService := service.NewAccountService(accountRepo)
	cleanupService := service.NewCleanupService(fileRepo, s3Client)
	previewService := preview.NewService(s3Client, db)

	// Инициализация хендлеров
	fileHandler := handler.NewFileHandler(fileService, sessions, appConfig.Server.BaseURL)
	authHandler := handler.NewAuthHandler(accountService, sessions)
	previewHandler := preview.NewHandler(previewService, fileService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Post("/upload", fileHandler.UploadFile)
		r.Get("/file/{code}", fileHandler.GetFileInfo)
		r.Post("/download/{code}", fileHandler.DownloadFile)
		r.Get("/preview/{code}", previewHandler.GetPreview)
		r.Delete("/file/{id}", fileHandler.DeleteFile)
		r.Get("/files", fileHandler.ListFiles)
		r.Get("/files/user", fileHandler.ListUserFiles)
	})

	// Создаем HTTP сервер
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopTasks := make(chan struct{})

	// Запускаем HTTP сервер
	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Запускаем сборщик истекших файлов
	cleanupTicker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-cleanupTicker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				if _, err := cleanupService.Sweep(ctx); err != nil {
					log.Printf("Error during expired files cleanup: %v", err)
				}
				cancel()
				sessions.PurgeExpired()
			case <-stopTasks:
				cleanupTicker.Stop()
				return
			}
		}
	}()

	// Запускаем очистку осиротевших превью
	previewService.StartCleanupTask(stopTasks)

	// Ожидаем сигнал завершения
	<-quit
	log.Println("Shutting down server...")
	close(stopTasks)

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
