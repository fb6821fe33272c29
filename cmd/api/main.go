package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/plastinin/comictranslate/internal/adapter/http/handler"
	"github.com/plastinin/comictranslate/internal/adapter/queue"
	"github.com/plastinin/comictranslate/internal/adapter/repository"
	"github.com/plastinin/comictranslate/internal/adapter/storage"
	"github.com/plastinin/comictranslate/internal/config"
	"github.com/plastinin/comictranslate/internal/usecase"
	"github.com/plastinin/comictranslate/pkg/logger"
	"go.uber.org/zap"

	apphttp "github.com/plastinin/comictranslate/internal/adapter/http"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Инициализируем логгер
	log := logger.Must(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	log.Info("Starting comictranslate API",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	// Контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем PostgreSQL
	dbPool, err := repository.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()
	log.Info("Connected to PostgreSQL")

	// Применяем миграции
	applied, err := repository.Migrate(ctx, dbPool)
	if err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database schema is up to date", zap.Strings("applied", applied))

	// Инициализируем S3 Storage
	s3Storage, err := storage.NewS3Storage(ctx, cfg.S3)
	if err != nil {
		log.Fatal("Failed to connect to S3", zap.Error(err))
	}
	log.Info("Connected to S3",
		zap.String("endpoint", cfg.S3.Endpoint),
		zap.String("bucket", cfg.S3.Bucket),
	)

	// Инициализируем Queue Producer
	queueProducer := queue.NewRunProducer(cfg.Redis)
	defer queueProducer.Close()
	log.Info("Connected to Redis",
		zap.String("addr", cfg.Redis.Addr()),
	)

	// Инициализируем репозитории
	runRepo := repository.NewRunRepository(dbPool)

	// Инициализируем use cases
	runUC := usecase.NewRunUseCase(runRepo, s3Storage, queueProducer, log)

	// Инициализируем handlers
	runHandler := handler.NewRunHandler(runUC, log)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"postgres": dbPool.Ping,
	})

	// Создаём роутер
	router := apphttp.NewRouter(runHandler, healthHandler, log)

	// Создаём HTTP сервер
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", cfg.Server.Addr()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
