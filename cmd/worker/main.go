package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/plastinin/comictranslate/internal/adapter/backend"
	"github.com/plastinin/comictranslate/internal/adapter/queue"
	"github.com/plastinin/comictranslate/internal/adapter/repository"
	"github.com/plastinin/comictranslate/internal/adapter/storage"
	"github.com/plastinin/comictranslate/internal/config"
	"github.com/plastinin/comictranslate/internal/usecase"
	"github.com/plastinin/comictranslate/pkg/logger"
	"go.uber.org/zap"
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

	log.Info("Starting comictranslate worker",
		zap.String("backend_url", cfg.Backend.URL),
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.Duration("stage_timeout", cfg.Pipeline.StageTimeout),
	)

	// Контекст для инициализации
	ctx := context.Background()

	// Инициализируем PostgreSQL
	dbPool, err := repository.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()
	log.Info("Connected to PostgreSQL")

	// Инициализируем S3 Storage
	s3Storage, err := storage.NewS3Storage(ctx, cfg.S3)
	if err != nil {
		log.Fatal("Failed to connect to S3", zap.Error(err))
	}
	log.Info("Connected to S3",
		zap.String("endpoint", cfg.S3.Endpoint),
		zap.String("bucket", cfg.S3.Bucket),
	)

	// Инициализируем клиент сервиса перевода
	backendClient := backend.NewClient(cfg.Backend, log)

	// Проверяем доступность сервиса
	if err := backendClient.CheckHealth(ctx); err != nil {
		log.Warn("Backend health check failed", zap.Error(err))
		log.Warn("Runs will fail until the translation service is reachable")
	} else {
		log.Info("Backend is healthy")
	}

	// Инициализируем репозитории
	runRepo := repository.NewRunRepository(dbPool)

	// Инициализируем use cases
	pipelineUC := usecase.NewPipelineUseCase(runRepo, s3Storage, backendClient, usecase.SequencerConfig{
		PacingDelay:  cfg.Pipeline.PacingDelay,
		StageTimeout: cfg.Pipeline.StageTimeout,
		UseGPU:       cfg.Pipeline.UseGPU,
	}, log)

	// Инициализируем consumer
	consumer := queue.NewRunConsumer(cfg.Redis, cfg.Worker, pipelineUC, log)

	// Запускаем consumer в горутине
	go func() {
		if err := consumer.Start(); err != nil {
			log.Fatal("Failed to start consumer", zap.Error(err))
		}
	}()

	log.Info("Worker started, waiting for runs...")

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")

	// Останавливаем consumer
	consumer.Stop()

	log.Info("Worker stopped")
}
