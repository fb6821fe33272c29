package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/plastinin/comictranslate/internal/config"
	"github.com/plastinin/comictranslate/internal/usecase"
	"go.uber.org/zap"
)

// RunProcessor выполняет попытку запуска
type RunProcessor interface {
	ProcessRun(ctx context.Context, input usecase.ProcessRunInput) error
}

// RunConsumer обрабатывает запуски из очереди
type RunConsumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor RunProcessor
	logger    *zap.Logger
}

// NewRunConsumer создаёт новый экземпляр RunConsumer
func NewRunConsumer(
	redisCfg config.RedisConfig,
	workerCfg config.WorkerConfig,
	processor RunProcessor,
	logger *zap.Logger,
) *RunConsumer {
	server := asynq.NewServer(
		redisClientOpt(redisCfg),
		asynq.Config{
			Concurrency: workerCfg.Concurrency,
			Queues: map[string]int{
				QueueTranslation: 10, // Приоритет очереди
				"default":        1,
			},
			Logger: newAsynqLogger(logger),
		},
	)

	consumer := &RunConsumer{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
		logger:    logger,
	}

	// Регистрируем обработчики
	consumer.mux.HandleFunc(TypeTranslationRun, consumer.handleTranslationRun)

	return consumer
}

// Start запускает обработку задач
func (c *RunConsumer) Start() error {
	c.logger.Info("Starting run consumer")
	return c.server.Start(c.mux)
}

// Stop останавливает обработку задач
func (c *RunConsumer) Stop() {
	c.logger.Info("Stopping run consumer")
	c.server.Stop()
	c.server.Shutdown()
}

// handleTranslationRun обрабатывает задачу выполнения запуска
func (c *RunConsumer) handleTranslationRun(ctx context.Context, t *asynq.Task) error {
	input, err := parsePayload(t.Payload())
	if err != nil {
		c.logger.Error("Invalid task payload",
			zap.Error(err),
			zap.ByteString("payload", t.Payload()),
		)
		// Повтор не поможет
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	c.logger.Info("Processing translation run",
		zap.String("run_id", input.RunID.String()),
		zap.Int("attempt", input.Attempt),
	)

	if err := c.processor.ProcessRun(ctx, input); err != nil {
		c.logger.Error("Failed to process run",
			zap.String("run_id", input.RunID.String()),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// parsePayload разбирает данные задачи
func parsePayload(data []byte) (usecase.ProcessRunInput, error) {
	var payload TranslationRunPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return usecase.ProcessRunInput{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	runID, err := uuid.Parse(payload.RunID)
	if err != nil {
		return usecase.ProcessRunInput{}, fmt.Errorf("invalid run ID: %w", err)
	}
	if payload.Attempt < 1 {
		return usecase.ProcessRunInput{}, fmt.Errorf("invalid attempt: %d", payload.Attempt)
	}

	return usecase.ProcessRunInput{RunID: runID, Attempt: payload.Attempt}, nil
}

// asynqLogger адаптер логгера для asynq
type asynqLogger struct {
	logger *zap.Logger
}

func newAsynqLogger(logger *zap.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.Named("asynq")}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
