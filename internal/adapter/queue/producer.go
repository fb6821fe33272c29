package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/plastinin/comictranslate/internal/config"
)

// Типы задач
const (
	TypeTranslationRun = "translation:run"
)

// QueueTranslation очередь задач перевода
const QueueTranslation = "translation"

// TranslationRunPayload данные задачи на выполнение запуска
type TranslationRunPayload struct {
	RunID   string `json:"run_id"`
	Attempt int    `json:"attempt"`
}

// taskID идентификатор задачи в очереди, уникальный для каждой попытки
func taskID(runID uuid.UUID, attempt int) string {
	return fmt.Sprintf("%s:%d", runID, attempt)
}

// RunProducer отправляет запуски в очередь
type RunProducer struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewRunProducer создаёт новый экземпляр RunProducer
func NewRunProducer(cfg config.RedisConfig) *RunProducer {
	opt := redisClientOpt(cfg)

	return &RunProducer{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
	}
}

// Enqueue добавляет попытку запуска в очередь
func (p *RunProducer) Enqueue(ctx context.Context, runID uuid.UUID, attempt int) error {
	payload, err := json.Marshal(TranslationRunPayload{
		RunID:   runID.String(),
		Attempt: attempt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeTranslationRun, payload,
		asynq.TaskID(taskID(runID, attempt)),
		asynq.MaxRetry(0), // Повтор только через явный рестарт
		asynq.Queue(QueueTranslation),
	)

	_, err = p.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// Dequeue удаляет ещё не взятую в работу попытку из очереди.
// Если задачи уже нет (воркер взял её или она завершилась), возвращает false.
func (p *RunProducer) Dequeue(_ context.Context, runID uuid.UUID, attempt int) (bool, error) {
	err := p.inspector.DeleteTask(QueueTranslation, taskID(runID, attempt))
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	return true, nil
}

// TaskActive проверяет, что попытка сейчас выполняется воркером
func (p *RunProducer) TaskActive(_ context.Context, runID uuid.UUID, attempt int) (bool, error) {
	info, err := p.inspector.GetTaskInfo(QueueTranslation, taskID(runID, attempt))
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get task info: %w", err)
	}

	return info.State == asynq.TaskStateActive, nil
}

// CancelProcessing посылает воркеру сигнал отмены выполняемой попытки
func (p *RunProducer) CancelProcessing(_ context.Context, runID uuid.UUID, attempt int) error {
	if err := p.inspector.CancelProcessing(taskID(runID, attempt)); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	return nil
}

// Close закрывает соединения
func (p *RunProducer) Close() error {
	if err := p.inspector.Close(); err != nil {
		return err
	}
	return p.client.Close()
}

func isMissing(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound)
}

func redisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
