package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/plastinin/comictranslate/internal/domain"
	"go.uber.org/zap"
)

// RunUseCase бизнес-логика управления запусками со стороны API
type RunUseCase struct {
	runRepo       RunRepository
	resultStorage ResultStorage
	runQueue      RunQueue
	logger        *zap.Logger
}

// NewRunUseCase создаёт новый экземпляр RunUseCase
func NewRunUseCase(
	runRepo RunRepository,
	resultStorage ResultStorage,
	runQueue RunQueue,
	logger *zap.Logger,
) *RunUseCase {
	return &RunUseCase{
		runRepo:       runRepo,
		resultStorage: resultStorage,
		runQueue:      runQueue,
		logger:        logger,
	}
}

// Create создаёт запуск и ставит его в очередь
func (uc *RunUseCase) Create(ctx context.Context, input CreateRunInput) (*domain.Run, error) {
	run, err := domain.NewRun(input.WorkItemID, input.Languages, input.ExtraContext)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if err := uc.runRepo.Create(ctx, run); err != nil {
		uc.logger.Error("Failed to save run to database",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	uc.enqueue(ctx, run)

	uc.logger.Info("Run created successfully",
		zap.String("run_id", run.ID.String()),
		zap.String("work_item_id", run.WorkItemID),
		zap.String("languages", run.Languages.String()),
	)

	return run, nil
}

// GetByID возвращает запуск по ID
func (uc *RunUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return uc.runRepo.GetByID(ctx, id)
}

// List возвращает список запусков
func (uc *RunUseCase) List(ctx context.Context, filter domain.RunFilter, pagination domain.Pagination) (*domain.RunListResult, error) {
	return uc.runRepo.List(ctx, filter, pagination)
}

// Cancel отменяет запуск. Для завершённого запуска ничего не делает.
func (uc *RunUseCase) Cancel(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, err := uc.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log := uc.logger.With(
		zap.String("run_id", id.String()),
		zap.Int("attempt", run.Attempt),
	)

	switch run.Status {
	case domain.RunStateCompleted, domain.RunStateFailed:
		return run, nil

	case domain.RunStateIdle:
		// Задача ещё в очереди, просто убираем её
		removed, err := uc.runQueue.Dequeue(ctx, run.ID, run.Attempt)
		if err != nil {
			log.Debug("Failed to dequeue run", zap.Error(err))
		}
		if removed {
			return uc.markCancelled(ctx, run, log)
		}
	}

	active, err := uc.runQueue.TaskActive(ctx, run.ID, run.Attempt)
	if err != nil {
		log.Error("Failed to inspect run task", zap.Error(err))
		return nil, fmt.Errorf("failed to cancel run: %w", err)
	}
	if !active {
		// Никто не выполняет попытку: воркер уже закончил её или упал
		return uc.markCancelled(ctx, run, log)
	}

	if err := uc.runQueue.CancelProcessing(ctx, run.ID, run.Attempt); err != nil {
		log.Error("Failed to cancel run processing", zap.Error(err))
		return nil, fmt.Errorf("failed to cancel run: %w", err)
	}

	log.Info("Cancellation requested for running run")
	return run, nil
}

// markCancelled записывает отмену, если запись не изменилась с момента чтения.
// Если воркер успел её обновить, возвращается свежая версия.
func (uc *RunUseCase) markCancelled(ctx context.Context, run *domain.Run, log *zap.Logger) (*domain.Run, error) {
	from := run.Status
	if err := run.MarkCancelled(); err != nil {
		return nil, err
	}

	err := uc.runRepo.UpdateIfStatus(ctx, run, from)
	if errors.Is(err, domain.ErrRunChanged) {
		log.Info("Run changed while cancelling, returning current state")
		return uc.runRepo.GetByID(ctx, run.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	log.Info("Run cancelled", zap.String("previous_status", from.String()))
	return run, nil
}

// Restart перезапускает завершённый запуск с первого этапа
func (uc *RunUseCase) Restart(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, err := uc.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldKey := run.ResultKey
	if err := run.Restart(); err != nil {
		return nil, fmt.Errorf("%w: run is %s", err, run.Status)
	}

	if err := uc.runRepo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	if oldKey != "" {
		if err := uc.resultStorage.Delete(ctx, oldKey); err != nil {
			uc.logger.Warn("Failed to delete previous result",
				zap.String("run_id", id.String()),
				zap.String("result_key", oldKey),
				zap.Error(err),
			)
		}
	}

	uc.enqueue(ctx, run)

	uc.logger.Info("Run restarted",
		zap.String("run_id", id.String()),
		zap.Int("attempt", run.Attempt),
	)

	return run, nil
}

// ResultURL возвращает ссылку на готовое изображение
func (uc *RunUseCase) ResultURL(ctx context.Context, id uuid.UUID) (string, error) {
	run, err := uc.runRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if run.Status != domain.RunStateCompleted || run.ResultKey == "" {
		return "", domain.ErrResultNotReady
	}

	return uc.resultStorage.GetURL(ctx, run.ResultKey)
}

// OpenResult открывает готовое изображение на чтение
func (uc *RunUseCase) OpenResult(ctx context.Context, id uuid.UUID) (*ResultFile, error) {
	run, err := uc.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.Status != domain.RunStateCompleted || run.ResultKey == "" {
		return nil, domain.ErrResultNotReady
	}

	body, contentType, err := uc.resultStorage.Download(ctx, run.ResultKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download result: %w", err)
	}
	if contentType == "" {
		if ct, err := domain.ContentTypeFromFileName(run.ResultKey); err == nil {
			contentType = ct
		} else {
			contentType = "application/octet-stream"
		}
	}

	return &ResultFile{
		FileName:    path.Base(run.ResultKey),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// Delete удаляет запуск и связанный результат
func (uc *RunUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	run, err := uc.runRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if run.Status == domain.RunStateRunning {
		return fmt.Errorf("%w: cancel the run before deleting it", domain.ErrInvalidState)
	}

	if run.ResultKey != "" {
		if err := uc.resultStorage.Delete(ctx, run.ResultKey); err != nil {
			uc.logger.Warn("Failed to delete result from storage",
				zap.String("run_id", id.String()),
				zap.String("result_key", run.ResultKey),
				zap.Error(err),
			)
			// Продолжаем удаление запуска
		}
	}

	if run.Status == domain.RunStateIdle {
		_, _ = uc.runQueue.Dequeue(ctx, run.ID, run.Attempt)
	}

	if err := uc.runRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	uc.logger.Info("Run deleted successfully",
		zap.String("run_id", id.String()),
	)

	return nil
}

// enqueue ставит текущую попытку в очередь; при ошибке запуск помечается
// как неудачный, чтобы его можно было перезапустить
func (uc *RunUseCase) enqueue(ctx context.Context, run *domain.Run) {
	if err := uc.runQueue.Enqueue(ctx, run.ID, run.Attempt); err != nil {
		uc.logger.Error("Failed to enqueue run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)

		run.MarkFailed(fmt.Sprintf("failed to enqueue run: %v", err))
		if err := uc.runRepo.Update(ctx, run); err != nil {
			uc.logger.Error("Failed to update run",
				zap.String("run_id", run.ID.String()),
				zap.Error(err),
			)
		}
	}
}
