package usecase

import (
	"bytes"
	"context"
	"fmt"

	"github.com/plastinin/comictranslate/internal/domain"
	"go.uber.org/zap"
)

// PipelineUseCase выполнение запусков в воркере
type PipelineUseCase struct {
	runRepo       RunRepository
	resultStorage ResultStorage
	backend       PipelineBackend
	cfg           SequencerConfig
	logger        *zap.Logger
}

// NewPipelineUseCase создаёт новый экземпляр PipelineUseCase
func NewPipelineUseCase(
	runRepo RunRepository,
	resultStorage ResultStorage,
	backend PipelineBackend,
	cfg SequencerConfig,
	logger *zap.Logger,
) *PipelineUseCase {
	return &PipelineUseCase{
		runRepo:       runRepo,
		resultStorage: resultStorage,
		backend:       backend,
		cfg:           cfg,
		logger:        logger,
	}
}

// ProcessRun прогоняет все этапы для запуска и сохраняет каждое изменение состояния.
// Ошибки этапов записываются в запуск и не возвращаются: повтор делает только Restart.
func (uc *PipelineUseCase) ProcessRun(ctx context.Context, input ProcessRunInput) error {
	log := uc.logger.With(
		zap.String("run_id", input.RunID.String()),
		zap.Int("attempt", input.Attempt),
	)
	log.Info("Starting run processing")

	run, err := uc.runRepo.GetByID(ctx, input.RunID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if run.Status != domain.RunStateIdle {
		log.Warn("Run is not waiting for execution, skipping",
			zap.String("status", run.Status.String()),
		)
		return nil
	}
	if input.Attempt != run.Attempt {
		log.Warn("Stale attempt, skipping", zap.Int("current_attempt", run.Attempt))
		return nil
	}

	// Сохраняем состояние даже после отмены контекста задачи
	persistCtx := context.WithoutCancel(ctx)

	cfg := uc.cfg
	cfg.ExtraContext = run.ExtraContext
	seq := NewSequencer(uc.backend, cfg, log.With(zap.String("work_item_id", run.WorkItemID)))

	unsubscribe := seq.Subscribe(func(snap domain.Snapshot) {
		run.ApplySnapshot(snap)
		if err := uc.runRepo.Update(persistCtx, run); err != nil {
			log.Error("Failed to persist run state", zap.Error(err))
		}
	})

	if err := seq.Start(ctx, run.WorkItemID, run.Languages); err != nil {
		unsubscribe()
		uc.markRunFailed(persistCtx, run, fmt.Sprintf("failed to start pipeline: %v", err))
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	final, err := seq.Wait(persistCtx)
	unsubscribe()
	if err != nil {
		return fmt.Errorf("failed to wait for pipeline: %w", err)
	}

	run.ApplySnapshot(final)

	if final.State == domain.RunStateCompleted {
		if err := uc.storeResult(persistCtx, run, final.Result); err != nil {
			uc.markRunFailed(persistCtx, run, err.Error())
			return nil
		}
	}

	if err := uc.runRepo.Update(persistCtx, run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	log.Info("Run processing finished",
		zap.String("status", run.Status.String()),
		zap.String("error", run.Error),
	)

	return nil
}

// storeResult загружает готовое изображение в хранилище
func (uc *PipelineUseCase) storeResult(ctx context.Context, run *domain.Run, image *domain.ResultImage) error {
	if image == nil || len(image.Data) == 0 {
		return fmt.Errorf("failed to store result: %w", domain.ErrResultNotReady)
	}

	fileName := fmt.Sprintf("translated_comic_%s%s", run.WorkItemID, domain.ExtensionForContentType(image.ContentType))
	key, err := uc.resultStorage.Upload(ctx, fileName, image.ContentType, bytes.NewReader(image.Data), int64(len(image.Data)))
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	run.AttachResult(key)

	uc.logger.Debug("Result stored",
		zap.String("run_id", run.ID.String()),
		zap.String("result_key", key),
		zap.Int("size", len(image.Data)),
	)
	return nil
}

// markRunFailed помечает запуск как неудачный
func (uc *PipelineUseCase) markRunFailed(ctx context.Context, run *domain.Run, errMsg string) {
	uc.logger.Error("Run processing failed",
		zap.String("run_id", run.ID.String()),
		zap.String("error", errMsg),
	)

	run.MarkFailed(errMsg)
	if err := uc.runRepo.Update(ctx, run); err != nil {
		uc.logger.Error("Failed to update failed run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}
}

