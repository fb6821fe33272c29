package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plastinin/comictranslate/internal/domain"
	"go.uber.org/zap"
)

// SequencerConfig настройки оркестратора
type SequencerConfig struct {
	// Косметическая пауза после каждого успешного этапа
	PacingDelay time.Duration
	// Таймаут одного вызова бэкенда, 0 означает без таймаута
	StageTimeout time.Duration
	ExtraContext string
	UseGPU       bool
}

// stageCall один вызов бэкенда для этапа
type stageCall struct {
	key  domain.StageKey
	call func(ctx context.Context) (*domain.StageResult, *domain.ResultImage, error)
}

// Sequencer последовательно выполняет этапы пайплайна над одним изображением.
//
// Состояние меняется только под mu. Каждый Start получает новое поколение:
// ответы этапов от предыдущего поколения или после Cancel отбрасываются.
type Sequencer struct {
	backend PipelineBackend
	cfg     SequencerConfig
	logger  *zap.Logger

	mu         sync.Mutex
	generation uint64
	workItemID string
	languages  domain.LanguagePair
	stages     []domain.Stage
	current    domain.StageKey
	state      domain.RunState
	lastErr    error
	blocks     []domain.TextBlock
	result     *domain.ResultImage
	cancelRun  context.CancelFunc
	done       chan struct{}

	// notifyMu упорядочивает вызовы подписчиков
	notifyMu    sync.Mutex
	subscribers map[int]func(domain.Snapshot)
	nextSubID   int

	wg sync.WaitGroup
}

// NewSequencer создаёт новый экземпляр Sequencer
func NewSequencer(backend PipelineBackend, cfg SequencerConfig, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		backend:     backend,
		cfg:         cfg,
		logger:      logger,
		stages:      domain.DefaultStages(),
		state:       domain.RunStateIdle,
		subscribers: make(map[int]func(domain.Snapshot)),
	}
}

// Start начинает новый запуск и сразу возвращает управление.
// Отмена ctx равносильна вызову Cancel.
func (s *Sequencer) Start(ctx context.Context, workItemID string, languages domain.LanguagePair) error {
	if err := domain.ValidateWorkItemID(workItemID); err != nil {
		return err
	}
	if err := languages.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == domain.RunStateRunning {
		s.mu.Unlock()
		return domain.ErrAlreadyRunning
	}

	s.generation++
	gen := s.generation
	s.workItemID = workItemID
	s.languages = languages
	s.stages = domain.DefaultStages()
	s.current = ""
	s.state = domain.RunStateRunning
	s.lastErr = nil
	s.blocks = nil
	s.result = nil

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	s.done = make(chan struct{})
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Pipeline run started",
		zap.String("work_item_id", workItemID),
		zap.String("source_language", languages.Source),
		zap.String("target_language", languages.Target),
	)
	s.notify()

	go s.execute(runCtx, cancel, gen, s.plan(workItemID, languages))

	return nil
}

// Restart сбрасывает завершённый запуск и начинает его заново
// с теми же изображением и парой языков
func (s *Sequencer) Restart(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.IsFinal() {
		s.mu.Unlock()
		return fmt.Errorf("%w: restart requires a finished run, current state is %s", domain.ErrInvalidState, s.state)
	}

	workItemID, languages := s.workItemID, s.languages
	s.stages = domain.DefaultStages()
	s.current = ""
	s.state = domain.RunStateIdle
	s.lastErr = nil
	s.blocks = nil
	s.result = nil
	s.mu.Unlock()

	s.logger.Info("Restarting pipeline run", zap.String("work_item_id", workItemID))
	s.notify()

	return s.Start(ctx, workItemID, languages)
}

// Cancel прерывает выполняющийся запуск. Для завершённого запуска ничего не делает.
func (s *Sequencer) Cancel() error {
	s.mu.Lock()
	switch s.state {
	case domain.RunStateIdle:
		s.mu.Unlock()
		return fmt.Errorf("%w: nothing to cancel", domain.ErrInvalidState)
	case domain.RunStateCompleted, domain.RunStateFailed:
		s.mu.Unlock()
		return nil
	}

	stage := s.current
	s.finishLocked(domain.RunStateFailed, domain.ErrCancelled)
	s.mu.Unlock()

	s.logger.Warn("Pipeline run cancelled", zap.String("stage", stage.String()))
	s.notify()

	return nil
}

// Snapshot возвращает копию текущего состояния
func (s *Sequencer) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Snapshot{
		WorkItemID:   s.workItemID,
		Languages:    s.languages,
		Stages:       domain.CloneStages(s.stages),
		CurrentStage: s.current,
		State:        s.state,
		LastError:    s.lastErr,
		Blocks:       domain.CloneBlocks(s.blocks),
		Result:       s.result.Clone(),
	}
}

// Wait блокируется до завершения текущего запуска
func (s *Sequencer) Wait(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return s.Snapshot(), fmt.Errorf("%w: run was never started", domain.ErrInvalidState)
	}

	select {
	case <-done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Subscribe регистрирует обработчик изменений состояния.
// Обработчики вызываются последовательно, в порядке изменений, и не должны
// вызывать Start, Restart, Cancel или функцию отписки.
func (s *Sequencer) Subscribe(fn func(domain.Snapshot)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.subscribers, id)
			s.notifyMu.Unlock()
		})
	}
}

func (s *Sequencer) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if len(s.subscribers) == 0 {
		return
	}

	snap := s.Snapshot()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

// plan описывает вызовы бэкенда в порядке этапов
func (s *Sequencer) plan(workItemID string, languages domain.LanguagePair) []stageCall {
	blocksOnly := func(fn func(ctx context.Context) (*domain.StageResult, error)) func(ctx context.Context) (*domain.StageResult, *domain.ResultImage, error) {
		return func(ctx context.Context) (*domain.StageResult, *domain.ResultImage, error) {
			res, err := fn(ctx)
			return res, nil, err
		}
	}

	req := domain.TranslationRequest{
		Languages:    languages,
		ExtraContext: s.cfg.ExtraContext,
		UseGPU:       s.cfg.UseGPU,
	}

	return []stageCall{
		{key: domain.StageDetecting, call: blocksOnly(func(ctx context.Context) (*domain.StageResult, error) {
			return s.backend.DetectBlocks(ctx, workItemID)
		})},
		{key: domain.StageOCR, call: blocksOnly(func(ctx context.Context) (*domain.StageResult, error) {
			return s.backend.RecognizeText(ctx, workItemID)
		})},
		{key: domain.StageTranslating, call: blocksOnly(func(ctx context.Context) (*domain.StageResult, error) {
			return s.backend.Translate(ctx, workItemID, req)
		})},
		{key: domain.StageInpainting, call: blocksOnly(func(ctx context.Context) (*domain.StageResult, error) {
			return s.backend.Inpaint(ctx, workItemID, req)
		})},
		{key: domain.StageRendering, call: blocksOnly(func(ctx context.Context) (*domain.StageResult, error) {
			return s.backend.Render(ctx, workItemID)
		})},
		{key: domain.StageCompleted, call: func(ctx context.Context) (*domain.StageResult, *domain.ResultImage, error) {
			img, err := s.backend.FetchResult(ctx, workItemID)
			return nil, img, err
		}},
	}
}

// execute выполняет этапы строго по порядку, останавливаясь на первой ошибке
func (s *Sequencer) execute(ctx context.Context, cancel context.CancelFunc, gen uint64, calls []stageCall) {
	defer s.wg.Done()
	defer cancel()

	for i, step := range calls {
		if !s.enterStage(gen, step.key) {
			return
		}

		result, image, err := s.callStage(ctx, step)
		if err != nil {
			if ctx.Err() != nil {
				s.abort(gen)
				return
			}
			s.failStage(gen, step.key, err)
			return
		}

		if !s.completeStage(gen, step.key, result, image, i == len(calls)-1) {
			return
		}

		if i < len(calls)-1 && !s.pace(ctx, gen) {
			return
		}
	}
}

// stageOutcome ответ одного вызова бэкенда
type stageOutcome struct {
	result *domain.StageResult
	image  *domain.ResultImage
	err    error
}

// callStage вызывает этап и ждёт ответа не дольше таймаута этапа.
// Бэкенд, игнорирующий контекст, не задерживает запуск: его ответ отбрасывается.
func (s *Sequencer) callStage(ctx context.Context, step stageCall) (*domain.StageResult, *domain.ResultImage, error) {
	stageCtx := ctx
	if s.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, s.cfg.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan stageOutcome, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, image, err := step.call(stageCtx)
		done <- stageOutcome{result: result, image: image, err: err}
	}()

	var out stageOutcome
	select {
	case out = <-done:
	case <-stageCtx.Done():
		out.err = stageCtx.Err()
	}

	s.logger.Debug("Stage call returned",
		zap.String("stage", step.key.String()),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", out.err == nil),
	)

	err := out.err
	if err == nil && step.key != domain.StageCompleted && out.result == nil {
		err = errors.New("empty stage response")
	}
	if err == nil && step.key == domain.StageCompleted && out.image == nil {
		err = errors.New("empty result image")
	}
	if err != nil && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", s.cfg.StageTimeout, err)
		} else {
			err = fmt.Errorf("timed out after %s: %w (%v)", s.cfg.StageTimeout, context.DeadlineExceeded, err)
		}
	}

	return out.result, out.image, err
}

// pace выдерживает паузу между этапами; false, если запуск отменён
func (s *Sequencer) pace(ctx context.Context, gen uint64) bool {
	if s.cfg.PacingDelay <= 0 {
		if ctx.Err() != nil {
			s.abort(gen)
			return false
		}
		return true
	}

	timer := time.NewTimer(s.cfg.PacingDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		s.abort(gen)
		return false
	}
}

// settle применяет изменение, только если запуск gen всё ещё выполняется
func (s *Sequencer) settle(gen uint64, mutate func()) bool {
	s.mu.Lock()
	if s.generation != gen || s.state != domain.RunStateRunning {
		s.mu.Unlock()
		return false
	}
	mutate()
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Sequencer) enterStage(gen uint64, key domain.StageKey) bool {
	return s.settle(gen, func() {
		s.current = key
	})
}

func (s *Sequencer) completeStage(gen uint64, key domain.StageKey, result *domain.StageResult, image *domain.ResultImage, last bool) bool {
	ok := s.settle(gen, func() {
		if result != nil && result.HasBlocks {
			s.blocks = domain.MergeBlocks(s.blocks, result.Blocks)
		}
		s.stageLocked(key).Completed = true
		if last {
			s.result = image
			s.finishLocked(domain.RunStateCompleted, nil)
		}
	})
	if !ok {
		s.logger.Debug("Discarding stale stage response", zap.String("stage", key.String()))
		return false
	}

	s.logger.Info("Stage completed", zap.String("stage", key.String()))
	if last {
		s.logger.Info("Pipeline run completed")
	}
	return true
}

func (s *Sequencer) failStage(gen uint64, key domain.StageKey, err error) {
	stageErr := domain.NewStageError(key, err)
	ok := s.settle(gen, func() {
		s.stageLocked(key).Failed = true
		s.finishLocked(domain.RunStateFailed, stageErr)
	})
	if ok {
		s.logger.Error("Stage failed",
			zap.String("stage", key.String()),
			zap.Error(err),
		)
	}
}

// abort завершает запуск как отменённый (отмена родительского контекста)
func (s *Sequencer) abort(gen uint64) bool {
	ok := s.settle(gen, func() {
		s.finishLocked(domain.RunStateFailed, domain.ErrCancelled)
	})
	if ok {
		s.logger.Warn("Pipeline run aborted by context")
	}
	return ok
}

// finishLocked переводит запуск в финальное состояние. Вызывается под mu.
func (s *Sequencer) finishLocked(state domain.RunState, err error) {
	s.state = state
	s.lastErr = err
	s.current = ""
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	if s.done != nil {
		close(s.done)
	}
}

func (s *Sequencer) stageLocked(key domain.StageKey) *domain.Stage {
	for i := range s.stages {
		if s.stages[i].Key == key {
			return &s.stages[i]
		}
	}
	// Ключи этапов фиксированы DefaultStages
	panic("unknown stage " + key.String())
}
