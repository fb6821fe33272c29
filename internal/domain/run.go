package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ошибки хранимых запусков
var (
	ErrRunNotFound     = errors.New("run not found")
	ErrResultNotReady  = errors.New("result is not available yet")
	ErrRunChanged      = errors.New("run was modified concurrently")
	ErrEmptyWorkItemID = fmt.Errorf("%w: work item id is empty", ErrInvalidInput)
)

// Run запись о запуске пайплайна, которую ведёт API и воркер
type Run struct {
	ID           uuid.UUID    `json:"id"`
	WorkItemID   string       `json:"work_item_id"`
	Languages    LanguagePair `json:"languages"`
	ExtraContext string       `json:"extra_context,omitempty"`
	Status       RunState     `json:"status"`
	CurrentStage StageKey     `json:"current_stage,omitempty"`
	Stages       []Stage      `json:"stages"`
	Blocks       []TextBlock  `json:"blocks,omitempty"`
	Error        string       `json:"error,omitempty"`
	ResultKey    string       `json:"result_key,omitempty"` // Ключ результата в S3
	Attempt      int          `json:"attempt"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// ValidateWorkItemID проверяет идентификатор рабочего элемента
func ValidateWorkItemID(workItemID string) error {
	if strings.TrimSpace(workItemID) == "" {
		return ErrEmptyWorkItemID
	}
	return nil
}

// NewRun создаёт новую запись о запуске в состоянии idle
func NewRun(workItemID string, languages LanguagePair, extraContext string) (*Run, error) {
	if err := ValidateWorkItemID(workItemID); err != nil {
		return nil, err
	}
	if err := languages.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()

	return &Run{
		ID:           uuid.New(),
		WorkItemID:   workItemID,
		Languages:    languages,
		ExtraContext: extraContext,
		Status:       RunStateIdle,
		Stages:       DefaultStages(),
		Attempt:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplySnapshot переносит состояние оркестратора в запись
func (r *Run) ApplySnapshot(s Snapshot) {
	now := time.Now()
	r.Status = s.State
	r.CurrentStage = s.CurrentStage
	r.Stages = CloneStages(s.Stages)
	r.Blocks = CloneBlocks(s.Blocks)
	r.Error = s.ErrorMessage()
	r.UpdatedAt = now
	if s.State.IsFinal() && r.CompletedAt == nil {
		r.CompletedAt = &now
	}
}

// MarkCancelled отменяет запуск, который никто не выполняет:
// задача ещё в очереди или воркер пропал, не дойдя до конца
func (r *Run) MarkCancelled() error {
	if r.Status.IsFinal() {
		return ErrInvalidState
	}
	now := time.Now()
	r.Status = RunStateFailed
	r.CurrentStage = ""
	r.Error = ErrCancelled.Error()
	r.UpdatedAt = now
	r.CompletedAt = &now
	return nil
}

// MarkFailed переводит запуск в статус "ошибка" вне оркестратора
// (например, не удалось поставить задачу в очередь или сохранить результат)
func (r *Run) MarkFailed(errMsg string) {
	now := time.Now()
	r.Status = RunStateFailed
	r.CurrentStage = ""
	r.Error = errMsg
	r.UpdatedAt = now
	r.CompletedAt = &now
}

// CanRestart проверяет, можно ли перезапустить пайплайн
func (r *Run) CanRestart() bool {
	return r.Status.IsFinal()
}

// Restart сбрасывает запись к исходному состоянию для новой попытки
func (r *Run) Restart() error {
	if !r.CanRestart() {
		return ErrInvalidState
	}
	r.Status = RunStateIdle
	r.CurrentStage = ""
	r.Stages = DefaultStages()
	r.Blocks = nil
	r.Error = ""
	r.ResultKey = ""
	r.Attempt++
	r.UpdatedAt = time.Now()
	r.CompletedAt = nil
	return nil
}

// AttachResult сохраняет ключ готового изображения
func (r *Run) AttachResult(resultKey string) {
	r.ResultKey = resultKey
	r.UpdatedAt = time.Now()
}

// Snapshot восстанавливает срез состояния из записи (без изображения)
func (r *Run) Snapshot() Snapshot {
	var lastErr error
	if r.Error != "" {
		lastErr = errors.New(r.Error)
	}
	return Snapshot{
		WorkItemID:   r.WorkItemID,
		Languages:    r.Languages,
		Stages:       CloneStages(r.Stages),
		CurrentStage: r.CurrentStage,
		State:        r.Status,
		LastError:    lastErr,
		Blocks:       CloneBlocks(r.Blocks),
	}
}
