package domain

import (
	"errors"
	"fmt"
)

// Ошибки оркестратора
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyRunning = errors.New("pipeline run already in progress")
	ErrInvalidState   = errors.New("invalid run state")
	ErrCancelled      = errors.New("pipeline run cancelled")
)

// StageError ошибка удалённого вызова конкретного этапа (включая таймаут)
type StageError struct {
	Stage StageKey
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError оборачивает ошибку этапа
func NewStageError(stage StageKey, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
