package domain

// RunState состояние запуска пайплайна
type RunState string

const (
	RunStateIdle      RunState = "idle"      // Запуск создан, этапы не выполнялись
	RunStateRunning   RunState = "running"   // Этапы выполняются
	RunStateCompleted RunState = "completed" // Все этапы завершены успешно
	RunStateFailed    RunState = "failed"    // Этап упал или запуск отменён
)

// IsValid проверяет валидность состояния
func (s RunState) IsValid() bool {
	switch s {
	case RunStateIdle, RunStateRunning, RunStateCompleted, RunStateFailed:
		return true
	}
	return false
}

// IsFinal проверяет, является ли состояние финальным
func (s RunState) IsFinal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

func (s RunState) String() string {
	return string(s)
}
