package domain

// Snapshot неизменяемый срез состояния запуска для отображения
type Snapshot struct {
	WorkItemID   string
	Languages    LanguagePair
	Stages       []Stage
	CurrentStage StageKey
	State        RunState
	LastError    error
	Blocks       []TextBlock
	Result       *ResultImage
}

// IsRunning true, пока этапы выполняются
func (s Snapshot) IsRunning() bool {
	return s.State == RunStateRunning
}

// Percentage прогресс запуска в процентах
func (s Snapshot) Percentage() float64 {
	return Percentage(s.Stages, s.CurrentStage, s.IsRunning())
}

// EstimatedTimeRemaining грубая оценка оставшегося времени
func (s Snapshot) EstimatedTimeRemaining() Estimate {
	return EstimatedTimeRemaining(s.Stages)
}

// ErrorMessage текст последней ошибки или пустая строка
func (s Snapshot) ErrorMessage() string {
	if s.LastError == nil {
		return ""
	}
	return s.LastError.Error()
}
