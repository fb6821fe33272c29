package domain

import (
	"fmt"
	"math"
	"time"
)

// Фиксированная эвристика: каждый оставшийся этап считается за 30 секунд.
// Реальная задержка бэкенда не измеряется.
const estimatedStageDuration = 30 * time.Second

// Percentage считает прогресс в процентах [0, 100].
// Пока запуск идёт и текущий этап ещё в работе, к завершённым этапам
// добавляется половина доли одного этапа.
func Percentage(stages []Stage, currentStage StageKey, isRunning bool) float64 {
	total := len(stages)
	if total == 0 {
		return 0
	}

	completed := 0
	inFlight := false
	for _, s := range stages {
		if s.Completed {
			completed++
		}
		if currentStage != "" && s.Key == currentStage && s.InFlight() {
			inFlight = true
		}
	}

	progress := float64(completed) / float64(total) * 100
	if isRunning && inFlight {
		progress += 1 / float64(total) * 50
	}

	return math.Min(progress, 100)
}

// Estimate оценка оставшегося времени
type Estimate struct {
	Remaining time.Duration
}

// Minutes оценка в целых минутах с округлением вверх
func (e Estimate) Minutes() int {
	if e.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(e.Remaining.Minutes()))
}

func (e Estimate) String() string {
	if e.Remaining <= 0 {
		return "0 minutes"
	}
	minutes := e.Minutes()
	switch {
	case minutes < 1:
		return "less than 1 minute"
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}

// EstimatedTimeRemaining оценивает оставшееся время по числу незавершённых этапов
func EstimatedTimeRemaining(stages []Stage) Estimate {
	completed := 0
	for _, s := range stages {
		if s.Completed {
			completed++
		}
	}

	remaining := len(stages) - completed
	if remaining <= 0 {
		return Estimate{}
	}
	return Estimate{Remaining: time.Duration(remaining) * estimatedStageDuration}
}
