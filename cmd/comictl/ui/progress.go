package ui

import (
	"fmt"
	"os"
	"sync"

	"github.com/plastinin/comictranslate/internal/domain"
	"github.com/schollz/progressbar/v3"
)

// RunProgress показывает состояние запуска: полосу прогресса и строки
// завершённых или упавших этапов
type RunProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	// Этапы, о которых уже выведена строка
	reported map[domain.StageKey]bool
	// Срезы до первого running относятся к предыдущему запуску
	started  bool
	finished bool
}

// NewRunProgress создаёт индикатор для нового запуска
func NewRunProgress() *RunProgress {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)

	return &RunProgress{
		bar:      bar,
		reported: make(map[domain.StageKey]bool),
	}
}

// Update отрисовывает новый срез состояния
func (p *RunProgress) Update(snap domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	if !p.started {
		if snap.State != domain.RunStateRunning {
			return
		}
		p.started = true
	}

	for _, stage := range snap.Stages {
		if p.reported[stage.Key] || stage.InFlight() {
			continue
		}
		p.reported[stage.Key] = true

		_ = p.bar.Clear()
		if stage.Failed {
			Error("%s", StageLine(stage))
		} else {
			Success("%s", StageLine(stage))
		}
	}

	p.bar.Describe(Describe(snap))
	_ = p.bar.Set(int(snap.Percentage()))
}

// Finish убирает полосу прогресса; последующие Update игнорируются
func (p *RunProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true
	_ = p.bar.Clear()
	_ = p.bar.Exit()
}

// StageLine строка с иконкой и названием этапа
func StageLine(stage domain.Stage) string {
	return fmt.Sprintf("%s %s", stage.Icon, stage.Label)
}

// Describe подпись полосы прогресса: текущий этап и оценка оставшегося времени
func Describe(snap domain.Snapshot) string {
	eta := snap.EstimatedTimeRemaining()

	for _, stage := range snap.Stages {
		if stage.Key == snap.CurrentStage {
			return fmt.Sprintf("%s (~%s left)", StageLine(stage), eta)
		}
	}

	switch snap.State {
	case domain.RunStateCompleted:
		return "Done"
	case domain.RunStateFailed:
		return "Stopped"
	default:
		return fmt.Sprintf("Waiting (~%s left)", eta)
	}
}
