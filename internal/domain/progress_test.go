package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stagesWithCompleted(n int) []Stage {
	stages := DefaultStages()
	for i := 0; i < n && i < len(stages); i++ {
		stages[i].Completed = true
	}
	return stages
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name      string
		stages    []Stage
		current   StageKey
		isRunning bool
		want      float64
	}{
		{
			name: "no stages",
			want: 0,
		},
		{
			name:      "no stages while running",
			stages:    []Stage{},
			current:   StageOCR,
			isRunning: true,
			want:      0,
		},
		{
			name:   "idle",
			stages: DefaultStages(),
			want:   0,
		},
		{
			name:      "first stage in flight",
			stages:    DefaultStages(),
			current:   StageDetecting,
			isRunning: true,
			want:      100.0 / 12,
		},
		{
			name:      "two completed and third in flight",
			stages:    stagesWithCompleted(2),
			current:   StageTranslating,
			isRunning: true,
			want:      2.0/6*100 + 1.0/6*50,
		},
		{
			name:      "in flight bonus only while running",
			stages:    stagesWithCompleted(2),
			current:   StageTranslating,
			isRunning: false,
			want:      2.0 / 6 * 100,
		},
		{
			name:   "all completed",
			stages: stagesWithCompleted(6),
			want:   100,
		},
		{
			name:      "clamped to 100",
			stages:    stagesWithCompleted(6),
			current:   StageCompleted,
			isRunning: true,
			want:      100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentage(tt.stages, tt.current, tt.isRunning), 1e-9)
		})
	}
}

func TestPercentage_TwoStagesDoneThirdRunning(t *testing.T) {
	got := Percentage(stagesWithCompleted(2), StageTranslating, true)
	assert.InDelta(t, 41.67, got, 0.01)
}

func TestPercentage_FailedStageIsNotInFlight(t *testing.T) {
	stages := stagesWithCompleted(1)
	stages[1].Failed = true

	assert.InDelta(t, 100.0/6, Percentage(stages, StageOCR, true), 1e-9)
}

func TestPercentage_NonDecreasingOverSuccessfulRun(t *testing.T) {
	stages := DefaultStages()
	prev := Percentage(stages, "", true)

	for i := range stages {
		inFlight := Percentage(stages, stages[i].Key, true)
		assert.GreaterOrEqual(t, inFlight, prev)

		stages[i].Completed = true
		done := Percentage(stages, stages[i].Key, true)
		assert.GreaterOrEqual(t, done, inFlight)
		assert.LessOrEqual(t, done, 100.0)
		prev = done
	}

	assert.Equal(t, 100.0, Percentage(stages, "", false))
}

func TestEstimatedTimeRemaining(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		remaining time.Duration
		minutes   int
		text      string
	}{
		{name: "nothing done", completed: 0, remaining: 3 * time.Minute, minutes: 3, text: "3 minutes"},
		{name: "three left", completed: 3, remaining: 90 * time.Second, minutes: 2, text: "2 minutes"},
		{name: "one left", completed: 5, remaining: 30 * time.Second, minutes: 1, text: "1 minute"},
		{name: "all done", completed: 6, remaining: 0, minutes: 0, text: "0 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eta := EstimatedTimeRemaining(stagesWithCompleted(tt.completed))
			assert.Equal(t, tt.remaining, eta.Remaining)
			assert.Equal(t, tt.minutes, eta.Minutes())
			assert.Equal(t, tt.text, eta.String())
		})
	}
}

func TestEstimatedTimeRemaining_NoStages(t *testing.T) {
	eta := EstimatedTimeRemaining(nil)
	assert.Zero(t, eta.Remaining)
	assert.Equal(t, "0 minutes", eta.String())
}

func TestEstimate_RoundsUp(t *testing.T) {
	eta := Estimate{Remaining: 61 * time.Second}
	assert.Equal(t, 2, eta.Minutes())
	assert.Equal(t, "2 minutes", eta.String())

	assert.Equal(t, "0 minutes", Estimate{Remaining: -time.Second}.String())
}
