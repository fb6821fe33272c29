package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLanguages = LanguagePair{Source: "Japanese", Target: "English"}

func TestNewRun(t *testing.T) {
	run, err := NewRun("img-1", testLanguages, "one piece")
	require.NoError(t, err)

	assert.Equal(t, RunStateIdle, run.Status)
	assert.Equal(t, 1, run.Attempt)
	assert.Len(t, run.Stages, 6)
	assert.Empty(t, run.CurrentStage)
	assert.Nil(t, run.CompletedAt)
	assert.Equal(t, "one piece", run.ExtraContext)
}

func TestNewRun_Validation(t *testing.T) {
	tests := []struct {
		name       string
		workItemID string
		languages  LanguagePair
	}{
		{name: "empty work item", workItemID: "  ", languages: testLanguages},
		{name: "empty source", workItemID: "img", languages: LanguagePair{Target: "English"}},
		{name: "empty target", workItemID: "img", languages: LanguagePair{Source: "Japanese"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRun(tt.workItemID, tt.languages, "")
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRun_ApplySnapshot(t *testing.T) {
	run, err := NewRun("img-1", testLanguages, "")
	require.NoError(t, err)

	stages := DefaultStages()
	stages[0].Completed = true
	run.ApplySnapshot(Snapshot{
		Stages:       stages,
		CurrentStage: StageOCR,
		State:        RunStateRunning,
		Blocks:       []TextBlock{{ID: "b1"}},
	})

	assert.Equal(t, RunStateRunning, run.Status)
	assert.Equal(t, StageOCR, run.CurrentStage)
	assert.True(t, run.Stages[0].Completed)
	assert.Len(t, run.Blocks, 1)
	assert.Nil(t, run.CompletedAt)

	stages[1].Failed = true
	run.ApplySnapshot(Snapshot{
		Stages:    stages,
		State:     RunStateFailed,
		LastError: NewStageError(StageOCR, errors.New("backend returned status 500: boom")),
	})

	assert.Equal(t, RunStateFailed, run.Status)
	assert.Empty(t, run.CurrentStage)
	assert.Equal(t, "stage ocr failed: backend returned status 500: boom", run.Error)
	assert.NotNil(t, run.CompletedAt)

	// Изменение исходного среза не влияет на запись
	stages[0].Completed = false
	assert.True(t, run.Stages[0].Completed)
}

func TestRun_MarkCancelled(t *testing.T) {
	run, err := NewRun("img-1", testLanguages, "")
	require.NoError(t, err)

	require.NoError(t, run.MarkCancelled())
	assert.Equal(t, RunStateFailed, run.Status)
	assert.Equal(t, ErrCancelled.Error(), run.Error)
	assert.NotNil(t, run.CompletedAt)

	assert.ErrorIs(t, run.MarkCancelled(), ErrInvalidState)
}

func TestRun_MarkCancelled_Running(t *testing.T) {
	run, err := NewRun("img-1", testLanguages, "")
	require.NoError(t, err)
	run.Status = RunStateRunning
	run.CurrentStage = StageOCR

	require.NoError(t, run.MarkCancelled())
	assert.Equal(t, RunStateFailed, run.Status)
	assert.Empty(t, run.CurrentStage)
	assert.True(t, run.CanRestart())
}

func TestRun_Restart(t *testing.T) {
	run, err := NewRun("img-1", testLanguages, "")
	require.NoError(t, err)

	assert.False(t, run.CanRestart())
	assert.ErrorIs(t, run.Restart(), ErrInvalidState)

	run.Stages[0].Completed = true
	run.Stages[1].Failed = true
	run.Blocks = []TextBlock{{ID: "b1"}}
	run.AttachResult("results/old.png")
	run.MarkFailed("stage ocr failed")

	require.True(t, run.CanRestart())
	require.NoError(t, run.Restart())

	assert.Equal(t, RunStateIdle, run.Status)
	assert.Equal(t, 2, run.Attempt)
	assert.Equal(t, DefaultStages(), run.Stages)
	assert.Nil(t, run.Blocks)
	assert.Empty(t, run.Error)
	assert.Empty(t, run.ResultKey)
	assert.Nil(t, run.CompletedAt)
	assert.Equal(t, "img-1", run.WorkItemID)
	assert.Equal(t, testLanguages, run.Languages)
}

func TestRun_Snapshot(t *testing.T) {
	run, err := NewRun("img-1", testLanguages, "")
	require.NoError(t, err)
	run.MarkFailed("stage detecting failed: timeout")

	snap := run.Snapshot()
	assert.Equal(t, RunStateFailed, snap.State)
	assert.Equal(t, "stage detecting failed: timeout", snap.ErrorMessage())
	assert.False(t, snap.IsRunning())
	assert.Nil(t, snap.Result)
}
