package dto

import (
	"time"

	"github.com/plastinin/comictranslate/internal/domain"
)

// CreateRunRequest запрос на создание запуска для уже загруженного изображения
type CreateRunRequest struct {
	WorkItemID     string `json:"work_item_id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	ExtraContext   string `json:"extra_context"`
}

// ProgressResponse прогресс запуска
type ProgressResponse struct {
	Percentage       float64 `json:"percentage"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	EstimatedText    string  `json:"estimated_text"`
}

// RunResponse ответ с информацией о запуске
type RunResponse struct {
	ID             string             `json:"id"`
	WorkItemID     string             `json:"work_item_id"`
	SourceLanguage string             `json:"source_language"`
	TargetLanguage string             `json:"target_language"`
	ExtraContext   string             `json:"extra_context,omitempty"`
	Status         string             `json:"status"`
	CurrentStage   string             `json:"current_stage,omitempty"`
	Stages         []domain.Stage     `json:"stages"`
	Blocks         []domain.TextBlock `json:"blocks,omitempty"`
	Progress       ProgressResponse   `json:"progress"`
	Error          string             `json:"error,omitempty"`
	HasResult      bool               `json:"has_result"`
	Attempt        int                `json:"attempt"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

// RunFromDomain конвертирует доменную модель в DTO
func RunFromDomain(run *domain.Run) *RunResponse {
	snap := run.Snapshot()
	eta := snap.EstimatedTimeRemaining()

	return &RunResponse{
		ID:             run.ID.String(),
		WorkItemID:     run.WorkItemID,
		SourceLanguage: run.Languages.Source,
		TargetLanguage: run.Languages.Target,
		ExtraContext:   run.ExtraContext,
		Status:         run.Status.String(),
		CurrentStage:   run.CurrentStage.String(),
		Stages:         snap.Stages,
		Blocks:         snap.Blocks,
		Progress: ProgressResponse{
			Percentage:       snap.Percentage(),
			EstimatedMinutes: eta.Minutes(),
			EstimatedText:    eta.String(),
		},
		Error:       run.Error,
		HasResult:   run.Status == domain.RunStateCompleted && run.ResultKey != "",
		Attempt:     run.Attempt,
		CreatedAt:   run.CreatedAt,
		UpdatedAt:   run.UpdatedAt,
		CompletedAt: run.CompletedAt,
	}
}

// RunListResponse ответ со списком запусков
type RunListResponse struct {
	Runs       []*RunResponse `json:"runs"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// RunListFromDomain конвертирует результат списка в DTO
func RunListFromDomain(result *domain.RunListResult) *RunListResponse {
	runs := make([]*RunResponse, len(result.Runs))
	for i, run := range result.Runs {
		runs[i] = RunFromDomain(run)
	}

	return &RunListResponse{
		Runs:       runs,
		Total:      result.Total,
		Page:       result.Pagination.Page,
		PageSize:   result.Pagination.PageSize,
		TotalPages: result.Pagination.TotalPages(result.Total),
	}
}

// ResultURLResponse ссылка на готовое изображение
type ResultURLResponse struct {
	URL string `json:"url"`
}

// LanguagesResponse список поддерживаемых языков
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}
