package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/plastinin/comictranslate/internal/adapter/http/dto"
	"github.com/plastinin/comictranslate/internal/domain"
	"github.com/plastinin/comictranslate/internal/usecase"
	"go.uber.org/zap"
)

const (
	maxRequestSize = 1 << 20 // 1 MB
)

// RunService операции над запусками, которые нужны обработчику
type RunService interface {
	Create(ctx context.Context, input usecase.CreateRunInput) (*domain.Run, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter domain.RunFilter, pagination domain.Pagination) (*domain.RunListResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Restart(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ResultURL(ctx context.Context, id uuid.UUID) (string, error)
	OpenResult(ctx context.Context, id uuid.UUID) (*usecase.ResultFile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunHandler обработчик HTTP запросов для запусков
type RunHandler struct {
	runUC  RunService
	logger *zap.Logger
}

// NewRunHandler создаёт новый RunHandler
func NewRunHandler(runUC RunService, logger *zap.Logger) *RunHandler {
	return &RunHandler{
		runUC:  runUC,
		logger: logger,
	}
}

// Create создаёт новый запуск
// POST /api/v1/runs
// Content-Type: application/json
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	var req dto.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode request", zap.Error(err))
		h.respondError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object")
		return
	}

	input := usecase.CreateRunInput{
		WorkItemID: req.WorkItemID,
		Languages: domain.LanguagePair{
			Source: req.SourceLanguage,
			Target: req.TargetLanguage,
		},
		ExtraContext: req.ExtraContext,
	}

	run, err := h.runUC.Create(r.Context(), input)
	if err != nil {
		h.handleError(w, r, err, "Failed to create run")
		return
	}

	h.respondJSON(w, http.StatusCreated, dto.RunFromDomain(run))
}

// GetByID возвращает запуск с прогрессом
// GET /api/v1/runs/{id}
func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	run, err := h.runUC.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to get run", zap.String("run_id", id.String()))
		return
	}

	h.respondJSON(w, http.StatusOK, dto.RunFromDomain(run))
}

// List возвращает список запусков
// GET /api/v1/runs?page=1&page_size=20&status=running&work_item_id=abc
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	// Парсим параметры пагинации
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	pagination := domain.NewPagination(page, pageSize)

	// Парсим фильтры
	filter := domain.RunFilter{
		WorkItemID: r.URL.Query().Get("work_item_id"),
	}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := domain.RunState(statusStr)
		if !status.IsValid() {
			h.respondError(w, r, http.StatusBadRequest, "invalid_status", "Unknown run status")
			return
		}
		filter.Status = &status
	}

	result, err := h.runUC.List(r.Context(), filter, pagination)
	if err != nil {
		h.handleError(w, r, err, "Failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, dto.RunListFromDomain(result))
}

// Cancel отменяет запуск
// POST /api/v1/runs/{id}/cancel
func (h *RunHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	run, err := h.runUC.Cancel(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to cancel run", zap.String("run_id", id.String()))
		return
	}

	h.respondJSON(w, http.StatusAccepted, dto.RunFromDomain(run))
}

// Restart перезапускает завершённый запуск
// POST /api/v1/runs/{id}/restart
func (h *RunHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	run, err := h.runUC.Restart(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to restart run", zap.String("run_id", id.String()))
		return
	}

	h.respondJSON(w, http.StatusAccepted, dto.RunFromDomain(run))
}

// Result возвращает ссылку на готовое изображение или само изображение
// GET /api/v1/runs/{id}/result
// GET /api/v1/runs/{id}/result?download=true
func (h *RunHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		h.streamResult(w, r, id)
		return
	}

	url, err := h.runUC.ResultURL(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to get result URL", zap.String("run_id", id.String()))
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ResultURLResponse{URL: url})
}

func (h *RunHandler) streamResult(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	file, err := h.runUC.OpenResult(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to open result", zap.String("run_id", id.String()))
		return
	}
	defer file.Body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file.Body); err != nil {
		h.logger.Warn("Failed to stream result", zap.String("run_id", id.String()), zap.Error(err))
	}
}

// Delete удаляет запуск
// DELETE /api/v1/runs/{id}
func (h *RunHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.runUC.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err, "Failed to delete run", zap.String("run_id", id.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Languages возвращает поддерживаемые языки
// GET /api/v1/languages
func (h *RunHandler) Languages(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.LanguagesResponse{Languages: domain.SupportedLanguages})
}

// parseID читает ID запуска из пути; при ошибке ответ уже отправлен
func (h *RunHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid_id", "Invalid run ID format")
		return uuid.Nil, false
	}
	return id, true
}

// handleError сопоставляет доменные ошибки со статусами HTTP
func (h *RunHandler) handleError(w http.ResponseWriter, r *http.Request, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		h.respondError(w, r, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrRunNotFound):
		h.respondError(w, r, http.StatusNotFound, "not_found", "Run not found")
	case errors.Is(err, domain.ErrResultNotReady):
		h.respondError(w, r, http.StatusConflict, "result_not_ready", err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyRunning):
		h.respondError(w, r, http.StatusConflict, "invalid_state", err.Error())
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		h.respondError(w, r, http.StatusInternalServerError, "internal_error", msg)
	}
}

// respondJSON отправляет JSON ответ
func (h *RunHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError отправляет ответ с ошибкой
func (h *RunHandler) respondError(w http.ResponseWriter, r *http.Request, status int, errCode string, message string) {
	h.respondJSON(w, status, dto.NewErrorResponse(errCode, message, middleware.GetReqID(r.Context())))
}
