package usecase

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/plastinin/comictranslate/internal/domain"
)

// PipelineBackend удалённый сервис, выполняющий этапы над загруженным изображением
type PipelineBackend interface {
	DetectBlocks(ctx context.Context, workItemID string) (*domain.StageResult, error)
	RecognizeText(ctx context.Context, workItemID string) (*domain.StageResult, error)
	Translate(ctx context.Context, workItemID string, req domain.TranslationRequest) (*domain.StageResult, error)
	Inpaint(ctx context.Context, workItemID string, req domain.TranslationRequest) (*domain.StageResult, error)
	Render(ctx context.Context, workItemID string) (*domain.StageResult, error)
	FetchResult(ctx context.Context, workItemID string) (*domain.ResultImage, error)
}

// RunRepository интерфейс для работы с хранилищем запусков
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
	// UpdateIfStatus обновляет запись, только если в БД она всё ещё в статусе from,
	// иначе возвращает domain.ErrRunChanged
	UpdateIfStatus(ctx context.Context, run *domain.Run, from domain.RunState) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter domain.RunFilter, pagination domain.Pagination) (*domain.RunListResult, error)
}

// ResultStorage интерфейс для работы с хранилищем готовых изображений (S3)
type ResultStorage interface {
	Upload(ctx context.Context, fileName string, contentType string, reader io.Reader, size int64) (fileKey string, err error)
	Download(ctx context.Context, fileKey string) (body io.ReadCloser, contentType string, err error)
	Delete(ctx context.Context, fileKey string) error
	GetURL(ctx context.Context, fileKey string) (string, error)
}

// RunQueue интерфейс для работы с очередью запусков.
// Каждая попытка запуска является отдельной задачей в очереди.
type RunQueue interface {
	Enqueue(ctx context.Context, runID uuid.UUID, attempt int) error
	// Dequeue возвращает true, только если задача реально удалена из очереди
	Dequeue(ctx context.Context, runID uuid.UUID, attempt int) (bool, error)
	// TaskActive сообщает, выполняет ли сейчас какой-либо воркер эту попытку
	TaskActive(ctx context.Context, runID uuid.UUID, attempt int) (bool, error)
	CancelProcessing(ctx context.Context, runID uuid.UUID, attempt int) error
}
