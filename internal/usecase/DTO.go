package usecase

import (
	"io"

	"github.com/google/uuid"
	"github.com/plastinin/comictranslate/internal/domain"
)

// CreateRunInput входные данные для создания запуска
type CreateRunInput struct {
	WorkItemID   string              // Идентификатор загруженного изображения
	Languages    domain.LanguagePair // Пара языков
	ExtraContext string              // Свободный контекст для переводчика
}

// ProcessRunInput входные данные для обработки запуска воркером
type ProcessRunInput struct {
	RunID   uuid.UUID
	Attempt int
}

// ResultFile готовое изображение для отдачи клиенту
type ResultFile struct {
	FileName    string
	ContentType string
	Body        io.ReadCloser
}
