package backend

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/plastinin/comictranslate/internal/domain"
)

// translationRequest тело запроса этапов перевода и inpaint
type translationRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	ExtraContext   string `json:"extra_context"`
	UseGPU         bool   `json:"use_gpu"`
}

func newTranslationRequest(req domain.TranslationRequest) translationRequest {
	return translationRequest{
		SourceLanguage: req.Languages.Source,
		TargetLanguage: req.Languages.Target,
		ExtraContext:   req.ExtraContext,
		UseGPU:         req.UseGPU,
	}
}

// processResponse ответ этапа. Blocks == nil, если ключа blocks нет в ответе.
type processResponse struct {
	ImageID string      `json:"image_id"`
	Blocks  *[]blockDTO `json:"blocks"`
	Status  string      `json:"status"`
}

type blockDTO struct {
	ID          string    `json:"id"`
	XYXY        []float64 `json:"xyxy"`
	Text        *string   `json:"text"`
	Translation *string   `json:"translation"`
	Angle       float64   `json:"angle"`
}

// toStageResult валидирует ответ и превращает его в доменный результат этапа
func (r processResponse) toStageResult(stage domain.StageKey) (*domain.StageResult, error) {
	result := &domain.StageResult{
		Stage:  stage,
		Status: r.Status,
	}

	// Ответ без списка блоков не ошибка, а отсутствие обновления
	if r.Blocks == nil {
		return result, nil
	}

	seen := make(map[string]struct{}, len(*r.Blocks))
	blocks := make([]domain.TextBlock, 0, len(*r.Blocks))
	for i, b := range *r.Blocks {
		block, err := b.toDomain()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if _, dup := seen[block.ID]; dup {
			return nil, fmt.Errorf("block %d: duplicate id %q", i, block.ID)
		}
		seen[block.ID] = struct{}{}
		blocks = append(blocks, block)
	}

	result.Blocks = blocks
	result.HasBlocks = true
	return result, nil
}

func (b blockDTO) toDomain() (domain.TextBlock, error) {
	if strings.TrimSpace(b.ID) == "" {
		return domain.TextBlock{}, errors.New("empty id")
	}
	if len(b.XYXY) != 4 {
		return domain.TextBlock{}, fmt.Errorf("bounding box must have 4 numbers, got %d", len(b.XYXY))
	}

	block := domain.TextBlock{
		ID:    b.ID,
		Angle: b.Angle,
	}
	copy(block.XYXY[:], b.XYXY)
	if b.Text != nil {
		block.Text = *b.Text
	}
	if b.Translation != nil {
		block.Translation = *b.Translation
	}

	return block, nil
}

// filePartHeader заголовок multipart части с файлом и его MIME типом
func filePartHeader(fileName, contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
