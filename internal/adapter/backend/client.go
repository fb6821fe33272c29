package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plastinin/comictranslate/internal/config"
	"github.com/plastinin/comictranslate/internal/domain"
	"go.uber.org/zap"
)

// Максимальный размер тела ответа с ошибкой, который попадает в сообщение
const maxErrorBody = 4 << 10

// Client клиент удалённого сервиса перевода комиксов
type Client struct {
	httpClient *http.Client
	baseURL    string
	healthURL  string
	logger     *zap.Logger
}

// NewClient создаёт новый экземпляр Client
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		healthURL: healthURL(cfg.URL, cfg.HealthPath),
		logger:    logger,
	}
}

// healthURL строит адрес health check от корня сервиса
func healthURL(baseURL, healthPath string) string {
	u, err := url.Parse(baseURL)
	if err != nil || healthPath == "" {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: healthPath}).String()
}

// CheckHealth проверяет доступность сервиса перевода
func (c *Client) CheckHealth(ctx context.Context) error {
	if c.healthURL == "" {
		return fmt.Errorf("health check is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend is not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health check returned status %d", resp.StatusCode)
	}

	return nil
}

// Upload загружает изображение и возвращает идентификатор рабочего элемента
func (c *Client) Upload(ctx context.Context, fileName, contentType string, data []byte, languages domain.LanguagePair) (string, error) {
	if err := domain.ValidateImage(contentType, int64(len(data))); err != nil {
		return "", err
	}
	if err := languages.Validate(); err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreatePart(filePartHeader(fileName, contentType))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := form.WriteField("source_language", languages.Source); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := form.WriteField("target_language", languages.Target); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/upload", form.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload processResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if payload.ImageID == "" {
		return "", fmt.Errorf("upload response has no image_id")
	}

	c.logger.Debug("Image uploaded",
		zap.String("work_item_id", payload.ImageID),
		zap.String("file_name", fileName),
		zap.Int("size", len(data)),
	)

	return payload.ImageID, nil
}

// DetectBlocks находит текстовые блоки
func (c *Client) DetectBlocks(ctx context.Context, workItemID string) (*domain.StageResult, error) {
	return c.postStage(ctx, domain.StageDetecting, "/detect-blocks/", workItemID, nil)
}

// RecognizeText распознаёт текст в найденных блоках
func (c *Client) RecognizeText(ctx context.Context, workItemID string) (*domain.StageResult, error) {
	return c.postStage(ctx, domain.StageOCR, "/ocr/", workItemID, nil)
}

// Translate переводит распознанный текст
func (c *Client) Translate(ctx context.Context, workItemID string, req domain.TranslationRequest) (*domain.StageResult, error) {
	return c.postStage(ctx, domain.StageTranslating, "/translate/", workItemID, newTranslationRequest(req))
}

// Inpaint стирает исходный текст с изображения
func (c *Client) Inpaint(ctx context.Context, workItemID string, req domain.TranslationRequest) (*domain.StageResult, error) {
	return c.postStage(ctx, domain.StageInpainting, "/inpaint/", workItemID, newTranslationRequest(req))
}

// Render рисует переведённый текст
func (c *Client) Render(ctx context.Context, workItemID string) (*domain.StageResult, error) {
	return c.postStage(ctx, domain.StageRendering, "/render/", workItemID, nil)
}

// FetchResult скачивает готовое изображение
func (c *Client) FetchResult(ctx context.Context, workItemID string) (*domain.ResultImage, error) {
	resp, err := c.do(ctx, http.MethodGet, "/result/"+url.PathEscape(workItemID), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("result image is empty")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("result is not an image: %s", contentType)
	}

	return &domain.ResultImage{ContentType: contentType, Data: data}, nil
}

// postStage вызывает этап и валидирует ответ
func (c *Client) postStage(ctx context.Context, stage domain.StageKey, path, workItemID string, body any) (*domain.StageResult, error) {
	// Пустой JSON объект, как ожидает сервис для этапов без параметров
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.do(ctx, http.MethodPost, path+url.PathEscape(workItemID), "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw processResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", stage, err)
	}

	result, err := raw.toStageResult(stage)
	if err != nil {
		return nil, fmt.Errorf("invalid %s response: %w", stage, err)
	}

	return result, nil
}

// do отправляет запрос и проверяет статус ответа
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to backend: %w", err)
	}

	c.logger.Debug("Backend request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("status_code", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, errorMessage(msg))
	}

	return resp, nil
}

// errorMessage достаёт текст ошибки из тела ответа
func errorMessage(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != nil {
			return fmt.Sprint(payload.Detail)
		}
	}
	return strings.TrimSpace(string(body))
}
