package domain

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxImageSize максимальный размер загружаемого изображения
const MaxImageSize = 10 << 20 // 10 MB

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file size must be less than 10MB")
)

// MIME типы, которые принимает сервис перевода
var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

// Маппинг расширений на MIME типы
var extToContentType = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

var contentTypeToExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
}

func normalizeContentType(contentType string) string {
	ct := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(ct))
}

// ValidateImage проверяет тип и размер изображения перед загрузкой
func ValidateImage(contentType string, size int64) error {
	if !supportedImageTypes[normalizeContentType(contentType)] {
		return ErrUnsupportedFileType
	}
	if size > MaxImageSize {
		return ErrFileTooLarge
	}
	return nil
}

// ContentTypeFromFileName определяет MIME тип по имени файла
func ContentTypeFromFileName(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	ct, ok := extToContentType[ext]
	if !ok {
		return "", ErrUnsupportedFileType
	}
	return ct, nil
}

// ExtensionForContentType расширение файла для MIME типа, по умолчанию .jpg
func ExtensionForContentType(contentType string) string {
	if ext, ok := contentTypeToExt[normalizeContentType(contentType)]; ok {
		return ext
	}
	return ".jpg"
}

// IsPDF проверяет, является ли файл PDF
func IsPDF(contentType string) bool {
	return normalizeContentType(contentType) == "application/pdf"
}
