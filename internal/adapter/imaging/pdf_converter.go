package imaging

import (
	"bytes"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/plastinin/comictranslate/internal/domain"
)

// PDFConverter рендерит страницы PDF в PNG
type PDFConverter struct{}

// NewPDFConverter создаёт новый конвертер
func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

// ConvertPage конвертирует страницу PDF (с нуля) в PNG
func (c *PDFConverter) ConvertPage(pdfData []byte, page int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range, document has %d pages", page+1, doc.NumPage())
	}

	img, err := doc.Image(page)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// Prepare приводит входной файл к изображению, которое примет сервис перевода.
// Для PDF рендерится выбранная страница, остальные файлы возвращаются как есть.
func (c *PDFConverter) Prepare(fileName, contentType string, data []byte, page int) (string, string, []byte, error) {
	if !domain.IsPDF(contentType) {
		return fileName, contentType, data, nil
	}

	pngData, err := c.ConvertPage(data, page)
	if err != nil {
		return "", "", nil, err
	}

	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	return fmt.Sprintf("%s_p%d.png", base, page+1), "image/png", pngData, nil
}
