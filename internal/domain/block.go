package domain

// BoundingBox координаты блока в формате x1, y1, x2, y2
type BoundingBox [4]float64

// TextBlock текстовый блок (облачко) на изображении
type TextBlock struct {
	ID          string      `json:"id"`
	XYXY        BoundingBox `json:"xyxy"`
	Angle       float64     `json:"angle"`
	Text        string      `json:"text,omitempty"`
	Translation string      `json:"translation,omitempty"`
}

// StageResult провалидированный ответ одного этапа.
// HasBlocks == false означает, что ответ не содержал списка блоков.
type StageResult struct {
	Stage     StageKey
	Status    string
	Blocks    []TextBlock
	HasBlocks bool
}

// ResultImage готовое отрендеренное изображение
type ResultImage struct {
	ContentType string
	Data        []byte
}

// Clone возвращает независимую копию
func (r *ResultImage) Clone() *ResultImage {
	if r == nil {
		return nil
	}
	data := make([]byte, len(r.Data))
	copy(data, r.Data)
	return &ResultImage{ContentType: r.ContentType, Data: data}
}

// CloneBlocks копирует список блоков
func CloneBlocks(blocks []TextBlock) []TextBlock {
	if blocks == nil {
		return nil
	}
	out := make([]TextBlock, len(blocks))
	copy(out, blocks)
	return out
}

// MergeBlocks накладывает свежий список блоков на предыдущий.
// Порядок и геометрия берутся из next; текст и перевод, которых нет в next,
// сохраняются из блока prev с тем же ID.
func MergeBlocks(prev, next []TextBlock) []TextBlock {
	known := make(map[string]TextBlock, len(prev))
	for _, b := range prev {
		known[b.ID] = b
	}

	merged := make([]TextBlock, len(next))
	for i, b := range next {
		if old, ok := known[b.ID]; ok {
			if b.Text == "" {
				b.Text = old.Text
			}
			if b.Translation == "" {
				b.Translation = old.Translation
			}
		}
		merged[i] = b
	}
	return merged
}
