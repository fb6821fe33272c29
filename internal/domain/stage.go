package domain

// StageKey стабильный идентификатор этапа пайплайна
type StageKey string

const (
	StageDetecting   StageKey = "detecting"
	StageOCR         StageKey = "ocr"
	StageTranslating StageKey = "translating"
	StageInpainting  StageKey = "inpainting"
	StageRendering   StageKey = "rendering"
	// Синтетический финальный этап: получение готового изображения
	StageCompleted StageKey = "completed"
)

func (k StageKey) String() string {
	return string(k)
}

// Stage одна единица удалённой работы
type Stage struct {
	Key       StageKey `json:"key"`
	Label     string   `json:"label"`
	Icon      string   `json:"icon"`
	Completed bool     `json:"completed"`
	Failed    bool     `json:"failed"`
}

// InFlight true, если этап ещё не завершился ни успехом, ни ошибкой
func (s Stage) InFlight() bool {
	return !s.Completed && !s.Failed
}

// DefaultStages возвращает новый список этапов в порядке выполнения
func DefaultStages() []Stage {
	return []Stage{
		{Key: StageDetecting, Label: "Detecting Text Blocks", Icon: "🔍"},
		{Key: StageOCR, Label: "Reading Text", Icon: "📖"},
		{Key: StageTranslating, Label: "Translating", Icon: "🌐"},
		{Key: StageInpainting, Label: "Removing Original Text", Icon: "🎨"},
		{Key: StageRendering, Label: "Adding Translated Text", Icon: "✨"},
		{Key: StageCompleted, Label: "Completed!", Icon: "🎉"},
	}
}

// CloneStages копирует список этапов
func CloneStages(stages []Stage) []Stage {
	if stages == nil {
		return nil
	}
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}
