package domain

import (
	"fmt"
	"strings"
)

// LanguagePair пара языков перевода, неизменна в течение запуска
type LanguagePair struct {
	Source string `json:"source_language"`
	Target string `json:"target_language"`
}

// Validate проверяет, что оба языка заданы
func (p LanguagePair) Validate() error {
	if strings.TrimSpace(p.Source) == "" {
		return fmt.Errorf("%w: source language is empty", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Target) == "" {
		return fmt.Errorf("%w: target language is empty", ErrInvalidInput)
	}
	return nil
}

func (p LanguagePair) String() string {
	return p.Source + " -> " + p.Target
}

// SupportedLanguages языки, которые понимает сервис перевода
var SupportedLanguages = []string{
	"English",
	"Japanese",
	"Korean",
	"Chinese (Simplified)",
	"Chinese (Traditional)",
	"Vietnamese",
	"French",
	"German",
	"Spanish",
	"Italian",
	"Portuguese",
	"Russian",
	"Arabic",
	"Thai",
}

// IsSupportedLanguage проверяет язык без учёта регистра
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if strings.EqualFold(l, strings.TrimSpace(lang)) {
			return true
		}
	}
	return false
}

// TranslationRequest параметры этапа перевода
type TranslationRequest struct {
	Languages    LanguagePair
	ExtraContext string
	UseGPU       bool
}
