// Package ui вывод CLI: сообщения и прогресс запуска.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr

	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.Bold)
)

// Init настраивает цветной вывод
func Init(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

// Message выводит строку без оформления
func Message(format string, args ...any) {
	fmt.Fprintf(out, format+"\n", args...)
}

// Success выводит сообщение об успехе
func Success(format string, args ...any) {
	successColor.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error выводит сообщение об ошибке в stderr
func Error(format string, args ...any) {
	errorColor.Fprintf(errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning выводит предупреждение
func Warning(format string, args ...any) {
	warnColor.Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info выводит информационное сообщение
func Info(format string, args ...any) {
	infoColor.Fprintf(out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Section выводит заголовок раздела
func Section(title string) {
	headerColor.Fprintf(out, "\n%s\n", title)
	fmt.Fprintf(out, "%s\n\n", strings.Repeat("=", len([]rune(title))))
}
