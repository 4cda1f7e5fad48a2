package ui

import "fmt"

// Unicode symbols for status indicators
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
)

func Success(msg string) string { return SymbolSuccess + " " + msg }
func Error(msg string) string   { return SymbolError + " " + msg }
func Warning(msg string) string { return SymbolWarning + " " + msg }
func Info(msg string) string    { return SymbolInfo + " " + msg }

func Successf(format string, args ...any) string { return Success(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) string   { return Error(fmt.Sprintf(format, args...)) }
func Warningf(format string, args ...any) string { return Warning(fmt.Sprintf(format, args...)) }

// Header returns a styled section header
func Header(msg string) string {
	return Bold.Render(msg)
}

// FilePath returns a styled file path
func FilePath(path string) string {
	return Bold.Render(path)
}

// AttrName returns an accent-styled attribute name
func AttrName(name string) string {
	return Accent.Render(name)
}

// Hint returns muted hint text
func Hint(msg string) string {
	return Muted.Render(msg)
}

// Count returns a count badge, e.g. "(3 files)".
func Count(n int, singular string) string {
	return fmt.Sprintf("(%d %s)", n, pluralize(singular, n))
}

// pluralize returns singular or plural form based on count
func pluralize(singular string, count int) string {
	if count == 1 {
		return singular
	}
	return singular + "s"
}
