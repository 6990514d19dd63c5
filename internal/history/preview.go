package history

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Title returns a one-line label for r: its name when set, otherwise the
// first non-empty line of its prompt.
func Title(r Record, maxLen int) string {
	if name := SanitizeTitle(r.Name); name != "" {
		return TruncateTitle(name, maxLen)
	}
	return TruncateTitle(GenerateTitle(PromptText(r.Prompt)), maxLen)
}

// PromptText renders an opaque prompt value as text. Strings are returned
// as is; other values are rendered as compact JSON.
func PromptText(prompt any) string {
	switch p := prompt.(type) {
	case nil:
		return ""
	case string:
		return p
	}
	data, err := json.Marshal(prompt)
	if err != nil {
		return ""
	}
	return string(data)
}

// GenerateTitle creates a title from prompt text, using the first
// non-empty line.
func GenerateTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if cleaned := SanitizeTitle(line); cleaned != "" {
			return cleaned
		}
	}
	return "[empty]"
}

// TruncateTitle ensures title is at most maxLen runes.
// If truncation is needed, appends "..." to indicate truncation.
func TruncateTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}

	// Reserve 3 characters for "..."
	if maxLen < 3 {
		return strings.Repeat(".", maxLen)
	}

	return string(runes[:maxLen-3]) + "..."
}

// SanitizeTitle removes control characters and collapses whitespace.
// This ensures titles are safe for display in terminals.
func SanitizeTitle(title string) string {
	title = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, title)
	return strings.Join(strings.Fields(title), " ")
}
