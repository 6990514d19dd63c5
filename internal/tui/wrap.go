package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// WrapText wraps text to fit within a given display width, breaking on word
// boundaries when possible. Wide runes such as CJK count as two columns.
// Height truncation is handled by the caller during rendering, not here.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{}
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= maxWidth {
			result = append(result, line)
			continue
		}
		result = append(result, wrapLine(line, maxWidth)...)
	}

	return result
}

// wrapLine wraps a single line that is too long, breaking on word boundaries when possible
func wrapLine(line string, maxWidth int) []string {
	var result []string
	var currentLine strings.Builder
	currentWidth := 0

	flush := func() {
		if currentWidth > 0 {
			result = append(result, currentLine.String())
			currentLine.Reset()
			currentWidth = 0
		}
	}

	for _, word := range splitWords(line) {
		wordWidth := runewidth.StringWidth(word)

		// Words wider than a line are broken at rune boundaries
		if wordWidth > maxWidth {
			flush()
			result = append(result, breakWord(word, maxWidth)...)
			continue
		}

		spaceNeeded := wordWidth
		if currentWidth > 0 {
			spaceNeeded++ // for the space before the word
		}

		if currentWidth+spaceNeeded > maxWidth {
			flush()
		}
		if currentWidth > 0 {
			currentLine.WriteString(" ")
			currentWidth++
		}
		currentLine.WriteString(word)
		currentWidth += wordWidth
	}

	flush()
	return result
}

// breakWord splits word into chunks of at most maxWidth columns.
func breakWord(word string, maxWidth int) []string {
	var chunks []string
	var chunk strings.Builder
	width := 0
	for _, r := range word {
		w := runewidth.RuneWidth(r)
		if width+w > maxWidth && width > 0 {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			width = 0
		}
		chunk.WriteRune(r)
		width += w
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}

// splitWords splits text into words on whitespace
func splitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}
