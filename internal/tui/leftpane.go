package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Rows taken by the border, the title and the blank line under it.
const leftPaneChrome = 6

// LeftPaneModel is the record list: the selected row and the window of rows
// on screen. Offset only moves when the selection would leave the window.
type LeftPaneModel struct {
	Selected int // index into the shown records
	Offset   int // first row on screen
	Width    int
	Height   int
}

// NewLeftPaneModel creates a list pane of the given size.
func NewLeftPaneModel(width, height int) LeftPaneModel {
	return LeftPaneModel{Width: width, Height: height}
}

// Rows returns how many records fit on screen.
func (l LeftPaneModel) Rows() int {
	return max(l.Height-leftPaneChrome, 1)
}

// Select moves the selection to index, clamped to a list of n records.
func (l *LeftPaneModel) Select(index, n int) {
	l.Selected = max(min(index, n-1), 0)
	l.follow(n)
}

// Move moves the selection by delta rows.
func (l *LeftPaneModel) Move(delta, n int) {
	l.Select(l.Selected+delta, n)
}

// Resize sets the pane size and keeps the selection on screen.
func (l *LeftPaneModel) Resize(width, height, n int) {
	l.Width = width
	l.Height = height
	l.follow(n)
}

// follow scrolls the window just enough to show the selection.
func (l *LeftPaneModel) follow(n int) {
	rows := l.Rows()
	switch {
	case l.Selected < l.Offset:
		l.Offset = l.Selected
	case l.Selected >= l.Offset+rows:
		l.Offset = l.Selected - rows + 1
	}
	// Shrinking lists and growing panes leave no blank rows at the end.
	l.Offset = max(min(l.Offset, n-rows), 0)
}

// LeftPaneView renders the list titled title. Favorites carry a star.
func LeftPaneView(model LeftPaneModel, items []*Item, title string, focused bool) (string, error) {
	borderColor := "62"
	if focused {
		borderColor = "205"
		title = "● " + title
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(model.Width).
		Height(model.Height - 4)

	var content strings.Builder
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

	if len(items) == 0 {
		content.WriteString("(empty)")
		return style.Render(content.String()), nil
	}

	textWidth := model.Width - 4
	selected := lipgloss.NewStyle().
		Background(lipgloss.Color("62")).
		Foreground(lipgloss.Color("230")).
		Width(textWidth)

	end := min(model.Offset+model.Rows(), len(items))
	for i := model.Offset; i < end; i++ {
		marker := " "
		if items[i].Favorite {
			marker = "★"
		}
		prefix := fmt.Sprintf("%s%d. ", marker, i)
		line := prefix + items[i].Preview(max(textWidth-lipgloss.Width(prefix), 4))
		if i == model.Selected {
			line = selected.Render(line)
		}
		content.WriteString(line + "\n")
	}

	return style.Render(content.String()), nil
}
