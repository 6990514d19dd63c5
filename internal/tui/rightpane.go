package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RightPaneMsg represents messages that the right pane component handles
type RightPaneMsg interface {
	isRightPaneMsg()
}

// Right pane message implementations
type ScrollUpMsg struct{}

func (ScrollUpMsg) isRightPaneMsg() {}

type ScrollDownMsg struct {
	MaxScroll int
}

func (ScrollDownMsg) isRightPaneMsg() {}

type ScrollToTopMsg struct{}

func (ScrollToTopMsg) isRightPaneMsg() {}

type ScrollToBottomMsg struct {
	MaxScroll int
}

func (ScrollToBottomMsg) isRightPaneMsg() {}

type PageUpMsg struct{}

func (PageUpMsg) isRightPaneMsg() {}

type PageDownMsg struct {
	MaxScroll int
}

func (PageDownMsg) isRightPaneMsg() {}

type JumpMsg struct {
	Direction string // "j" for down, "k" for up
	Lines     int
	MaxScroll int
}

func (JumpMsg) isRightPaneMsg() {}

type ResizeRightPaneMsg struct {
	Width  int
	Height int
}

func (ResizeRightPaneMsg) isRightPaneMsg() {}

type UpdateContentMsg struct {
	// Content will be passed to view functions, not stored in model
}

func (UpdateContentMsg) isRightPaneMsg() {}

// RightPaneModel holds the state for the right pane (content viewer)
type RightPaneModel struct {
	Width   int // Pane width
	Height  int // Pane height
	ViewPos int // Current view position (line number)
}

// NewRightPaneModel creates a new right pane model with default values
func NewRightPaneModel(width, height int) RightPaneModel {
	return RightPaneModel{
		Width:   width,
		Height:  height,
		ViewPos: 0,
	}
}

// RightPaneModel implements the Model interface for the right pane
func (r *RightPaneModel) Update(msg RightPaneMsg) error {
	switch m := msg.(type) {
	case ScrollUpMsg:
		if r.ViewPos > 0 {
			r.ViewPos--
		}
	case ScrollDownMsg:
		if r.ViewPos < m.MaxScroll {
			r.ViewPos++
		}
	case ScrollToTopMsg:
		r.ViewPos = 0
	case ScrollToBottomMsg:
		r.ViewPos = m.MaxScroll
	case PageUpMsg:
		// Page up (half page)
		pageSize := (r.Height - 6) / 2
		r.ViewPos = max(r.ViewPos-pageSize, 0)
	case PageDownMsg:
		// Page down (half page)
		pageSize := (r.Height - 6) / 2
		r.ViewPos = min(r.ViewPos+pageSize, m.MaxScroll)
	case JumpMsg:
		switch m.Direction {
		case "j": // down
			r.ViewPos = min(r.ViewPos+m.Lines, m.MaxScroll)
		case "k": // up
			r.ViewPos = max(r.ViewPos-m.Lines, 0)
		}
	case ResizeRightPaneMsg:
		r.Width = m.Width
		r.Height = m.Height
	case UpdateContentMsg:
		r.ViewPos = 0 // Reset view position when content changes
	}
	return nil
}

// RightPaneView renders the right pane as a pure function
func RightPaneView(model RightPaneModel, item *Item, focused bool, selectedIndex int) (string, error) {
	borderColor := "62"
	if focused {
		borderColor = "205" // Highlight focused pane
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(model.Width - 2).
		Height(model.Height - 4)

	var contentBuilder strings.Builder

	if item == nil {
		contentBuilder.WriteString(lipgloss.NewStyle().Bold(true).Render("Record") + "\n\n")
		contentBuilder.WriteString("No record selected")
	} else {
		title := fmt.Sprintf("Record [%d]", selectedIndex)
		if item.Favorite {
			title += " ★"
		}
		if focused {
			title = "● " + title // Active indicator
		}

		maxTitleWidth := model.Width - 24 // borders, padding and the "Record [N]" text
		if maxTitleWidth > 3 {
			title += ": " + item.Preview(maxTitleWidth)
		}

		availableHeight := model.Height - 6 // Account for borders and headers

		// Wrapping is cached per width
		item.UpdateWrappedLines(max(model.Width-6, 1))

		maxScroll := getMaxScroll(model, item)
		if len(item.Lines) > 0 && maxScroll > 0 {
			totalLines := len(item.Lines)
			topLine := model.ViewPos + 1
			bottomLine := min(model.ViewPos+availableHeight, totalLines)
			title += fmt.Sprintf(" (%d-%d/%d)", topLine, bottomLine, totalLines)
		}
		contentBuilder.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

		startLine := min(model.ViewPos, len(item.Lines))
		endLine := min(startLine+availableHeight, len(item.Lines))
		for _, line := range item.Lines[startLine:endLine] {
			contentBuilder.WriteString(line + "\n")
		}
	}

	contentStr := strings.TrimSuffix(contentBuilder.String(), "\n")
	return style.Render(contentStr), nil
}

// getMaxScroll returns the maximum scroll position (pure function)
func getMaxScroll(model RightPaneModel, item *Item) int {
	if item == nil {
		return 0
	}
	item.UpdateWrappedLines(max(model.Width-6, 1))
	availableHeight := model.Height - 6 // Account for borders and headers
	if len(item.Lines) <= availableHeight {
		return 0
	}
	return len(item.Lines) - availableHeight
}
