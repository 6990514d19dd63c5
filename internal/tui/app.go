// Package tui implements an interactive browser over the history and
// favorites of a scope.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yiblet/promptkeep/internal/clipboard"
	"github.com/yiblet/promptkeep/internal/history"
)

// PaneType represents which pane is focused
type PaneType int

const (
	LeftPane PaneType = iota
	RightPane
)

// UIMode represents the current modal state of the application
type UIMode int

const (
	NormalMode UIMode = iota
	FilterMode
	HelpMode
	NumberInputMode
	DeleteMode
)

// ListView selects which list of the current type is browsed.
type ListView int

const (
	HistoryView ListView = iota
	FavoriteView
)

func (v ListView) String() string {
	if v == FavoriteView {
		return "favorites"
	}
	return "history"
}

// Library is the part of history.Manager the browser uses.
type Library interface {
	Histories(typ string) ([]history.Entry, error)
	Favorites(typ string) ([]history.Record, error)
	DoFavorite(typ, id string) (bool, error)
	Unfavorite(typ, id string) (bool, error)
	RemoveHistory(typ, id string) (bool, error)
	MoveUpFavorite(typ, id string) (bool, error)
	MoveDownFavorite(typ, id string) (bool, error)
}

var _ Library = (*history.Manager)(nil)

type flashExpiredMsg struct{}

const flashDuration = 2 * time.Second

// AppModel orchestrates all sub-models
type AppModel struct {
	Width       int      // Window width
	Height      int      // Window height
	LeftWidth   int      // Left pane width
	RightWidth  int      // Right pane width
	ActivePane  PaneType // Currently focused pane
	CurrentMode UIMode   // Current modal state

	// Sub-models
	LeftPane  LeftPaneModel
	RightPane RightPaneModel
	Filter    FilterModel
	Confirm   ConfirmModel

	Library   Library
	Clipboard clipboard.Clipboard
	Types     []string // browsable types, cycled with t and T
	TypeIndex int
	List      ListView

	all   []*Item // every record of the current list
	Items []*Item // records shown, after the filter

	// Number input mode for multi-digit commands like "10j"
	NumberBuffer string   // Accumulates digits
	BufferPane   PaneType // Which pane the buffer applies to

	// Flash message for temporary notifications
	FlashMessage string    // The message to display
	FlashError   bool      // Render the message as an error
	FlashExpiry  time.Time // When the message should disappear
}

// NewAppModel creates a browser over lib and loads the first type's
// history. cb may be nil, in which case copying reports an error.
func NewAppModel(lib Library, cb clipboard.Clipboard, types []string) (*AppModel, error) {
	if len(types) == 0 {
		types = history.KnownTypes
	}

	// Default dimensions that will be properly set on first resize
	defaultWidth := 120
	defaultHeight := 20
	defaultLeftWidth := 30
	defaultRightWidth := 88

	a := &AppModel{
		Width:       defaultWidth,
		Height:      defaultHeight,
		LeftWidth:   defaultLeftWidth,
		RightWidth:  defaultRightWidth,
		ActivePane:  LeftPane,
		CurrentMode: NormalMode,
		LeftPane:    NewLeftPaneModel(defaultLeftWidth, defaultHeight),
		RightPane:   NewRightPaneModel(defaultRightWidth, defaultHeight),
		Filter:      NewFilterModel(),
		Library:     lib,
		Clipboard:   cb,
		Types:       types,
	}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Type returns the type being browsed.
func (a *AppModel) Type() string {
	return a.Types[a.TypeIndex]
}

// Selected returns the selected item, or nil when the list is empty.
func (a *AppModel) Selected() *Item {
	if a.LeftPane.Selected < len(a.Items) {
		return a.Items[a.LeftPane.Selected]
	}
	return nil
}

// Reload reads the current list from the library, keeping the cursor on
// the same record when it still exists.
func (a *AppModel) Reload() error {
	keep := a.selectedID()

	switch a.List {
	case FavoriteView:
		records, err := a.Library.Favorites(a.Type())
		if err != nil {
			return err
		}
		a.all = ItemsFromFavorites(records)
	default:
		entries, err := a.Library.Histories(a.Type())
		if err != nil {
			return err
		}
		a.all = ItemsFromEntries(entries)
	}
	a.refilter(keep)
	return nil
}

// refilter applies the filter and moves the cursor onto id, or clamps it
// when id is no longer shown.
func (a *AppModel) refilter(id string) {
	a.Items = a.Filter.Apply(a.all)

	index := a.LeftPane.Selected
	for i, item := range a.Items {
		if id != "" && item.Record.ID == id {
			index = i
			break
		}
	}
	a.LeftPane.Select(index, len(a.Items))
	a.RightPane.Update(UpdateContentMsg{})
}

// Update handles app-level messages and routes to appropriate sub-models
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleWindowResize(m)
	case tea.KeyMsg:
		return a.handleKeyPress(m)
	case flashExpiredMsg:
		// a newer message may have replaced the one that expired
		if !time.Now().Before(a.FlashExpiry) {
			a.FlashMessage = ""
			a.FlashError = false
			a.FlashExpiry = time.Time{}
		}
		return a, nil
	}

	return a, nil
}

// handleWindowResize processes window resize events
func (a *AppModel) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.Width = msg.Width
	a.Height = msg.Height

	// Ensure minimum total width of 30 characters
	minTotalWidth := 30
	if msg.Width < minTotalWidth {
		a.Width = minTotalWidth
	}

	minLeftWidth := 15
	minRightWidth := 20
	borderSpacing := 2 // Account for adjacent borders

	if a.Width < minLeftWidth+minRightWidth+borderSpacing {
		// Very narrow - give each pane minimum space
		a.LeftWidth = minLeftWidth
		a.RightWidth = max(a.Width-a.LeftWidth-borderSpacing, minRightWidth)
	} else {
		preferredLeftWidth := 30
		a.LeftWidth = min(preferredLeftWidth, a.Width/3) // Don't take more than 1/3
		a.RightWidth = a.Width - a.LeftWidth - borderSpacing

		if a.LeftWidth < minLeftWidth {
			a.LeftWidth = minLeftWidth
			a.RightWidth = a.Width - a.LeftWidth - borderSpacing
		}
		if a.RightWidth < minRightWidth {
			a.RightWidth = minRightWidth
			a.LeftWidth = a.Width - a.RightWidth - borderSpacing
		}
	}

	a.LeftPane.Resize(a.LeftWidth, a.Height, len(a.Items))
	a.RightPane.Update(ResizeRightPaneMsg{Width: a.RightWidth, Height: a.Height})
	a.RightPane.Update(UpdateContentMsg{})

	return a, nil
}

// handleKeyPress processes key press events using mode-first architecture
func (a *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch a.CurrentMode {
	case FilterMode:
		return a.handleFilterModeKeys(key)
	case HelpMode:
		return a.handleHelpModeKeys(key)
	case NumberInputMode:
		return a.handleNumberInputModeKeys(key)
	case DeleteMode:
		return a.handleDeleteModeKeys(key)
	default:
		return a.handleNormalModeKeys(key)
	}
}

// handleFilterModeKeys processes keys while a filter pattern is typed
func (a *AppModel) handleFilterModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.Filter.Update(CancelFilterMsg{})
		a.CurrentMode = NormalMode
		return a, nil
	case "enter":
		a.Filter.Update(ApplyFilterMsg{})
		if a.Filter.IsActive() {
			// invalid pattern, keep editing
			return a, nil
		}
		a.refilter(a.selectedID())
		a.CurrentMode = NormalMode
		return a, nil
	case "backspace", "ctrl+h":
		if runes := []rune(a.Filter.Input); len(runes) > 0 {
			a.Filter.Update(UpdateFilterInputMsg{Input: string(runes[:len(runes)-1])})
		}
		return a, nil
	default:
		if runes := []rune(key); len(runes) == 1 && runes[0] >= 32 {
			a.Filter.Update(UpdateFilterInputMsg{Input: a.Filter.Input + key})
		}
		return a, nil
	}
}

// handleHelpModeKeys processes keys when in help mode
func (a *AppModel) handleHelpModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "z", "esc", "q":
		a.CurrentMode = NormalMode
		return a, nil
	default:
		return a, nil
	}
}

// handleNumberInputModeKeys processes keys when in number input mode
func (a *AppModel) handleNumberInputModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.NumberBuffer = ""
		a.CurrentMode = NormalMode
		return a, nil
	case "backspace":
		if len(a.NumberBuffer) > 1 {
			a.NumberBuffer = a.NumberBuffer[:len(a.NumberBuffer)-1]
		} else {
			a.NumberBuffer = ""
			a.CurrentMode = NormalMode
		}
		return a, nil
	default:
		if key >= "0" && key <= "9" {
			a.NumberBuffer += key
			return a, nil
		} else if isMovementCommand(key) {
			multiplier := 1
			if num, err := strconv.Atoi(a.NumberBuffer); err == nil {
				multiplier = num
			}
			a.NumberBuffer = ""
			a.CurrentMode = NormalMode
			return a.executeCommand(multiplier, key, a.ActivePane)
		}
		// Invalid key, cancel number input
		a.NumberBuffer = ""
		a.CurrentMode = NormalMode
		return a, nil
	}
}

// handleDeleteModeKeys processes keys when in delete confirmation mode
func (a *AppModel) handleDeleteModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "y", "Y":
		confirm := a.Confirm
		a.Confirm.Dismiss()
		a.CurrentMode = NormalMode

		if _, err := confirm.Apply(a.Library); err != nil {
			return a, a.setFlashError(fmt.Sprintf("Failed to delete record: %v", err))
		}
		if err := a.Reload(); err != nil {
			return a, a.setFlashError(fmt.Sprintf("Failed to reload: %v", err))
		}
		return a, a.setFlashMessage(confirm.Done())
	case "n", "N", "esc":
		a.Confirm.Dismiss()
		a.CurrentMode = NormalMode
		return a, nil
	default:
		return a, nil
	}
}

// handleNormalModeKeys processes keys when in normal mode
func (a *AppModel) handleNormalModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "esc":
		if a.Filter.IsApplied() {
			a.Filter.Update(ClearFilterMsg{})
			a.refilter(a.selectedID())
			return a, nil
		}
		return a, tea.Quit
	case "z":
		a.CurrentMode = HelpMode
		return a, nil
	case "c":
		return a, a.copyToClipboard()
	case "/":
		a.Filter.Update(StartFilterMsg{})
		a.CurrentMode = FilterMode
		return a, nil
	case "tab":
		if a.ActivePane == LeftPane {
			a.ActivePane = RightPane
		} else {
			a.ActivePane = LeftPane
		}
		return a, nil
	case "h", "left":
		a.ActivePane = LeftPane
		return a, nil
	case "l", "right":
		a.ActivePane = RightPane
		return a, nil
	case "t":
		return a, a.switchType(1)
	case "T":
		return a, a.switchType(-1)
	case "v":
		return a, a.toggleView()
	case "f":
		return a, a.toggleFavorite()
	case "r":
		if err := a.Reload(); err != nil {
			return a, a.setFlashError(fmt.Sprintf("Failed to reload: %v", err))
		}
		return a, a.setFlashMessage("Reloaded")
	}

	// Handle number input (digits 1-9, 0 only after other digits)
	if key >= "1" && key <= "9" || (key == "0" && a.NumberBuffer != "") {
		a.NumberBuffer += key
		a.BufferPane = a.ActivePane
		a.CurrentMode = NumberInputMode
		return a, nil
	}

	if isMovementCommand(key) {
		return a.executeCommand(1, key, a.ActivePane)
	}

	switch a.ActivePane {
	case LeftPane:
		return a.handleLeftPaneKeys(key)
	case RightPane:
		return a.handleRightPaneKeys(key)
	}

	return a, nil
}

// handleLeftPaneKeys processes keys when left pane is focused in normal mode
func (a *AppModel) handleLeftPaneKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "d":
		if item := a.Selected(); item != nil {
			a.CurrentMode = DeleteMode
			a.Confirm.Ask(actionFor(a.List), a.Type(), item.Record, a.LeftPane.Selected)
		}
		return a, nil
	case "K":
		return a, a.moveFavorite(-1)
	case "J":
		return a, a.moveFavorite(1)
	}

	return a, nil
}

// handleRightPaneKeys processes keys when right pane is focused in normal mode
func (a *AppModel) handleRightPaneKeys(key string) (tea.Model, tea.Cmd) {
	maxScroll := getMaxScroll(a.RightPane, a.Selected())
	pageSize := a.Height - 6

	switch key {
	case "ctrl+u":
		a.RightPane.Update(PageUpMsg{})
	case "ctrl+d":
		a.RightPane.Update(PageDownMsg{MaxScroll: maxScroll})
	case "ctrl+b":
		a.RightPane.Update(JumpMsg{Direction: "k", Lines: pageSize, MaxScroll: maxScroll})
	case "ctrl+f":
		a.RightPane.Update(JumpMsg{Direction: "j", Lines: pageSize, MaxScroll: maxScroll})
	}

	return a, nil
}

func (a *AppModel) selectedID() string {
	if item := a.Selected(); item != nil {
		return item.Record.ID
	}
	return ""
}

// switchType moves to the next (step 1) or previous (step -1) type.
func (a *AppModel) switchType(step int) tea.Cmd {
	if len(a.Types) < 2 {
		return nil
	}
	a.TypeIndex = (a.TypeIndex + step + len(a.Types)) % len(a.Types)
	a.Filter.Update(ClearFilterMsg{})
	a.LeftPane.Select(0, 0)
	if err := a.Reload(); err != nil {
		return a.setFlashError(fmt.Sprintf("Failed to load %s: %v", a.Type(), err))
	}
	return nil
}

// toggleView switches between the history and favorites of the type.
func (a *AppModel) toggleView() tea.Cmd {
	if a.List == HistoryView {
		a.List = FavoriteView
	} else {
		a.List = HistoryView
	}
	if err := a.Reload(); err != nil {
		return a.setFlashError(fmt.Sprintf("Failed to load %s: %v", a.List, err))
	}
	return nil
}

// toggleFavorite favorites the selected history record, or unfavorites it
// when it already is one.
func (a *AppModel) toggleFavorite() tea.Cmd {
	item := a.Selected()
	if item == nil {
		return a.setFlashMessage("No record selected")
	}

	var (
		changed bool
		err     error
		message string
	)
	if item.Favorite {
		changed, err = a.Library.Unfavorite(a.Type(), item.Record.ID)
		message = "Removed from favorites"
	} else {
		changed, err = a.Library.DoFavorite(a.Type(), item.Record.ID)
		message = "Added to favorites"
	}
	if err != nil {
		return a.setFlashError(fmt.Sprintf("Failed to update favorites: %v", err))
	}
	if err := a.Reload(); err != nil {
		return a.setFlashError(fmt.Sprintf("Failed to reload: %v", err))
	}
	if !changed {
		return a.setFlashMessage("Favorites unchanged")
	}
	return a.setFlashMessage(message)
}

// moveFavorite moves the selected favorite up (step -1) or down (step 1).
func (a *AppModel) moveFavorite(step int) tea.Cmd {
	if a.List != FavoriteView {
		return a.setFlashMessage("Reordering works in the favorites view (press v)")
	}
	item := a.Selected()
	if item == nil {
		return nil
	}

	move := a.Library.MoveDownFavorite
	if step < 0 {
		move = a.Library.MoveUpFavorite
	}
	moved, err := move(a.Type(), item.Record.ID)
	if err != nil {
		return a.setFlashError(fmt.Sprintf("Failed to move favorite: %v", err))
	}
	if err := a.Reload(); err != nil {
		return a.setFlashError(fmt.Sprintf("Failed to reload: %v", err))
	}
	if !moved {
		if step < 0 {
			return a.setFlashMessage("Already at the top")
		}
		return a.setFlashMessage("Already at the bottom")
	}
	return nil
}

// Init initializes the app model (required by tea.Model interface)
func (a *AppModel) Init() tea.Cmd {
	return nil
}

// AppView renders the complete application using pure functions
func AppView(model AppModel) (string, error) {
	if model.Width == 0 {
		return "Initializing...", nil
	}

	if model.CurrentMode == HelpMode {
		helpView := renderHelpView(model)
		return helpView + "\n\n" + renderStatusLine(model), nil
	}

	if model.Confirm.Active {
		return ConfirmView(model.Confirm, model.Width, model.Height), nil
	}

	return renderNormalView(model)
}

// renderNormalView renders the normal dual-pane view
func renderNormalView(model AppModel) (string, error) {
	title := fmt.Sprintf("%s %s", model.Types[model.TypeIndex], model.List)

	leftPaneView, err := LeftPaneView(model.LeftPane, model.Items, title, model.ActivePane == LeftPane)
	if err != nil {
		return "", err
	}

	rightPaneView, err := RightPaneView(model.RightPane, model.Selected(), model.ActivePane == RightPane, model.LeftPane.Selected)
	if err != nil {
		return "", err
	}

	leftLines := strings.Split(leftPaneView, "\n")
	rightLines := strings.Split(rightPaneView, "\n")
	maxLines := max(len(leftLines), len(rightLines))

	var result strings.Builder
	for i := 0; i < maxLines; i++ {
		leftLine := ""
		rightLine := ""
		if i < len(leftLines) {
			leftLine = leftLines[i]
		}
		if i < len(rightLines) {
			rightLine = rightLines[i]
		}
		result.WriteString(leftLine + rightLine + "\n")
	}

	result.WriteString("\n" + renderStatusLine(model))

	return result.String(), nil
}

// View method for tea.Model compatibility
func (a *AppModel) View() string {
	view, _ := AppView(*a)
	return view
}

// renderStatusLine renders the bottom status line (pure function)
func renderStatusLine(model AppModel) string {
	if model.FlashMessage != "" && time.Now().Before(model.FlashExpiry) {
		color := "10"
		if model.FlashError {
			color = "9"
		}
		return lipgloss.NewStyle().
			Width(model.Width).
			Foreground(lipgloss.Color(color)).
			Render(model.FlashMessage)
	}

	var statusLine string
	switch {
	case model.NumberBuffer != "":
		statusLine = model.NumberBuffer
	case model.Filter.IsActive():
		statusLine = "/" + model.Filter.Input
		if model.Filter.Error != "" {
			statusLine += fmt.Sprintf(" (Error: %s)", model.Filter.Error)
		} else {
			statusLine += " (Enter to filter, Esc to cancel)"
		}
	case model.Filter.IsApplied():
		statusLine = fmt.Sprintf("Filter: %s - %d of %d records (Esc to clear)",
			model.Filter.Pattern, len(model.Items), len(model.all))
	case model.CurrentMode == HelpMode:
		statusLine = "Help Mode - Press z to return to normal view, q to quit"
	default:
		statusLine = fmt.Sprintf("%s %s: %d records - Press z for help, q to quit",
			model.Types[model.TypeIndex], model.List, len(model.Items))
	}

	return lipgloss.NewStyle().Width(model.Width).Render(statusLine)
}

// renderHelpView renders the help content as a single pane (pure function)
func renderHelpView(model AppModel) string {
	helpContent := `promptkeep - Prompt History Browser

NAVIGATION COMMANDS:
  j, ↓        Move down (left pane: next record, right pane: scroll down)
  k, ↑        Move up (left pane: previous record, right pane: scroll up)
  g           Go to top (with number: go to record N)
  G           Go to bottom
  #j, #k      Jump N lines (e.g., 10j moves down 10 records)

PANE SWITCHING:
  Tab         Toggle between left and right panes
  h, ←        Switch to left pane
  l, →        Switch to right pane
  z           Toggle this help screen

LISTS:
  t, T        Next / previous prompt type
  v           Toggle between history and favorites
  /pattern    Filter records by name or prompt
  r           Reload from storage

RECORDS:
  c           Copy the prompt to the clipboard
  f           Add to or remove from favorites (★)
  d           Delete record, or unfavorite in favorites view (left pane)
  J, K        Move favorite down / up (favorites view)

Ctrl+u, Ctrl+d, Ctrl+b and Ctrl+f scroll the right pane.
History lists newest first and keeps only the most recent records.

GLOBAL COMMANDS:
  q           Quit
  Esc         Clear filter or quit
  Ctrl+c      Force quit

Press z again to return to normal view.`

	helpStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1).
		Width(model.Width - 4).
		Height(model.Height - 4)

	return helpStyle.Render(helpContent)
}

// isMovementCommand checks if a key is a movement command that can use multipliers
func isMovementCommand(key string) bool {
	switch key {
	case "up", "k", "down", "j", "g", "G":
		return true
	}
	return false
}

// executeCommand executes a command with a number multiplier on the specified pane
func (a *AppModel) executeCommand(multiplier int, key string, pane PaneType) (tea.Model, tea.Cmd) {
	if pane == LeftPane {
		before := a.LeftPane.Selected
		n := len(a.Items)
		switch key {
		case "up", "k":
			a.LeftPane.Move(-multiplier, n)
		case "down", "j":
			a.LeftPane.Move(multiplier, n)
		case "g":
			// 5g jumps to the fifth record.
			a.LeftPane.Select(multiplier-1, n)
		case "G":
			a.LeftPane.Select(n-1, n)
		}
		if a.LeftPane.Selected != before {
			a.RightPane.Update(UpdateContentMsg{})
		}
		return a, nil
	}

	maxScroll := getMaxScroll(a.RightPane, a.Selected())
	switch key {
	case "up", "k":
		a.RightPane.Update(JumpMsg{Direction: "k", Lines: multiplier, MaxScroll: maxScroll})
	case "down", "j":
		a.RightPane.Update(JumpMsg{Direction: "j", Lines: multiplier, MaxScroll: maxScroll})
	case "g":
		if multiplier > 1 {
			a.RightPane.ViewPos = min(multiplier-1, maxScroll)
		} else {
			a.RightPane.Update(ScrollToTopMsg{})
		}
	case "G":
		a.RightPane.Update(ScrollToBottomMsg{MaxScroll: maxScroll})
	}

	return a, nil
}

// setFlashMessage sets a flash message that disappears after flashDuration
func (a *AppModel) setFlashMessage(message string) tea.Cmd {
	a.FlashMessage = message
	a.FlashError = false
	a.FlashExpiry = time.Now().Add(flashDuration)
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{}
	})
}

func (a *AppModel) setFlashError(message string) tea.Cmd {
	cmd := a.setFlashMessage(message)
	a.FlashError = true
	return cmd
}

// copyToClipboard copies the selected record's prompt to the clipboard
func (a *AppModel) copyToClipboard() tea.Cmd {
	item := a.Selected()
	if item == nil {
		return a.setFlashMessage("No record selected")
	}
	if a.Clipboard == nil {
		return a.setFlashError(clipboard.ErrUnsupported.Error())
	}

	content := item.Prompt()
	if err := clipboard.WriteString(a.Clipboard, content); err != nil {
		if errors.Is(err, clipboard.ErrUnsupported) {
			return a.setFlashError(err.Error())
		}
		return a.setFlashError(fmt.Sprintf("Error writing clipboard: %v", err))
	}

	return a.setFlashMessage(fmt.Sprintf("Copied %d bytes to clipboard", len(content)))
}
