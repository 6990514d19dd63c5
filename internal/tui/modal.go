package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yiblet/promptkeep/internal/history"
)

// ConfirmAction is the destructive action a confirmation guards.
type ConfirmAction int

const (
	// DeleteRecord removes a record from the history. A favorite copy of it
	// survives.
	DeleteRecord ConfirmAction = iota
	// RemoveFavorite unfavorites a record. The history copy survives.
	RemoveFavorite
)

// actionFor returns the action the delete key takes in view.
func actionFor(view ListView) ConfirmAction {
	if view == FavoriteView {
		return RemoveFavorite
	}
	return DeleteRecord
}

// ConfirmModel asks before a record is deleted or unfavorited. The record
// is captured when the question is asked, so the answer always applies to
// the record the user saw.
type ConfirmModel struct {
	Active bool
	Action ConfirmAction
	Type   string
	Record history.Record
	Index  int
}

// Ask opens the confirmation for rec, shown at index in a list of typ.
func (c *ConfirmModel) Ask(action ConfirmAction, typ string, rec history.Record, index int) {
	*c = ConfirmModel{Active: true, Action: action, Type: typ, Record: rec, Index: index}
}

// Dismiss closes the confirmation without acting.
func (c *ConfirmModel) Dismiss() {
	*c = ConfirmModel{}
}

// Title returns the question asked.
func (c ConfirmModel) Title() string {
	if c.Action == RemoveFavorite {
		return "Remove Favorite?"
	}
	return "Delete Record?"
}

// Apply performs the confirmed action on lib. ok is false when the record
// was already gone.
func (c ConfirmModel) Apply(lib Library) (ok bool, err error) {
	if c.Action == RemoveFavorite {
		return lib.Unfavorite(c.Type, c.Record.ID)
	}
	return lib.RemoveHistory(c.Type, c.Record.ID)
}

// Done returns the flash message reported after Apply.
func (c ConfirmModel) Done() string {
	if c.Action == RemoveFavorite {
		return "Removed from favorites"
	}
	return "Record deleted"
}

func (c ConfirmModel) body(width int) string {
	var kept, options string
	if c.Action == RemoveFavorite {
		kept = "The history copy is kept."
		options = "[Y] Yes, remove    [N] No, cancel"
	} else {
		kept = "A favorite copy of it is kept."
		options = "[Y] Yes, delete    [N] No, cancel"
	}

	lines := []string{
		fmt.Sprintf("%s %d: %s", c.Type, c.Index, history.Title(c.Record, max(width-len(c.Type)-8, 10))),
	}
	if c.Record.Time > 0 {
		lines = append(lines, "Saved "+formatTime(c.Record.Time))
	}
	lines = append(lines, "", kept, "", options)
	return strings.Join(lines, "\n")
}

var confirmStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("9")).
	Padding(1, 2).
	Align(lipgloss.Center)

// ConfirmView renders the confirmation centered in a window of the given
// size, in place of the panes.
func ConfirmView(model ConfirmModel, width, height int) string {
	boxWidth := min(60, max(width-4, 20))
	textWidth := boxWidth - confirmStyle.GetHorizontalFrameSize()

	title := lipgloss.NewStyle().Bold(true).Render(model.Title())
	box := confirmStyle.Width(boxWidth).Render(title + "\n\n" + model.body(textWidth))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
