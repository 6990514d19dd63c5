package tui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yiblet/promptkeep/internal/history"
)

// Item is one record shown in the browser.
type Item struct {
	Record   history.Record
	Favorite bool     // a favorite shares the record's id
	Lines    []string // cached wrapped detail lines
	width    int      // width Lines were wrapped for
}

// NewItem creates an item for r.
func NewItem(r history.Record, favorite bool) *Item {
	return &Item{Record: r, Favorite: favorite}
}

// ItemsFromEntries converts history entries to items, newest first.
func ItemsFromEntries(entries []history.Entry) []*Item {
	items := make([]*Item, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		items = append(items, NewItem(entries[i].Record, entries[i].IsFavorite))
	}
	return items
}

// ItemsFromFavorites converts favorites to items, keeping their order.
func ItemsFromFavorites(records []history.Record) []*Item {
	items := make([]*Item, 0, len(records))
	for _, r := range records {
		items = append(items, NewItem(r, true))
	}
	return items
}

// Preview returns the one-line label shown in the list pane.
func (it *Item) Preview(maxLen int) string {
	return history.Title(it.Record, maxLen)
}

// Prompt returns the prompt as text, which is what gets copied.
func (it *Item) Prompt() string {
	return history.PromptText(it.Record.Prompt)
}

// Detail renders the record for the detail pane.
func (it *Item) Detail() string {
	var b strings.Builder
	if it.Record.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", it.Record.Name)
	}
	if it.Record.Time > 0 {
		fmt.Fprintf(&b, "Time: %s\n", formatTime(it.Record.Time))
	}
	if tags := history.PromptText(it.Record.Tags); tags != "" {
		fmt.Fprintf(&b, "Tags: %s\n", tags)
	}
	fmt.Fprintf(&b, "ID:   %s\n\n", it.Record.ID)
	b.WriteString(it.Prompt())
	return b.String()
}

// UpdateWrappedLines recalculates wrapped lines when width changes.
func (it *Item) UpdateWrappedLines(width int) {
	if it.Lines != nil && it.width == width {
		return
	}
	it.width = width
	it.Lines = WrapText(it.Detail(), width)
}

// Matches reports whether the item's name or prompt matches re.
func (it *Item) Matches(re *regexp.Regexp) bool {
	return re.MatchString(it.Record.Name) || re.MatchString(it.Prompt())
}

// formatTime formats a record time, in unix seconds, in local time.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).Format("2006-01-02 15:04:05")
}
