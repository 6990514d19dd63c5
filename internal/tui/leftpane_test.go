package tui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/yiblet/promptkeep/internal/history"
)

// records builds n history items named prompt-0 and up. Every favEvery-th
// item is a favorite; zero marks none.
func records(n, favEvery int) []*Item {
	items := make([]*Item, n)
	for i := range items {
		fav := favEvery > 0 && i%favEvery == 0
		items[i] = NewItem(history.Record{ID: fmt.Sprint(i), Name: fmt.Sprintf("prompt-%d", i)}, fav)
	}
	return items
}

func TestLeftPaneModel_SelectClamps(t *testing.T) {
	pane := NewLeftPaneModel(40, 20)

	pane.Select(7, 3)
	if pane.Selected != 2 {
		t.Errorf("Expected selection clamped to the last record, got %d", pane.Selected)
	}
	pane.Select(-4, 3)
	if pane.Selected != 0 {
		t.Errorf("Expected selection clamped to the first record, got %d", pane.Selected)
	}
	pane.Select(5, 0)
	if pane.Selected != 0 || pane.Offset != 0 {
		t.Errorf("Expected an empty list to reset the pane, got %+v", pane)
	}
}

func TestLeftPaneModel_MoveScrollsWindow(t *testing.T) {
	pane := NewLeftPaneModel(40, 16) // ten rows on screen
	n := 30

	pane.Move(9, n)
	if pane.Offset != 0 {
		t.Errorf("Expected the window to stay while the selection is visible, got offset %d", pane.Offset)
	}
	pane.Move(1, n)
	if pane.Selected != 10 || pane.Offset != 1 {
		t.Errorf("Expected one row of scroll, got selected %d offset %d", pane.Selected, pane.Offset)
	}
	pane.Move(-5, n)
	if pane.Offset != 1 {
		t.Errorf("Expected moving up inside the window to keep the offset, got %d", pane.Offset)
	}
	pane.Move(-100, n)
	if pane.Selected != 0 || pane.Offset != 0 {
		t.Errorf("Expected the window back at the top, got selected %d offset %d", pane.Selected, pane.Offset)
	}
}

func TestLeftPaneModel_ResizeKeepsSelectionVisible(t *testing.T) {
	pane := NewLeftPaneModel(40, 30)
	n := 30
	pane.Select(20, n)
	if pane.Offset != 0 {
		t.Fatalf("Expected no scroll with 24 rows, got offset %d", pane.Offset)
	}

	pane.Resize(40, 16, n)
	if pane.Selected < pane.Offset || pane.Selected >= pane.Offset+pane.Rows() {
		t.Errorf("Expected selection %d inside window at %d of %d rows", pane.Selected, pane.Offset, pane.Rows())
	}

	pane.Resize(40, 60, n)
	if pane.Offset != 0 {
		t.Errorf("Expected a pane taller than the list to show it all, got offset %d", pane.Offset)
	}
}

func TestLeftPaneModel_ShrinkingListPullsWindowBack(t *testing.T) {
	pane := NewLeftPaneModel(40, 16)
	pane.Select(29, 30)
	if pane.Offset != 20 {
		t.Fatalf("Expected offset 20, got %d", pane.Offset)
	}

	// A reload after deletes leaves 12 records.
	pane.Select(pane.Selected, 12)
	if pane.Selected != 11 || pane.Offset != 2 {
		t.Errorf("Expected selected 11 offset 2, got %d and %d", pane.Selected, pane.Offset)
	}
}

func TestLeftPaneView_Empty(t *testing.T) {
	view, err := LeftPaneView(NewLeftPaneModel(40, 20), nil, "Favorites (txt2img)", false)
	if err != nil {
		t.Fatalf("LeftPaneView() error: %v", err)
	}
	if !strings.Contains(view, "(empty)") {
		t.Error("Expected the empty marker")
	}
	if !strings.Contains(view, "Favorites (txt2img)") {
		t.Error("Expected the list title")
	}
}

func TestLeftPaneView_FavoriteMarker(t *testing.T) {
	items := records(4, 2)
	view, err := LeftPaneView(NewLeftPaneModel(40, 20), items, "History", true)
	if err != nil {
		t.Fatalf("LeftPaneView() error: %v", err)
	}

	for _, line := range strings.Split(view, "\n") {
		switch {
		case strings.Contains(line, "prompt-0"), strings.Contains(line, "prompt-2"):
			if !strings.Contains(line, "★") {
				t.Errorf("Expected a star on favorite row %q", line)
			}
		case strings.Contains(line, "prompt-1"), strings.Contains(line, "prompt-3"):
			if strings.Contains(line, "★") {
				t.Errorf("Expected no star on row %q", line)
			}
		}
	}
	if !strings.Contains(view, "● History") {
		t.Error("Expected the focus marker in the title")
	}
}

func TestLeftPaneView_ShowsOnlyTheWindow(t *testing.T) {
	items := records(30, 0)
	pane := NewLeftPaneModel(40, 16)
	pane.Select(25, len(items))

	view, err := LeftPaneView(pane, items, "History", false)
	if err != nil {
		t.Fatalf("LeftPaneView() error: %v", err)
	}
	for i := 16; i <= 25; i++ {
		if !strings.Contains(view, fmt.Sprintf("prompt-%d", i)) {
			t.Errorf("Expected prompt-%d in the window", i)
		}
	}
	for _, hidden := range []string{"prompt-15", "prompt-26"} {
		if strings.Contains(view, hidden) {
			t.Errorf("Expected %s outside the window", hidden)
		}
	}
}

func TestLeftPaneView_NamelessRecordUsesPrompt(t *testing.T) {
	items := []*Item{NewItem(history.Record{ID: "a", Prompt: "\n\n  a castle at dusk\nsecond line"}, false)}
	view, err := LeftPaneView(NewLeftPaneModel(40, 20), items, "History", false)
	if err != nil {
		t.Fatalf("LeftPaneView() error: %v", err)
	}
	if !strings.Contains(view, "a castle at dusk") {
		t.Errorf("Expected the first prompt line as the label, got:\n%s", view)
	}
	if strings.Contains(view, "second line") {
		t.Error("Expected only the first prompt line")
	}
}
