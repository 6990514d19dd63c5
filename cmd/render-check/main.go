// Command render-check renders the browser for the prompts stored in a
// working directory and checks that the pane borders line up.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yiblet/promptkeep/internal/clipboard/mockboard"
	"github.com/yiblet/promptkeep/internal/history"
	"github.com/yiblet/promptkeep/internal/scope"
	"github.com/yiblet/promptkeep/internal/tui"
)

func main() {
	workdir := flag.String("workdir", "", "working directory (default: user storage)")
	typ := flag.String("type", "txt2img", "prompt type")
	width := flag.Int("width", 120, "terminal width")
	height := flag.Int("height", 20, "terminal height")
	flag.Parse()

	fmt.Println("Checking browser rendering")
	fmt.Println("==========================")

	registry := scope.NewRegistry(scope.Options{})
	defer registry.Close()

	s, err := registry.Open(*workdir)
	if err != nil {
		log.Fatalf("Error opening storage: %v", err)
	}
	mgr := history.NewManager(s)

	entries, err := mgr.Histories(*typ)
	if err != nil {
		log.Fatalf("Error listing history: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history records. Run 'promptkeep history push' first.")
		return
	}

	app, err := tui.NewAppModel(mgr, mockboard.New(), []string{*typ})
	if err != nil {
		log.Fatalf("Error creating browser: %v", err)
	}
	app.Update(tea.WindowSizeMsg{Width: *width, Height: *height})

	view := app.View()
	lines := strings.Split(view, "\n")

	fmt.Printf("Rendered view (%d lines):\n", len(lines))
	fmt.Println(strings.Repeat("=", *width))
	for i, line := range lines[:min(15, len(lines))] {
		fmt.Printf("Line %2d: %s\n", i, line)
	}
	fmt.Println(strings.Repeat("=", *width))

	// Find a body line and check that both panes drew their borders.
	var borderLine string
	for i, line := range lines {
		if i > 2 && i < len(lines)-3 && strings.Count(line, "│") >= 2 {
			borderLine = line
			break
		}
	}
	if borderLine == "" {
		log.Fatal("Could not find a line with borders to analyze")
	}

	var positions []int
	col := 0
	for _, r := range borderLine {
		if r == '│' {
			positions = append(positions, col)
		}
		col++
	}
	fmt.Printf("Border characters (│) at columns: %v\n", positions)
	if len(positions) < 4 {
		log.Fatalf("Expected left and right borders on both panes, found %d", len(positions))
	}
	fmt.Println("Both panes are bordered.")
}
