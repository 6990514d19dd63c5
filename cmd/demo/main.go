package main

import (
	"fmt"
	"log"
	"time"

	"github.com/yiblet/promptkeep/internal/history"
	"github.com/yiblet/promptkeep/internal/store/memstore"
)

func main() {
	fmt.Println("promptkeep History Manager Demo")

	// Create in-memory store and history manager
	mgr := history.NewManagerWithConfig(memstore.NewMemoryStore(), 3)

	prompts := []struct {
		name   string
		prompt string
		tags   []string
	}{
		{"Spring", "1girl, cherry blossoms, soft light", []string{"portrait"}},
		{"", "mountain lake at dawn, mist, wide angle", []string{"landscape"}},
		{"City", "cyberpunk street, neon, rain\nlow angle", nil},
		{"", "still life, apples on a wooden table", []string{"still life"}},
	}

	fmt.Printf("Recording %d prompts with a history limit of %d:\n", len(prompts), mgr.HistoryLimit())
	var ids []string
	for i, p := range prompts {
		rec, err := mgr.PushHistory("txt2img", p.tags, p.prompt, p.name)
		if err != nil {
			log.Fatalf("Failed to record prompt %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
		fmt.Printf("%d. %s\n", i+1, history.Title(rec, 40))
	}

	// The first prompt has been evicted; favorite the second.
	if ok, err := mgr.DoFavorite("txt2img", ids[1]); err != nil || !ok {
		log.Fatalf("Failed to favorite %s: %v", ids[1], err)
	}
	if _, err := mgr.SetHistoryName("txt2img", ids[1], "Lake"); err != nil {
		log.Fatalf("Failed to rename: %v", err)
	}

	entries, err := mgr.Histories("txt2img")
	if err != nil {
		log.Fatalf("Failed to list history: %v", err)
	}
	fmt.Printf("\nHistory (oldest first, %d records):\n", len(entries))
	for i, e := range entries {
		star := " "
		if e.IsFavorite {
			star = "*"
		}
		fmt.Printf("%s %d. [%s] %s\n", star, i, time.Unix(e.Time, 0).Format("15:04:05"), history.Title(e.Record, 40))
	}

	favorites, err := mgr.Favorites("txt2img")
	if err != nil {
		log.Fatalf("Failed to list favorites: %v", err)
	}
	fmt.Printf("\nFavorites (%d):\n", len(favorites))
	for i, f := range favorites {
		fmt.Printf("%d. %s\n   %s\n", i, history.Title(f, 40), history.PromptText(f.Prompt))
	}

	fmt.Printf("\nDemo complete! (Using in-memory store)\n")
}
