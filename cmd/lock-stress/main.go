// Command lock-stress checks that concurrent processes appending to one
// file-backed list, and sweeping stale locks as they go, lose no updates.
// Run without -child it spawns the writers and verifies the final list.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/yiblet/promptkeep/internal/list"
	"github.com/yiblet/promptkeep/internal/store/filestore"
)

const key = "stress"

func main() {
	dir := flag.String("dir", "", "storage directory (default: a new temp dir)")
	procs := flag.Int("procs", 8, "writer processes")
	count := flag.Int("count", 50, "items appended per writer")
	child := flag.Int("child", -1, "run as writer N")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "lock-stress",
		Level: hclog.Info,
	})

	if *child >= 0 {
		if err := write(*dir, *child, *count); err != nil {
			logger.Error("writer failed", "writer", *child, "error", err)
			os.Exit(1)
		}
		return
	}

	if *dir == "" {
		tmp, err := os.MkdirTemp("", "lock-stress-")
		if err != nil {
			logger.Error("failed to create temp dir", "error", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		*dir = tmp
	}

	if err := run(logger, *dir, *procs, *count); err != nil {
		logger.Error("stress run failed", "error", err)
		os.Exit(1)
	}
}

// write appends count items tagged with the writer number.
func write(dir string, writer, count int) error {
	s, err := filestore.Open(dir, filestore.Options{})
	if err != nil {
		return err
	}
	defer s.Close()

	for i := 0; i < count; i++ {
		// Sweeping while the other writers run must not break their locks.
		if i%10 == 0 {
			if _, err := s.DisposeAllLocks(); err != nil {
				return err
			}
		}
		if err := list.Push(s, key, fmt.Sprintf("%d-%d", writer, i)); err != nil {
			return err
		}
	}
	return nil
}

func run(logger hclog.Logger, dir string, procs, count int) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	logger.Info("starting writers", "dir", dir, "procs", procs, "count", count)
	cmds := make([]*exec.Cmd, procs)
	for i := range cmds {
		cmds[i] = exec.Command(self, "-dir", dir, "-count", strconv.Itoa(count), "-child", strconv.Itoa(i))
		cmds[i].Stderr = os.Stderr
		if err := cmds[i].Start(); err != nil {
			return fmt.Errorf("failed to start writer %d: %w", i, err)
		}
	}

	var result *multierror.Error
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			result = multierror.Append(result, fmt.Errorf("writer %d: %w", i, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	s, err := filestore.Open(dir, filestore.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := list.Items(s, key)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok || seen[str] {
			return fmt.Errorf("unexpected or duplicate item %v", item)
		}
		seen[str] = true
	}
	if want := procs * count; len(items) != want {
		return fmt.Errorf("lost updates: got %d items, want %d", len(items), want)
	}

	// Every writer's items must appear in the order it wrote them.
	next := make([]int, procs)
	for _, item := range items {
		var w, n int
		if _, err := fmt.Sscanf(item.(string), "%d-%d", &w, &n); err != nil || w < 0 || w >= procs {
			return fmt.Errorf("malformed item %v", item)
		}
		if n != next[w] {
			return fmt.Errorf("writer %d: item %d appeared before item %d", w, n, next[w])
		}
		next[w]++
	}

	logger.Info("no lost updates", "items", len(items))
	return nil
}
