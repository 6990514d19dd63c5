// Package cli implements the promptkeep command line. Every command prints
// one JSON response object on stdout.
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"
	"github.com/yiblet/promptkeep/internal/clipboard"
	"github.com/yiblet/promptkeep/internal/clipboard/sysboard"
	"github.com/yiblet/promptkeep/internal/config"
	"github.com/yiblet/promptkeep/internal/history"
	"github.com/yiblet/promptkeep/internal/list"
	"github.com/yiblet/promptkeep/internal/scope"
	"github.com/yiblet/promptkeep/internal/store"
	"github.com/yiblet/promptkeep/internal/tui"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "PROMPTKEEP_LOG_LEVEL"

// ErrUnsuccessful is returned by Execute when the command ran but reported
// "success": false, such as a record id that does not exist.
var ErrUnsuccessful = errors.New("command unsuccessful")

// Response is the JSON object printed by a command.
type Response map[string]any

// Options replaces the process defaults, for tests.
type Options struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Logger    hclog.Logger
	Clipboard clipboard.Clipboard
}

// CLI handles the command-line interface
type CLI struct {
	config    *config.ConfigManager
	cfg       *config.Config
	registry  *scope.Registry
	scope     string
	clipboard clipboard.Clipboard
	logger    hclog.Logger
	stdin     io.Reader
	stdout    io.Writer

	store   store.Store // opened on first use
	manager *history.Manager
}

// NewWithArgs creates a CLI for the parsed arguments using the process
// stdin, stdout and system clipboard.
func NewWithArgs(args *Args) (*CLI, error) {
	return NewWithOptions(args, Options{})
}

// NewWithOptions creates a CLI for the parsed arguments.
func NewWithOptions(args *Args, opts Options) (*CLI, error) {
	if args == nil {
		args = &Args{}
	}

	var cm *config.ConfigManager
	if args.ConfigPath != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigPath)
	} else {
		var err error
		if cm, err = config.NewConfigManager(); err != nil {
			return nil, err
		}
	}
	cfg, err := cm.Load()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		level := cfg.LogLevel
		if env := os.Getenv(LogLevelEnv); env != "" {
			level = env
		}
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   config.AppName,
			Level:  hclog.LevelFromString(level),
			Output: os.Stderr,
		})
	}

	backend := cfg.Backend
	if args.Backend != nil {
		backend = *args.Backend
	}

	c := &CLI{
		config: cm,
		cfg:    cfg,
		registry: scope.NewRegistry(scope.Options{
			Backend:     backend,
			DefaultRoot: cfg.StorageLocation,
			Logger:      logger,
		}),
		clipboard: opts.Clipboard,
		logger:    logger,
		stdin:     opts.Stdin,
		stdout:    opts.Stdout,
	}
	if args.Workdir != nil {
		c.scope = *args.Workdir
	}
	if c.clipboard == nil {
		c.clipboard = sysboard.New()
	}
	if c.stdin == nil {
		c.stdin = os.Stdin
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	return c, nil
}

// Close releases the stores opened by the CLI.
func (c *CLI) Close() error {
	return c.registry.Close()
}

// Execute runs the command and prints its response. A failed command
// prints {"success": false, "message": ...} and returns the error.
func (c *CLI) Execute(args *Args) error {
	resp, err := c.dispatch(args)
	if err != nil {
		c.logger.Debug("command failed", "error", err)
		if werr := c.respond(Response{"success": false, "message": err.Error()}); werr != nil {
			return werr
		}
		return err
	}
	if resp == nil {
		return nil
	}
	if err := c.respond(resp); err != nil {
		return err
	}
	if ok, found := resp["success"].(bool); found && !ok {
		return ErrUnsuccessful
	}
	return nil
}

func (c *CLI) dispatch(args *Args) (Response, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	switch {
	case args.Get != nil:
		return c.executeGet(args.Get)
	case args.Set != nil:
		return c.executeSet(args.Set)
	case args.Delete != nil:
		return c.executeDelete(args.Delete)
	case args.List != nil:
		return c.executeList(args.List)
	case args.History != nil:
		return c.executeHistory(args.History)
	case args.Favorite != nil:
		return c.executeFavorite(args.Favorite)
	case args.Config != nil:
		return c.executeConfig(args.Config)
	case args.Unlock != nil:
		return c.executeUnlock()
	case args.Browse != nil:
		return nil, c.launchTUI(args.Browse.Types)
	default:
		return nil, c.launchTUI(nil)
	}
}

// open returns the store and manager of the CLI's scope.
func (c *CLI) open() (store.Store, *history.Manager, error) {
	if c.store == nil {
		s, err := c.registry.Open(c.scope)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open storage: %w", err)
		}
		c.store = s
		c.manager = history.NewManagerWithConfig(s, c.cfg.HistoryLimit)
	}
	return c.store, c.manager, nil
}

// executeGet handles 'promptkeep get'
func (c *CLI) executeGet(cmd *GetCmd) (Response, error) {
	s, _, err := c.open()
	if err != nil {
		return nil, err
	}

	keys := splitKeys(cmd.Keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("key is required")
	}

	if len(keys) == 1 && len(cmd.Keys) == 1 && !strings.Contains(cmd.Keys[0], ",") {
		data, err := c.getValue(s, keys[0])
		if err != nil {
			return nil, err
		}
		return Response{"data": data}, nil
	}

	datas := make(map[string]any, len(keys))
	for _, key := range keys {
		data, err := c.getValue(s, key)
		if err != nil {
			return nil, err
		}
		datas[key] = data
	}
	return Response{"datas": datas}, nil
}

// getValue reads key as a generic JSON value. Absent and corrupt documents
// read as null.
func (c *CLI) getValue(s store.Store, key string) (any, error) {
	var v any
	status, err := s.Get(key, &v)
	if err != nil {
		return nil, err
	}
	if status == store.StatusCorrupt {
		c.logger.Warn("document is corrupt", "key", key)
		return nil, nil
	}
	return v, nil
}

// executeSet handles 'promptkeep set'
func (c *CLI) executeSet(cmd *SetCmd) (Response, error) {
	s, _, err := c.open()
	if err != nil {
		return nil, err
	}

	if cmd.Bulk {
		var datas map[string]json.RawMessage
		input, err := c.readStdin()
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(input, &datas); err != nil {
			return nil, fmt.Errorf("bulk input is not a JSON object: %w", err)
		}
		for key, raw := range datas {
			value, err := parseValue(string(raw), false)
			if err != nil {
				return nil, err
			}
			if err := s.Set(key, value); err != nil {
				return nil, err
			}
		}
		return Response{"success": true}, nil
	}

	var text string
	if cmd.Value != nil {
		text = *cmd.Value
	} else {
		input, err := c.readStdin()
		if err != nil {
			return nil, err
		}
		text = string(input)
		if cmd.Raw {
			text = strings.TrimSuffix(text, "\n")
		}
	}
	value, err := parseValue(text, cmd.Raw)
	if err != nil {
		return nil, err
	}
	if err := s.Set(cmd.Key, value); err != nil {
		return nil, err
	}
	return Response{"success": true}, nil
}

// executeDelete handles 'promptkeep delete'
func (c *CLI) executeDelete(cmd *DeleteCmd) (Response, error) {
	s, _, err := c.open()
	if err != nil {
		return nil, err
	}
	for _, key := range splitKeys(cmd.Keys) {
		if err := s.Delete(key); err != nil {
			return nil, err
		}
	}
	return Response{"success": true}, nil
}

// executeList handles 'promptkeep list'
func (c *CLI) executeList(cmd *ListCmd) (Response, error) {
	s, _, err := c.open()
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Push != nil:
		item, err := parseValue(cmd.Push.Item, cmd.Push.Raw)
		if err != nil {
			return nil, err
		}
		if err := list.Push(s, cmd.Push.Key, item); err != nil {
			return nil, err
		}
		return Response{"success": true}, nil
	case cmd.Pop != nil:
		item, ok, err := list.Pop(s, cmd.Pop.Key)
		if err != nil {
			return nil, err
		}
		return popped(item, ok), nil
	case cmd.Shift != nil:
		item, ok, err := list.Shift(s, cmd.Shift.Key)
		if err != nil {
			return nil, err
		}
		return popped(item, ok), nil
	case cmd.Remove != nil:
		if err := list.Remove(s, cmd.Remove.Key, cmd.Remove.Index); err != nil {
			return nil, err
		}
		return Response{"success": true}, nil
	case cmd.Clear != nil:
		if err := list.Clear(s, cmd.Clear.Key); err != nil {
			return nil, err
		}
		return Response{"success": true}, nil
	case cmd.Get != nil:
		item, err := list.Get(s, cmd.Get.Key, cmd.Get.Index)
		if err != nil {
			return nil, err
		}
		return Response{"item": item}, nil
	case cmd.Len != nil:
		n, err := list.Len(s, cmd.Len.Key)
		if err != nil {
			return nil, err
		}
		return Response{"length": n}, nil
	default:
		return nil, fmt.Errorf("no list subcommand specified")
	}
}

// executeHistory handles 'promptkeep history'
func (c *CLI) executeHistory(cmd *HistoryCmd) (Response, error) {
	_, m, err := c.open()
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Push != nil:
		tags, prompt, err := cmd.Push.values()
		if err != nil {
			return nil, err
		}
		rec, err := m.PushHistory(cmd.Push.Type, tags, prompt, cmd.Push.Name)
		if err != nil {
			return nil, err
		}
		return Response{"success": true, "id": rec.ID}, nil
	case cmd.List != nil:
		histories, err := m.Histories(cmd.List.Type)
		if err != nil {
			return nil, err
		}
		return Response{"histories": histories}, nil
	case cmd.Latest != nil:
		latest, err := m.LatestHistory(cmd.Latest.Type)
		if err != nil {
			return nil, err
		}
		return Response{"history": latest}, nil
	case cmd.Edit != nil:
		tags, prompt, err := cmd.Edit.values()
		if err != nil {
			return nil, err
		}
		return success(m.SetHistory(cmd.Edit.Type, cmd.Edit.ID, tags, prompt, cmd.Edit.Name))
	case cmd.Rename != nil:
		return success(m.SetHistoryName(cmd.Rename.Type, cmd.Rename.ID, cmd.Rename.Name))
	case cmd.Remove != nil:
		return success(m.RemoveHistory(cmd.Remove.Type, cmd.Remove.ID))
	case cmd.Clear != nil:
		if err := m.RemoveHistories(cmd.Clear.Type); err != nil {
			return nil, err
		}
		return Response{"success": true}, nil
	case cmd.Copy != nil:
		return c.executeCopy(m, cmd.Copy)
	default:
		return nil, fmt.Errorf("no history subcommand specified")
	}
}

// executeFavorite handles 'promptkeep favorite'
func (c *CLI) executeFavorite(cmd *FavoriteCmd) (Response, error) {
	_, m, err := c.open()
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Push != nil:
		tags, prompt, err := cmd.Push.values()
		if err != nil {
			return nil, err
		}
		rec, err := m.PushFavorite(cmd.Push.Type, tags, prompt, cmd.Push.Name)
		if err != nil {
			return nil, err
		}
		return Response{"success": true, "id": rec.ID}, nil
	case cmd.List != nil:
		favorites, err := m.Favorites(cmd.List.Type)
		if err != nil {
			return nil, err
		}
		return Response{"favorites": favorites}, nil
	case cmd.Up != nil:
		return success(m.MoveUpFavorite(cmd.Up.Type, cmd.Up.ID))
	case cmd.Down != nil:
		return success(m.MoveDownFavorite(cmd.Down.Type, cmd.Down.ID))
	case cmd.Edit != nil:
		tags, prompt, err := cmd.Edit.values()
		if err != nil {
			return nil, err
		}
		return success(m.SetFavorite(cmd.Edit.Type, cmd.Edit.ID, tags, prompt, cmd.Edit.Name))
	case cmd.Rename != nil:
		return success(m.SetFavoriteName(cmd.Rename.Type, cmd.Rename.ID, cmd.Rename.Name))
	case cmd.Add != nil:
		return success(m.DoFavorite(cmd.Add.Type, cmd.Add.ID))
	case cmd.Remove != nil:
		return success(m.Unfavorite(cmd.Remove.Type, cmd.Remove.ID))
	default:
		return nil, fmt.Errorf("no favorite subcommand specified")
	}
}

// executeCopy handles 'promptkeep history copy'
func (c *CLI) executeCopy(m *history.Manager, cmd *CopyCmd) (Response, error) {
	var rec *history.Record
	if cmd.ID == nil {
		latest, err := m.LatestHistory(cmd.Type)
		if err != nil {
			return nil, err
		}
		rec = latest
	} else {
		histories, err := m.Histories(cmd.Type)
		if err != nil {
			return nil, err
		}
		for i := range histories {
			if histories[i].ID == *cmd.ID {
				rec = &histories[i].Record
				break
			}
		}
	}
	if rec == nil {
		return Response{"success": false, "message": "record not found"}, nil
	}

	text := history.PromptText(rec.Prompt)
	if err := clipboard.WriteString(c.clipboard, text); err != nil {
		return nil, err
	}
	return Response{"success": true, "id": rec.ID, "bytes": len(text)}, nil
}

// executeConfig handles 'promptkeep config'
func (c *CLI) executeConfig(cmd *ConfigCmd) (Response, error) {
	switch {
	case cmd.Get != nil:
		value, err := c.config.Get(cmd.Get.Key)
		if err != nil {
			return nil, err
		}
		return Response{"key": cmd.Get.Key, "value": value}, nil
	case cmd.Set != nil:
		if err := c.config.Update(cmd.Set.Key, cmd.Set.Value); err != nil {
			return nil, fmt.Errorf("failed to set config value: %w", err)
		}
		return Response{"success": true}, nil
	case cmd.List != nil:
		values, err := c.config.List()
		if err != nil {
			return nil, err
		}
		return Response{"config": values, "path": c.config.GetConfigPath()}, nil
	default:
		return nil, fmt.Errorf("no config subcommand specified")
	}
}

// executeUnlock handles 'promptkeep unlock'
func (c *CLI) executeUnlock() (Response, error) {
	n, err := c.registry.Recover(c.scope)
	if err != nil {
		return nil, err
	}
	return Response{"success": true, "removed": n}, nil
}

// launchTUI starts the interactive browser
func (c *CLI) launchTUI(types []string) error {
	_, m, err := c.open()
	if err != nil {
		return err
	}
	app, err := tui.NewAppModel(m, c.clipboard, types)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// respond prints resp as indented JSON.
func (c *CLI) respond(resp Response) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func (c *CLI) readStdin() ([]byte, error) {
	data, err := io.ReadAll(c.stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("no input provided")
	}
	return data, nil
}

// popped reports an item removed from a list. An empty list is a failure so
// that it cannot be mistaken for a stored null.
func popped(item any, ok bool) Response {
	if !ok {
		return Response{"success": false, "message": "list is empty"}
	}
	return Response{"success": true, "item": item}
}

func success(ok bool, err error) (Response, error) {
	if err != nil {
		return nil, err
	}
	if !ok {
		return Response{"success": false, "message": "record not found or not changed"}, nil
	}
	return Response{"success": true}, nil
}

// parseValue parses text as JSON, or returns it as a string when raw is
// set. Numbers keep their literal form.
func parseValue(text string, raw bool) (any, error) {
	if raw {
		return text, nil
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("value is not valid JSON (use --raw for plain text): %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("value is not a single JSON value")
	}
	return v, nil
}

func (p *PushCmd) values() (tags, prompt any, err error) {
	return recordValues(p.Tags, p.Prompt, p.JSON)
}

func (e *EditCmd) values() (tags, prompt any, err error) {
	return recordValues(e.Tags, e.Prompt, e.JSON)
}

func recordValues(tagsJSON, promptText string, promptIsJSON bool) (tags, prompt any, err error) {
	if tags, err = parseValue(tagsJSON, false); err != nil {
		return nil, nil, fmt.Errorf("invalid --tags: %w", err)
	}
	if prompt, err = parseValue(promptText, !promptIsJSON); err != nil {
		return nil, nil, fmt.Errorf("invalid prompt: %w", err)
	}
	return tags, prompt, nil
}
