package cli

import (
	"fmt"
	"strings"

	"github.com/yiblet/promptkeep/internal/config"
)

// Args represents the top-level command structure
type Args struct {
	Workdir    *string `arg:"-w,--workdir,env:PROMPTKEEP_WORKDIR" help:"working directory whose storage to use (default: the user storage location)"`
	Backend    *string `arg:"--backend" help:"storage backend: file or sqlite (overrides config)"`
	ConfigPath *string `arg:"--config" help:"config file (default: ~/.config/promptkeep/config.yaml)"`

	Get      *GetCmd      `arg:"subcommand:get" help:"Print documents"`
	Set      *SetCmd      `arg:"subcommand:set" help:"Replace a document"`
	Delete   *DeleteCmd   `arg:"subcommand:delete" help:"Delete documents"`
	List     *ListCmd     `arg:"subcommand:list" help:"Operate on a list document"`
	History  *HistoryCmd  `arg:"subcommand:history" help:"Manage prompt history"`
	Favorite *FavoriteCmd `arg:"subcommand:favorite" help:"Manage favorite prompts"`
	Config   *ConfigCmd   `arg:"subcommand:config" help:"Manage configuration"`
	Unlock   *UnlockCmd   `arg:"subcommand:unlock" help:"Remove lock markers left by crashed processes"`
	Browse   *BrowseCmd   `arg:"subcommand:browse" help:"Browse history and favorites interactively"`
}

// GetCmd represents 'promptkeep get KEY...'. Keys may also be given as one
// comma-separated argument.
type GetCmd struct {
	Keys []string `arg:"positional,required" help:"document keys"`
}

// SetCmd represents 'promptkeep set KEY [VALUE]'
type SetCmd struct {
	Key   string  `arg:"positional" help:"document key (omitted with --bulk)"`
	Value *string `arg:"positional" help:"JSON value (read from stdin when omitted)"`
	Raw   bool    `arg:"--raw" help:"store VALUE as a JSON string"`
	Bulk  bool    `arg:"--bulk" help:"read a JSON object of key/value pairs from stdin"`
}

// DeleteCmd represents 'promptkeep delete KEY...'
type DeleteCmd struct {
	Keys []string `arg:"positional,required" help:"document keys"`
}

// ListCmd represents 'promptkeep list'
type ListCmd struct {
	Push   *ListPushCmd  `arg:"subcommand:push" help:"Append an item"`
	Pop    *ListKeyCmd   `arg:"subcommand:pop" help:"Remove and print the last item"`
	Shift  *ListKeyCmd   `arg:"subcommand:shift" help:"Remove and print the first item"`
	Remove *ListIndexCmd `arg:"subcommand:remove" help:"Remove the item at an index"`
	Clear  *ListKeyCmd   `arg:"subcommand:clear" help:"Replace the list with an empty one"`
	Get    *ListIndexCmd `arg:"subcommand:get" help:"Print the item at an index"`
	Len    *ListKeyCmd   `arg:"subcommand:len" help:"Print the list length"`
}

type ListKeyCmd struct {
	Key string `arg:"positional,required" help:"list document key"`
}

type ListPushCmd struct {
	Key  string `arg:"positional,required" help:"list document key"`
	Item string `arg:"positional,required" help:"JSON item"`
	Raw  bool   `arg:"--raw" help:"push ITEM as a JSON string"`
}

// ListIndexCmd takes an index; negative indexes count from the end and
// must follow "--".
type ListIndexCmd struct {
	Key   string `arg:"positional,required" help:"list document key"`
	Index int    `arg:"positional,required" help:"item index"`
}

// HistoryCmd represents 'promptkeep history'
type HistoryCmd struct {
	Push   *PushCmd   `arg:"subcommand:push" help:"Record a prompt"`
	List   *TypeCmd   `arg:"subcommand:list" help:"Print the history, oldest first"`
	Latest *TypeCmd   `arg:"subcommand:latest" help:"Print the newest record"`
	Edit   *EditCmd   `arg:"subcommand:edit" help:"Replace a record's prompt, tags and name"`
	Rename *RenameCmd `arg:"subcommand:rename" help:"Rename a record"`
	Remove *RecordCmd `arg:"subcommand:remove" help:"Delete a record"`
	Clear  *TypeCmd   `arg:"subcommand:clear" help:"Delete every record of a type"`
	Copy   *CopyCmd   `arg:"subcommand:copy" help:"Copy a prompt to the clipboard"`
}

// FavoriteCmd represents 'promptkeep favorite'
type FavoriteCmd struct {
	Push   *PushCmd   `arg:"subcommand:push" help:"Add a prompt directly to favorites"`
	List   *TypeCmd   `arg:"subcommand:list" help:"Print the favorites in order"`
	Up     *RecordCmd `arg:"subcommand:up" help:"Move a favorite up"`
	Down   *RecordCmd `arg:"subcommand:down" help:"Move a favorite down"`
	Edit   *EditCmd   `arg:"subcommand:edit" help:"Replace a favorite's prompt, tags and name"`
	Rename *RenameCmd `arg:"subcommand:rename" help:"Rename a favorite"`
	Add    *RecordCmd `arg:"subcommand:add" help:"Favorite a history record"`
	Remove *RecordCmd `arg:"subcommand:remove" help:"Unfavorite a record"`
}

type TypeCmd struct {
	Type string `arg:"positional,required" help:"prompt type, e.g. txt2img"`
}

type RecordCmd struct {
	Type string `arg:"positional,required" help:"prompt type, e.g. txt2img"`
	ID   string `arg:"positional,required" help:"record id"`
}

// PushCmd records a prompt. Tags are JSON; the prompt is stored as given
// unless --json is set.
type PushCmd struct {
	Type   string `arg:"positional,required" help:"prompt type, e.g. txt2img"`
	Prompt string `arg:"positional,required" help:"prompt text"`
	Tags   string `arg:"--tags" default:"[]" help:"tags as JSON"`
	Name   string `arg:"--name" help:"display name"`
	JSON   bool   `arg:"--json" help:"parse PROMPT as JSON"`
}

type EditCmd struct {
	Type   string `arg:"positional,required" help:"prompt type, e.g. txt2img"`
	ID     string `arg:"positional,required" help:"record id"`
	Prompt string `arg:"positional,required" help:"prompt text"`
	Tags   string `arg:"--tags" default:"[]" help:"tags as JSON"`
	Name   string `arg:"--name" help:"display name"`
	JSON   bool   `arg:"--json" help:"parse PROMPT as JSON"`
}

type RenameCmd struct {
	Type string `arg:"positional,required" help:"prompt type, e.g. txt2img"`
	ID   string `arg:"positional,required" help:"record id"`
	Name string `arg:"positional,required" help:"new name"`
}

// CopyCmd copies the prompt of ID, or of the newest record when ID is
// omitted.
type CopyCmd struct {
	Type string  `arg:"positional,required" help:"prompt type, e.g. txt2img"`
	ID   *string `arg:"positional" help:"record id (default: newest)"`
}

// ConfigCmd represents 'promptkeep config'
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get a configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set a configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"configuration key (history-limit, storage-location, backend, log-level)"`
}

type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"configuration key (history-limit, storage-location, backend, log-level)"`
	Value string `arg:"positional,required" help:"configuration value"`
}

type ConfigListCmd struct{}

// UnlockCmd represents 'promptkeep unlock'
type UnlockCmd struct{}

// BrowseCmd represents 'promptkeep browse'
type BrowseCmd struct {
	Types []string `arg:"positional" help:"types to browse (default: txt2img, txt2img_neg, img2img, img2img_neg)"`
}

// Description returns the program description
func (Args) Description() string {
	return "promptkeep - prompt history, favorites and JSON document storage"
}

// Version returns the program version
func (Args) Version() string {
	return "promptkeep 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  # Documents
  promptkeep set settings '{"theme": "dark"}'
  promptkeep get settings history.txt2img
  echo '{"a": 1, "b": [2]}' | promptkeep set --bulk

  # Lists
  promptkeep list push queue '"next"'
  promptkeep list get queue -- -1

  # History and favorites
  promptkeep history push txt2img "1girl, cherry blossoms" --name Spring
  promptkeep history list txt2img
  promptkeep favorite add txt2img <id>
  promptkeep history copy txt2img

  # Per-workdir storage
  promptkeep -w ~/stable-diffusion-webui browse`
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	if args.Backend != nil {
		switch *args.Backend {
		case config.BackendFile, config.BackendSQLite:
		default:
			return fmt.Errorf("backend must be %q or %q", config.BackendFile, config.BackendSQLite)
		}
	}
	if args.Set != nil {
		return args.Set.Validate()
	}
	return nil
}

// Validate validates set command arguments
func (s *SetCmd) Validate() error {
	if s.Bulk {
		if s.Key != "" || s.Value != nil {
			return fmt.Errorf("--bulk reads key/value pairs from stdin and takes no arguments")
		}
		if s.Raw {
			return fmt.Errorf("cannot combine --bulk and --raw")
		}
		return nil
	}
	if s.Key == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}

// splitKeys expands comma-separated arguments into keys.
func splitKeys(args []string) []string {
	var keys []string
	for _, arg := range args {
		for _, key := range strings.Split(arg, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys
}
