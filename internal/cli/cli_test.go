package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"github.com/yiblet/promptkeep/internal/clipboard/mockboard"
	"github.com/yiblet/promptkeep/internal/storefs"
)

// testEnv is one working directory and config file shared by a sequence of
// command invocations, each with a fresh CLI as separate processes would.
type testEnv struct {
	t       *testing.T
	workdir string
	config  string
	board   *mockboard.MockClipboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		t:       t,
		workdir: t.TempDir(),
		config:  filepath.Join(t.TempDir(), "config.yaml"),
		board:   mockboard.New(),
	}
}

// run executes one command line and decodes its JSON response.
func (e *testEnv) run(stdin string, argv ...string) (map[string]any, error) {
	e.t.Helper()

	var args Args
	p, err := arg.NewParser(arg.Config{Program: "promptkeep"}, &args)
	if err != nil {
		e.t.Fatalf("NewParser() error: %v", err)
	}
	full := append([]string{"--workdir", e.workdir, "--config", e.config}, argv...)
	if err := p.Parse(full); err != nil {
		e.t.Fatalf("Parse(%v) error: %v", argv, err)
	}

	var out bytes.Buffer
	c, err := NewWithOptions(&args, Options{
		Stdin:     strings.NewReader(stdin),
		Stdout:    &out,
		Logger:    hclog.NewNullLogger(),
		Clipboard: e.board,
	})
	if err != nil {
		e.t.Fatalf("NewWithOptions() error: %v", err)
	}
	defer c.Close()

	execErr := c.Execute(&args)

	var resp map[string]any
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		e.t.Fatalf("%v: output is not JSON: %q", argv, out.String())
	}
	return resp, execErr
}

// must runs a command that is expected to succeed.
func (e *testEnv) must(argv ...string) map[string]any {
	e.t.Helper()
	resp, err := e.run("", argv...)
	if err != nil {
		e.t.Fatalf("%v: unexpected error: %v", argv, err)
	}
	return resp
}

func TestCLI_SetGet(t *testing.T) {
	e := newTestEnv(t)

	resp := e.must("set", "settings", `{"theme": "dark", "size": 3}`)
	if resp["success"] != true {
		t.Fatalf("set response = %v", resp)
	}

	resp = e.must("get", "settings")
	want := map[string]any{"theme": "dark", "size": float64(3)}
	if diff := cmp.Diff(want, resp["data"]); diff != "" {
		t.Errorf("get mismatch (-want +got):\n%s", diff)
	}

	resp = e.must("get", "missing")
	if v, ok := resp["data"]; !ok || v != nil {
		t.Errorf("absent key: response = %v, want data null", resp)
	}
}

func TestCLI_GetSeveral(t *testing.T) {
	e := newTestEnv(t)
	e.must("set", "a", "1")
	e.must("set", "b", `"two"`)

	want := map[string]any{"datas": map[string]any{"a": float64(1), "b": "two", "c": nil}}
	if diff := cmp.Diff(want, e.must("get", "a,b", "c")); diff != "" {
		t.Errorf("get mismatch (-want +got):\n%s", diff)
	}
}

func TestCLI_SetRawAndStdin(t *testing.T) {
	e := newTestEnv(t)

	e.must("set", "--raw", "note", "not json")
	if got := e.must("get", "note")["data"]; got != "not json" {
		t.Errorf("raw value = %v", got)
	}

	if _, err := e.run("[1, 2]\n", "set", "nums"); err != nil {
		t.Fatalf("set from stdin error: %v", err)
	}
	if diff := cmp.Diff([]any{float64(1), float64(2)}, e.must("get", "nums")["data"]); diff != "" {
		t.Errorf("stdin value mismatch (-want +got):\n%s", diff)
	}

	if _, err := e.run("line\n", "set", "--raw", "line"); err != nil {
		t.Fatalf("set --raw from stdin error: %v", err)
	}
	if got := e.must("get", "line")["data"]; got != "line" {
		t.Errorf("raw stdin value = %q, want trailing newline trimmed", got)
	}
}

func TestCLI_SetInvalidJSON(t *testing.T) {
	e := newTestEnv(t)

	resp, err := e.run("", "set", "k", "{not json")
	if err == nil {
		t.Fatal("expected an error")
	}
	if resp["success"] != false || resp["message"] == "" {
		t.Errorf("response = %v", resp)
	}
}

func TestCLI_SetBulk(t *testing.T) {
	e := newTestEnv(t)

	if _, err := e.run(`{"a": {"x": true}, "b": [1]}`, "set", "--bulk"); err != nil {
		t.Fatalf("set --bulk error: %v", err)
	}
	want := map[string]any{"a": map[string]any{"x": true}, "b": []any{float64(1)}}
	if diff := cmp.Diff(want, e.must("get", "a,b")["datas"]); diff != "" {
		t.Errorf("bulk mismatch (-want +got):\n%s", diff)
	}

	if _, err := e.run(`[1]`, "set", "--bulk"); err == nil {
		t.Error("bulk input that is not an object should fail")
	}
	if _, err := e.run(`{}`, "set", "--bulk", "key"); err == nil {
		t.Error("bulk with a key argument should fail")
	}
}

func TestCLI_Delete(t *testing.T) {
	e := newTestEnv(t)
	e.must("set", "a", "1")
	e.must("set", "b", "2")

	e.must("delete", "a,b")
	want := map[string]any{"a": nil, "b": nil}
	if diff := cmp.Diff(want, e.must("get", "a,b")["datas"]); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}

	// Deleting an absent key succeeds.
	e.must("delete", "a")
}

func TestCLI_List(t *testing.T) {
	e := newTestEnv(t)

	e.must("list", "push", "q", "1")
	e.must("list", "push", "q", `{"n": 2}`)
	e.must("list", "push", "--raw", "q", "three")

	if got := e.must("list", "len", "q")["length"]; got != float64(3) {
		t.Errorf("len = %v, want 3", got)
	}
	if diff := cmp.Diff(map[string]any{"n": float64(2)}, e.must("list", "get", "q", "1")["item"]); diff != "" {
		t.Errorf("get 1 mismatch (-want +got):\n%s", diff)
	}
	if got := e.must("list", "get", "q", "--", "-1")["item"]; got != "three" {
		t.Errorf("get -1 = %v", got)
	}

	if got := e.must("list", "pop", "q")["item"]; got != "three" {
		t.Errorf("pop = %v", got)
	}
	if got := e.must("list", "shift", "q")["item"]; got != float64(1) {
		t.Errorf("shift = %v", got)
	}

	e.must("list", "remove", "q", "0")
	if got := e.must("list", "len", "q")["length"]; got != float64(0) {
		t.Errorf("len after remove = %v", got)
	}

	for _, op := range []string{"pop", "shift"} {
		resp, err := e.run("", "list", op, "q")
		if !errors.Is(err, ErrUnsuccessful) || resp["success"] != false {
			t.Errorf("%s on empty list = %v, %v", op, resp, err)
		}
		if _, ok := resp["item"]; ok {
			t.Errorf("%s on empty list reported an item: %v", op, resp)
		}
	}
}

func TestCLI_ListPopStoredNull(t *testing.T) {
	e := newTestEnv(t)
	e.must("list", "push", "q", "null")

	resp := e.must("list", "pop", "q")
	if v, ok := resp["item"]; !ok || v != nil || resp["success"] != true {
		t.Errorf("pop of stored null = %v", resp)
	}

	resp, err := e.run("", "list", "pop", "q")
	if !errors.Is(err, ErrUnsuccessful) || resp["success"] != false {
		t.Errorf("pop after the null was removed = %v, %v", resp, err)
	}
}

func TestCLI_ListErrors(t *testing.T) {
	e := newTestEnv(t)
	e.must("list", "push", "q", "1")

	resp, err := e.run("", "list", "get", "q", "5")
	if err == nil {
		t.Fatal("expected an out of range error")
	}
	if resp["success"] != false {
		t.Errorf("response = %v", resp)
	}

	e.must("set", "obj", `{"a": 1}`)
	if _, err := e.run("", "list", "push", "obj", "1"); err == nil {
		t.Error("pushing onto a non-list should fail")
	}

	e.must("list", "clear", "q")
	if got := e.must("list", "len", "q")["length"]; got != float64(0) {
		t.Errorf("len after clear = %v", got)
	}
}

func TestCLI_HistoryAndFavorites(t *testing.T) {
	e := newTestEnv(t)

	first := e.must("history", "push", "txt2img", "1girl, cherry blossoms", "--name", "Spring")["id"].(string)
	second := e.must("history", "push", "txt2img", "mountain lake", "--tags", `["landscape"]`)["id"].(string)
	if first == "" || second == "" || first == second {
		t.Fatalf("ids = %q, %q", first, second)
	}

	if resp := e.must("favorite", "add", "txt2img", first); resp["success"] != true {
		t.Fatalf("favorite add = %v", resp)
	}

	histories := e.must("history", "list", "txt2img")["histories"].([]any)
	if len(histories) != 2 {
		t.Fatalf("histories = %v", histories)
	}
	h0 := histories[0].(map[string]any)
	h1 := histories[1].(map[string]any)
	if h0["id"] != first || h0["is_favorite"] != true || h1["is_favorite"] != false {
		t.Errorf("histories = %v", histories)
	}
	if diff := cmp.Diff([]any{"landscape"}, h1["tags"]); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	// Renaming the favorite renames the history record too.
	e.must("favorite", "rename", "txt2img", first, "Blossoms")
	latest := e.must("history", "list", "txt2img")["histories"].([]any)[0].(map[string]any)
	if latest["name"] != "Blossoms" {
		t.Errorf("mirrored name = %v", latest["name"])
	}

	favorites := e.must("favorite", "list", "txt2img")["favorites"].([]any)
	if len(favorites) != 1 || favorites[0].(map[string]any)["prompt"] != "1girl, cherry blossoms" {
		t.Errorf("favorites = %v", favorites)
	}

	e.must("favorite", "remove", "txt2img", first)
	if got := e.must("favorite", "list", "txt2img")["favorites"].([]any); len(got) != 0 {
		t.Errorf("favorites after remove = %v", got)
	}

	if got := e.must("history", "latest", "txt2img")["history"].(map[string]any); got["id"] != second {
		t.Errorf("latest = %v", got)
	}
}

func TestCLI_FavoriteOrder(t *testing.T) {
	e := newTestEnv(t)

	var ids []string
	for _, p := range []string{"a", "b", "c"} {
		ids = append(ids, e.must("favorite", "push", "img2img", p)["id"].(string))
	}

	e.must("favorite", "up", "img2img", ids[2])
	e.must("favorite", "down", "img2img", ids[0])

	var got []string
	for _, f := range e.must("favorite", "list", "img2img")["favorites"].([]any) {
		got = append(got, f.(map[string]any)["prompt"].(string))
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	// ids[2] is now first.
	resp, err := e.run("", "favorite", "up", "img2img", ids[2])
	if !errors.Is(err, ErrUnsuccessful) || resp["success"] != false {
		t.Errorf("moving the first favorite up = %v, %v", resp, err)
	}
}

func TestCLI_HistoryEditAndRemove(t *testing.T) {
	e := newTestEnv(t)
	id := e.must("history", "push", "txt2img", "old")["id"].(string)

	e.must("history", "edit", "txt2img", id, `{"positive": "new"}`, "--json", "--name", "Edited")
	h := e.must("history", "latest", "txt2img")["history"].(map[string]any)
	if diff := cmp.Diff(map[string]any{"positive": "new"}, h["prompt"]); diff != "" {
		t.Errorf("prompt mismatch (-want +got):\n%s", diff)
	}
	if h["name"] != "Edited" {
		t.Errorf("name = %v", h["name"])
	}

	e.must("history", "remove", "txt2img", id)
	resp, err := e.run("", "history", "remove", "txt2img", id)
	if !errors.Is(err, ErrUnsuccessful) || resp["success"] != false {
		t.Errorf("removing twice = %v, %v", resp, err)
	}

	e.must("history", "push", "txt2img", "x")
	e.must("history", "clear", "txt2img")
	if got := e.must("history", "list", "txt2img")["histories"].([]any); len(got) != 0 {
		t.Errorf("histories after clear = %v", got)
	}
	if v, ok := e.must("history", "latest", "txt2img")["history"]; !ok || v != nil {
		t.Errorf("latest of empty history = %v", v)
	}
}

func TestCLI_HistoryInvalidType(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run("", "history", "push", "../escape", "p"); err == nil {
		t.Error("type with a path separator should fail")
	}
}

func TestCLI_Copy(t *testing.T) {
	e := newTestEnv(t)
	first := e.must("history", "push", "txt2img", "first prompt")["id"].(string)
	e.must("history", "push", "txt2img", "second prompt")

	e.must("history", "copy", "txt2img")
	if got := string(e.board.GetData()); got != "second prompt" {
		t.Errorf("clipboard = %q, want newest prompt", got)
	}

	e.must("history", "copy", "txt2img", first)
	if got := string(e.board.GetData()); got != "first prompt" {
		t.Errorf("clipboard = %q", got)
	}

	resp, err := e.run("", "history", "copy", "txt2img", "no-such-id")
	if !errors.Is(err, ErrUnsuccessful) || resp["success"] != false {
		t.Errorf("copy of unknown id = %v, %v", resp, err)
	}

	e.board.Unsupported = true
	if _, err := e.run("", "history", "copy", "txt2img"); err == nil {
		t.Error("copy without clipboard support should fail")
	}
}

func TestCLI_Config(t *testing.T) {
	e := newTestEnv(t)

	if got := e.must("config", "get", "history-limit")["value"]; got != "100" {
		t.Errorf("default history-limit = %v", got)
	}

	e.must("config", "set", "history-limit", "2")
	if got := e.must("config", "get", "history-limit")["value"]; got != "2" {
		t.Errorf("history-limit = %v", got)
	}

	// The configured limit applies to later commands.
	for _, p := range []string{"a", "b", "c"} {
		e.must("history", "push", "txt2img", p)
	}
	var got []string
	for _, h := range e.must("history", "list", "txt2img")["histories"].([]any) {
		got = append(got, h.(map[string]any)["prompt"].(string))
	}
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("trimmed history mismatch (-want +got):\n%s", diff)
	}

	resp := e.must("config", "list")
	if resp["path"] != e.config {
		t.Errorf("path = %v", resp["path"])
	}
	cfg := resp["config"].(map[string]any)
	if cfg["backend"] != "file" || cfg["storage-location"] != "[default]" {
		t.Errorf("config = %v", cfg)
	}

	if _, err := e.run("", "config", "set", "history-limit", "0"); err == nil {
		t.Error("history-limit 0 should be rejected")
	}
	if _, err := e.run("", "config", "set", "colour", "red"); err == nil {
		t.Error("unknown key should be rejected")
	}
}

func TestCLI_SQLiteBackend(t *testing.T) {
	e := newTestEnv(t)

	e.must("--backend", "sqlite", "list", "push", "q", `"x"`)
	if got := e.must("--backend", "sqlite", "list", "len", "q")["length"]; got != float64(1) {
		t.Errorf("len = %v", got)
	}

	// The file backend does not see documents written to the database.
	if got := e.must("list", "len", "q")["length"]; got != float64(0) {
		t.Errorf("file backend len = %v", got)
	}

	if _, err := e.run("", "--backend", "bogus", "get", "q"); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestCLI_Unlock(t *testing.T) {
	e := newTestEnv(t)

	root := filepath.Join(e.workdir, storefs.ExtensionDir, storefs.StorageDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.lock", "b.lock"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	resp := e.must("unlock")
	if resp["success"] != true || resp["removed"] != float64(2) {
		t.Errorf("unlock = %v", resp)
	}
	if got := e.must("unlock")["removed"]; got != float64(0) {
		t.Errorf("second unlock removed %v", got)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		raw     bool
		want    any
		wantErr bool
	}{
		{name: "raw", text: "hello", raw: true, want: "hello"},
		{name: "string", text: `"hello"`, want: "hello"},
		{name: "number keeps literal", text: "12345678901234567890", want: json.Number("12345678901234567890")},
		{name: "null", text: "null", want: nil},
		{name: "invalid", text: "hello", wantErr: true},
		{name: "trailing value", text: "1 2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.text, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseValue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitKeys(t *testing.T) {
	got := splitKeys([]string{"a,b", " c ", ",", "d,"})
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, got); diff != "" {
		t.Errorf("splitKeys() mismatch (-want +got):\n%s", diff)
	}
}
