package scope

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yiblet/promptkeep/internal/config"
	"github.com/yiblet/promptkeep/internal/store/dbstore"
	"github.com/yiblet/promptkeep/internal/store/filestore"
	"github.com/yiblet/promptkeep/internal/storefs"
)

func TestRegistry_SameScopeSameStore(t *testing.T) {
	workdir := t.TempDir()
	r := NewRegistry(Options{})
	defer r.Close()

	a, err := r.Open(workdir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	b, err := r.Open(filepath.Join(workdir, "sub", ".."))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if a != b {
		t.Error("expected one store per scope")
	}

	other, err := r.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if other == a {
		t.Error("distinct scopes share a store")
	}
	if len(r.Roots()) != 2 {
		t.Errorf("Roots() = %v", r.Roots())
	}
}

func TestRegistry_ScopesAreIsolated(t *testing.T) {
	r := NewRegistry(Options{})
	defer r.Close()

	a, _ := r.Open(t.TempDir())
	b, _ := r.Open(t.TempDir())
	if err := a.Set("k", "a"); err != nil {
		t.Fatal(err)
	}

	var v any
	status, err := b.Get("k", &v)
	if err != nil {
		t.Fatal(err)
	}
	if status.Found() {
		t.Errorf("value leaked across scopes: %v", v)
	}
}

func TestRegistry_Root(t *testing.T) {
	workdir := t.TempDir()
	r := NewRegistry(Options{DefaultRoot: "/default/root"})

	root, err := r.Root(workdir)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(workdir, storefs.ExtensionDir, storefs.StorageDir)
	if root != want {
		t.Errorf("Root() = %s, want %s", root, want)
	}

	root, err = r.Root("")
	if err != nil {
		t.Fatal(err)
	}
	if root != "/default/root" {
		t.Errorf("Root(\"\") = %s", root)
	}
}

func TestRegistry_DefaultScope(t *testing.T) {
	defaultRoot := filepath.Join(t.TempDir(), "default")
	r := NewRegistry(Options{DefaultRoot: defaultRoot})
	defer r.Close()

	s, err := r.Open("")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := s.Set("k", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(defaultRoot, "k.json")); err != nil {
		t.Errorf("document not under default root: %v", err)
	}
}

func TestRegistry_SweepOnFirstOpen(t *testing.T) {
	workdir := t.TempDir()
	root := filepath.Join(workdir, storefs.ExtensionDir, storefs.StorageDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(root, "history.txt2img.lock")
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(Options{})
	defer r.Close()
	s, err := r.Open(workdir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("stale marker survived the first open")
	}
	if _, ok := s.(*filestore.FileStore); !ok {
		t.Errorf("expected a file store, got %T", s)
	}

	// Later opens of the same scope must not sweep: a live writer's marker
	// would be removed from under it.
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Open(workdir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Error("second open swept the scope")
	}
}

func TestRegistry_LegacyMigration(t *testing.T) {
	workdir := t.TempDir()
	legacy := filepath.Join(workdir, storefs.LegacyDir)
	if err := os.MkdirAll(legacy, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(legacy, "favorite.txt2img.json"), []byte(`[{"id": "x"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(Options{})
	defer r.Close()
	s, err := r.Open(workdir)
	if err != nil {
		t.Fatal(err)
	}

	var got []map[string]any
	if _, err := s.Get("favorite.txt2img", &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]map[string]any{{"id": "x"}}, got); diff != "" {
		t.Errorf("migrated document mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_SQLiteBackend(t *testing.T) {
	workdir := t.TempDir()
	r := NewRegistry(Options{Backend: config.BackendSQLite})

	s, err := r.Open(workdir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, ok := s.(*dbstore.SQLiteStore); !ok {
		t.Fatalf("expected a sqlite store, got %T", s)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	root, _ := r.Root(workdir)
	if _, err := os.Stat(filepath.Join(root, dbstore.FileName)); err != nil {
		t.Errorf("database file missing: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if len(r.Roots()) != 0 {
		t.Error("Close() left stores registered")
	}
}

func TestRegistry_UnknownBackend(t *testing.T) {
	r := NewRegistry(Options{Backend: "redis"})
	if _, err := r.Open(t.TempDir()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRegistry_Recover(t *testing.T) {
	workdir := t.TempDir()
	root := filepath.Join(workdir, storefs.ExtensionDir, storefs.StorageDir)
	if err := os.MkdirAll(filepath.Join(root, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.lock", "nested/b.lock", "c.json" + storefs.TempMarker + "123"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "keep.json"), []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(Options{})
	defer r.Close()
	n, err := r.Recover(workdir)
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Recover() removed %d files, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(root, "keep.json")); err != nil {
		t.Error("Recover() removed a document")
	}
	if len(r.Roots()) != 0 {
		t.Error("Recover() should not cache a store")
	}
}

// TestRegistry_OpenKeepsLiveLocks tests that a second process opening a scope
// in use does not break the first process's lock.
func TestRegistry_OpenKeepsLiveLocks(t *testing.T) {
	workdir := t.TempDir()

	first := NewRegistry(Options{})
	defer first.Close()
	s1, err := first.Open(workdir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	lock, err := s1.(*filestore.FileStore).Acquire("history.txt2img")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	second := NewRegistry(Options{})
	defer second.Close()
	s2, err := second.Open(workdir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if locked, _ := s2.(*filestore.FileStore).IsLocked("history.txt2img"); !locked {
		t.Fatal("opening the scope removed a held lock marker")
	}

	done := make(chan error, 1)
	go func() {
		done <- s2.Set("history.txt2img", []string{"second"})
	}()
	select {
	case <-done:
		t.Fatal("second writer ran while the first holds the lock")
	case <-time.After(100 * time.Millisecond):
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second writer never ran")
	}

	// Recover over an idle scope still clears markers left by a crash.
	root, _ := second.Root(workdir)
	if err := os.WriteFile(filepath.Join(root, "crashed.lock"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if n, err := second.Recover(workdir); err != nil || n != 1 {
		t.Errorf("Recover() = %d, %v; want 1, nil", n, err)
	}
}
