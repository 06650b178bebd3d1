package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pfrederiksen/eventscout/internal/event"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := New(t.TempDir(), Files{})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return store
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := New(dir, Files{Details: "details.json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("data directory was not created: %v", err)
	}
	if store.DetailsPath() != filepath.Join(dir, "details.json") {
		t.Errorf("DetailsPath() = %q", store.DetailsPath())
	}
	if store.OverviewsPath() != filepath.Join(dir, "event_overviews.json") {
		t.Errorf("OverviewsPath() = %q, want default name", store.OverviewsPath())
	}
}

func TestNew_HomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := New("~/events", Files{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if store.DataDir() != filepath.Join(home, "events") {
		t.Errorf("DataDir() = %q, want %q", store.DataDir(), filepath.Join(home, "events"))
	}
}

func TestPath_Absolute(t *testing.T) {
	store := newTestStorage(t)
	if got := store.Path("/srv/www/event_details.json"); got != "/srv/www/event_details.json" {
		t.Errorf("Path() = %q, want absolute path kept", got)
	}
}

func TestOverviews_RoundTrip(t *testing.T) {
	store := newTestStorage(t)

	stubs := []*event.Stub{
		event.NewStub(1, "AI Happy Hour", "7:00 PM", "https://lu.ma/a", "The Belmont", "a.png"),
		event.NewStub(2, "", "", "", "", ""),
	}

	if err := store.SaveOverviews(stubs); err != nil {
		t.Fatalf("SaveOverviews() error = %v", err)
	}

	got, err := store.LoadOverviews()
	if err != nil {
		t.Fatalf("LoadOverviews() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("LoadOverviews() returned %d stubs, want 2", len(got))
	}
	if *got[1] != *stubs[1] {
		t.Errorf("stub 2 = %+v, want %+v", *got[1], *stubs[1])
	}
}

func TestSave_OverwritesWholeFile(t *testing.T) {
	store := newTestStorage(t)

	first := []*event.Record{{ID: 1}, {ID: 2}, {ID: 3}}
	if err := store.SaveDetails(first); err != nil {
		t.Fatal(err)
	}

	if err := store.SaveDetails([]*event.Record{{ID: 5}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadDetails()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 5 {
		t.Errorf("LoadDetails() = %+v, want only id 5", got)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(store.DataDir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSave_FormatAndEscaping(t *testing.T) {
	store := newTestStorage(t)

	records := []*event.ContentRecord{{ID: 1, Name: "Food & Drinks <Live>"}}
	if err := store.SaveContents(records); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(store.ContentsPath())
	if err != nil {
		t.Fatal(err)
	}

	text := string(data)
	if !strings.HasPrefix(text, "[\n  {\n    \"id\": 1") {
		t.Errorf("expected two-space indented array, got:\n%s", text)
	}
	if !strings.Contains(text, "Food & Drinks <Live>") {
		t.Errorf("HTML characters should not be escaped:\n%s", text)
	}

	info, err := os.Stat(store.ContentsPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("file mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestSave_NilWritesEmptyArray(t *testing.T) {
	store := newTestStorage(t)

	if err := store.SaveDetails(nil); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(store.DetailsPath())
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected [], got %q", data)
	}
}

func TestLoad_Errors(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.LoadOverviews()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadOverviews() error = %v, want not-exist", err)
	}

	if err := os.WriteFile(store.ContentsPath(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadContents(); err == nil {
		t.Error("LoadContents() expected parse error")
	}
}

func TestLoad_NullEntries(t *testing.T) {
	store := newTestStorage(t)

	tests := []struct {
		name string
		path string
		load func() error
	}{
		{"overviews", store.OverviewsPath(), func() error { _, err := store.LoadOverviews(); return err }},
		{"contents", store.ContentsPath(), func() error { _, err := store.LoadContents(); return err }},
		{"details", store.DetailsPath(), func() error { _, err := store.LoadDetails(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(tt.path, []byte(`[{"id": 1}, null]`), 0644); err != nil {
				t.Fatal(err)
			}
			err := tt.load()
			if err == nil {
				t.Fatal("expected error for null entry")
			}
			if !strings.Contains(err.Error(), "entry 1 is null") {
				t.Errorf("error = %v, want entry 1 is null", err)
			}
		})
	}
}
