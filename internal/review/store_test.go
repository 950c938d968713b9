package review

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())

	data, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data.Version != storeVersion {
		t.Fatalf("unexpected version: %d", data.Version)
	}
	if data.Reviews == nil {
		t.Fatal("expected empty reviews slice, not nil")
	}
}

func TestStoreSaveAndReload(t *testing.T) {
	workspace := t.TempDir()
	store := NewStore(workspace)

	data := defaultFileData()
	data.Reviews = append(data.Reviews, Review{
		ID:         "review-1",
		AgentID:    "agent-1",
		ToolChoice: sampleToolChoice,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	})
	if err := store.Save(data); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewStore(workspace).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(reloaded.Reviews) != 1 || reloaded.Reviews[0].ID != "review-1" {
		t.Fatalf("unexpected reload: %+v", reloaded.Reviews)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	workspace := t.TempDir()
	store := NewStore(workspace)

	if err := store.Save(defaultFileData()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(workspace, "state"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "reviews.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	workspace := t.TempDir()
	path := filepath.Join(workspace, "state", "reviews.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := NewStore(workspace).Load(); err == nil {
		t.Fatal("expected parse error for corrupt store")
	}
}
