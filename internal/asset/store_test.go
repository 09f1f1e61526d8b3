package asset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPutOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	id, err := store.Put([]byte("png-bytes"), "png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	data, ext, err := store.Open(id)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(data, []byte("png-bytes")) || ext != "png" {
		t.Fatalf("open = %q %q", data, ext)
	}

	if _, _, err := store.Open("asset_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("open missing = %v, want ErrNotFound", err)
	}
}

func TestReleaseRemovesAtZero(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	id, err := store.Put([]byte("data"), "png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	store.Retain(id) // refcount 2

	if err := store.Release(id); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if _, _, err := store.Open(id); err != nil {
		t.Fatal("file removed while a reference remained")
	}

	if err := store.Release(id); err != nil {
		t.Fatalf("final release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, id+".png")); !os.IsNotExist(err) {
		t.Fatal("file survived the final release")
	}
}

func TestRetainAdoptsUnknownID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	// file written by a previous process lifetime, unknown to this store
	path := filepath.Join(dir, "asset_old.png")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store.Retain("asset_old")
	if err := store.Release("asset_old"); err != nil {
		t.Fatalf("release adopted asset: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("adopted asset not removed at zero references")
	}
}

func TestReleaseUnknownIDRemovesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path := filepath.Join(dir, "asset_orphan.jpg")
	if err := os.WriteFile(path, []byte("orphan"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := store.Release("asset_orphan"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("orphan file survived release")
	}

	if err := store.Release("asset_never_existed"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("release of nonexistent asset = %v, want ErrNotFound", err)
	}
}
