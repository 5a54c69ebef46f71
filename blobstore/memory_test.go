package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStorePutOpen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "a", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	blob, err := store.Open(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer blob.Close()

	if blob.Size() != 5 {
		t.Errorf("Size() = %d, want 5", blob.Size())
	}

	buf := make([]byte, 3)
	if _, err := blob.ReadAt(buf, 2); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "llo" {
		t.Errorf("ReadAt = %q, want %q", buf, "llo")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Open(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "a", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Open(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	// Deleting again is not an error.
	if err := store.Delete(ctx, "a"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestMemoryStorePutCopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	if err := store.Put(ctx, "a", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'z'

	blob, err := store.Open(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer blob.Close()

	buf := make([]byte, 3)
	if _, err := blob.ReadAt(buf, 0); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abc" {
		t.Errorf("stored blob mutated: %q", buf)
	}
}

func TestMemoryStorePutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("file-data"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewMemoryStore()
	if err := store.PutFile(context.Background(), "f", path); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}
