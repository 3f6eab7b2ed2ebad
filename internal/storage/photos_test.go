package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestReadPhoto(t *testing.T) {
	store := newTestStore(t)
	want := []byte("jpeg-bytes")

	dir := filepath.Join(store.Root(), "all")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "booth_0001.jpg"), want, 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.Stat("all/booth_0001.jpg"); err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	got, err := store.ReadPhoto("all/booth_0001.jpg")
	if err != nil {
		t.Fatalf("ReadPhoto() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadPhoto() = %q, want %q", got, want)
	}
}

func TestMissingPhoto(t *testing.T) {
	store := newTestStore(t)

	if err := store.Stat("nope.jpg"); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("Stat(missing) error = %v, want ErrPhotoNotFound", err)
	}
	if _, err := store.ReadPhoto("nope.jpg"); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("ReadPhoto(missing) error = %v, want ErrPhotoNotFound", err)
	}
}

func TestRefsCannotEscapeRoot(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(filepath.Dir(store.Root()), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []string{
		"../secret.txt",
		"all/../../secret.txt",
		"",
	}
	for _, ref := range tests {
		if _, err := store.ReadPhoto(ref); !errors.Is(err, ErrPhotoNotFound) {
			t.Errorf("ReadPhoto(%q) error = %v, want ErrPhotoNotFound", ref, err)
		}
	}
}

func TestStatRejectsDirectories(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(filepath.Join(store.Root(), "all"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := store.Stat("all"); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("Stat(dir) error = %v, want ErrPhotoNotFound", err)
	}
}
