// ABOUTME: Tests for the token store
// ABOUTME: Verifies load/save/clear round trips and file permissions

package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Load()
	if err != ErrNoToken {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lms")
	s := New(dir)

	if err := s.Save("header.payload.sig"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	token, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if token != "header.payload.sig" {
		t.Errorf("expected saved token, got %q", token)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Save("first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("second"); err != nil {
		t.Fatal(err)
	}

	token, _ := s.Load()
	if token != "second" {
		t.Errorf("expected second token, got %q", token)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		t.Errorf("expected only the token file, found %d entries", len(entries))
	}
}

func TestSavePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lms")
	s := New(dir)

	if err := s.Save("secret"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected token mode 0600, got %o", perm)
	}

	dirInfo, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0700 {
		t.Errorf("expected dir mode 0700, got %o", perm)
	}
}

func TestLoadBlankFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := os.WriteFile(s.Path(), []byte("  \n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(); err != ErrNoToken {
		t.Errorf("expected ErrNoToken for blank file, got %v", err)
	}
}

func TestClear(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Clear(); err != nil {
		t.Errorf("clearing empty slot should succeed, got %v", err)
	}

	if err := s.Save("token"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := s.Load(); err != ErrNoToken {
		t.Errorf("expected ErrNoToken after Clear, got %v", err)
	}
}
