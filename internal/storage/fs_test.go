package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/foundryos/foundry/internal/apperr"
)

func tempHub(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempHub(t)
	content := []byte(`{"name": "X"}`)
	if err := s.Write("project.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("project.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWrite_RefusesExisting(t *testing.T) {
	s := tempHub(t)
	if err := s.Write("dup.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	err := s.Write("dup.json", []byte(`{"other": true}`))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("dup.json")
	if string(got) != "{}" {
		t.Errorf("original content clobbered: %q", got)
	}
}

func TestList_FiltersNonManifests(t *testing.T) {
	s := tempHub(t)
	writeRaw := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(s.Root(), name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeRaw("a.json", "{}")
	writeRaw("b.json", "{}")
	writeRaw("notes.txt", "not a manifest")
	writeRaw(".hidden.json", "{}")
	if err := os.Mkdir(filepath.Join(s.Root(), "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeRaw(filepath.Join("sub", "c.json"), "{}")

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Name != "a.json" || items[1].Name != "b.json" {
		t.Errorf("names = %s, %s", items[0].Name, items[1].Name)
	}
	if items[0].Size != 2 || items[0].ModTime.IsZero() {
		t.Errorf("metadata = %+v", items[0])
	}
}

func TestUnsafeNamesBlocked(t *testing.T) {
	s := tempHub(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
		"sub/nested.json",
		".hidden.json",
		"",
	}
	for _, name := range cases {
		if _, err := s.Read(name); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Read(%q) = %v, want ErrInvalidInput", name, err)
		}
		if err := s.Write(name, []byte("x")); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Write(%q) = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestWrite_NoLeftoverTempFiles(t *testing.T) {
	s := tempHub(t)
	if err := s.Write("clean.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".foundry-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("temp files leaked into listing: %+v", items)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/foundry-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "foundry-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
