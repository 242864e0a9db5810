// Package testutil provides shared test helpers for setting up hubs and archives.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/foundryos/foundry/internal/archive"
	"github.com/foundryos/foundry/internal/storage"
)

// TestArchive creates a temporary SQLite archive that is automatically cleaned up.
func TestArchive(t *testing.T) *archive.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "foundry-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := archive.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestHub creates a temporary hub directory with a storage.Provider.
func TestHub(t *testing.T) (string, storage.Provider) {
	t.Helper()
	hubDir := t.TempDir()
	store, err := storage.NewFS(hubDir)
	if err != nil {
		t.Fatal(err)
	}
	return hubDir, store
}

// WriteManifest marshals v and writes it to dir/name, bypassing the provider
// so tests can stage both valid and deliberately broken manifests.
func WriteManifest(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, ok := v.([]byte)
	if !ok {
		var err error
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
