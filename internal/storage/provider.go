// Package storage defines the hub directory abstraction. The hub is a flat
// directory of JSON manifest files; the engine reads it, and only the
// explicit create surfaces ever write to it.
package storage

import "time"

// ManifestFile is the stat-level metadata for one manifest in the hub.
type ManifestFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for hub file operations.
type Provider interface {
	// List returns metadata for every manifest in the hub, in name order.
	List() ([]ManifestFile, error)
	// Read returns the raw bytes of the named manifest.
	Read(name string) ([]byte, error)
	// Write atomically creates a new manifest. Existing names are refused
	// with apperr.ErrAlreadyExists.
	Write(name string, data []byte) error
}
