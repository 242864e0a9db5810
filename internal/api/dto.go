package api

import (
	"github.com/foundryos/foundry/internal/hub"
	"github.com/foundryos/foundry/internal/manifest"
	"github.com/foundryos/foundry/internal/metrics"
	"github.com/foundryos/foundry/internal/pattern"
)

// CreateManifestRequest is the request body for submitting a new manifest.
type CreateManifestRequest struct {
	Filename string         `json:"filename" example:"saas-alpha.json" validate:"required"`
	Manifest map[string]any `json:"manifest" validate:"required"`
}

// ResolvePatternRequest is the request body for confirming or rejecting a
// pending pattern.
type ResolvePatternRequest struct {
	Accept bool `json:"accept" example:"true"`
}

// Project is the full project response type (aliased from the domain layer).
type Project = manifest.Project

// Diagnostic is a manifest fault record (aliased from the domain layer).
type Diagnostic = manifest.Diagnostic

// Pattern is a confirmed pattern (aliased from the domain layer).
type Pattern = pattern.Pattern

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []Project `json:"projects" validate:"required"`
	Total    int       `json:"total" example:"12" validate:"required"`
}

// DiagnosticListResponse wraps the diagnostics of the last scan.
type DiagnosticListResponse struct {
	Diagnostics []Diagnostic `json:"diagnostics" validate:"required"`
	Total       int          `json:"total" example:"3" validate:"required"`
}

// SnapshotListResponse wraps archived metric snapshots, newest first.
type SnapshotListResponse struct {
	Snapshots []*metrics.Snapshot `json:"snapshots" validate:"required"`
	Total     int                 `json:"total" example:"20" validate:"required"`
}

// PatternListResponse wraps confirmed patterns.
type PatternListResponse struct {
	Patterns []pattern.Pattern `json:"patterns" validate:"required"`
	Total    int               `json:"total" example:"2" validate:"required"`
}

// PendingPatternListResponse wraps patterns awaiting review.
type PendingPatternListResponse struct {
	Pending []pattern.Pending `json:"pending" validate:"required"`
	Total   int               `json:"total" example:"1" validate:"required"`
}

// ManifestRejectedResponse is returned when a submitted manifest fails
// validation and is kept out of the project set.
type ManifestRejectedResponse struct {
	Error       string       `json:"error" example:"manifest rejected" validate:"required"`
	File        string       `json:"file" example:"saas-alpha.json" validate:"required"`
	Diagnostics []Diagnostic `json:"diagnostics" validate:"required"`
}

// StatusReport is the aggregate empire status (aliased from the domain layer).
type StatusReport = hub.StatusReport

// ReloadResult summarizes a manifest rescan (aliased from the domain layer).
type ReloadResult = hub.ReloadResult
