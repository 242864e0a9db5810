// Package hub is the service layer of the engine. It coordinates the
// manifest store, the metrics aggregator, the pattern detector, and the
// archive behind one API shared by the HTTP, MCP, and CLI surfaces.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foundryos/foundry/internal/apperr"
	"github.com/foundryos/foundry/internal/archive"
	"github.com/foundryos/foundry/internal/manifest"
	"github.com/foundryos/foundry/internal/metrics"
	"github.com/foundryos/foundry/internal/pattern"
	"github.com/foundryos/foundry/internal/storage"
	"github.com/foundryos/foundry/internal/store"
)

// ReloadResult summarizes one hub rescan.
type ReloadResult struct {
	Projects        int `json:"projects"`
	Diagnostics     int `json:"diagnostics"`
	PendingPatterns int `json:"pending_patterns"`
}

// StatusReport is the full health view of the empire: the latest aggregate
// snapshot plus everything that needs operator attention.
type StatusReport struct {
	Snapshot          *metrics.Snapshot `json:"snapshot"`
	RejectedManifests int               `json:"rejected_manifests"`
	Warnings          int               `json:"warnings"`
	ConfirmedPatterns int               `json:"confirmed_patterns"`
	PendingPatterns   []pattern.Pending `json:"pending_patterns"`
}

// ManifestRejectedError reports that an uploaded manifest was written but
// failed validation. Diagnostics carries the reasons.
type ManifestRejectedError struct {
	File        string
	Diagnostics []manifest.Diagnostic
}

func (e *ManifestRejectedError) Error() string {
	return fmt.Sprintf("hub: manifest %s rejected (%d diagnostics)", e.File, len(e.Diagnostics))
}

// Service coordinates manifest scanning, aggregation, pattern detection,
// and archival.
type Service struct {
	provider storage.Provider
	store    *store.Store
	detector *pattern.Detector
	archive  archive.Store
	logger   *slog.Logger

	mu   sync.Mutex
	snap *metrics.Snapshot // last computed aggregate
}

// NewService creates the hub service. The store starts empty; call Reload
// (or any read, which lazily reloads) to populate it.
func NewService(p storage.Provider, st *store.Store, det *pattern.Detector, arc archive.Store, logger *slog.Logger) *Service {
	return &Service{provider: p, store: st, detector: det, archive: arc, logger: logger}
}

// Reload rescans the hub, recomputes the aggregate snapshot, rescans for
// improvement patterns against the archived baselines, and records the run.
// Archive faults degrade to warnings so reporting keeps working without
// history; only a failed directory scan propagates.
func (s *Service) Reload(ctx context.Context) (*ReloadResult, error) {
	if err := s.store.Reload(ctx); err != nil {
		return nil, err
	}
	curr := metrics.Compute(s.store.Projects())

	base, err := s.archive.BaselineSnapshot()
	if err != nil {
		s.logger.Warn("reload: baselines unavailable", slog.String("error", err.Error()))
	}
	pending := s.detector.Scan(base, curr)

	if err := s.archive.SaveSnapshot(curr); err != nil {
		s.logger.Warn("reload: snapshot not archived", slog.String("error", err.Error()))
	}
	if err := s.archive.SeedBaselines(curr); err != nil {
		s.logger.Warn("reload: baseline seed failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.snap = curr
	s.mu.Unlock()

	return &ReloadResult{
		Projects:        s.store.Len(),
		Diagnostics:     len(s.store.Diagnostics()),
		PendingPatterns: len(pending),
	}, nil
}

// Status returns the current empire overview, reloading first if the hub has
// never been scanned.
func (s *Service) Status(ctx context.Context) (*StatusReport, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	var rejected, warnings int
	for _, d := range s.store.Diagnostics() {
		switch d.Severity {
		case manifest.SeverityError:
			rejected++
		case manifest.SeverityWarning:
			warnings++
		}
	}

	confirmed := 0
	if list, err := s.archive.ListPatterns(); err != nil {
		s.logger.Warn("status: patterns unavailable", slog.String("error", err.Error()))
	} else {
		confirmed = len(list)
	}

	return &StatusReport{
		Snapshot:          s.currentSnapshot(),
		RejectedManifests: rejected,
		Warnings:          warnings,
		ConfirmedPatterns: confirmed,
		PendingPatterns:   s.detector.Pending(),
	}, nil
}

// Projects returns loaded projects, optionally filtered by status and type.
// The status filter must be a known status; the type filter matches the
// manifest's type field exactly.
func (s *Service) Projects(ctx context.Context, status, projectType string) ([]manifest.Project, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var statusFilter manifest.Status
	if status != "" {
		st, ok := manifest.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("hub: status filter %q: %w", status, apperr.ErrInvalidInput)
		}
		statusFilter = st
	}

	all := s.store.Projects()
	out := make([]manifest.Project, 0, len(all))
	for _, p := range all {
		if statusFilter != "" && p.Status != statusFilter {
			continue
		}
		if projectType != "" && p.Type != projectType {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Project returns a single project by id.
func (s *Service) Project(ctx context.Context, id string) (manifest.Project, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return manifest.Project{}, err
	}
	return s.store.Project(id)
}

// Diagnostics returns every diagnostic from the current scan.
func (s *Service) Diagnostics(ctx context.Context) ([]manifest.Diagnostic, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.store.Diagnostics(), nil
}

// Snapshots returns archived aggregation runs, newest first.
func (s *Service) Snapshots(_ context.Context, limit int) ([]*metrics.Snapshot, error) {
	return s.archive.ListSnapshots(limit)
}

// Patterns returns confirmed patterns, newest first.
func (s *Service) Patterns(_ context.Context) ([]pattern.Pattern, error) {
	return s.archive.ListPatterns()
}

// PendingPatterns returns detected improvements awaiting review.
func (s *Service) PendingPatterns(ctx context.Context) ([]pattern.Pending, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.detector.Pending(), nil
}

// ResolvePattern applies a review decision to a pending pattern. Accepting
// persists it to the archive; either decision advances the project type's
// baseline to the current snapshot so the next scan measures from the
// reviewed state instead of re-prompting.
func (s *Service) ResolvePattern(ctx context.Context, projectType string, accept bool) (*pattern.Pattern, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p, err := s.detector.Resolve(projectType, accept)
	if err != nil {
		return nil, err
	}
	if p != nil {
		if err := s.archive.SavePattern(p); err != nil {
			return nil, fmt.Errorf("hub: persist pattern: %w", err)
		}
		s.logger.Info("pattern persisted",
			slog.String("type", p.ProjectType),
			slog.String("metric", string(p.Metric)),
			slog.String("description", p.Description))
	}
	if curr := s.currentSnapshot(); curr != nil {
		if tm, ok := curr.Types[projectType]; ok {
			if err := s.archive.SetBaseline(projectType, tm, curr.TakenAt); err != nil {
				return nil, fmt.Errorf("hub: advance baseline: %w", err)
			}
		}
	}
	return p, nil
}

// CreateManifest writes a new manifest into the hub and reloads. Returns the
// resulting project, or a *ManifestRejectedError when the written manifest
// failed validation.
func (s *Service) CreateManifest(ctx context.Context, filename string, raw map[string]any) (*manifest.Project, error) {
	if !strings.HasSuffix(filename, ".json") {
		return nil, fmt.Errorf("hub: create %s: name must end in .json: %w", filename, apperr.ErrInvalidInput)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("hub: create %s: %w", filename, err)
	}
	data = append(data, '\n')
	if err := s.provider.Write(filename, data); err != nil {
		return nil, err
	}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}

	for _, p := range s.store.Projects() {
		if p.SourcePath == filename {
			return &p, nil
		}
	}
	var diags []manifest.Diagnostic
	for _, d := range s.store.Diagnostics() {
		if d.File == filename {
			diags = append(diags, d)
		}
	}
	return nil, &ManifestRejectedError{File: filename, Diagnostics: diags}
}

// ensureLoaded performs the initial scan when the hub has never been loaded.
func (s *Service) ensureLoaded(ctx context.Context) error {
	if !s.store.LoadedAt().IsZero() {
		return nil
	}
	_, err := s.Reload(ctx)
	return err
}

func (s *Service) currentSnapshot() *metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
