// Package store maintains the in-memory result set of a hub scan: every
// valid project plus the diagnostics for everything that was rejected or
// degraded. Reload rebuilds the whole set and publishes it atomically, so
// readers always see a complete scan, never a partial one.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foundryos/foundry/internal/apperr"
	"github.com/foundryos/foundry/internal/checksum"
	"github.com/foundryos/foundry/internal/manifest"
	"github.com/foundryos/foundry/internal/storage"
)

// readConcurrency bounds the per-file fan-out during a reload.
const readConcurrency = 8

// outcome is the cached result of processing one manifest file. Outcomes are
// keyed by checksum so an unchanged file is not re-parsed on the next reload.
type outcome struct {
	checksum string
	project  *manifest.Project
	diags    []manifest.Diagnostic
}

// snapshot is one complete scan result. Published via atomic pointer swap;
// immutable afterwards.
type snapshot struct {
	projects []manifest.Project
	byID     map[string]manifest.Project
	diags    []manifest.Diagnostic
	outcomes map[string]*outcome
	loadedAt time.Time
}

// Store scans the hub directory into typed projects.
type Store struct {
	provider  storage.Provider
	validator *manifest.Validator
	logger    *slog.Logger

	state atomic.Pointer[snapshot]
}

// New creates a Store over the given hub provider. The store is empty until
// the first Reload.
func New(p storage.Provider, v *manifest.Validator, logger *slog.Logger) *Store {
	s := &Store{provider: p, validator: v, logger: logger}
	s.state.Store(&snapshot{
		byID:     map[string]manifest.Project{},
		outcomes: map[string]*outcome{},
	})
	return s
}

// Reload rescans the hub directory and swaps in the new result set. The only
// hard failure is an unreadable hub directory (or cancellation); individual
// manifest faults become diagnostics and never abort the scan. On failure the
// previous result set stays published.
func (s *Store) Reload(ctx context.Context) error {
	files, err := s.provider.List()
	if err != nil {
		return fmt.Errorf("store: reload: %w", err)
	}

	prev := s.state.Load()
	results := make([]*outcome, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.processFile(f, prev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("store: reload: %w", err)
	}

	next := &snapshot{
		byID:     make(map[string]manifest.Project, len(files)),
		outcomes: make(map[string]*outcome, len(files)),
		loadedAt: time.Now().UTC(),
	}
	winners := make(map[string]string, len(files)) // project id → file that claimed it
	for i, f := range files {
		out := results[i]
		next.outcomes[f.Name] = out
		next.diags = append(next.diags, out.diags...)

		p := out.project
		if p == nil {
			continue
		}
		if winner, dup := winners[p.ID]; dup {
			next.diags = append(next.diags, manifest.Diagnostic{
				File:     f.Name,
				Kind:     manifest.DiagDuplicateID,
				Severity: manifest.SeverityError,
				Detail:   fmt.Sprintf("duplicate id %q also defined in %s", p.ID, winner),
			})
			s.logger.Warn("reload: duplicate project id",
				slog.String("file", f.Name),
				slog.String("id", p.ID),
				slog.String("winner", winner))
			continue
		}
		winners[p.ID] = f.Name
		next.projects = append(next.projects, *p)
		next.byID[p.ID] = *p
	}

	sort.Slice(next.projects, func(i, j int) bool {
		return next.projects[i].ID < next.projects[j].ID
	})

	s.state.Store(next)
	s.logger.Info("reload: hub scanned",
		slog.Int("manifests", len(files)),
		slog.Int("projects", len(next.projects)),
		slog.Int("diagnostics", len(next.diags)))
	return nil
}

// processFile reads, decodes, and validates one manifest. A previous outcome
// with the same checksum is reused without re-parsing.
func (s *Store) processFile(f storage.ManifestFile, prev *snapshot) *outcome {
	reject := func(detail string) *outcome {
		s.logger.Warn("reload: manifest rejected", slog.String("file", f.Name), slog.String("detail", detail))
		return &outcome{diags: []manifest.Diagnostic{{
			File:     f.Name,
			Kind:     manifest.DiagParseError,
			Severity: manifest.SeverityError,
			Detail:   detail,
		}}}
	}

	data, err := s.provider.Read(f.Name)
	if err != nil {
		return reject(fmt.Sprintf("read failed: %v", err))
	}
	cs := checksum.Sum(data)

	if old, ok := prev.outcomes[f.Name]; ok && old.checksum == cs {
		return old
	}

	raw, err := manifest.Decode(data)
	if err != nil {
		return reject(fmt.Sprintf("invalid JSON: %v", err))
	}

	p, warns, err := s.validator.Validate(f.Name, raw)
	if err != nil {
		var viol *manifest.Violation
		if !errors.As(err, &viol) {
			return reject(err.Error())
		}
		s.logger.Warn("reload: manifest rejected", slog.String("file", f.Name), slog.String("detail", viol.Detail))
		return &outcome{checksum: cs, diags: append(warns, viol.Diagnostic())}
	}

	p.SourcePath = f.Name
	p.ModifiedAt = f.ModTime
	s.logger.Debug("reload: manifest loaded", slog.String("file", f.Name), slog.String("id", p.ID))
	return &outcome{checksum: cs, project: p, diags: warns}
}

// Projects returns the current result set, sorted by project id.
func (s *Store) Projects() []manifest.Project {
	cur := s.state.Load()
	out := make([]manifest.Project, len(cur.projects))
	copy(out, cur.projects)
	return out
}

// Project returns a single project by id.
func (s *Store) Project(id string) (manifest.Project, error) {
	cur := s.state.Load()
	p, ok := cur.byID[id]
	if !ok {
		return manifest.Project{}, fmt.Errorf("store: project %q: %w", id, apperr.ErrNotFound)
	}
	return p, nil
}

// Diagnostics returns every diagnostic from the current result set, in
// discovery order.
func (s *Store) Diagnostics() []manifest.Diagnostic {
	cur := s.state.Load()
	out := make([]manifest.Diagnostic, len(cur.diags))
	copy(out, cur.diags)
	return out
}

// Len returns the number of valid projects currently loaded.
func (s *Store) Len() int {
	return len(s.state.Load().projects)
}

// LoadedAt returns when the current result set was scanned; zero before the
// first reload.
func (s *Store) LoadedAt() time.Time {
	return s.state.Load().loadedAt
}
