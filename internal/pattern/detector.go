// Package pattern detects per-type metric improvements between aggregation
// runs and tracks them through an explicit confirmation gate. The detector
// holds pending findings in memory only; persisting a confirmed pattern is
// the caller's job.
package pattern

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foundryos/foundry/internal/apperr"
	"github.com/foundryos/foundry/internal/metrics"
)

// Metric identifies a tracked per-type metric.
type Metric string

const (
	MetricCompletionRate Metric = "completion_rate"
	MetricRevenuePerUser Metric = "revenue_per_user"
	MetricRevenue        Metric = "revenue"
	MetricUsers          Metric = "users"
)

// KnownMetrics lists every metric the detector can track.
var KnownMetrics = []Metric{MetricCompletionRate, MetricRevenuePerUser, MetricRevenue, MetricUsers}

// ParseMetric canonicalizes a configured metric name.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range KnownMetrics {
		if Metric(s) == m {
			return m, true
		}
	}
	return "", false
}

// label is the wording used in pattern descriptions.
func (m Metric) label() string {
	switch m {
	case MetricCompletionRate:
		return "task completion rate"
	case MetricRevenuePerUser:
		return "revenue per user"
	case MetricRevenue:
		return "revenue"
	case MetricUsers:
		return "user count"
	}
	return string(m)
}

// value extracts the metric from one type's aggregates.
func (m Metric) value(tm metrics.TypeMetrics) float64 {
	switch m {
	case MetricCompletionRate:
		return tm.CompletionRate
	case MetricRevenuePerUser:
		return tm.RevenuePerUser
	case MetricRevenue:
		return tm.Revenue.Dollars()
	case MetricUsers:
		return float64(tm.Users)
	}
	return 0
}

// DefaultThreshold is the improvement fraction that promotes a delta to a
// pending pattern.
const DefaultThreshold = 0.25

// DefaultMetrics are tracked when the configuration names none.
var DefaultMetrics = []Metric{MetricCompletionRate, MetricRevenuePerUser}

// Config tunes a Detector. Zero values fall back to the defaults.
type Config struct {
	Threshold float64
	Metrics   []Metric
}

// Pending is a detected improvement awaiting an explicit decision.
type Pending struct {
	ID          string    `json:"id"`
	ProjectType string    `json:"project_type"`
	Metric      Metric    `json:"metric"`
	Description string    `json:"description"`
	Before      float64   `json:"before"`
	After       float64   `json:"after"`
	Improvement float64   `json:"improvement"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Pattern is a confirmed improvement, ready to persist.
type Pattern struct {
	Pending
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Detector compares aggregation snapshots per project type.
type Detector struct {
	threshold float64
	tracked   []Metric

	mu      sync.Mutex
	pending map[string]Pending // by project type
}

// New creates a Detector from the given configuration.
func New(cfg Config) *Detector {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	tracked := cfg.Metrics
	if len(tracked) == 0 {
		tracked = DefaultMetrics
	}
	return &Detector{
		threshold: threshold,
		tracked:   tracked,
		pending:   map[string]Pending{},
	}
}

// Scan compares a baseline snapshot against the current one and replaces the
// pending set with the comparison's findings: at most one pending per
// project type, carrying its largest improvement. Earlier undecided pendings
// are superseded; with a stable baseline an equivalent finding is simply
// re-derived on the next scan. A nil baseline (first run) yields nothing.
func (d *Detector) Scan(prev, curr *metrics.Snapshot) []Pending {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = map[string]Pending{}
	if prev == nil || curr == nil {
		return nil
	}

	types := make([]string, 0, len(curr.Types))
	for typ := range curr.Types {
		types = append(types, typ)
	}
	sort.Strings(types)

	var found []Pending
	for _, typ := range types {
		base, ok := prev.Types[typ]
		if !ok {
			continue
		}
		best, ok := d.bestImprovement(base, curr.Types[typ])
		if !ok {
			continue
		}
		p := Pending{
			ID:          uuid.NewString(),
			ProjectType: typ,
			Metric:      best.metric,
			Description: fmt.Sprintf("%s +%d%%", best.metric.label(), int(math.Round(best.delta*100))),
			Before:      best.before,
			After:       best.after,
			Improvement: best.delta,
			DetectedAt:  curr.TakenAt,
		}
		d.pending[typ] = p
		found = append(found, p)
	}
	return found
}

type finding struct {
	metric        Metric
	before, after float64
	delta         float64
}

// bestImprovement returns the largest tracked improvement at or above the
// threshold. Metrics with a zero base are skipped: a relative improvement
// over nothing is undefined, not infinite.
func (d *Detector) bestImprovement(base, cur metrics.TypeMetrics) (finding, bool) {
	var best finding
	found := false
	for _, m := range d.tracked {
		before := m.value(base)
		if before <= 0 {
			continue
		}
		after := m.value(cur)
		delta := (after - before) / before
		if delta < d.threshold {
			continue
		}
		if !found || delta > best.delta {
			best = finding{metric: m, before: before, after: after, delta: delta}
			found = true
		}
	}
	return best, found
}

// Pending returns the current pending findings, sorted by project type.
func (d *Detector) Pending() []Pending {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Pending, 0, len(d.pending))
	for _, p := range d.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectType < out[j].ProjectType })
	return out
}

// PendingFor returns the pending finding for one project type.
func (d *Detector) PendingFor(projectType string) (Pending, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[projectType]
	return p, ok
}

// Resolve decides the pending finding for a project type. Accepting returns
// the confirmed Pattern for the caller to persist; rejecting returns nil.
// Either way the pending is cleared. Without a pending finding the call
// fails with apperr.ErrNoPending.
func (d *Detector) Resolve(projectType string, accept bool) (*Pattern, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[projectType]
	if !ok {
		return nil, fmt.Errorf("pattern: resolve %q: %w", projectType, apperr.ErrNoPending)
	}
	delete(d.pending, projectType)
	if !accept {
		return nil, nil
	}
	return &Pattern{Pending: p, ConfirmedAt: time.Now().UTC()}, nil
}
