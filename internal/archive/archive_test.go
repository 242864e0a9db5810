package archive

import (
	"os"
	"testing"
	"time"

	"github.com/foundryos/foundry/internal/metrics"
	"github.com/foundryos/foundry/internal/pattern"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "foundry-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM snapshots`).Scan(&count); err != nil {
		t.Fatalf("snapshots table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM baselines`).Scan(&count); err != nil {
		t.Fatalf("baselines table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM patterns`).Scan(&count); err != nil {
		t.Fatalf("patterns table missing: %v", err)
	}
}

func TestSaveAndLatestSnapshot(t *testing.T) {
	db := testDB(t)
	first := &metrics.Snapshot{TakenAt: time.Now().UTC(), TotalProjects: 1}
	second := &metrics.Snapshot{TakenAt: time.Now().UTC(), TotalProjects: 2}
	if err := db.SaveSnapshot(first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := db.SaveSnapshot(second); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := db.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if got == nil || got.TotalProjects != 2 {
		t.Errorf("latest = %+v, want the second snapshot", got)
	}
}

func TestLatestSnapshot_Empty(t *testing.T) {
	db := testDB(t)
	got, err := db.LatestSnapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil snapshot on empty archive, got %+v", got)
	}
}

func TestListSnapshots(t *testing.T) {
	db := testDB(t)
	for i := 1; i <= 3; i++ {
		s := &metrics.Snapshot{TakenAt: time.Now().UTC(), TotalProjects: i}
		if err := db.SaveSnapshot(s); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	got, err := db.ListSnapshots(2)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].TotalProjects != 3 || got[1].TotalProjects != 2 {
		t.Errorf("order = [%d %d], want newest first", got[0].TotalProjects, got[1].TotalProjects)
	}
}

func TestSeedBaselinesIsIdempotent(t *testing.T) {
	db := testDB(t)
	first := &metrics.Snapshot{
		TakenAt: time.Now().UTC(),
		Types: map[string]metrics.TypeMetrics{
			"saas":    {Projects: 1, CompletionRate: 0.40},
			"content": {Projects: 2, CompletionRate: 0.80},
		},
	}
	if err := db.SeedBaselines(first); err != nil {
		t.Fatalf("SeedBaselines: %v", err)
	}

	// A later seed must not overwrite the stored reference.
	later := &metrics.Snapshot{
		TakenAt: time.Now().UTC(),
		Types: map[string]metrics.TypeMetrics{
			"saas": {Projects: 1, CompletionRate: 0.90},
			"app":  {Projects: 1, CompletionRate: 0.10},
		},
	}
	if err := db.SeedBaselines(later); err != nil {
		t.Fatalf("SeedBaselines: %v", err)
	}

	base, err := db.BaselineSnapshot()
	if err != nil {
		t.Fatalf("BaselineSnapshot: %v", err)
	}
	if base == nil {
		t.Fatal("expected a baseline snapshot")
	}
	if len(base.Types) != 3 {
		t.Fatalf("expected 3 baseline types, got %d", len(base.Types))
	}
	if got := base.Types["saas"].CompletionRate; got != 0.40 {
		t.Errorf("saas baseline completion = %v, want the original 0.40", got)
	}
	if got := base.Types["app"].CompletionRate; got != 0.10 {
		t.Errorf("app baseline completion = %v, want 0.10", got)
	}
}

func TestSetBaselineAdvances(t *testing.T) {
	db := testDB(t)
	seed := &metrics.Snapshot{
		TakenAt: time.Now().UTC(),
		Types:   map[string]metrics.TypeMetrics{"saas": {CompletionRate: 0.40}},
	}
	if err := db.SeedBaselines(seed); err != nil {
		t.Fatalf("SeedBaselines: %v", err)
	}

	if err := db.SetBaseline("saas", metrics.TypeMetrics{CompletionRate: 0.55}, time.Now().UTC()); err != nil {
		t.Fatalf("SetBaseline: %v", err)
	}

	base, err := db.BaselineSnapshot()
	if err != nil {
		t.Fatalf("BaselineSnapshot: %v", err)
	}
	if got := base.Types["saas"].CompletionRate; got != 0.55 {
		t.Errorf("saas baseline completion = %v, want 0.55 after advance", got)
	}
}

func TestBaselineSnapshot_Empty(t *testing.T) {
	db := testDB(t)
	base, err := db.BaselineSnapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != nil {
		t.Errorf("expected nil baseline on empty archive, got %+v", base)
	}
}

func TestSaveAndListPatterns(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()
	older := &pattern.Pattern{
		Pending: pattern.Pending{
			ID:          "p-1",
			ProjectType: "saas",
			Metric:      pattern.MetricCompletionRate,
			Description: "task completion rate +38%",
			Before:      0.40,
			After:       0.55,
			Improvement: 0.375,
			DetectedAt:  now.Add(-2 * time.Hour),
		},
		ConfirmedAt: now.Add(-time.Hour),
	}
	newer := &pattern.Pattern{
		Pending: pattern.Pending{
			ID:          "p-2",
			ProjectType: "content",
			Metric:      pattern.MetricRevenuePerUser,
			Description: "revenue per user +50%",
			Before:      10,
			After:       15,
			Improvement: 0.5,
			DetectedAt:  now,
		},
		ConfirmedAt: now,
	}
	if err := db.SavePattern(older); err != nil {
		t.Fatalf("SavePattern: %v", err)
	}
	if err := db.SavePattern(newer); err != nil {
		t.Fatalf("SavePattern: %v", err)
	}

	got, err := db.ListPatterns()
	if err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(got))
	}
	if got[0].ID != "p-2" || got[1].ID != "p-1" {
		t.Errorf("order = [%s %s], want newest confirmed first", got[0].ID, got[1].ID)
	}
	p := got[0]
	if p.ProjectType != "content" || p.Metric != pattern.MetricRevenuePerUser {
		t.Errorf("pattern fields lost in round-trip: %+v", p)
	}
	if p.Improvement != 0.5 {
		t.Errorf("improvement = %v, want 0.5", p.Improvement)
	}
}
