// Package metrics computes aggregate snapshots over the loaded projects.
// Snapshots are pure functions of their input set: permuting the projects
// yields an identical snapshot (timestamps aside), and a snapshot is never
// mutated once built.
package metrics

import (
	"sort"
	"time"

	"github.com/foundryos/foundry/internal/manifest"
	"github.com/foundryos/foundry/internal/revenue"
)

// TypeMetrics aggregates one project type. Rates are zero when their
// denominator is zero.
type TypeMetrics struct {
	Projects       int            `json:"projects"`
	Revenue        revenue.Amount `json:"revenue"`
	Users          int            `json:"users"`
	TasksTotal     int            `json:"tasks_total"`
	TasksDone      int            `json:"tasks_done"`
	CompletionRate float64        `json:"completion_rate"`
	RevenuePerUser float64        `json:"revenue_per_user"`
}

// Snapshot is one immutable aggregation run over the hub.
//
// Distributions carry every enum key, zeros included, so their sums are
// directly checkable. AgentWorkload counts open tasks (pending or
// in-progress) per agent and always includes the unassigned bucket;
// TaskPriorityDistribution counts every task regardless of its status.
type Snapshot struct {
	TakenAt                  time.Time                 `json:"taken_at"`
	TotalProjects            int                       `json:"total_projects"`
	ActiveProjects           int                       `json:"active_projects"`
	TotalRevenue             revenue.Amount            `json:"total_revenue"`
	TotalUsers               int                       `json:"total_users"`
	TotalTasks               int                       `json:"total_tasks"`
	OpenTasks                int                       `json:"open_tasks"`
	StatusDistribution       map[manifest.Status]int   `json:"status_distribution"`
	AgentWorkload            map[string]int            `json:"agent_workload"`
	TaskPriorityDistribution map[manifest.Priority]int `json:"task_priority_distribution"`
	Types                    map[string]TypeMetrics    `json:"types"`
}

// Compute aggregates the given projects into a fresh snapshot. The input
// slice is not modified; projects are folded in id order so equal sets
// produce equal snapshots.
func Compute(projects []manifest.Project) *Snapshot {
	sorted := make([]manifest.Project, len(projects))
	copy(sorted, projects)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s := &Snapshot{
		TakenAt:                  time.Now().UTC(),
		StatusDistribution:       make(map[manifest.Status]int, len(manifest.Statuses)),
		AgentWorkload:            map[string]int{manifest.UnassignedAgent: 0},
		TaskPriorityDistribution: make(map[manifest.Priority]int, len(manifest.Priorities)),
		Types:                    map[string]TypeMetrics{},
	}
	for _, st := range manifest.Statuses {
		s.StatusDistribution[st] = 0
	}
	for _, pr := range manifest.Priorities {
		s.TaskPriorityDistribution[pr] = 0
	}

	for _, p := range sorted {
		s.TotalProjects++
		if p.Status.Active() {
			s.ActiveProjects++
		}
		s.TotalRevenue += p.Revenue
		s.TotalUsers += p.Users
		s.StatusDistribution[p.Status]++

		tm := s.Types[p.Type]
		tm.Projects++
		tm.Revenue += p.Revenue
		tm.Users += p.Users

		for _, task := range p.Tasks {
			s.TotalTasks++
			s.TaskPriorityDistribution[task.Priority]++
			tm.TasksTotal++
			if task.Status.Open() {
				s.OpenTasks++
				s.AgentWorkload[task.Agent()]++
			}
			if task.Status == manifest.TaskDone {
				tm.TasksDone++
			}
		}
		s.Types[p.Type] = tm
	}

	for typ, tm := range s.Types {
		if tm.TasksTotal > 0 {
			tm.CompletionRate = float64(tm.TasksDone) / float64(tm.TasksTotal)
		}
		if tm.Users > 0 {
			tm.RevenuePerUser = tm.Revenue.Dollars() / float64(tm.Users)
		}
		s.Types[typ] = tm
	}

	return s
}
