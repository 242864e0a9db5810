// Package manifest defines the project domain types, the manifest diagnostic
// taxonomy, and the validator that turns raw decoded manifests into typed
// projects.
package manifest

import (
	"strings"
	"time"

	"github.com/foundryos/foundry/internal/revenue"
)

// Status is the lifecycle stage of a project.
type Status string

const (
	StatusPlanning    Status = "planning"
	StatusDevelopment Status = "development"
	StatusProduction  Status = "production"
	StatusPaused      Status = "paused"
	StatusArchived    Status = "archived"
)

// Statuses lists every valid project status in canonical order.
var Statuses = []Status{
	StatusPlanning,
	StatusDevelopment,
	StatusProduction,
	StatusPaused,
	StatusArchived,
}

// ParseStatus canonicalizes a raw status value. Matching is case-insensitive.
func ParseStatus(s string) (Status, bool) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if v == known {
			return known, true
		}
	}
	return "", false
}

// Active reports whether projects in this status count as running product
// work (development or production).
func (s Status) Active() bool {
	return s == StatusDevelopment || s == StatusProduction
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every valid task priority in canonical order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ParsePriority canonicalizes a raw priority value, case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	v := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Priorities {
		if v == known {
			return known, true
		}
	}
	return "", false
}

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// TaskStatuses lists every valid task status in canonical order.
var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskDone, TaskBlocked}

// ParseTaskStatus canonicalizes a raw task status value, case-insensitively.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	v := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TaskStatuses {
		if v == known {
			return known, true
		}
	}
	return "", false
}

// Open reports whether the task still demands agent attention
// (pending or in-progress).
func (s TaskStatus) Open() bool {
	return s == TaskPending || s == TaskInProgress
}

// UnassignedAgent is the workload bucket for open tasks with no assignee.
const UnassignedAgent = "unassigned"

// Task is a unit of work inside a project manifest.
type Task struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Status        TaskStatus `json:"status"`
	Priority      Priority   `json:"priority"`
	AssignedAgent string     `json:"assigned_agent,omitempty"`
}

// Agent returns the workload bucket this task belongs to.
func (t Task) Agent() string {
	if t.AssignedAgent == "" {
		return UnassignedAgent
	}
	return t.AssignedAgent
}

// Project is a validated manifest. Instances are treated as immutable once
// published by the store.
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Status      Status         `json:"status"`
	Revenue     revenue.Amount `json:"revenue"`
	Users       int            `json:"users"`
	Tasks       []Task         `json:"tasks"`
	Description string         `json:"description,omitempty"`
	Team        []string       `json:"team,omitempty"`
	LiveURL     string         `json:"live_url,omitempty"`
	StartDate   string         `json:"start_date,omitempty"`
	SourcePath  string         `json:"source_path"`
	ModifiedAt  time.Time      `json:"modified_at"`
}

// OpenTasks counts tasks still demanding attention.
func (p Project) OpenTasks() int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status.Open() {
			n++
		}
	}
	return n
}

// DoneTasks counts completed tasks.
func (p Project) DoneTasks() int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status == TaskDone {
			n++
		}
	}
	return n
}
