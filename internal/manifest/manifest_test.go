package manifest

import "testing"

func TestParseStatus_CaseInsensitive(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"planning", StatusPlanning},
		{"Development", StatusDevelopment},
		{"PRODUCTION", StatusProduction},
		{" paused ", StatusPaused},
		{"Archived", StatusArchived},
	}
	for _, c := range cases {
		got, ok := ParseStatus(c.in)
		if !ok {
			t.Errorf("ParseStatus(%q): not recognized", c.in)
			continue
		}
		if got != c.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	for _, in := range []string{"", "launched", "active", "dev"} {
		if got, ok := ParseStatus(in); ok {
			t.Errorf("ParseStatus(%q) = %q, want rejection", in, got)
		}
	}
}

func TestStatus_Active(t *testing.T) {
	active := map[Status]bool{
		StatusPlanning:    false,
		StatusDevelopment: true,
		StatusProduction:  true,
		StatusPaused:      false,
		StatusArchived:    false,
	}
	for s, want := range active {
		if got := s.Active(); got != want {
			t.Errorf("%s.Active() = %v, want %v", s, got, want)
		}
	}
}

func TestTaskStatus_Open(t *testing.T) {
	open := map[TaskStatus]bool{
		TaskPending:    true,
		TaskInProgress: true,
		TaskDone:       false,
		TaskBlocked:    false,
	}
	for s, want := range open {
		if got := s.Open(); got != want {
			t.Errorf("%s.Open() = %v, want %v", s, got, want)
		}
	}
}

func TestTask_AgentBucket(t *testing.T) {
	if got := (Task{Title: "x"}).Agent(); got != UnassignedAgent {
		t.Errorf("unassigned task bucket = %q, want %q", got, UnassignedAgent)
	}
	if got := (Task{Title: "x", AssignedAgent: "seo-bot"}).Agent(); got != "seo-bot" {
		t.Errorf("assigned task bucket = %q, want seo-bot", got)
	}
}

func TestProject_TaskCounts(t *testing.T) {
	p := Project{Tasks: []Task{
		{Title: "a", Status: TaskPending},
		{Title: "b", Status: TaskInProgress},
		{Title: "c", Status: TaskDone},
		{Title: "d", Status: TaskBlocked},
	}}
	if got := p.OpenTasks(); got != 2 {
		t.Errorf("OpenTasks() = %d, want 2", got)
	}
	if got := p.DoneTasks(); got != 1 {
		t.Errorf("DoneTasks() = %d, want 1", got)
	}
}
