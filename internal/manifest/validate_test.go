package manifest

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func decode(t *testing.T, src string) map[string]any {
	t.Helper()
	raw, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return raw
}

func TestValidate_Canonical(t *testing.T) {
	raw := decode(t, `{
		"id": "seo-suite",
		"name": "HugemouthSEO",
		"type": "saas",
		"status": "Production",
		"revenue": "$12,500",
		"users": 840,
		"description": "SEO audit tooling",
		"liveUrl": "https://seo.example.com",
		"startDate": "2026-01-15",
		"team": ["seo-bot", "content-bot"],
		"tasks": [
			{"title": "Ship audit v2", "status": "in-progress", "priority": "high", "assignedAgent": "seo-bot"},
			{"title": "Write launch post"}
		]
	}`)

	var v Validator
	p, warns, err := v.Validate("seo-suite.json", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if p.ID != "seo-suite" || p.Name != "HugemouthSEO" || p.Type != "saas" {
		t.Errorf("identity fields = %q/%q/%q", p.ID, p.Name, p.Type)
	}
	if p.Status != StatusProduction {
		t.Errorf("status = %q, want production", p.Status)
	}
	if p.Revenue != 1250000 {
		t.Errorf("revenue = %d cents, want 1250000", p.Revenue)
	}
	if p.Users != 840 {
		t.Errorf("users = %d, want 840", p.Users)
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(p.Tasks))
	}
	if p.Tasks[0].Status != TaskInProgress || p.Tasks[0].Priority != PriorityHigh || p.Tasks[0].AssignedAgent != "seo-bot" {
		t.Errorf("task[0] = %+v", p.Tasks[0])
	}
	if p.Tasks[1].Status != TaskPending || p.Tasks[1].Priority != PriorityMedium || p.Tasks[1].AssignedAgent != "" {
		t.Errorf("task[1] defaults = %+v", p.Tasks[1])
	}
	if len(p.Team) != 2 {
		t.Errorf("team = %v", p.Team)
	}
}

func TestValidate_LegacyLayout(t *testing.T) {
	raw := decode(t, `{
		"projectName": "Directory Empire",
		"projectType": "directory",
		"status": "development",
		"metrics": {"revenue": "$21K", "users": 1200, "startDate": "2025-11-02"},
		"tasks": {
			"active": [{"title": "Index 50 cities", "assignedTo": "crawler-bot"}],
			"completed": [{"title": "Buy domain"}]
		}
	}`)

	var v Validator
	p, warns, err := v.Validate("directory-empire.json", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if p.ID != "directory-empire" {
		t.Errorf("id = %q, want file stem", p.ID)
	}
	if p.Name != "Directory Empire" || p.Type != "directory" {
		t.Errorf("legacy name/type = %q/%q", p.Name, p.Type)
	}
	if p.Revenue != 2100000 {
		t.Errorf("metrics.revenue = %d cents, want 2100000", p.Revenue)
	}
	if p.Users != 1200 {
		t.Errorf("metrics.users = %d, want 1200", p.Users)
	}
	if p.StartDate != "2025-11-02" {
		t.Errorf("startDate = %q", p.StartDate)
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(p.Tasks))
	}
	if p.Tasks[0].Status != TaskPending || p.Tasks[0].AssignedAgent != "crawler-bot" {
		t.Errorf("active task = %+v", p.Tasks[0])
	}
	if p.Tasks[1].Status != TaskDone {
		t.Errorf("completed task status = %q, want done", p.Tasks[1].Status)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`{"type": "saas", "status": "planning"}`, "missing field: name"},
		{`{"name": "X", "status": "planning"}`, "missing field: type"},
		{`{"name": "X", "type": "saas"}`, "missing field: status"},
		{`{"name": "", "type": "saas", "status": "planning"}`, "missing field: name"},
		{`{"name": "X", "type": "saas", "status": "  "}`, "missing field: status"},
	}
	var v Validator
	for _, c := range cases {
		p, _, err := v.Validate("m.json", decode(t, c.src))
		if err == nil {
			t.Errorf("%s: expected rejection, got project %+v", c.src, p)
			continue
		}
		var viol *Violation
		if !errors.As(err, &viol) {
			t.Errorf("%s: error type %T, want *Violation", c.src, err)
			continue
		}
		if viol.Detail != c.want {
			t.Errorf("%s: detail = %q, want %q", c.src, viol.Detail, c.want)
		}
		if d := viol.Diagnostic(); d.Severity != SeverityError || d.Kind != DiagSchemaViolation || d.File != "m.json" {
			t.Errorf("diagnostic = %+v", d)
		}
	}
}

func TestValidate_InvalidStatus(t *testing.T) {
	var v Validator
	_, _, err := v.Validate("m.json", decode(t, `{"name": "X", "type": "saas", "status": "launched"}`))
	var viol *Violation
	if !errors.As(err, &viol) {
		t.Fatalf("expected *Violation, got %v", err)
	}
	if viol.Detail != "invalid status: launched" {
		t.Errorf("detail = %q, want %q", viol.Detail, "invalid status: launched")
	}
}

func TestValidate_TypeAllowList(t *testing.T) {
	v := Validator{AllowedTypes: []string{"saas", "directory"}}

	if _, _, err := v.Validate("m.json", decode(t, `{"name": "X", "type": "saas", "status": "planning"}`)); err != nil {
		t.Fatalf("allowed type rejected: %v", err)
	}

	_, _, err := v.Validate("m.json", decode(t, `{"name": "X", "type": "casino", "status": "planning"}`))
	var viol *Violation
	if !errors.As(err, &viol) {
		t.Fatalf("expected *Violation, got %v", err)
	}
	if viol.Detail != "unknown type: casino" {
		t.Errorf("detail = %q", viol.Detail)
	}
}

func TestValidate_MalformedRevenueKeepsProject(t *testing.T) {
	var v Validator
	p, warns, err := v.Validate("m.json", decode(t, `{"name": "X", "type": "saas", "status": "planning", "revenue": "N/A"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Revenue != 0 {
		t.Errorf("revenue = %d, want 0", p.Revenue)
	}
	if len(warns) != 1 {
		t.Fatalf("len(warns) = %d, want 1: %v", len(warns), warns)
	}
	w := warns[0]
	if w.Kind != DiagMalformedRevenue || w.Severity != SeverityWarning {
		t.Errorf("warning = %+v", w)
	}
	if !strings.Contains(w.Detail, `"N/A"`) {
		t.Errorf("detail %q should preserve the raw value", w.Detail)
	}
}

func TestValidate_InvalidUsers(t *testing.T) {
	var v Validator
	for _, src := range []string{
		`{"name": "X", "type": "saas", "status": "planning", "users": "many"}`,
		`{"name": "X", "type": "saas", "status": "planning", "users": -5}`,
		`{"name": "X", "type": "saas", "status": "planning", "users": 3.7}`,
	} {
		p, warns, err := v.Validate("m.json", decode(t, src))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", src, err)
		}
		if p.Users != 0 {
			t.Errorf("%s: users = %d, want 0", src, p.Users)
		}
		if len(warns) != 1 || warns[0].Kind != DiagSchemaViolation {
			t.Errorf("%s: warns = %v", src, warns)
		}
	}
}

func TestValidate_TaskDegradation(t *testing.T) {
	raw := decode(t, `{
		"name": "X", "type": "saas", "status": "planning",
		"tasks": [
			{"title": "ok", "priority": "urgent"},
			{"status": "pending"},
			"not an object",
			{"title": "also ok", "status": "completed"}
		]
	}`)
	var v Validator
	p, warns, err := v.Validate("m.json", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2 (titled entries only): %+v", len(p.Tasks), p.Tasks)
	}
	if p.Tasks[0].Priority != PriorityMedium {
		t.Errorf("invalid priority should degrade to medium, got %q", p.Tasks[0].Priority)
	}
	if p.Tasks[1].Status != TaskPending {
		t.Errorf("invalid task status should degrade to pending, got %q", p.Tasks[1].Status)
	}
	if len(warns) != 4 {
		t.Errorf("len(warns) = %d, want 4: %v", len(warns), warns)
	}
}

func TestValidate_IDFallbacks(t *testing.T) {
	var v Validator

	p, _, err := v.Validate("from-file.json", decode(t, `{"name": "X", "type": "saas", "status": "planning"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "from-file" {
		t.Errorf("absent id = %q, want file stem", p.ID)
	}

	p, warns, err := v.Validate("m.json", decode(t, `{"id": "  ", "name": "X", "type": "saas", "status": "planning"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "m" || len(warns) != 1 {
		t.Errorf("blank id: id = %q, warns = %v", p.ID, warns)
	}

	p, _, err = v.Validate("m.json", decode(t, `{"id": 42, "name": "X", "type": "saas", "status": "planning"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "42" {
		t.Errorf("numeric id = %q, want \"42\"", p.ID)
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	raw := decode(t, `{"name": "X", "type": "saas", "status": "PLANNING", "revenue": "N/A", "tasks": [{"title": "a"}]}`)
	snapshot := make(map[string]any, len(raw))
	for k, val := range raw {
		snapshot[k] = val
	}

	var v Validator
	if _, _, err := v.Validate("m.json", raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(raw, snapshot) {
		t.Errorf("input map mutated: %v != %v", raw, snapshot)
	}
}

func TestDecode_UseNumber(t *testing.T) {
	raw := decode(t, `{"users": 9007199254740993}`)
	n, ok := raw["users"].(json.Number)
	if !ok {
		t.Fatalf("users decoded as %T, want json.Number", raw["users"])
	}
	if string(n) != "9007199254740993" {
		t.Errorf("number text = %s", n)
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, src := range []string{"", "not json", `["a"]`, `"str"`, `{"a":1}{"b":2}`} {
		if _, err := Decode([]byte(src)); err == nil {
			t.Errorf("Decode(%q): expected error", src)
		}
	}
}
