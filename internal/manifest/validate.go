package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/foundryos/foundry/internal/revenue"
)

// Decode unmarshals raw manifest bytes into a generic mapping. Numbers are
// kept as json.Number so money and user counts never pass through float
// rounding before validation.
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("manifest: decode: trailing data after document")
	}
	return raw, nil
}

// Validator turns decoded manifests into typed projects. The zero value
// accepts any project type; AllowedTypes restricts the type field to a
// configured set.
type Validator struct {
	AllowedTypes []string
}

// Validate converts a decoded manifest into a Project. file is the manifest
// file name; it scopes diagnostics and supplies the fallback id. The returned
// diagnostics are warnings (fields degraded, project kept); a non-nil error
// is always a *Violation and means the manifest is rejected. The input map is
// never mutated.
//
// Legacy manifest layouts are accepted alongside the canonical one:
// projectName/projectType for name/type, metrics.{revenue,users,startDate}
// for the flat fields, assignedTo for assignedAgent, and tasks as an
// {active, completed} pair of lists instead of a single list.
func (v *Validator) Validate(file string, raw map[string]any) (*Project, []Diagnostic, error) {
	var warns []Diagnostic
	warn := func(kind DiagKind, detail string) {
		warns = append(warns, Diagnostic{File: file, Kind: kind, Severity: SeverityWarning, Detail: detail})
	}

	name, _ := stringField(raw, "name", "projectName")
	if name == "" {
		return nil, warns, &Violation{File: file, Detail: "missing field: name"}
	}

	ptype, _ := stringField(raw, "type", "projectType")
	if ptype == "" {
		return nil, warns, &Violation{File: file, Detail: "missing field: type"}
	}
	if len(v.AllowedTypes) > 0 && !containsString(v.AllowedTypes, ptype) {
		return nil, warns, &Violation{File: file, Detail: "unknown type: " + ptype}
	}

	rawStatus, present := raw["status"]
	statusText, isString := rawStatus.(string)
	if !present || (isString && strings.TrimSpace(statusText) == "") {
		return nil, warns, &Violation{File: file, Detail: "missing field: status"}
	}
	if !isString {
		return nil, warns, &Violation{File: file, Detail: "invalid status: " + fmt.Sprint(rawStatus)}
	}
	status, ok := ParseStatus(statusText)
	if !ok {
		return nil, warns, &Violation{File: file, Detail: "invalid status: " + statusText}
	}

	metrics := subMap(raw, "metrics")

	p := &Project{
		ID:     fileStem(file),
		Name:   name,
		Type:   ptype,
		Status: status,
	}

	if rawID, found := raw["id"]; found {
		switch t := rawID.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				p.ID = s
			} else {
				warn(DiagSchemaViolation, "blank id, using file name")
			}
		case json.Number:
			p.ID = t.String()
		default:
			warn(DiagSchemaViolation, "invalid id, using file name")
		}
	}

	revRaw, found := raw["revenue"]
	if !found && metrics != nil {
		revRaw = metrics["revenue"]
	}
	amt, err := revenue.Parse(revRaw)
	if err != nil {
		warn(DiagMalformedRevenue, fmt.Sprintf("malformed revenue %q, treating as zero", fmt.Sprint(revRaw)))
	}
	p.Revenue = amt

	usersRaw, found := raw["users"]
	if !found && metrics != nil {
		usersRaw = metrics["users"]
	}
	if usersRaw != nil {
		users, ok := intValue(usersRaw)
		if !ok || users < 0 {
			warn(DiagSchemaViolation, fmt.Sprintf("invalid users %q, treating as zero", fmt.Sprint(usersRaw)))
		} else {
			p.Users = users
		}
	}

	switch t := raw["tasks"].(type) {
	case nil:
	case []any:
		p.Tasks = v.parseTasks(t, TaskPending, "tasks", warn)
	case map[string]any:
		// Legacy split layout: the bucket supplies the default status,
		// an explicit valid status on the entry still wins.
		if active, ok := t["active"].([]any); ok {
			p.Tasks = append(p.Tasks, v.parseTasks(active, TaskPending, "tasks.active", warn)...)
		}
		if completed, ok := t["completed"].([]any); ok {
			p.Tasks = append(p.Tasks, v.parseTasks(completed, TaskDone, "tasks.completed", warn)...)
		}
	default:
		warn(DiagSchemaViolation, "invalid tasks shape, ignoring")
	}

	if s, found := optionalString(raw, "description", warn); found {
		p.Description = s
	}
	if s, found := optionalString(raw, "liveUrl", warn); found {
		p.LiveURL = s
	}
	if s, found := optionalString(raw, "startDate", warn); found {
		p.StartDate = s
	} else if metrics != nil {
		if s, ok := metrics["startDate"].(string); ok {
			p.StartDate = s
		}
	}

	if rawTeam, found := raw["team"]; found {
		if items, ok := rawTeam.([]any); ok {
			for _, item := range items {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					p.Team = append(p.Team, s)
				}
			}
		} else {
			warn(DiagSchemaViolation, "invalid team shape, ignoring")
		}
	}

	return p, warns, nil
}

// parseTasks converts a list of raw task entries. Entries without a title, or
// that are not objects, are dropped with a warning scoped to their index;
// invalid status or priority values degrade to defaults.
func (v *Validator) parseTasks(items []any, defaultStatus TaskStatus, scope string, warn func(DiagKind, string)) []Task {
	var out []Task
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			warn(DiagSchemaViolation, fmt.Sprintf("%s[%d]: not an object, dropped", scope, i))
			continue
		}
		title, _ := stringField(m, "title")
		if title == "" {
			warn(DiagSchemaViolation, fmt.Sprintf("%s[%d]: missing field: title", scope, i))
			continue
		}

		task := Task{Title: title, Status: defaultStatus, Priority: PriorityMedium}

		if id, ok := stringField(m, "id"); ok {
			task.ID = id
		}
		if rawStatus, found := m["status"]; found {
			if s, ok := rawStatus.(string); ok {
				if ts, valid := ParseTaskStatus(s); valid {
					task.Status = ts
				} else {
					warn(DiagSchemaViolation, fmt.Sprintf("%s[%d]: invalid status: %s", scope, i, s))
				}
			} else {
				warn(DiagSchemaViolation, fmt.Sprintf("%s[%d]: invalid status: %s", scope, i, fmt.Sprint(rawStatus)))
			}
		}
		if rawPriority, found := m["priority"]; found {
			if s, ok := rawPriority.(string); ok {
				if pr, valid := ParsePriority(s); valid {
					task.Priority = pr
				} else {
					warn(DiagSchemaViolation, fmt.Sprintf("%s[%d]: invalid priority: %s", scope, i, s))
				}
			} else {
				warn(DiagSchemaViolation, fmt.Sprintf("%s[%d]: invalid priority: %s", scope, i, fmt.Sprint(rawPriority)))
			}
		}
		if agent, ok := stringField(m, "assignedAgent", "assignedTo"); ok {
			task.AssignedAgent = strings.TrimSpace(agent)
		}

		out = append(out, task)
	}
	return out
}

// stringField returns the first present key with a non-blank string value.
func stringField(raw map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, found := raw[key]; found {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// optionalString reads a string field, warning when the field is present with
// a non-string shape. found is true only for usable string values.
func optionalString(raw map[string]any, key string, warn func(DiagKind, string)) (string, bool) {
	v, present := raw[key]
	if !present || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		warn(DiagSchemaViolation, fmt.Sprintf("invalid %s shape, ignoring", key))
		return "", false
	}
	return s, true
}

// intValue coerces a decoded JSON value to a whole number.
func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := strconv.ParseInt(string(t), 10, 64)
		if err != nil {
			// Tolerate whole-valued floats like 8500.0.
			f, ferr := t.Float64()
			if ferr != nil || f != float64(int64(f)) {
				return 0, false
			}
			n = int64(f)
		}
		return int(n), true
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

// subMap returns a nested object field, or nil when absent or not an object.
func subMap(raw map[string]any, key string) map[string]any {
	m, _ := raw[key].(map[string]any)
	return m
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func fileStem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
