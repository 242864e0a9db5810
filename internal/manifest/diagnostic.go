package manifest

// DiagKind classifies a manifest fault.
type DiagKind string

const (
	DiagParseError       DiagKind = "parse_error"
	DiagSchemaViolation  DiagKind = "schema_violation"
	DiagMalformedRevenue DiagKind = "malformed_revenue"
	DiagDuplicateID      DiagKind = "duplicate_id"
)

// Severity tells whether a fault rejected the manifest or only degraded it.
type Severity string

const (
	// SeverityError marks faults that keep a manifest out of the result set.
	SeverityError Severity = "error"
	// SeverityWarning marks faults where the project is kept with a
	// degraded field value.
	SeverityWarning Severity = "warning"
)

// Diagnostic is a file-scoped record of a manifest fault. The engine reports
// diagnostics instead of aborting scans.
type Diagnostic struct {
	File     string   `json:"file"`
	Kind     DiagKind `json:"kind"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Violation is the fatal schema failure that rejects a manifest outright.
type Violation struct {
	File   string
	Detail string
}

func (v *Violation) Error() string {
	return "manifest: " + v.Detail
}

// Diagnostic renders the violation as an error-severity diagnostic record.
func (v *Violation) Diagnostic() Diagnostic {
	return Diagnostic{File: v.File, Kind: DiagSchemaViolation, Severity: SeverityError, Detail: v.Detail}
}
