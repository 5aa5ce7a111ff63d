package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a record for filtering (e.g. "pass_completed").
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPassID identifies a single aggregation pass.
	FieldPassID = "pass_id"
	// FieldPID is the process identifier a record refers to.
	FieldPID = "pid"
	// FieldPath is the filesystem path a record refers to.
	FieldPath = "path"
	// FieldSignal names the OS signal being handled.
	FieldSignal = "signal"
)
