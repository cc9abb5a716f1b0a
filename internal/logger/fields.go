package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through the call chain.
const (
	FieldRequestID    = "request_id"
	FieldUserID       = "user_id"
	FieldGenerationID = "generation_id"
	FieldComponent    = "component"
	FieldProvider     = "provider"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldCredits    = "credits"
)
