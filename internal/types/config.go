package types

// RunMode is the mode the application runs in
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeProd  RunMode = "prod"
)

// LogLevel is the level of logging
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Metadata is a free-form string map carried on provider objects.
// It is only ever read through explicit parse helpers at the boundary.
type Metadata map[string]string

// Get returns the value for key or the supplied default when absent or empty
func (m Metadata) Get(key, def string) string {
	if m == nil {
		return def
	}
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}
