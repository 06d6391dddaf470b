package types

// Status is the lifecycle status of a persisted row
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}

// RunMode is the deployment mode of the application
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeDev   RunMode = "dev"
	ModeProd  RunMode = "prod"
)

// LogLevel is the logging verbosity
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
