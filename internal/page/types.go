package page

import (
	"time"
)

// Config defines page runtime configuration
type Config struct {
	Timeout          time.Duration // Execution timeout including pending host calls
	EnableConsole    bool          // Allow console.log/warn/error
	MaxCallStackSize int           // Zero keeps the engine default
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Return value, or the settled value of a returned promise
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DefaultConfig returns the default page runtime configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		EnableConsole:    true,
		MaxCallStackSize: 1024,
	}
}
