package runner_pkg

import "log"

// Logger interface for observability
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// ServiceLogger writes through the standard logger with level prefixes.
type ServiceLogger struct{}

func (sl *ServiceLogger) Printf(format string, v ...interface{}) {
	log.Printf("[INFO] "+format, v...)
}

func (sl *ServiceLogger) Errorf(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Printf(string, ...interface{}) {}
func (NopLogger) Errorf(string, ...interface{}) {}
