// Package errors provides structured error types and exit codes for cruisegrader.
package errors

import (
	"fmt"
)

// Exit codes.
//
// A subject that builds and scores zero is still a completed grading run and
// exits 0; only the grader's own failures produce non-zero codes.
const (
	ExitSuccess          = 0 // Grading completed (regardless of the subject's grade)
	ExitUsageError       = 1 // Missing or invalid command-line arguments
	ExitConfigError      = 2 // Configuration error (invalid config.yaml, bad pattern table, etc.)
	ExitEnvironmentError = 3 // Environment error (missing stub file, unwritable working directory, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindUsage
	KindConfig
	KindEnvironment
	KindBuild
	KindTimeout
	KindParse
)

// GraderError is the base error type for cruisegrader.
type GraderError struct {
	Kind    ErrorKind
	Message string
	Subject string // Subject identifier if applicable
	Stage   string // Pipeline stage if applicable (setup, build, run, parse, reconcile)
	Cause   error  // Underlying error
}

func (e *GraderError) Error() string {
	if e.Subject != "" && e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Subject, e.Stage, e.Message)
	}
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s", e.Subject, e.Message)
	}
	return e.Message
}

func (e *GraderError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
//
// Build, timeout, and parse errors belong to a subject's grading run, not the
// grader process: callers report them inside the GradeReport and still exit 0.
func (e *GraderError) ExitCode() int {
	switch e.Kind {
	case KindUsage:
		return ExitUsageError
	case KindConfig:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	case KindBuild, KindTimeout, KindParse:
		return ExitSuccess
	default:
		return ExitUsageError
	}
}

// New creates a new runtime error.
func New(message string) *GraderError {
	return &GraderError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *GraderError {
	return New(fmt.Sprintf(format, args...))
}

// Usage creates a new usage error.
func Usage(message string) *GraderError {
	return &GraderError{
		Kind:    KindUsage,
		Message: message,
	}
}

// Usagef creates a new usage error with formatting.
func Usagef(format string, args ...interface{}) *GraderError {
	return Usage(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *GraderError {
	return &GraderError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *GraderError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *GraderError {
	return &GraderError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *GraderError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *GraderError {
	return &GraderError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// StageError creates an error for a specific subject and pipeline stage.
func StageError(kind ErrorKind, subject, stage, message string) *GraderError {
	return &GraderError{
		Kind:    kind,
		Subject: subject,
		Stage:   stage,
		Message: message,
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if ge, ok := err.(*GraderError); ok {
		return ge.ExitCode()
	}
	return ExitUsageError
}
