package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNamespaceNotFound is returned when a namespace to destroy does not exist.
var ErrNamespaceNotFound = errors.New("namespace not found")

// ErrDaemonNotRunning is returned when a multicast daemon to stop is not running.
var ErrDaemonNotRunning = errors.New("multicast daemon not running")

// ConfigurationError reports a malformed descriptor or a reference that
// the topology cannot resolve.
type ConfigurationError struct {
	Source string // descriptor name, empty for builder checks
	Line   int
	Msg    string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("configuration error: %s:%d: %s", e.Source, e.Line, e.Msg)
	case e.Source != "":
		return fmt.Sprintf("configuration error: %s: %s", e.Source, e.Msg)
	default:
		return "configuration error: " + e.Msg
	}
}

// Configf builds a ConfigurationError that is not tied to a descriptor line.
func Configf(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// EnvironmentError reports a host primitive that failed or is unavailable.
type EnvironmentError struct {
	Op   string
	Node string
	Err  error
}

func (e *EnvironmentError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("environment error: %s in %s: %v", e.Op, e.Node, e.Err)
	}
	return fmt.Sprintf("environment error: %s: %v", e.Op, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// EnvError wraps a failed host operation. It returns nil when err is nil
// and leaves configuration and environment errors untouched.
func EnvError(op, node string, err error) error {
	if err == nil || IsConfiguration(err) || IsEnvironment(err) {
		return err
	}
	return &EnvironmentError{Op: op, Node: node, Err: err}
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsEnvironment reports whether err carries an EnvironmentError.
func IsEnvironment(err error) bool {
	var ee *EnvironmentError
	return errors.As(err, &ee)
}
