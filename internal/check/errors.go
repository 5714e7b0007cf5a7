package check

import "fmt"

// ConfigError reports a check configuration value outside its allowed
// bounds. It is raised before any transport activity.
type ConfigError struct {
	Option string
	Value  int
	Min    int
	Max    int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %d not in range %d..%d", e.Option, e.Value, e.Min, e.Max)
}

// TotalLossError reports a session that completed all sequences without
// a single alive reply. The otherwise valid report is carried as data so
// the caller can still inspect messages and timing context.
type TotalLossError struct {
	Report *Report
}

func (e *TotalLossError) Error() string {
	return "all packets dropped"
}

// Failure wraps a fatal fault (resolution, socket, permission or any
// unexpected error during send/receive) with a best-effort message.
type Failure struct {
	Message string
	Cause   error
}

func (e *Failure) Error() string {
	return "ping failed: " + e.Message
}

func (e *Failure) Unwrap() error {
	return e.Cause
}

// newFailure builds a Failure from a cause. When the cause stringifies
// to nothing, its dynamic type name is used instead.
func newFailure(cause error) *Failure {
	msg := cause.Error()
	if msg == "" {
		msg = fmt.Sprintf("%T", cause)
	}
	return &Failure{Message: msg, Cause: cause}
}
