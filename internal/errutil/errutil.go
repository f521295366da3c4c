package errutil

import "log/slog"

// LogMsg logs err at warn level with a message and extra attributes.
// It is a no-op for nil errors, so best-effort loops can call it unconditionally.
func LogMsg(err error, msg string, args ...any) {
	if err != nil {
		slog.Warn(msg, append([]any{"error", err}, args...)...)
	}
}

// ReportError logs an unexpected error at error level. Centralized so an
// external error reporter can be hooked in at a single point later.
func ReportError(err error, msg string, args ...any) {
	if err != nil {
		slog.Error(msg, append([]any{"error", err}, args...)...)
	}
}
