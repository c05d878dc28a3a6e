package errors

import (
	"log/slog"
	"os"
)

// LogHandler is an ErrorHandler that logs through slog.
type LogHandler struct {
	// Logger receives the records. Nil means a text logger on stderr.
	Logger *slog.Logger
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

var stderrLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return stderrLogger
}

// HandleError logs an Error. Probe failures are swallowed by contract, so
// they are logged at debug level.
func (h *LogHandler) HandleError(err *Error) {
	if err == nil {
		return
	}
	attrs := []any{"op", err.Op, "kind", err.Kind.String(), "err", err.Err}
	if err.Permission != "" {
		attrs = append(attrs, "permission", err.Permission)
	}
	if err.Channel != "" {
		attrs = append(attrs, "channel", err.Channel)
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, "stack", err.StackTrace)
	}
	if err.Kind == KindProbe {
		h.logger().Debug("macperms error", attrs...)
		return
	}
	h.logger().Error("macperms error", attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []any{"value", err.Value}
	if err.Op != "" {
		attrs = append(attrs, "op", err.Op)
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, "stack", err.StackTrace)
	}
	h.logger().Error("macperms panic", attrs...)
}
