package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

type handlerBox struct{ h ErrorHandler }

var current atomic.Pointer[handlerBox]

func init() {
	current.Store(&handlerBox{h: &LogHandler{}})
}

// SetHandler replaces the process-wide handler. Nil restores a LogHandler
// writing to stderr.
func SetHandler(h ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	current.Store(&handlerBox{h: h})
}

// Handler returns the process-wide handler.
func Handler() ErrorHandler {
	return current.Load().h
}

// Report hands err to the handler, stamping it with the current time.
// Contract violations also record where they were detected.
func Report(err *Error) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if err.Kind == KindContract && err.StackTrace == "" {
		err.StackTrace = stack(3)
	}
	Handler().HandleError(err)
}

// Recover reports a panic in the calling goroutine and swallows it. Native
// completions and watcher loops run it deferred:
//
//	defer errors.Recover("bridge.requestComplete")
func Recover(op string) {
	r := recover()
	if r == nil {
		return
	}
	Handler().HandlePanic(&PanicError{
		Op:         op,
		Value:      r,
		StackTrace: stack(4),
		Timestamp:  time.Now(),
	})
}

// stack formats up to 32 frames, skipping skip frames of runtime.Callers.
func stack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for n > 0 {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
