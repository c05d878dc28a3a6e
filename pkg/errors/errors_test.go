package errors

import (
	"bytes"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "plain",
			err:  &Error{Op: "permissions.Status", Kind: KindContract, Err: stderrors.New("boom")},
			want: "permissions.Status [contract]: boom",
		},
		{
			name: "with permission",
			err:  &Error{Op: "permissions.Status", Kind: KindValidation, Permission: "camera", Err: stderrors.New("boom")},
			want: "permissions.Status [validation] permission=camera: boom",
		},
		{
			name: "channel wins over permission",
			err:  &Error{Op: "platform.HandleEvent", Kind: KindPlatform, Permission: "camera", Channel: "macperms/permissions", Err: stderrors.New("boom")},
			want: "platform.HandleEvent [platform] channel=macperms/permissions: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Op: "folders.probe", Kind: KindProbe, Err: fs.ErrPermission}
	if !stderrors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is should see through Error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindValidation, "validation"},
		{KindContract, "contract"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindUnavailable, "unavailable"},
		{KindProbe, "probe"},
		{KindInit, "init"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}

	err.Op = "bridge.requestComplete"
	if got, want := err.Error(), "panic in bridge.requestComplete: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestParseErrorString(t *testing.T) {
	err := &ParseError{Channel: "macperms/permissions", DataType: "RawStatus", Got: 123}
	want := "failed to parse RawStatus from channel macperms/permissions: got int"
	if got := err.Error(); got != want {
		t.Errorf("ParseError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *Error
	handler := &testHandler{onError: func(err *Error) { captured = err }}

	SetHandler(handler)
	defer SetHandler(nil)

	Report(&Error{Op: "test.op", Kind: KindInit, Err: stderrors.New("x")})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	handler := &testHandler{onPanic: func(err *PanicError) { captured = err }}

	SetHandler(handler)
	defer SetHandler(nil)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
	if captured.StackTrace == "" {
		t.Error("expected stack trace")
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(&testHandler{})
	SetHandler(nil)
	if _, ok := Handler().(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", Handler())
	}
}

func TestReportContractRecordsStack(t *testing.T) {
	var captured []*Error
	SetHandler(&testHandler{onError: func(err *Error) { captured = append(captured, err) }})
	defer SetHandler(nil)

	Report(&Error{Op: "permissions.Status", Kind: KindContract, Err: stderrors.New("raw 9")})
	Report(&Error{Op: "permissions.Status", Kind: KindPlatform, Err: stderrors.New("no bridge")})

	if len(captured) != 2 {
		t.Fatalf("captured %d errors", len(captured))
	}
	if !strings.Contains(captured[0].StackTrace, "TestReportContractRecordsStack") {
		t.Errorf("contract stack = %q", captured[0].StackTrace)
	}
	if captured[1].StackTrace != "" {
		t.Errorf("platform error got a stack: %q", captured[1].StackTrace)
	}
}

func TestLogHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}

	h.HandleError(&Error{Op: "folders.probe", Kind: KindProbe, Err: fs.ErrPermission})
	if buf.Len() != 0 {
		t.Errorf("probe errors should log at debug, got %q", buf.String())
	}

	h.HandleError(&Error{Op: "permissions.Status", Kind: KindContract, Permission: "camera", Err: stderrors.New("raw 9")})
	out := buf.String()
	for _, want := range []string{"level=ERROR", "op=permissions.Status", "kind=contract", "permission=camera"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}
}

type testHandler struct {
	onError func(*Error)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *Error) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
