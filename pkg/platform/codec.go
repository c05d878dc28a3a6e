// Package platform provides the channel layer between Go and native code.
// Go calls native authorization primitives through MethodChannels and
// receives asynchronous completions on EventChannels.
package platform

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Codec converts channel payloads to and from bytes.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// jsonCodec carries payloads as JSON. Whole numbers decode as int since
// native raw statuses are small integer enums.
type jsonCodec struct{}

func (jsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return fromNumbers(v), nil
}

func fromNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = fromNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = fromNumbers(e)
		}
	}
	return v
}

// DefaultCodec is the codec used by every channel.
var DefaultCodec Codec = jsonCodec{}

var (
	// ErrChannelNotFound is returned by the bridge for a channel it does not serve.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound is returned for a method or permission the native
	// side does not implement.
	ErrMethodNotFound = errors.New("method not implemented")

	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrPlatformUnavailable indicates no native bridge is installed, which is
	// the case on every OS other than macOS.
	ErrPlatformUnavailable = errors.New("platform feature unavailable")
)

// ChannelError is an error event pushed by native code, such as a failed
// completion stream.
type ChannelError struct {
	Code    string
	Message string
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError returns a ChannelError for code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}
