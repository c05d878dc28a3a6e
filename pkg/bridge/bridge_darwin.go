//go:build darwin && cgo

package bridge

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=10.13
#cgo LDFLAGS: -framework Foundation -framework AppKit -framework ApplicationServices -framework AVFoundation -framework Contacts -framework CoreBluetooth -framework CoreGraphics -framework CoreLocation -framework EventKit -framework IOKit -framework Photos -framework Speech -framework StoreKit
#include <stdlib.h>
#include "native_darwin.h"
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-drift/macperms/pkg/errors"
	"github.com/go-drift/macperms/pkg/platform"
)

var (
	installMu sync.Mutex
	requests  = newPendingRequests()
)

// Install registers the native bridge with the platform package unless a
// bridge is already installed.
func Install() {
	installMu.Lock()
	defer installMu.Unlock()
	if !platform.HasNativeBridge() {
		platform.SetNativeBridge(darwinBridge{})
	}
}

// Supported reports whether this build talks to the privacy frameworks.
func Supported() bool { return true }

type darwinBridge struct{}

func (darwinBridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	switch channel {
	case platform.PermissionsChannel:
		return invokePermissions(method, args)
	case platform.SettingsChannel:
		return invokeSettings(method, args)
	default:
		return nil, platform.ErrChannelNotFound
	}
}

// Completions are pushed from native code, so there is no stream to manage.
func (darwinBridge) StartEventStream(string) error { return nil }
func (darwinBridge) StopEventStream(string) error  { return nil }

func invokePermissions(method string, args []byte) ([]byte, error) {
	permission, requestID, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	cPermission := C.CString(permission)
	defer C.free(unsafe.Pointer(cPermission))

	switch method {
	case "check":
		var raw C.int
		if err := codeError("check", permission, int(C.mp_status(cPermission, &raw))); err != nil {
			return nil, err
		}
		return platform.DefaultCodec.Encode(map[string]any{"raw": int(raw)})

	case "request":
		if requestID == "" {
			var raw C.int
			if err := codeError("request", permission, int(C.mp_request_sync(cPermission, &raw))); err != nil {
				return nil, err
			}
			return platform.DefaultCodec.Encode(map[string]any{"raw": int(raw)})
		}
		token := requests.add(pendingRequest{permission: permission, requestID: requestID})
		if err := codeError("request", permission, int(C.mp_request_async(cPermission, C.longlong(token)))); err != nil {
			requests.take(token)
			return nil, err
		}
		return platform.DefaultCodec.Encode(nil)

	default:
		return nil, platform.ErrMethodNotFound
	}
}

func invokeSettings(method string, args []byte) ([]byte, error) {
	if method != "openURL" {
		return nil, platform.ErrMethodNotFound
	}
	decoded, err := platform.DefaultCodec.Decode(args)
	if err != nil {
		return nil, err
	}
	rawURL := platform.ParseString(platform.ParseMap(decoded)["url"])
	if rawURL == "" {
		return nil, platform.ErrInvalidArguments
	}
	cURL := C.CString(rawURL)
	defer C.free(unsafe.Pointer(cURL))
	if code := int(C.mp_open_url(cURL)); code != codeOK {
		return nil, fmt.Errorf("openURL %s: native call failed (code %d)", rawURL, code)
	}
	return platform.DefaultCodec.Encode(nil)
}

//export macpermsRequestComplete
func macpermsRequestComplete(token C.longlong, raw C.int) {
	defer errors.Recover("bridge.requestComplete")
	if err := requests.complete(int64(token), int(raw)); err != nil {
		errors.Report(&errors.Error{
			Op:      "bridge.requestComplete",
			Kind:    errors.KindPlatform,
			Channel: platform.PermissionChangesChannel,
			Err:     err,
		})
	}
}
