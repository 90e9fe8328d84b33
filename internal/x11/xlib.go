//go:build linux || freebsd || openbsd

package x11

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/1broseidon/glasslock/internal/message"
)

// libX11 is only needed for the Display* that eglGetDisplay expects. All
// protocol traffic goes through the xgb connection.
const libX11 = "libX11.so.6"

var (
	xlibOnce sync.Once
	xlibErr  error

	xOpenDisplay  func(name *byte) uintptr
	xCloseDisplay func(dpy uintptr) int32
)

func loadXlib() error {
	xlibOnce.Do(func() {
		lib, err := purego.Dlopen(libX11, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			xlibErr = fmt.Errorf("load %s: %w", libX11, err)
			return
		}
		purego.RegisterLibFunc(&xOpenDisplay, lib, "XOpenDisplay")
		purego.RegisterLibFunc(&xCloseDisplay, lib, "XCloseDisplay")
	})
	return xlibErr
}

// NativeDisplay is an Xlib connection to the same server, handed to the
// render thread as its display handle.
type NativeDisplay struct {
	ptr uintptr
}

// OpenNativeDisplay opens an Xlib Display* on name ($DISPLAY when empty).
func OpenNativeDisplay(name string) (*NativeDisplay, error) {
	if err := loadXlib(); err != nil {
		return nil, err
	}
	var arg *byte
	if name != "" {
		buf := append([]byte(name), 0)
		arg = &buf[0]
	}
	ptr := xOpenDisplay(arg)
	if ptr == 0 {
		return nil, fmt.Errorf("XOpenDisplay(%q) failed", name)
	}
	return &NativeDisplay{ptr: ptr}, nil
}

// Handle returns the Display* as a display handle.
func (d *NativeDisplay) Handle() message.DisplayHandle {
	return message.DisplayHandle(d.ptr)
}

// Close closes the Xlib connection. It must not be called while the EGL
// display built on it is still initialized.
func (d *NativeDisplay) Close() error {
	if d == nil || d.ptr == 0 {
		return nil
	}
	ptr := d.ptr
	d.ptr = 0
	if xCloseDisplay(ptr) != 0 {
		return errors.New("XCloseDisplay failed")
	}
	return nil
}
