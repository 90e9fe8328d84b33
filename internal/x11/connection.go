// Package x11 is the windowing side of the lock on X11: it owns the X
// connection, covers the screen with an override-redirect window, holds
// the keyboard and pointer grabs and turns X events into dispatcher
// events.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources.
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Display string

	level3Mask uint16
}

// NewConnection connects to display, or $DISPLAY when it is empty.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to X display %q: %w", display, err)
	}

	// Required for keysym lookups on grabbed key presses.
	keybind.Initialize(xu)

	return &Connection{
		XUtil:      xu,
		Root:       xu.RootWin(),
		Display:    display,
		level3Mask: modMaskForKeysym(xu, "ISO_Level3_Shift"),
	}, nil
}

// EventLoop runs the X event loop until xevent.Quit is called.
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// ModMask returns the modifier mask a keysym such as "Num_Lock" is bound
// to, or 0.
func (c *Connection) ModMask(keysym string) uint16 {
	return modMaskForKeysym(c.XUtil, keysym)
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
