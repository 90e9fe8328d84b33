package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

const windowName = "glasslock"

const lockEventMask = xproto.EventMaskKeyPress |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskFocusChange |
	xproto.EventMaskVisibilityChange |
	xproto.EventMaskExposure

// createLockWindow creates and maps a black override-redirect window
// covering b.
func (c *Connection) createLockWindow(b Rect) (xproto.Window, error) {
	conn := c.XUtil.Conn()
	screen := c.XUtil.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		c.Root,
		int16(b.X), int16(b.Y),
		uint16(b.Width), uint16(b.Height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{screen.BlackPixel, 1, uint32(lockEventMask)},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("create lock window: %w", err)
	}

	icccm.WmNameSet(c.XUtil, wid, windowName)
	icccm.WmClassSet(c.XUtil, wid, &icccm.WmClass{Instance: windowName, Class: windowName})
	ewmh.WmPidSet(c.XUtil, wid, uint(os.Getpid()))

	if err := xproto.MapWindowChecked(conn, wid).Check(); err != nil {
		xproto.DestroyWindow(conn, wid)
		return 0, fmt.Errorf("map lock window: %w", err)
	}
	c.raise(wid)
	return wid, nil
}

func (c *Connection) raise(win xproto.Window) {
	xproto.ConfigureWindow(c.XUtil.Conn(), win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

func (c *Connection) moveResize(win xproto.Window, b Rect) {
	xproto.ConfigureWindow(c.XUtil.Conn(), win,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int32(b.X)), uint32(int32(b.Y)), uint32(b.Width), uint32(b.Height)})
}

// blankCursor builds an invisible cursor so the pointer is hidden while
// grabbed.
func (c *Connection) blankCursor() (xproto.Cursor, error) {
	conn := c.XUtil.Conn()

	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreatePixmapChecked(conn, 1, pix, xproto.Drawable(c.Root), 1, 1).Check(); err != nil {
		return 0, err
	}
	defer xproto.FreePixmap(conn, pix)

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, err
	}
	xproto.CreateGC(conn, gc, xproto.Drawable(pix), xproto.GcForeground, []uint32{0})
	xproto.PolyFillRectangle(conn, xproto.Drawable(pix), gc, []xproto.Rectangle{{Width: 1, Height: 1}})
	xproto.FreeGC(conn, gc)

	cursor, err := xproto.NewCursorId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreateCursorChecked(conn, cursor, pix, pix, 0, 0, 0, 0, 0, 0, 0, 0).Check(); err != nil {
		return 0, err
	}
	return cursor, nil
}
