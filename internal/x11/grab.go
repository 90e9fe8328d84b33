package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// grabInput grabs the keyboard and pointer for win. The keyboard grab is
// released again when the pointer grab fails so a failed attempt leaves
// nothing held.
func (c *Connection) grabInput(win xproto.Window, cursor xproto.Cursor) error {
	conn := c.XUtil.Conn()

	kb, err := xproto.GrabKeyboard(
		conn,
		false, // owner_events
		win,
		xproto.TimeCurrentTime,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Reply()
	if err != nil {
		return fmt.Errorf("grab keyboard: %w", err)
	}
	if kb.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("keyboard grab failed: %s", grabStatusName(kb.Status))
	}

	ptr, err := xproto.GrabPointer(
		conn,
		false,
		win,
		uint16(xproto.EventMaskPointerMotion),
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
		win, // confine_to
		cursor,
		xproto.TimeCurrentTime,
	).Reply()
	if err != nil {
		xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)
		return fmt.Errorf("grab pointer: %w", err)
	}
	if ptr.Status != xproto.GrabStatusSuccess {
		xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)
		return fmt.Errorf("pointer grab failed: %s", grabStatusName(ptr.Status))
	}
	return nil
}

func (c *Connection) ungrabInput() {
	conn := c.XUtil.Conn()
	xproto.UngrabPointer(conn, xproto.TimeCurrentTime)
	xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)
}

func grabStatusName(status byte) string {
	switch status {
	case xproto.GrabStatusSuccess:
		return "success"
	case xproto.GrabStatusAlreadyGrabbed:
		return "already grabbed by another client"
	case xproto.GrabStatusInvalidTime:
		return "invalid time"
	case xproto.GrabStatusNotViewable:
		return "window not viewable"
	case xproto.GrabStatusFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("status %d", status)
	}
}
