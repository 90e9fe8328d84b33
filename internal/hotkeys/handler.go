// Package hotkeys registers global keyboard shortcuts on the X root window.
package hotkeys

import (
	"log"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/glasslock/internal/x11"
)

// Handler manages global keyboard shortcuts.
type Handler struct {
	xu   *xgbutil.XUtil
	root xproto.Window
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler on conn. Lock modifiers (CapsLock,
// NumLock, ScrollLock) are ignored so shortcuts fire regardless of them.
func NewHandler(conn *x11.Connection) *Handler {
	ignoreModsOnce.Do(func() {
		xevent.IgnoreMods = ignoreMasks(
			uint16(xproto.ModMaskLock),
			conn.ModMask("Num_Lock"),
			conn.ModMask("Scroll_Lock"),
		)
	})
	return &Handler{xu: conn.XUtil, root: conn.Root}
}

// RegisterFunc grabs keySequence (e.g. "Mod4-l") on the root window and
// calls callback on every press.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		return err
	}
	log.Printf("Hotkey registered: %s", keySequence)
	return nil
}

// ignoreMasks returns every combination of the lock modifiers, including
// none. Zero and duplicate masks are skipped.
func ignoreMasks(caps, numLock, scrollLock uint16) []uint16 {
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	return ignore
}
