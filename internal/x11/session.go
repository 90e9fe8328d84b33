//go:build linux || freebsd || openbsd

package x11

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/glasslock/internal/control"
	"github.com/1broseidon/glasslock/internal/mailbox"
	"github.com/1broseidon/glasslock/internal/message"
)

// ErrUnknownSerial is returned when acknowledging a serial that was never
// issued.
var ErrUnknownSerial = errors.New("x11: unknown configure serial")

// SessionConfig tunes how the lock is taken.
type SessionConfig struct {
	// GrabAttempts bounds the input grab retries; another client may hold
	// a grab for a moment (an open menu, a drag).
	GrabAttempts int
	GrabInterval time.Duration
	Logger       *slog.Logger
}

// Session is a held lock on one X display. It implements control.Session.
type Session struct {
	conn   *Connection
	native *NativeDisplay
	logger *slog.Logger

	win    xproto.Window
	cursor xproto.Cursor
	events *mailbox.Queue[control.Event]

	mu       sync.Mutex
	size     message.Size
	serial   message.Serial
	acked    message.Serial
	unlocked bool
}

var _ control.Session = (*Session)(nil)

// Lock covers the screen and grabs input. On success the session has
// queued DisplayConnected, SurfaceCreated and the first Configured event.
func Lock(conn *Connection, native *NativeDisplay, cfg SessionConfig) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.GrabAttempts
	if attempts <= 0 {
		attempts = 10
	}
	interval := cfg.GrabInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	bounds := conn.ScreenBounds()
	win, err := conn.createLockWindow(bounds)
	if err != nil {
		return nil, err
	}

	cursor, err := conn.blankCursor()
	if err != nil {
		logger.Warn("blank cursor unavailable, pointer stays visible", "error", err)
		cursor = 0
	}

	s := &Session{
		conn:   conn,
		native: native,
		logger: logger,
		win:    win,
		cursor: cursor,
		events: mailbox.New[control.Event](),
	}

	if err := s.grab(attempts, interval); err != nil {
		s.destroy()
		return nil, err
	}
	s.attach()

	size := message.Size{Width: uint32(bounds.Width), Height: uint32(bounds.Height)}
	s.events.Send(control.DisplayConnected{Display: native.Handle()})
	s.events.Send(control.SurfaceCreated{Surface: message.SurfaceHandle(win)})
	s.configured(size)

	logger.Info("screen locked", "window", win, "bounds", fmt.Sprintf("%dx%d+%d+%d", bounds.Width, bounds.Height, bounds.X, bounds.Y))
	return s, nil
}

func (s *Session) grab(attempts int, interval time.Duration) error {
	var err error
	for i := range attempts {
		if i > 0 {
			time.Sleep(interval)
		}
		if err = s.conn.grabInput(s.win, s.cursor); err == nil {
			return nil
		}
		s.logger.Debug("input grab attempt failed", "attempt", i+1, "error", err)
	}
	return fmt.Errorf("grab input after %d attempts: %w", attempts, err)
}

func (s *Session) attach() {
	xu := s.conn.XUtil

	xevent.KeyPressFun(s.handleKeyPress).Connect(xu, s.win)
	xevent.MotionNotifyFun(func(_ *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		s.input(message.Event{Type: message.EventPointerMove, X: int(ev.EventX), Y: int(ev.EventY)})
	}).Connect(xu, s.win)
	xevent.FocusInFun(func(_ *xgbutil.XUtil, _ xevent.FocusInEvent) {
		s.input(message.Event{Type: message.EventFocusIn})
	}).Connect(xu, s.win)
	xevent.FocusOutFun(func(_ *xgbutil.XUtil, _ xevent.FocusOutEvent) {
		s.input(message.Event{Type: message.EventFocusOut})
	}).Connect(xu, s.win)
	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		s.configured(message.Size{Width: uint32(ev.Width), Height: uint32(ev.Height)})
	}).Connect(xu, s.win)
	xevent.VisibilityNotifyFun(func(_ *xgbutil.XUtil, ev xevent.VisibilityNotifyEvent) {
		if ev.State != xproto.VisibilityUnobscured {
			s.conn.raise(s.win)
		}
	}).Connect(xu, s.win)
	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, _ xevent.DestroyNotifyEvent) {
		s.closed("lock window destroyed")
	}).Connect(xu, s.win)

	// Follow screen layout changes (monitor hotplug, xrandr).
	xproto.ChangeWindowAttributes(xu.Conn(), s.conn.Root, xproto.CwEventMask,
		[]uint32{uint32(xproto.EventMaskStructureNotify)})
	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, _ xevent.ConfigureNotifyEvent) {
		s.conn.moveResize(s.win, s.conn.ScreenBounds())
	}).Connect(xu, s.conn.Root)
}

func (s *Session) handleKeyPress(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
	col := keysymColumn(ev.State, xproto.ModMaskShift, s.conn.level3Mask)
	sym := keybind.KeysymGet(xu, ev.Detail, col)
	if sym == 0 && col > 1 {
		sym = keybind.KeysymGet(xu, ev.Detail, col&1)
	}
	if sym == 0 && col != 0 {
		sym = keybind.KeysymGet(xu, ev.Detail, 0)
	}
	e, ok := TranslateKey(sym, ev.State&xproto.ModMaskLock != 0)
	if !ok {
		return
	}
	s.input(e)
}

func (s *Session) input(e message.Event) {
	s.events.Send(control.Input{Event: e})
}

// configured issues a new serial for a changed window size.
func (s *Session) configured(size message.Size) {
	s.mu.Lock()
	if size == s.size {
		s.mu.Unlock()
		return
	}
	s.size = size
	s.serial++
	serial := s.serial
	s.mu.Unlock()

	s.logger.Debug("lock window configured", "size", size.String(), "serial", serial)
	s.events.Send(control.Configured{Size: size, Serial: serial})
}

func (s *Session) closed(reason string) {
	s.mu.Lock()
	unlocked := s.unlocked
	s.mu.Unlock()
	if unlocked {
		return
	}
	s.events.Send(control.SessionClosed{Reason: reason})
}

// Events streams the session's events until ctx is done or the X event
// loop has stopped and every queued event was delivered.
func (s *Session) Events(ctx context.Context) <-chan control.Event {
	ch := make(chan control.Event)
	go func() {
		defer close(ch)
		for {
			ev, err := s.events.Recv(ctx)
			if err != nil {
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Run processes X events until Unlock or until the connection is lost.
func (s *Session) Run() {
	s.conn.EventLoop()
	s.closed("X event loop stopped")
	s.events.Close()
}

// AckConfigure records that the configure with serial is drawn. X11 has
// no configure handshake, so nothing is sent to the server.
func (s *Session) AckConfigure(serial message.Serial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if serial == 0 || serial > s.serial {
		return fmt.Errorf("%w: %d (latest %d)", ErrUnknownSerial, serial, s.serial)
	}
	if serial > s.acked {
		s.acked = serial
	}
	return nil
}

// LastAcked returns the newest acknowledged serial.
func (s *Session) LastAcked() message.Serial {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acked
}

// Reassert raises the lock window and renews the input grab. Grabbing
// again while already holding the grab is a no-op on the server.
func (s *Session) Reassert() error {
	s.mu.Lock()
	unlocked := s.unlocked
	s.mu.Unlock()
	if unlocked {
		return nil
	}
	s.conn.raise(s.win)
	return s.conn.grabInput(s.win, s.cursor)
}

// Unlock releases the grabs, hides the window and stops Run. The window
// itself is destroyed by Close once rendering has stopped.
func (s *Session) Unlock() error {
	s.mu.Lock()
	if s.unlocked {
		s.mu.Unlock()
		return nil
	}
	s.unlocked = true
	s.mu.Unlock()

	s.conn.ungrabInput()
	if err := xproto.UnmapWindowChecked(s.conn.XUtil.Conn(), s.win).Check(); err != nil {
		s.logger.Warn("unmap lock window failed", "error", err)
	}
	s.conn.Quit()
	s.logger.Info("screen unlocked")
	return nil
}

// Close destroys the lock window. Call it after the render loop has
// released its surface.
func (s *Session) Close() {
	s.destroy()
}

func (s *Session) destroy() {
	conn := s.conn.XUtil.Conn()
	xevent.Detach(s.conn.XUtil, s.win)
	xevent.Detach(s.conn.XUtil, s.conn.Root)
	s.conn.ungrabInput()
	xproto.DestroyWindow(conn, s.win)
	if s.cursor != 0 {
		xproto.FreeCursor(conn, s.cursor)
	}
	// Flush the teardown requests.
	xproto.GetInputFocus(conn).Reply()
}
