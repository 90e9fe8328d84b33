// Package control runs the control-side half of the lock: it turns
// windowing events into render messages, decides when the render loop may
// build its surface, correlates resize acknowledgements with the session,
// and verifies unlock attempts.
package control

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/1broseidon/glasslock/internal/audit"
	"github.com/1broseidon/glasslock/internal/mailbox"
	"github.com/1broseidon/glasslock/internal/message"
)

// Session is the windowing session holding the lock.
type Session interface {
	// AckConfigure tells the session the configure with serial is applied.
	AckConfigure(serial message.Serial) error
	// Unlock releases the lock and tears down the lock surface.
	Unlock() error
}

// Authenticator verifies a password. Any non-nil error is a failed attempt.
type Authenticator interface {
	Authenticate(ctx context.Context, password string) error
}

// Auditor records lock activity.
type Auditor interface {
	Record(action audit.Action, details map[string]any)
}

// Event is a windowing event delivered to the dispatcher.
type Event interface {
	event()
}

// DisplayConnected carries the native display handle.
type DisplayConnected struct {
	Display message.DisplayHandle
}

// SurfaceCreated carries the native lock surface handle.
type SurfaceCreated struct {
	Surface message.SurfaceHandle
}

// Configured is a size assignment for the lock surface.
type Configured struct {
	Size   message.Size
	Serial message.Serial
}

// Input is a user input event on the lock surface.
type Input struct {
	Event message.Event
}

// SessionClosed means the session ended without an unlock.
type SessionClosed struct {
	Reason string
}

func (DisplayConnected) event() {}
func (SurfaceCreated) event()   {}
func (Configured) event()       {}
func (Input) event()            {}
func (SessionClosed) event()    {}

// Status is a snapshot of the dispatcher.
type Status struct {
	Locked         bool
	SurfaceReady   bool
	Size           message.Size
	PendingSerial  message.Serial
	AwaitingAck    bool
	LastAcked      message.Serial
	Verifying      bool
	FailedAttempts int
	// RenderStopped is set once the render queue refuses messages.
	RenderStopped bool
}

// Config holds the dispatcher's collaborators.
type Config struct {
	ToRender      *mailbox.Queue[message.Inbound]
	FromRender    *mailbox.Queue[message.Outbound]
	Session       Session
	Authenticator Authenticator
	Logger        *slog.Logger
	Audit         Auditor
}

type nopAuditor struct{}

func (nopAuditor) Record(audit.Action, map[string]any) {}

// Dispatcher is driven by Run on one goroutine. Status may be called from
// any goroutine.
type Dispatcher struct {
	toRender   *mailbox.Queue[message.Inbound]
	fromRender *mailbox.Queue[message.Outbound]
	session    Session
	auth       Authenticator
	logger     *slog.Logger
	audit      Auditor

	display    message.DisplayHandle
	surface    message.SurfaceHandle
	hasDisplay bool
	hasSurface bool
	first      *Configured

	results chan error
	done    bool

	mu     sync.Mutex
	status Status
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var aud Auditor = nopAuditor{}
	if cfg.Audit != nil {
		aud = cfg.Audit
	}
	return &Dispatcher{
		toRender:   cfg.ToRender,
		fromRender: cfg.FromRender,
		session:    cfg.Session,
		auth:       cfg.Authenticator,
		logger:     logger,
		audit:      aud,
		results:    make(chan error, 1),
		status:     Status{Locked: true},
	}
}

// Status returns a snapshot.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *Dispatcher) update(fn func(*Status)) {
	d.mu.Lock()
	fn(&d.status)
	d.mu.Unlock()
}

// Run dispatches until the session is unlocked or closed, events is
// closed, or ctx is done. The render queue is closed on return so the
// render loop shuts down. Unlock and session close return nil.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	defer d.toRender.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.audit.Record(audit.ActionLock, nil)
	d.logger.Info("dispatcher started")

	for !d.done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				d.handleEvent(SessionClosed{Reason: "event source closed"})
				continue
			}
			d.handleEvent(ev)
		case <-d.fromRender.Ready():
			if err := d.drainRender(ctx); err != nil {
				return err
			}
		case err := <-d.results:
			if err := d.handleAuthResult(err); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) handleEvent(ev Event) {
	switch e := ev.(type) {
	case DisplayConnected:
		d.display, d.hasDisplay = e.Display, true
		d.maybeReady()
	case SurfaceCreated:
		d.surface, d.hasSurface = e.Surface, true
		d.maybeReady()
	case Configured:
		d.handleConfigured(e)
	case Input:
		if !d.Status().SurfaceReady {
			d.logger.Debug("dropping input before surface ready", "type", e.Event.Type.String())
			return
		}
		d.send(message.WindowEvent{Event: e.Event})
	case SessionClosed:
		d.logger.Warn("session closed while locked", "reason", e.Reason)
		d.audit.Record(audit.ActionSessionClosed, map[string]any{"reason": e.Reason})
		d.done = true
	}
}

func (d *Dispatcher) handleConfigured(c Configured) {
	if !c.Size.Valid() {
		d.logger.Warn("rejecting zero-size configure", "serial", c.Serial, "size", c.Size.String())
		return
	}
	if !d.Status().SurfaceReady {
		d.first = &c
		d.maybeReady()
		return
	}
	d.send(message.SurfaceResize{Size: c.Size, Serial: c.Serial})
	d.update(func(s *Status) {
		s.Size = c.Size
		s.PendingSerial = c.Serial
		s.AwaitingAck = true
	})
}

// maybeReady sends SurfaceReady once the display, the surface and a first
// valid configure are all known. That configure is acknowledged at once:
// the render loop applies its size when it builds the surface.
func (d *Dispatcher) maybeReady() {
	if d.Status().SurfaceReady || !d.hasDisplay || !d.hasSurface || d.first == nil {
		return
	}
	c := *d.first
	d.first = nil

	d.send(message.SurfaceReady{Display: d.display, Surface: d.surface, Size: c.Size})
	d.update(func(s *Status) {
		s.SurfaceReady = true
		s.Size = c.Size
	})
	// Acked before the render loop has built the surface. On X11
	// AckConfigure only records the serial, and the surface is created at
	// exactly this size.
	d.ackSession(c.Serial)
	d.logger.Info("surface ready", "size", c.Size.String(), "serial", c.Serial)
}

func (d *Dispatcher) drainRender(ctx context.Context) error {
	for {
		msg, status := d.fromRender.TryRecv()
		if status != mailbox.Received {
			return nil
		}
		switch m := msg.(type) {
		case message.AckResize:
			d.handleAck(m.Serial)
		case message.UnlockWithPassword:
			d.handleUnlock(ctx, m.Password)
		default:
			d.logger.Warn("ignoring unknown render message", "kind", msg.Kind())
		}
		if d.done {
			return nil
		}
	}
}

// handleAck forwards an acknowledgement only for the latest issued serial.
func (d *Dispatcher) handleAck(serial message.Serial) {
	st := d.Status()
	if !st.AwaitingAck || serial != st.PendingSerial {
		d.logger.Debug("dropping stale resize ack", "serial", serial, "pending", st.PendingSerial)
		return
	}
	d.update(func(s *Status) { s.AwaitingAck = false })
	d.ackSession(serial)
}

func (d *Dispatcher) ackSession(serial message.Serial) {
	if err := d.session.AckConfigure(serial); err != nil {
		d.logger.Warn("acknowledging configure failed", "serial", serial, "error", err)
		return
	}
	d.update(func(s *Status) { s.LastAcked = serial })
}

// handleUnlock starts one verification. Attempts made while one is in
// flight are dropped.
func (d *Dispatcher) handleUnlock(ctx context.Context, password string) {
	if d.Status().Verifying {
		d.logger.Warn("dropping unlock attempt while verifying")
		return
	}
	d.update(func(s *Status) { s.Verifying = true })
	d.audit.Record(audit.ActionUnlockAttempt, nil)

	go func() {
		d.results <- d.auth.Authenticate(ctx, password)
	}()
}

func (d *Dispatcher) handleAuthResult(err error) error {
	d.update(func(s *Status) { s.Verifying = false })

	if err == nil {
		d.audit.Record(audit.ActionUnlocked, nil)
		if uerr := d.session.Unlock(); uerr != nil {
			return uerr
		}
		d.update(func(s *Status) { s.Locked = false })
		d.logger.Info("unlocked")
		d.done = true
		return nil
	}

	if errors.Is(err, context.Canceled) {
		d.logger.Debug("verification cancelled")
		return nil
	}
	var failed int
	d.update(func(s *Status) {
		s.FailedAttempts++
		failed = s.FailedAttempts
	})
	d.logger.Info("unlock failed", "attempts", failed, "error", err)
	d.audit.Record(audit.ActionUnlockFailed, map[string]any{"attempt": failed, "error": err})
	d.send(message.UnlockFailed{})
	return nil
}

// send forwards m to the render loop. After the loop has stopped, messages
// are dropped silently; the first refusal is logged.
func (d *Dispatcher) send(m message.Inbound) {
	if d.Status().RenderStopped {
		return
	}
	if err := d.toRender.Send(m); err != nil {
		if errors.Is(err, mailbox.ErrClosed) {
			d.update(func(s *Status) { s.RenderStopped = true })
			d.logger.Warn("render loop stopped, dropping further render messages", "kind", m.Kind())
			return
		}
		d.logger.Warn("dropping render message", "kind", m.Kind(), "error", err)
	}
}
