// Package render runs the lock screen's render loop. The loop owns the
// render surface and the lock-screen window, and talks to the control
// goroutine only through two mailbox queues.
//
// The goroutine calling Run must have called runtime.LockOSThread, since
// the surface's context is bound to the OS thread that made it current.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/glasslock/internal/mailbox"
	"github.com/1broseidon/glasslock/internal/message"
)

var (
	// ErrProtocolViolation is returned when the first inbound message is
	// not SurfaceReady.
	ErrProtocolViolation = errors.New("render: protocol violation")

	// ErrBuild wraps a failure to construct the surface or window.
	ErrBuild = errors.New("render: build failed")
)

// State is the loop's lifecycle state.
type State int32

const (
	AwaitingSurface State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingSurface:
		return "awaiting-surface"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Surface is the drawable the loop resizes.
type Surface interface {
	Resize(width, height uint32) error
}

// Window is the lock-screen object the loop drives.
type Window interface {
	SetSize(size message.Size)
	HandleEvent(ev message.Event)
	UnlockFailed()
	Tick(now time.Time)
	NeedsRedraw() bool
	Draw() error
}

// BuildFunc constructs the surface and window for ready on the render
// goroutine. submit forwards a password to the control goroutine without
// blocking.
type BuildFunc func(ready message.SurfaceReady, submit func(password string)) (Surface, Window, error)

// Config holds the loop's collaborators.
type Config struct {
	Inbound  *mailbox.Queue[message.Inbound]
	Outbound *mailbox.Queue[message.Outbound]
	Build    BuildFunc
	Logger   *slog.Logger

	// FrameInterval paces the running loop: after an iteration it waits
	// for the next deadline or an inbound message. Zero never waits.
	FrameInterval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Loop is the render state machine. It runs once.
//
// Once running, the loop never waits on the control goroutine. The only
// other wait is frame pacing: with a FrameInterval set, an idle iteration
// sleeps until the next frame deadline, and any inbound message ends the
// sleep early. A zero FrameInterval never waits.
type Loop struct {
	in       *mailbox.Queue[message.Inbound]
	out      *mailbox.Queue[message.Outbound]
	build    BuildFunc
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	state atomic.Int32

	surface Surface
	window  Window
	pending *message.SurfaceResize
}

// New creates a loop in AwaitingSurface.
func New(cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Loop{
		in:       cfg.Inbound,
		out:      cfg.Outbound,
		build:    cfg.Build,
		logger:   logger,
		interval: cfg.FrameInterval,
		now:      now,
	}
}

// State reports the current state. Safe for concurrent use.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run waits for SurfaceReady, builds the surface and window, and runs
// frames until the inbound queue is closed and drained or ctx is done.
// Both of those end the loop with a nil error. Protocol and build failures
// are returned. Anything the surface or window can release (Release or
// Close) is released on return.
func (l *Loop) Run(ctx context.Context) error {
	defer l.terminate()

	first, err := l.in.Recv(ctx)
	if err != nil {
		if errors.Is(err, mailbox.ErrClosed) || ctx.Err() != nil {
			l.logger.Info("render loop stopped before surface was ready")
			return nil
		}
		return err
	}

	ready, ok := first.(message.SurfaceReady)
	if !ok {
		return fmt.Errorf("%w: first message is %s, want %s", ErrProtocolViolation, first.Kind(), message.KindSurfaceReady)
	}
	if !ready.Size.Valid() {
		return fmt.Errorf("%w: surface ready with size %s", ErrProtocolViolation, ready.Size)
	}

	surface, window, err := l.build(ready, l.submit)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}
	l.surface, l.window = surface, window
	defer l.release()

	window.SetSize(ready.Size)
	l.state.Store(int32(Running))
	l.logger.Info("render loop running", "size", ready.Size.String())

	for {
		start := l.now()
		if !l.iterate(start) {
			l.logger.Info("render loop stopped", "reason", "inbound closed")
			return nil
		}
		if ctx.Err() != nil {
			l.logger.Info("render loop stopped", "reason", "shutdown")
			return nil
		}
		l.pace(ctx, start)
	}
}

// iterate runs one frame. It returns false once the inbound queue is
// closed and drained.
func (l *Loop) iterate(now time.Time) bool {
	if l.pending != nil {
		l.applyResize(*l.pending)
	}

	open := l.drain()

	l.window.Tick(now)
	if l.window.NeedsRedraw() {
		if err := l.window.Draw(); err != nil {
			l.logger.Warn("draw failed", "error", err)
		}
	}
	return open
}

func (l *Loop) drain() bool {
	for {
		msg, status := l.in.TryRecv()
		switch status {
		case mailbox.Empty:
			return true
		case mailbox.Closed:
			return false
		}

		switch m := msg.(type) {
		case message.SurfaceResize:
			l.applyResize(m)
		case message.WindowEvent:
			l.window.HandleEvent(m.Event)
		case message.UnlockFailed:
			l.window.UnlockFailed()
		case message.SurfaceReady:
			l.logger.Warn("ignoring repeated surface ready")
		default:
			l.logger.Warn("ignoring unknown message", "kind", msg.Kind())
		}
	}
}

// applyResize resizes the surface and acknowledges the serial. A failed
// resize stays pending for the next iteration unless a newer resize
// replaces it.
func (l *Loop) applyResize(m message.SurfaceResize) {
	if !m.Size.Valid() {
		l.logger.Warn("rejecting zero-size resize", "serial", m.Serial, "size", m.Size.String())
		l.pending = nil
		return
	}
	if err := l.surface.Resize(m.Size.Width, m.Size.Height); err != nil {
		l.logger.Warn("resize failed, retrying next frame", "serial", m.Serial, "error", err)
		l.pending = &m
		return
	}
	l.pending = nil
	l.window.SetSize(m.Size)
	l.send(message.AckResize{Serial: m.Serial})
}

func (l *Loop) submit(password string) {
	l.send(message.UnlockWithPassword{Password: password})
}

func (l *Loop) send(m message.Outbound) {
	if err := l.out.Send(m); err != nil {
		l.logger.Warn("dropping outbound message", "kind", m.Kind(), "error", err)
	}
}

// pace waits until start+interval, returning early when an inbound
// message arrives or ctx is done.
func (l *Loop) pace(ctx context.Context, start time.Time) {
	if l.interval <= 0 {
		return
	}
	wait := l.interval - l.now().Sub(start)
	if wait <= 0 || l.in.Len() > 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-l.in.Ready():
	case <-ctx.Done():
	}
}

// terminate refuses further inbound messages. Whatever the sender queued
// after the loop stopped reading is dropped.
func (l *Loop) terminate() {
	l.state.Store(int32(Terminated))
	if n := l.in.Discard(); n > 0 {
		l.logger.Debug("dropped inbound messages after termination", "count", n)
	}
}

func (l *Loop) release() {
	if c, ok := l.window.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			l.logger.Warn("window close failed", "error", err)
		}
	}
	if r, ok := l.surface.(interface{ Release() error }); ok {
		if err := r.Release(); err != nil {
			l.logger.Warn("surface release failed", "error", err)
		}
	}
}
