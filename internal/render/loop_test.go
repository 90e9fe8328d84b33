package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/glasslock/internal/mailbox"
	"github.com/1broseidon/glasslock/internal/message"
)

type fakeSurface struct {
	resizes  []message.Size
	failNext int
	released bool
}

func (s *fakeSurface) Resize(width, height uint32) error {
	if s.failNext > 0 {
		s.failNext--
		return errors.New("context lost")
	}
	s.resizes = append(s.resizes, message.Size{Width: width, Height: height})
	return nil
}

func (s *fakeSurface) Release() error {
	s.released = true
	return nil
}

type fakeWindow struct {
	submit  func(string)
	size    message.Size
	sizes   []message.Size
	events  []message.Event
	log     []string
	failed  int
	ticks   int
	draws   int
	dirty   bool
	drawErr error
	closed  bool
}

func (w *fakeWindow) SetSize(size message.Size) {
	w.size = size
	w.sizes = append(w.sizes, size)
	w.dirty = true
}

func (w *fakeWindow) HandleEvent(ev message.Event) {
	w.events = append(w.events, ev)
	w.log = append(w.log, "event:"+ev.Key)
	if ev.Key == message.KeyReturn && w.submit != nil {
		w.submit("hunter2")
	}
	w.dirty = true
}

func (w *fakeWindow) UnlockFailed() {
	w.failed++
	w.log = append(w.log, "unlock-failed")
	w.dirty = true
}

func (w *fakeWindow) Tick(time.Time)    { w.ticks++ }
func (w *fakeWindow) NeedsRedraw() bool { return w.dirty }

func (w *fakeWindow) Draw() error {
	w.draws++
	w.dirty = false
	return w.drawErr
}

func (w *fakeWindow) Close() error {
	w.closed = true
	return nil
}

type harness struct {
	in      *mailbox.Queue[message.Inbound]
	out     *mailbox.Queue[message.Outbound]
	surface *fakeSurface
	window  *fakeWindow
	builds  int
	loop    *Loop
}

func newHarness(interval time.Duration) *harness {
	h := &harness{
		in:      mailbox.New[message.Inbound](),
		out:     mailbox.New[message.Outbound](),
		surface: &fakeSurface{},
		window:  &fakeWindow{},
	}
	h.loop = New(Config{
		Inbound:  h.in,
		Outbound: h.out,
		Build: func(ready message.SurfaceReady, submit func(string)) (Surface, Window, error) {
			h.builds++
			h.window.submit = submit
			return h.surface, h.window, nil
		},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		FrameInterval: interval,
	})
	return h
}

func (h *harness) send(t *testing.T, msgs ...message.Inbound) {
	t.Helper()
	for _, m := range msgs {
		if err := h.in.Send(m); err != nil {
			t.Fatalf("Send(%s): %v", m.Kind(), err)
		}
	}
}

// runToCompletion closes the inbound queue and runs the loop until it has
// drained everything.
func (h *harness) runToCompletion(t *testing.T) error {
	t.Helper()
	h.in.Close()
	return h.loop.Run(context.Background())
}

func (h *harness) outbound() []message.Outbound {
	var msgs []message.Outbound
	for {
		m, status := h.out.TryRecv()
		if status != mailbox.Received {
			return msgs
		}
		msgs = append(msgs, m)
	}
}

func ready(w, h uint32) message.SurfaceReady {
	return message.SurfaceReady{Display: 1, Surface: 2, Size: message.Size{Width: w, Height: h}}
}

func TestResizeAcknowledgedAfterApply(t *testing.T) {
	h := newHarness(0)
	h.send(t,
		ready(800, 600),
		message.SurfaceResize{Size: message.Size{Width: 1024, Height: 768}, Serial: 7},
	)
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.outbound()
	if len(out) != 1 {
		t.Fatalf("outbound = %v, want one ack", out)
	}
	if ack, ok := out[0].(message.AckResize); !ok || ack.Serial != 7 {
		t.Fatalf("outbound[0] = %#v, want AckResize{7}", out[0])
	}
	want := message.Size{Width: 1024, Height: 768}
	if h.window.size != want {
		t.Fatalf("window size = %v, want %v", h.window.size, want)
	}
	if len(h.surface.resizes) != 1 || h.surface.resizes[0] != want {
		t.Fatalf("surface resizes = %v", h.surface.resizes)
	}
}

func TestAcksFollowResizeOrder(t *testing.T) {
	h := newHarness(0)
	sizes := []message.Size{{Width: 640, Height: 480}, {Width: 1280, Height: 720}, {Width: 1920, Height: 1080}}
	h.send(t, ready(800, 600))
	for i, s := range sizes {
		h.send(t, message.SurfaceResize{Size: s, Serial: message.Serial(3 + i)})
	}
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.outbound()
	if len(out) != len(sizes) {
		t.Fatalf("got %d acks, want %d", len(out), len(sizes))
	}
	for i, m := range out {
		ack := m.(message.AckResize)
		if ack.Serial != message.Serial(3+i) {
			t.Fatalf("ack %d has serial %d, want %d", i, ack.Serial, 3+i)
		}
		if h.surface.resizes[i] != sizes[i] {
			t.Fatalf("ack %d: surface size %v, want %v", i, h.surface.resizes[i], sizes[i])
		}
	}
}

func TestFirstMessageMustBeSurfaceReady(t *testing.T) {
	tests := []struct {
		name  string
		first message.Inbound
	}{
		{"resize", message.SurfaceResize{Size: message.Size{Width: 1, Height: 1}, Serial: 1}},
		{"window event", message.WindowEvent{Event: message.Event{Type: message.EventKeyPress}}},
		{"unlock failed", message.UnlockFailed{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(0)
			h.send(t, tt.first, ready(800, 600))
			err := h.runToCompletion(t)
			if !errors.Is(err, ErrProtocolViolation) {
				t.Fatalf("Run = %v, want ErrProtocolViolation", err)
			}
			if h.builds != 0 {
				t.Fatalf("surface built despite protocol violation")
			}
			if h.loop.State() != Terminated {
				t.Fatalf("state = %s", h.loop.State())
			}
			if len(h.outbound()) != 0 {
				t.Fatalf("outbound messages after protocol violation")
			}
		})
	}
}

func TestInboundRefusedAfterFatalExit(t *testing.T) {
	h := newHarness(0)
	h.send(t, message.UnlockFailed{})
	if err := h.loop.Run(context.Background()); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("Run = %v, want ErrProtocolViolation", err)
	}
	if h.loop.State() != Terminated {
		t.Fatalf("state = %s", h.loop.State())
	}
	for i := 0; i < 3; i++ {
		err := h.in.Send(message.WindowEvent{Event: message.Event{Type: message.EventPointerMove}})
		if !errors.Is(err, mailbox.ErrClosed) {
			t.Fatalf("Send after termination = %v, want ErrClosed", err)
		}
	}
	if h.in.Len() != 0 {
		t.Fatalf("inbound queue holds %d messages after termination", h.in.Len())
	}
}

func TestZeroSizeSurfaceReadyIsFatal(t *testing.T) {
	h := newHarness(0)
	h.send(t, ready(0, 600))
	if err := h.runToCompletion(t); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("Run = %v, want ErrProtocolViolation", err)
	}
	if h.builds != 0 {
		t.Fatalf("built with zero size")
	}
}

func TestZeroSizeResizeIsRejected(t *testing.T) {
	h := newHarness(0)
	h.send(t,
		ready(800, 600),
		message.SurfaceResize{Size: message.Size{Width: 0, Height: 768}, Serial: 1},
		message.SurfaceResize{Size: message.Size{Width: 1024, Height: 0}, Serial: 2},
	)
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.surface.resizes) != 0 {
		t.Fatalf("zero size reached the surface: %v", h.surface.resizes)
	}
	if out := h.outbound(); len(out) != 0 {
		t.Fatalf("acked a rejected resize: %v", out)
	}
}

func TestUnlockFailedDoesNotStallLaterMessages(t *testing.T) {
	h := newHarness(0)
	h.send(t,
		ready(800, 600),
		message.WindowEvent{Event: message.Event{Type: message.EventKeyPress, Key: message.KeyReturn}},
		message.UnlockFailed{},
		message.WindowEvent{Event: message.Event{Type: message.EventKeyPress, Key: "a"}},
		message.SurfaceResize{Size: message.Size{Width: 640, Height: 480}, Serial: 9},
	)
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantLog := []string{"event:Return", "unlock-failed", "event:a"}
	if len(h.window.log) != len(wantLog) {
		t.Fatalf("window log = %v, want %v", h.window.log, wantLog)
	}
	for i := range wantLog {
		if h.window.log[i] != wantLog[i] {
			t.Fatalf("window log = %v, want %v", h.window.log, wantLog)
		}
	}

	out := h.outbound()
	if len(out) != 2 {
		t.Fatalf("outbound = %v", out)
	}
	if pw, ok := out[0].(message.UnlockWithPassword); !ok || pw.Password != "hunter2" {
		t.Fatalf("outbound[0] = %v, want UnlockWithPassword", out[0])
	}
	if ack, ok := out[1].(message.AckResize); !ok || ack.Serial != 9 {
		t.Fatalf("outbound[1] = %v, want AckResize{9}", out[1])
	}
}

func TestRepeatedSurfaceReadyIsIgnored(t *testing.T) {
	h := newHarness(0)
	h.send(t, ready(800, 600), ready(1024, 768))
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.builds != 1 {
		t.Fatalf("builds = %d, want 1", h.builds)
	}
	if h.window.size != (message.Size{Width: 800, Height: 600}) {
		t.Fatalf("window size = %v", h.window.size)
	}
}

func TestRedrawOnlyWhenDamaged(t *testing.T) {
	h := newHarness(0)
	h.send(t, ready(800, 600))
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.window.ticks != 1 || h.window.draws != 1 {
		t.Fatalf("ticks=%d draws=%d, want 1/1", h.window.ticks, h.window.draws)
	}
}

func TestDrawErrorIsNotFatal(t *testing.T) {
	h := newHarness(0)
	h.window.drawErr = errors.New("swap failed")
	h.send(t, ready(800, 600), message.SurfaceResize{Size: message.Size{Width: 10, Height: 10}, Serial: 1})
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if len(h.outbound()) != 1 {
		t.Fatalf("ack lost after draw error")
	}
}

func TestReleasesOnExit(t *testing.T) {
	h := newHarness(0)
	h.send(t, ready(800, 600))
	if err := h.runToCompletion(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !h.window.closed || !h.surface.released {
		t.Fatalf("closed=%v released=%v", h.window.closed, h.surface.released)
	}
	if h.loop.State() != Terminated {
		t.Fatalf("state = %s", h.loop.State())
	}
}

func TestBuildFailureIsFatal(t *testing.T) {
	in := mailbox.New[message.Inbound]()
	cause := errors.New("no EGL display")
	loop := New(Config{
		Inbound:  in,
		Outbound: mailbox.New[message.Outbound](),
		Build: func(message.SurfaceReady, func(string)) (Surface, Window, error) {
			return nil, nil, cause
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	in.Send(ready(800, 600))
	in.Close()

	err := loop.Run(context.Background())
	if !errors.Is(err, ErrBuild) || !errors.Is(err, cause) {
		t.Fatalf("Run = %v, want ErrBuild wrapping cause", err)
	}
}

func TestShutdownWhileAwaitingSurface(t *testing.T) {
	t.Run("queue closed", func(t *testing.T) {
		h := newHarness(0)
		if err := h.runToCompletion(t); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if h.builds != 0 || h.loop.State() != Terminated {
			t.Fatalf("builds=%d state=%s", h.builds, h.loop.State())
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		h := newHarness(0)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.loop.Run(ctx) }()

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Run did not return after cancel")
		}
		if h.builds != 0 {
			t.Fatalf("built without a surface")
		}
	})
}

func recvAck(t *testing.T, out *mailbox.Queue[message.Outbound]) message.AckResize {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m, err := out.Recv(ctx)
	if err != nil {
		t.Fatalf("waiting for ack: %v", err)
	}
	ack, ok := m.(message.AckResize)
	if !ok {
		t.Fatalf("outbound = %v, want AckResize", m)
	}
	return ack
}

func TestFailedResizeIsRetried(t *testing.T) {
	h := newHarness(time.Millisecond)
	h.surface.failNext = 2

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(context.Background()) }()

	h.send(t, ready(800, 600), message.SurfaceResize{Size: message.Size{Width: 1024, Height: 768}, Serial: 5})
	if ack := recvAck(t, h.out); ack.Serial != 5 {
		t.Fatalf("ack serial = %d, want 5", ack.Serial)
	}

	h.in.Close()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.surface.resizes) != 1 {
		t.Fatalf("resizes = %v", h.surface.resizes)
	}
}

func TestInboundMessageInterruptsFramePacing(t *testing.T) {
	h := newHarness(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	h.send(t, ready(800, 600))
	h.send(t, message.SurfaceResize{Size: message.Size{Width: 300, Height: 200}, Serial: 11})
	if ack := recvAck(t, h.out); ack.Serial != 11 {
		t.Fatalf("ack serial = %d, want 11", ack.Serial)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
