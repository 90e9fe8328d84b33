package lockui

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/1broseidon/glasslock/internal/message"
)

type recordingPresenter struct {
	frames []*image.RGBA
	err    error
}

func (p *recordingPresenter) Present(img *image.RGBA) error {
	p.frames = append(p.frames, img)
	return p.err
}

func newWindow(t *testing.T) (*Window, *recordingPresenter, *[]string) {
	t.Helper()
	p := &recordingPresenter{}
	var submitted []string
	w, err := New(p, func(pw string) { submitted = append(submitted, pw) }, Theme{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.SetSize(message.Size{Width: 320, Height: 240})
	w.Tick(time.Unix(1000, 0))
	return w, p, &submitted
}

func typeText(w *Window, s string) {
	for _, r := range s {
		w.HandleEvent(message.Event{Type: message.EventKeyPress, Text: string(r)})
	}
}

func key(name string) message.Event {
	return message.Event{Type: message.EventKeyPress, Key: name}
}

func TestTypingAndSubmit(t *testing.T) {
	w, _, submitted := newWindow(t)

	typeText(w, "hunter2")
	if w.PasswordLen() != 7 || w.State() != StateTyping {
		t.Fatalf("len=%d state=%s", w.PasswordLen(), w.State())
	}

	w.HandleEvent(key(message.KeyBackSpace))
	w.HandleEvent(key(message.KeyReturn))

	if len(*submitted) != 1 || (*submitted)[0] != "hunter" {
		t.Fatalf("submitted = %q", *submitted)
	}
	if w.State() != StateVerifying || w.PasswordLen() != 0 {
		t.Fatalf("after submit: state=%s len=%d", w.State(), w.PasswordLen())
	}
}

func TestReturnWithEmptyPasswordDoesNothing(t *testing.T) {
	w, _, submitted := newWindow(t)
	w.HandleEvent(key(message.KeyReturn))
	if len(*submitted) != 0 || w.State() != StateIdle {
		t.Fatalf("submitted=%q state=%s", *submitted, w.State())
	}
}

func TestInputIgnoredWhileVerifying(t *testing.T) {
	w, _, submitted := newWindow(t)
	typeText(w, "pw")
	w.HandleEvent(key(message.KeyReturn))

	typeText(w, "abc")
	w.HandleEvent(key(message.KeyReturn))
	if w.PasswordLen() != 0 || len(*submitted) != 1 {
		t.Fatalf("input accepted while verifying: len=%d submitted=%q", w.PasswordLen(), *submitted)
	}
}

func TestEscapeClears(t *testing.T) {
	w, _, _ := newWindow(t)
	typeText(w, "secret")
	w.HandleEvent(key(message.KeyEscape))
	if w.PasswordLen() != 0 || w.State() != StateIdle {
		t.Fatalf("len=%d state=%s", w.PasswordLen(), w.State())
	}
}

func TestControlCharactersAreDropped(t *testing.T) {
	w, _, _ := newWindow(t)
	w.HandleEvent(message.Event{Type: message.EventKeyPress, Text: "a\tb\x00"})
	if w.PasswordLen() != 2 {
		t.Fatalf("len = %d, want 2", w.PasswordLen())
	}
}

func TestUnlockFailedShakesThenReturnsToIdle(t *testing.T) {
	w, p, _ := newWindow(t)
	start := time.Unix(1000, 0)

	typeText(w, "bad")
	w.HandleEvent(key(message.KeyReturn))
	w.UnlockFailed()
	if w.State() != StateFailed || !w.NeedsRedraw() {
		t.Fatalf("state=%s dirty=%v", w.State(), w.NeedsRedraw())
	}

	w.Tick(start.Add(100 * time.Millisecond))
	if w.shakeOffset() == 0 {
		t.Fatalf("no shake during animation")
	}
	if err := w.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	w.Tick(start.Add(200 * time.Millisecond))
	if !w.NeedsRedraw() {
		t.Fatalf("shake animation did not request a redraw")
	}

	typeText(w, "x")
	if w.PasswordLen() != 1 {
		t.Fatalf("input not accepted after failure")
	}
	w.HandleEvent(key(message.KeyEscape))

	w.Tick(start.Add(failureHoldTime + time.Second))
	if w.State() != StateIdle {
		t.Fatalf("state = %s, want idle after hold", w.State())
	}
	if w.shakeOffset() != 0 {
		t.Fatalf("shake after animation end")
	}
	if len(p.frames) != 1 {
		t.Fatalf("frames = %d", len(p.frames))
	}
}

func TestDrawClearsDamageAndMatchesSize(t *testing.T) {
	w, p, _ := newWindow(t)
	if !w.NeedsRedraw() {
		t.Fatalf("new window not dirty")
	}
	if err := w.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if w.NeedsRedraw() {
		t.Fatalf("still dirty after Draw")
	}
	if b := p.frames[0].Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("frame bounds = %v", b)
	}

	w.SetSize(message.Size{Width: 1024, Height: 768})
	if !w.NeedsRedraw() {
		t.Fatalf("resize did not mark damage")
	}
	if err := w.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if b := p.frames[1].Bounds(); b.Dx() != 1024 || b.Dy() != 768 {
		t.Fatalf("frame bounds after resize = %v", b)
	}
}

func TestIdleWindowStaysClean(t *testing.T) {
	w, _, _ := newWindow(t)
	w.HandleEvent(message.Event{Type: message.EventFocusOut})
	if err := w.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	w.Tick(time.Unix(1000, 0).Add(10 * time.Second))
	if w.NeedsRedraw() {
		t.Fatalf("unfocused idle window requested a redraw")
	}
}

func TestDrawPresentError(t *testing.T) {
	w, p, _ := newWindow(t)
	p.err = errors.New("swap failed")
	if err := w.Draw(); !errors.Is(err, p.err) {
		t.Fatalf("Draw = %v", err)
	}
	if !w.NeedsRedraw() {
		t.Fatalf("failed present dropped the damage")
	}
}

func TestFailedPresentIsRetriedWhileIdle(t *testing.T) {
	w, p, _ := newWindow(t)
	w.HandleEvent(message.Event{Type: message.EventFocusOut})
	p.err = errors.New("make current failed")
	if err := w.Draw(); err == nil {
		t.Fatalf("Draw succeeded, want present error")
	}

	p.err = nil
	now := time.Unix(1000, 0)
	for i := 1; i <= 5; i++ {
		w.Tick(now.Add(time.Duration(i) * time.Second))
		if !w.NeedsRedraw() {
			break
		}
		if err := w.Draw(); err != nil {
			t.Fatalf("Draw retry: %v", err)
		}
	}
	if len(p.frames) != 2 {
		t.Fatalf("presents = %d, want 2 (failed frame then retry)", len(p.frames))
	}
	if w.NeedsRedraw() {
		t.Fatalf("window still dirty after successful retry")
	}
}
