// Package lockui is the lock screen: a password prompt with masked input,
// a verifying state and shake feedback on failure, painted with gg and
// handed to a Presenter.
package lockui

import (
	"fmt"
	"image"
	"math"
	"time"
	"unicode"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/1broseidon/glasslock/internal/message"
)

const (
	blinkInterval   = 530 * time.Millisecond
	shakeDuration   = 450 * time.Millisecond
	shakeAmplitude  = 14.0
	failureHoldTime = 2 * time.Second
	maxPasswordLen  = 512
	maxDots         = 24
)

// State is the prompt state.
type State int

const (
	StateIdle State = iota
	StateTyping
	StateVerifying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTyping:
		return "typing"
	case StateVerifying:
		return "verifying"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Presenter puts a finished frame on screen.
type Presenter interface {
	Present(img *image.RGBA) error
}

// Theme holds colors (as hex strings), the font size and prompt strings.
type Theme struct {
	Background string
	Panel      string
	Text       string
	Dot        string
	Error      string
	FontSize   float64

	Prompt    string
	Verifying string
	Failure   string
}

// DefaultTheme is used for zero Theme fields.
var DefaultTheme = Theme{
	Background: "#101418",
	Panel:      "#1c232b",
	Text:       "#d8dee9",
	Dot:        "#88c0d0",
	Error:      "#bf616a",
	FontSize:   22,
	Prompt:     "Enter password",
	Verifying:  "Verifying…",
	Failure:    "Wrong password",
}

func (t Theme) withDefaults() Theme {
	d := DefaultTheme
	if t.Background == "" {
		t.Background = d.Background
	}
	if t.Panel == "" {
		t.Panel = d.Panel
	}
	if t.Text == "" {
		t.Text = d.Text
	}
	if t.Dot == "" {
		t.Dot = d.Dot
	}
	if t.Error == "" {
		t.Error = d.Error
	}
	if t.FontSize <= 0 {
		t.FontSize = d.FontSize
	}
	if t.Prompt == "" {
		t.Prompt = d.Prompt
	}
	if t.Verifying == "" {
		t.Verifying = d.Verifying
	}
	if t.Failure == "" {
		t.Failure = d.Failure
	}
	return t
}

// Window is the lock screen model. It is not safe for concurrent use.
type Window struct {
	presenter Presenter
	submit    func(password string)
	theme     Theme
	face      text.Face
	dc        *gg.Context

	size     message.Size
	password []rune
	state    State
	focused  bool
	dirty    bool

	now        time.Time
	caretOn    bool
	lastBlink  time.Time
	shakeStart time.Time
	failedAt   time.Time
}

// New creates a window. submit is called with the entered password when
// the user presses Return.
func New(p Presenter, submit func(password string), theme Theme) (*Window, error) {
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("lockui: load font: %w", err)
	}
	theme = theme.withDefaults()
	return &Window{
		presenter: p,
		submit:    submit,
		theme:     theme,
		face:      source.Face(theme.FontSize),
		focused:   true,
		caretOn:   true,
		dirty:     true,
	}, nil
}

// SetSize sets the logical size in pixels.
func (w *Window) SetSize(size message.Size) {
	if size == w.size {
		return
	}
	w.size = size
	w.dirty = true
}

func (w *Window) Size() message.Size { return w.size }

func (w *Window) State() State { return w.state }

// PasswordLen returns the number of runes entered.
func (w *Window) PasswordLen() int { return len(w.password) }

// HandleEvent applies a UI event.
func (w *Window) HandleEvent(ev message.Event) {
	switch ev.Type {
	case message.EventFocusIn, message.EventFocusOut:
		focused := ev.Type == message.EventFocusIn
		if focused != w.focused {
			w.focused = focused
			w.dirty = true
		}
	case message.EventKeyPress:
		w.handleKey(ev)
	}
}

func (w *Window) handleKey(ev message.Event) {
	if w.state == StateVerifying {
		return
	}
	switch ev.Key {
	case message.KeyReturn:
		if len(w.password) == 0 {
			return
		}
		password := string(w.password)
		w.clearPassword()
		w.state = StateVerifying
		w.dirty = true
		if w.submit != nil {
			w.submit(password)
		}
		return
	case message.KeyBackSpace:
		if len(w.password) > 0 {
			w.password[len(w.password)-1] = 0
			w.password = w.password[:len(w.password)-1]
		}
	case message.KeyEscape:
		w.clearPassword()
	default:
		for _, r := range ev.Text {
			if unicode.IsControl(r) || len(w.password) >= maxPasswordLen {
				continue
			}
			w.password = append(w.password, r)
		}
	}

	if len(w.password) > 0 {
		w.state = StateTyping
	} else {
		w.state = StateIdle
	}
	w.resetCaret()
	w.dirty = true
}

func (w *Window) clearPassword() {
	for i := range w.password {
		w.password[i] = 0
	}
	w.password = w.password[:0]
}

func (w *Window) resetCaret() {
	w.caretOn = true
	w.lastBlink = w.now
}

// UnlockFailed shows failure feedback and re-enables input.
func (w *Window) UnlockFailed() {
	w.clearPassword()
	w.state = StateFailed
	w.shakeStart = w.now
	w.failedAt = w.now
	w.dirty = true
}

// Tick advances animations to now.
func (w *Window) Tick(now time.Time) {
	w.now = now

	if w.state == StateFailed {
		if now.Sub(w.shakeStart) < shakeDuration {
			w.dirty = true
		}
		if now.Sub(w.failedAt) >= failureHoldTime {
			w.state = StateIdle
			w.dirty = true
		}
	}

	if w.state != StateVerifying && w.focused {
		if w.lastBlink.IsZero() {
			w.lastBlink = now
		}
		if now.Sub(w.lastBlink) >= blinkInterval {
			w.caretOn = !w.caretOn
			w.lastBlink = now
			w.dirty = true
		}
	}
}

// NeedsRedraw reports pending damage.
func (w *Window) NeedsRedraw() bool { return w.dirty }

// Draw paints the lock screen and presents it. A failed present leaves the
// window dirty so the next frame retries it.
func (w *Window) Draw() error {
	if !w.size.Valid() {
		return nil
	}
	width, height := int(w.size.Width), int(w.size.Height)
	if w.dc == nil {
		w.dc = gg.NewContext(width, height)
		w.dc.SetFont(w.face)
	} else if err := w.dc.Resize(width, height); err != nil {
		return fmt.Errorf("lockui: resize canvas: %w", err)
	}
	w.dirty = false

	w.paint()

	img, ok := w.dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("lockui: unexpected canvas image %T", w.dc.Image())
	}
	if err := w.presenter.Present(img); err != nil {
		w.dirty = true
		return err
	}
	return nil
}

func (w *Window) paint() {
	dc := w.dc
	t := w.theme
	width, height := float64(w.size.Width), float64(w.size.Height)

	dc.ClearWithColor(gg.Hex(t.Background))

	panelW := math.Min(420, width-32)
	panelH := math.Min(160, height-32)
	cx := width/2 + w.shakeOffset()
	cy := height / 2

	dc.SetColor(gg.Hex(t.Panel))
	dc.DrawRoundedRectangle(cx-panelW/2, cy-panelH/2, panelW, panelH, 14)
	dc.Fill()

	label, labelColor := t.Prompt, t.Text
	switch w.state {
	case StateVerifying:
		label = t.Verifying
	case StateFailed:
		label, labelColor = t.Failure, t.Error
	}
	dc.SetColor(gg.Hex(labelColor))
	dc.DrawStringAnchored(label, cx, cy-panelH/4, 0.5, 0.5)

	w.paintDots(cx, cy+panelH/6)
}

func (w *Window) paintDots(cx, cy float64) {
	dc := w.dc
	n := len(w.password)
	shown := min(n, maxDots)

	const radius, gap = 6.0, 20.0
	start := cx - float64(shown-1)*gap/2
	dc.SetColor(gg.Hex(w.theme.Dot))
	for i := 0; i < shown; i++ {
		dc.DrawCircle(start+float64(i)*gap, cy, radius)
		dc.Fill()
	}

	if w.state == StateVerifying || !w.focused || !w.caretOn {
		return
	}
	caretX := cx
	if shown > 0 {
		caretX = start + float64(shown-1)*gap + gap/1.5
	}
	dc.SetColor(gg.Hex(w.theme.Text))
	dc.DrawRoundedRectangle(caretX-1, cy-11, 2, 22, 1)
	dc.Fill()
}

func (w *Window) shakeOffset() float64 {
	if w.state != StateFailed {
		return 0
	}
	elapsed := w.now.Sub(w.shakeStart)
	if elapsed < 0 || elapsed >= shakeDuration {
		return 0
	}
	p := float64(elapsed) / float64(shakeDuration)
	return shakeAmplitude * (1 - p) * math.Sin(p*5*2*math.Pi)
}

// Close releases the canvas.
func (w *Window) Close() error {
	w.clearPassword()
	if w.dc == nil {
		return nil
	}
	return w.dc.Close()
}
