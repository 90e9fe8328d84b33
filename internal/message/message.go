package message

import "fmt"

// DisplayHandle identifies the native display connection (an Xlib Display*
// on X11). The value is borrowed from the windowing layer and is never
// dereferenced outside the EGL driver.
type DisplayHandle uintptr

// SurfaceHandle identifies the native drawable (an X11 window XID).
type SurfaceHandle uintptr

// Serial correlates a resize request with its acknowledgement.
type Serial uint32

// Size is a width/height pair in physical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Valid reports whether both dimensions are non-zero.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Kind names a message variant for logging.
type Kind string

const (
	KindSurfaceReady       Kind = "SURFACE_READY"
	KindSurfaceResize      Kind = "SURFACE_RESIZE"
	KindWindowEvent        Kind = "WINDOW_EVENT"
	KindUnlockFailed       Kind = "UNLOCK_FAILED"
	KindAckResize          Kind = "ACK_RESIZE"
	KindUnlockWithPassword Kind = "UNLOCK_WITH_PASSWORD"
)

// Inbound is a message sent from the control goroutine to the render loop.
type Inbound interface {
	Kind() Kind
	inbound()
}

// Outbound is a message sent from the render loop to the control goroutine.
type Outbound interface {
	Kind() Kind
	outbound()
}

// SurfaceReady must be the first message the render loop receives.
type SurfaceReady struct {
	Display DisplayHandle
	Surface SurfaceHandle
	Size    Size
}

// SurfaceResize asks the render loop to resize the drawable and acknowledge
// with the same serial once the resize is applied.
type SurfaceResize struct {
	Size   Size
	Serial Serial
}

// WindowEvent carries an input event for the lock screen.
type WindowEvent struct {
	Event Event
}

// UnlockFailed tells the lock screen the last credential was rejected.
type UnlockFailed struct{}

// AckResize reports that the resize with Serial has been physically applied.
type AckResize struct {
	Serial Serial
}

// UnlockWithPassword carries a credential submitted on the lock screen.
type UnlockWithPassword struct {
	Password string
}

func (SurfaceReady) Kind() Kind       { return KindSurfaceReady }
func (SurfaceResize) Kind() Kind      { return KindSurfaceResize }
func (WindowEvent) Kind() Kind        { return KindWindowEvent }
func (UnlockFailed) Kind() Kind       { return KindUnlockFailed }
func (AckResize) Kind() Kind          { return KindAckResize }
func (UnlockWithPassword) Kind() Kind { return KindUnlockWithPassword }

func (SurfaceReady) inbound()        {}
func (SurfaceResize) inbound()       {}
func (WindowEvent) inbound()         {}
func (UnlockFailed) inbound()        {}
func (AckResize) outbound()          {}
func (UnlockWithPassword) outbound() {}

// String redacts the credential so the message can be logged safely.
func (m UnlockWithPassword) String() string {
	return fmt.Sprintf("UnlockWithPassword{len=%d}", len(m.Password))
}

// GoString keeps %#v from leaking the credential either.
func (m UnlockWithPassword) GoString() string {
	return m.String()
}
