package glcontext

import "github.com/1broseidon/glasslock/internal/message"

// ContextID is a driver-specific rendering context handle.
type ContextID uintptr

// SurfaceID is a driver-specific drawable surface handle.
type SurfaceID uintptr

// Config describes one framebuffer configuration offered by the driver.
type Config struct {
	Handle  uintptr
	Samples int
	Alpha   int
}

// Driver is the platform graphics API the context manager is built on. The
// EGL binding implements it; tests substitute a recording fake.
//
// All methods must be called from the goroutine that owns the Context.
type Driver interface {
	// Initialize opens the driver's view of the native display.
	Initialize(display message.DisplayHandle) error
	// Configs lists window-capable configurations with an 8-bit alpha channel.
	Configs() ([]Config, error)
	// CreateContext creates a context that is not yet current.
	CreateContext(cfg Config) (ContextID, error)
	// CreateWindowSurface binds a drawable to the native surface.
	CreateWindowSurface(cfg Config, surface message.SurfaceHandle, size message.Size) (SurfaceID, error)
	// MakeCurrent binds ctx and surf to the calling thread.
	MakeCurrent(ctx ContextID, surf SurfaceID) error
	// CurrentContext returns the context bound to the calling thread, or 0.
	CurrentContext() ContextID
	SwapBuffers(surf SurfaceID) error
	ResizeSurface(surf SurfaceID, size message.Size) error
	// ProcAddress resolves a graphics API entry point, or returns 0.
	ProcAddress(name string) uintptr
	ReleaseCurrent() error
	DestroySurface(surf SurfaceID) error
	DestroyContext(ctx ContextID) error
	Terminate() error
}
