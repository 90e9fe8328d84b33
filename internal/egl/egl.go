//go:build linux || freebsd || openbsd

// Package egl implements glcontext.Driver on top of the system libEGL,
// loaded at runtime with purego so the binary builds without cgo.
package egl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/1broseidon/glasslock/internal/glcontext"
	"github.com/1broseidon/glasslock/internal/message"
)

const (
	eglSuccess              = 0x3000
	eglAlphaSize            = 0x3021
	eglBlueSize             = 0x3022
	eglGreenSize            = 0x3023
	eglRedSize              = 0x3024
	eglSamples              = 0x3031
	eglSurfaceType          = 0x3033
	eglNone                 = 0x3038
	eglRenderableType       = 0x3040
	eglContextClientVersion = 0x3098
	eglOpenGLESAPI          = 0x30A0
	eglWindowBit            = 0x0004
	eglOpenGLES3Bit         = 0x0040
	eglTrue                 = 1
)

// DefaultLibrary is the soname tried first when Options.Library is empty.
const DefaultLibrary = "libEGL.so.1"

// maxConfigs bounds the eglChooseConfig result.
const maxConfigs = 64

var errNoLibrary = errors.New("egl: libEGL not loaded")

// Error is an EGL call failure carrying eglGetError's code.
type Error struct {
	Op   string
	Code int32
}

func (e *Error) Error() string {
	return fmt.Sprintf("egl: %s failed: %s (0x%04x)", e.Op, codeName(e.Code), e.Code)
}

func codeName(code int32) string {
	switch code {
	case 0x3000:
		return "EGL_SUCCESS"
	case 0x3001:
		return "EGL_NOT_INITIALIZED"
	case 0x3002:
		return "EGL_BAD_ACCESS"
	case 0x3003:
		return "EGL_BAD_ALLOC"
	case 0x3004:
		return "EGL_BAD_ATTRIBUTE"
	case 0x3005:
		return "EGL_BAD_CONFIG"
	case 0x3006:
		return "EGL_BAD_CONTEXT"
	case 0x3007:
		return "EGL_BAD_CURRENT_SURFACE"
	case 0x3008:
		return "EGL_BAD_DISPLAY"
	case 0x3009:
		return "EGL_BAD_MATCH"
	case 0x300A:
		return "EGL_BAD_NATIVE_PIXMAP"
	case 0x300B:
		return "EGL_BAD_NATIVE_WINDOW"
	case 0x300C:
		return "EGL_BAD_PARAMETER"
	case 0x300D:
		return "EGL_BAD_SURFACE"
	case 0x300E:
		return "EGL_CONTEXT_LOST"
	default:
		return "unknown"
	}
}

// Options configures the driver.
type Options struct {
	// Library overrides the libEGL soname.
	Library string
	// SwapInterval is passed to eglSwapInterval after the first MakeCurrent.
	// 1 syncs presentation to vblank; 0 disables it.
	SwapInterval int
}

type api struct {
	GetDisplay          func(native uintptr) uintptr
	Initialize          func(dpy uintptr, major, minor *int32) uint32
	BindAPI             func(api uint32) uint32
	ChooseConfig        func(dpy uintptr, attribs *int32, configs *uintptr, size int32, num *int32) uint32
	GetConfigAttrib     func(dpy, cfg uintptr, attr int32, value *int32) uint32
	CreateContext       func(dpy, cfg, share uintptr, attribs *int32) uintptr
	CreateWindowSurface func(dpy, cfg, win uintptr, attribs *int32) uintptr
	MakeCurrent         func(dpy, draw, read, ctx uintptr) uint32
	GetCurrentContext   func() uintptr
	SwapBuffers         func(dpy, surf uintptr) uint32
	SwapInterval        func(dpy uintptr, interval int32) uint32
	DestroySurface      func(dpy, surf uintptr) uint32
	DestroyContext      func(dpy, ctx uintptr) uint32
	Terminate           func(dpy uintptr) uint32
	GetProcAddress      func(name string) uintptr
	GetError            func() int32
}

var (
	loadOnce sync.Once
	loaded   *api
	loadErr  error
)

func load(library string) (*api, error) {
	loadOnce.Do(func() {
		if library == "" {
			library = DefaultLibrary
		}
		lib, err := purego.Dlopen(library, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			loadErr = fmt.Errorf("egl: load %s: %w", library, err)
			return
		}

		a := &api{}
		bindings := []struct {
			fptr any
			name string
		}{
			{&a.GetDisplay, "eglGetDisplay"},
			{&a.Initialize, "eglInitialize"},
			{&a.BindAPI, "eglBindAPI"},
			{&a.ChooseConfig, "eglChooseConfig"},
			{&a.GetConfigAttrib, "eglGetConfigAttrib"},
			{&a.CreateContext, "eglCreateContext"},
			{&a.CreateWindowSurface, "eglCreateWindowSurface"},
			{&a.MakeCurrent, "eglMakeCurrent"},
			{&a.GetCurrentContext, "eglGetCurrentContext"},
			{&a.SwapBuffers, "eglSwapBuffers"},
			{&a.SwapInterval, "eglSwapInterval"},
			{&a.DestroySurface, "eglDestroySurface"},
			{&a.DestroyContext, "eglDestroyContext"},
			{&a.Terminate, "eglTerminate"},
			{&a.GetProcAddress, "eglGetProcAddress"},
			{&a.GetError, "eglGetError"},
		}
		for _, b := range bindings {
			sym, err := purego.Dlsym(lib, b.name)
			if err != nil {
				loadErr = fmt.Errorf("egl: resolve %s: %w", b.name, err)
				return
			}
			purego.RegisterFunc(b.fptr, sym)
		}
		loaded = a
	})
	return loaded, loadErr
}

// Driver is an EGL implementation of glcontext.Driver. It must be used from
// a single OS-thread-locked goroutine.
type Driver struct {
	opts    Options
	egl     *api
	display uintptr

	swapIntervalSet bool
}

var _ glcontext.Driver = (*Driver)(nil)

// New returns a driver; libEGL is loaded on Initialize.
func New(opts Options) *Driver {
	return &Driver{opts: opts}
}

func (d *Driver) fail(op string) error {
	code := int32(0)
	if d.egl != nil {
		code = d.egl.GetError()
	}
	return &Error{Op: op, Code: code}
}

func (d *Driver) Initialize(display message.DisplayHandle) error {
	a, err := load(d.opts.Library)
	if err != nil {
		return err
	}
	d.egl = a

	dpy := a.GetDisplay(uintptr(display))
	if dpy == 0 {
		return d.fail("eglGetDisplay")
	}
	var major, minor int32
	if a.Initialize(dpy, &major, &minor) != eglTrue {
		return d.fail("eglInitialize")
	}
	if a.BindAPI(eglOpenGLESAPI) != eglTrue {
		a.Terminate(dpy)
		return d.fail("eglBindAPI")
	}
	d.display = dpy
	return nil
}

func (d *Driver) Configs() ([]glcontext.Config, error) {
	if d.egl == nil || d.display == 0 {
		return nil, errNoLibrary
	}
	attribs := []int32{
		eglSurfaceType, eglWindowBit,
		eglRenderableType, eglOpenGLES3Bit,
		eglRedSize, 8,
		eglGreenSize, 8,
		eglBlueSize, 8,
		eglAlphaSize, 8,
		eglNone,
	}
	handles := make([]uintptr, maxConfigs)
	var n int32
	if d.egl.ChooseConfig(d.display, &attribs[0], &handles[0], int32(len(handles)), &n) != eglTrue {
		return nil, d.fail("eglChooseConfig")
	}

	configs := make([]glcontext.Config, 0, n)
	for _, h := range handles[:n] {
		var samples, alpha int32
		d.egl.GetConfigAttrib(d.display, h, eglSamples, &samples)
		d.egl.GetConfigAttrib(d.display, h, eglAlphaSize, &alpha)
		configs = append(configs, glcontext.Config{
			Handle:  h,
			Samples: int(samples),
			Alpha:   int(alpha),
		})
	}
	return configs, nil
}

func (d *Driver) CreateContext(cfg glcontext.Config) (glcontext.ContextID, error) {
	attribs := []int32{eglContextClientVersion, 3, eglNone}
	ctx := d.egl.CreateContext(d.display, cfg.Handle, 0, &attribs[0])
	if ctx == 0 {
		return 0, d.fail("eglCreateContext")
	}
	return glcontext.ContextID(ctx), nil
}

func (d *Driver) CreateWindowSurface(cfg glcontext.Config, surface message.SurfaceHandle, size message.Size) (glcontext.SurfaceID, error) {
	attribs := []int32{eglNone}
	surf := d.egl.CreateWindowSurface(d.display, cfg.Handle, uintptr(surface), &attribs[0])
	if surf == 0 {
		return 0, d.fail("eglCreateWindowSurface")
	}
	return glcontext.SurfaceID(surf), nil
}

func (d *Driver) MakeCurrent(ctx glcontext.ContextID, surf glcontext.SurfaceID) error {
	if d.egl.MakeCurrent(d.display, uintptr(surf), uintptr(surf), uintptr(ctx)) != eglTrue {
		return d.fail("eglMakeCurrent")
	}
	if !d.swapIntervalSet {
		d.swapIntervalSet = true
		d.egl.SwapInterval(d.display, int32(d.opts.SwapInterval))
	}
	return nil
}

func (d *Driver) CurrentContext() glcontext.ContextID {
	if d.egl == nil {
		return 0
	}
	return glcontext.ContextID(d.egl.GetCurrentContext())
}

func (d *Driver) SwapBuffers(surf glcontext.SurfaceID) error {
	if d.egl.SwapBuffers(d.display, uintptr(surf)) != eglTrue {
		return d.fail("eglSwapBuffers")
	}
	return nil
}

// ResizeSurface does nothing: an EGL window surface on X11 tracks the size
// of its window, which the session resizes.
func (d *Driver) ResizeSurface(surf glcontext.SurfaceID, size message.Size) error {
	return nil
}

func (d *Driver) ProcAddress(name string) uintptr {
	if d.egl == nil {
		return 0
	}
	return d.egl.GetProcAddress(name)
}

func (d *Driver) ReleaseCurrent() error {
	if d.egl == nil || d.display == 0 {
		return nil
	}
	if d.egl.MakeCurrent(d.display, 0, 0, 0) != eglTrue {
		return d.fail("eglMakeCurrent(release)")
	}
	return nil
}

func (d *Driver) DestroySurface(surf glcontext.SurfaceID) error {
	if d.egl == nil || d.display == 0 || surf == 0 {
		return nil
	}
	if d.egl.DestroySurface(d.display, uintptr(surf)) != eglTrue {
		return d.fail("eglDestroySurface")
	}
	return nil
}

func (d *Driver) DestroyContext(ctx glcontext.ContextID) error {
	if d.egl == nil || d.display == 0 || ctx == 0 {
		return nil
	}
	if d.egl.DestroyContext(d.display, uintptr(ctx)) != eglTrue {
		return d.fail("eglDestroyContext")
	}
	return nil
}

func (d *Driver) Terminate() error {
	if d.egl == nil || d.display == 0 {
		return nil
	}
	dpy := d.display
	d.display = 0
	if d.egl.Terminate(dpy) != eglTrue {
		return d.fail("eglTerminate")
	}
	return nil
}
