// Package gltest provides a recording glcontext.Driver for tests.
package gltest

import (
	"errors"

	"github.com/1broseidon/glasslock/internal/glcontext"
	"github.com/1broseidon/glasslock/internal/message"
)

// ErrInjected is the default error returned by failing steps.
var ErrInjected = errors.New("gltest: injected failure")

// Driver records every call and simulates a single thread's current
// context. Set the Fail* fields to make individual steps fail.
type Driver struct {
	ConfigList []glcontext.Config

	FailInitialize    error
	FailConfigs       error
	FailCreateContext error
	FailCreateSurface error
	FailMakeCurrent   error
	FailSwap          error
	FailResize        error

	Procs map[string]uintptr

	Display     message.DisplayHandle
	Surface     message.SurfaceHandle
	ChosenCfg   glcontext.Config
	SurfaceSize message.Size
	Current     glcontext.ContextID

	MakeCurrentCalls int
	SwapCalls        int
	ResizeCalls      int
	Resizes          []message.Size
	Calls            []string

	Terminated       bool
	SurfaceDestroyed bool
	ContextDestroyed bool
}

var _ glcontext.Driver = (*Driver)(nil)

const (
	contextID glcontext.ContextID = 0x10
	surfaceID glcontext.SurfaceID = 0x20
)

// New returns a driver offering configs with 0, 4 and 2 samples.
func New() *Driver {
	return &Driver{
		ConfigList: []glcontext.Config{
			{Handle: 1, Samples: 0, Alpha: 8},
			{Handle: 2, Samples: 4, Alpha: 8},
			{Handle: 3, Samples: 2, Alpha: 8},
		},
		Procs: map[string]uintptr{},
	}
}

// LoseContext simulates another context being made current on the thread.
func (d *Driver) LoseContext() {
	d.Current = 0
}

func (d *Driver) Initialize(display message.DisplayHandle) error {
	d.Calls = append(d.Calls, "Initialize")
	if d.FailInitialize != nil {
		return d.FailInitialize
	}
	d.Display = display
	return nil
}

func (d *Driver) Configs() ([]glcontext.Config, error) {
	d.Calls = append(d.Calls, "Configs")
	if d.FailConfigs != nil {
		return nil, d.FailConfigs
	}
	return d.ConfigList, nil
}

func (d *Driver) CreateContext(cfg glcontext.Config) (glcontext.ContextID, error) {
	d.Calls = append(d.Calls, "CreateContext")
	if d.FailCreateContext != nil {
		return 0, d.FailCreateContext
	}
	d.ChosenCfg = cfg
	return contextID, nil
}

func (d *Driver) CreateWindowSurface(cfg glcontext.Config, surface message.SurfaceHandle, size message.Size) (glcontext.SurfaceID, error) {
	d.Calls = append(d.Calls, "CreateWindowSurface")
	if d.FailCreateSurface != nil {
		return 0, d.FailCreateSurface
	}
	d.Surface = surface
	d.SurfaceSize = size
	return surfaceID, nil
}

func (d *Driver) MakeCurrent(ctx glcontext.ContextID, surf glcontext.SurfaceID) error {
	d.Calls = append(d.Calls, "MakeCurrent")
	d.MakeCurrentCalls++
	if d.FailMakeCurrent != nil {
		return d.FailMakeCurrent
	}
	d.Current = ctx
	return nil
}

func (d *Driver) CurrentContext() glcontext.ContextID {
	return d.Current
}

func (d *Driver) SwapBuffers(surf glcontext.SurfaceID) error {
	d.Calls = append(d.Calls, "SwapBuffers")
	d.SwapCalls++
	return d.FailSwap
}

func (d *Driver) ResizeSurface(surf glcontext.SurfaceID, size message.Size) error {
	d.Calls = append(d.Calls, "ResizeSurface")
	d.ResizeCalls++
	if d.FailResize != nil {
		return d.FailResize
	}
	d.SurfaceSize = size
	d.Resizes = append(d.Resizes, size)
	return nil
}

func (d *Driver) ProcAddress(name string) uintptr {
	return d.Procs[name]
}

func (d *Driver) ReleaseCurrent() error {
	d.Calls = append(d.Calls, "ReleaseCurrent")
	d.Current = 0
	return nil
}

func (d *Driver) DestroySurface(surf glcontext.SurfaceID) error {
	d.Calls = append(d.Calls, "DestroySurface")
	d.SurfaceDestroyed = true
	return nil
}

func (d *Driver) DestroyContext(ctx glcontext.ContextID) error {
	d.Calls = append(d.Calls, "DestroyContext")
	d.ContextDestroyed = true
	return nil
}

func (d *Driver) Terminate() error {
	d.Calls = append(d.Calls, "Terminate")
	d.Terminated = true
	return nil
}
