// Package surface adapts a glcontext.Context to the rendering backend's
// surface contract.
package surface

import (
	"errors"
	"fmt"

	"github.com/1broseidon/glasslock/internal/glcontext"
	"github.com/1broseidon/glasslock/internal/message"
)

// ErrZeroSize is returned by Resize when width or height is zero.
var ErrZeroSize = errors.New("surface: zero width or height")

// OpenGL is the render target handed to the rendering backend. It owns the
// wrapped context.
type OpenGL struct {
	ctx *glcontext.Context
}

// New takes ownership of ctx.
func New(ctx *glcontext.Context) *OpenGL {
	return &OpenGL{ctx: ctx}
}

func (s *OpenGL) EnsureCurrent() error {
	return s.ctx.EnsureCurrent()
}

func (s *OpenGL) SwapBuffers() error {
	return s.ctx.SwapBuffers()
}

// Resize resizes the drawable. Zero dimensions never reach the context.
func (s *OpenGL) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrZeroSize, width, height)
	}
	return s.ctx.Resize(message.Size{Width: width, Height: height})
}

// ProcAddress resolves a GL entry point, or returns 0.
func (s *OpenGL) ProcAddress(name string) uintptr {
	return s.ctx.LookupFunction(name)
}

// Size reports the drawable size last applied.
func (s *OpenGL) Size() message.Size {
	return s.ctx.Size()
}

// Release destroys the owned context.
func (s *OpenGL) Release() error {
	return s.ctx.Release()
}
