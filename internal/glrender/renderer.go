// Package glrender presents CPU-painted frames on a GL surface. A frame is
// uploaded into a texture attached to a read framebuffer and blitted,
// flipped, onto the window's default framebuffer.
package glrender

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
)

// ErrIncompleteFramebuffer is returned when the upload framebuffer cannot
// be completed by the driver.
var ErrIncompleteFramebuffer = errors.New("glrender: incomplete framebuffer")

// Surface is the render target contract.
type Surface interface {
	EnsureCurrent() error
	SwapBuffers() error
	Resize(width, height uint32) error
	ProcAddress(name string) uintptr
}

// Renderer owns the GL objects used to present frames on one surface. It
// must only be used from the goroutine that owns the surface's context.
type Renderer struct {
	surface Surface
	gl      GL
	logger  *slog.Logger

	tex, fbo uint32
	scratch  []byte
}

// New binds GL entry points through the surface.
func New(s Surface, logger *slog.Logger) (*Renderer, error) {
	if err := s.EnsureCurrent(); err != nil {
		return nil, fmt.Errorf("glrender: make current: %w", err)
	}
	gl, err := BindGL(s.ProcAddress)
	if err != nil {
		return nil, err
	}
	return NewWithGL(s, gl, logger), nil
}

// NewWithGL uses an already bound GL.
func NewWithGL(s Surface, gl GL, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{surface: s, gl: gl, logger: logger}
}

// Resize resizes the underlying surface.
func (r *Renderer) Resize(width, height uint32) error {
	return r.surface.Resize(width, height)
}

// Present uploads img and swaps it onto the screen.
func (r *Renderer) Present(img *image.RGBA) error {
	if err := r.surface.EnsureCurrent(); err != nil {
		return err
	}

	b := img.Bounds()
	w, h := int32(b.Dx()), int32(b.Dy())
	if w == 0 || h == 0 {
		return nil
	}

	if r.tex == 0 {
		r.tex = r.gl.GenTexture()
		r.gl.BindTexture(glTexture2D, r.tex)
		r.gl.TexParameteri(glTexture2D, glTextureMinFilter, glNearest)
		r.gl.TexParameteri(glTexture2D, glTextureMagFilter, glNearest)
		r.fbo = r.gl.GenFramebuffer()
	}

	r.gl.BindTexture(glTexture2D, r.tex)
	r.gl.PixelStorei(glUnpackAlignment, 4)
	r.gl.TexImage2D(glTexture2D, 0, glRGBA8, w, h, glRGBA, glUnsignedByte, r.pixels(img))

	r.gl.BindFramebuffer(glReadFramebuffer, r.fbo)
	r.gl.FramebufferTexture2D(glReadFramebuffer, glColorAttachment0, glTexture2D, r.tex, 0)
	if status := r.gl.CheckFramebufferStatus(glReadFramebuffer); status != glFramebufferDone {
		r.gl.BindFramebuffer(glReadFramebuffer, 0)
		return fmt.Errorf("%w: status 0x%x", ErrIncompleteFramebuffer, status)
	}

	r.gl.BindFramebuffer(glDrawFramebuffer, 0)
	r.gl.Viewport(0, 0, w, h)
	r.gl.ClearColor(0, 0, 0, 1)
	r.gl.Clear(glColorBufferBit)
	// Image rows run top-down, GL rows bottom-up.
	r.gl.BlitFramebuffer(0, 0, w, h, 0, h, w, 0, glColorBufferBit, glNearest)
	r.gl.BindFramebuffer(glReadFramebuffer, 0)

	return r.surface.SwapBuffers()
}

// pixels returns tightly packed rows of img.
func (r *Renderer) pixels(img *image.RGBA) []byte {
	b := img.Bounds()
	row := b.Dx() * 4
	if img.Stride == row && b.Min == (image.Point{}) {
		return img.Pix[:row*b.Dy()]
	}
	need := row * b.Dy()
	if cap(r.scratch) < need {
		r.scratch = make([]byte, need)
	}
	buf := r.scratch[:need]
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf[y*row:], img.Pix[off:off+row])
	}
	return buf
}

// Release deletes the GL objects. The surface's context must be current.
func (r *Renderer) Release() {
	if r.fbo != 0 {
		r.gl.DeleteFramebuffer(r.fbo)
		r.fbo = 0
	}
	if r.tex != 0 {
		r.gl.DeleteTexture(r.tex)
		r.tex = 0
	}
}
