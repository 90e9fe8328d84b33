package glrender

import (
	"fmt"

	"github.com/ebitengine/purego"
)

const (
	glTexture2D        = 0x0DE1
	glRGBA             = 0x1908
	glRGBA8            = 0x8058
	glUnsignedByte     = 0x1401
	glTextureMinFilter = 0x2801
	glTextureMagFilter = 0x2800
	glNearest          = 0x2600
	glUnpackAlignment  = 0x0CF5
	glReadFramebuffer  = 0x8CA8
	glDrawFramebuffer  = 0x8CA9
	glColorAttachment0 = 0x8CE0
	glColorBufferBit   = 0x4000
	glFramebufferDone  = 0x8CD5
)

// GL is the subset of OpenGL ES 3 used to present a frame.
type GL interface {
	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	PixelStorei(pname uint32, param int32)
	GenTexture() uint32
	DeleteTexture(tex uint32)
	BindTexture(target, tex uint32)
	TexParameteri(target, pname uint32, param int32)
	TexImage2D(target uint32, level, internalFormat, width, height int32, format, typ uint32, pixels []byte)
	GenFramebuffer() uint32
	DeleteFramebuffer(fb uint32)
	BindFramebuffer(target, fb uint32)
	FramebufferTexture2D(target, attachment, texTarget, tex uint32, level int32)
	CheckFramebufferStatus(target uint32) uint32
	BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter uint32)
}

// procGL calls entry points resolved through a surface's function lookup.
type procGL struct {
	viewport               func(x, y, width, height int32)
	clearColor             func(r, g, b, a float32)
	clear                  func(mask uint32)
	pixelStorei            func(pname uint32, param int32)
	genTextures            func(n int32, ids *uint32)
	deleteTextures         func(n int32, ids *uint32)
	bindTexture            func(target, tex uint32)
	texParameteri          func(target, pname uint32, param int32)
	texImage2D             func(target uint32, level, internalFormat, width, height, border int32, format, typ uint32, pixels *byte)
	genFramebuffers        func(n int32, ids *uint32)
	deleteFramebuffers     func(n int32, ids *uint32)
	bindFramebuffer        func(target, fb uint32)
	framebufferTexture2D   func(target, attachment, texTarget, tex uint32, level int32)
	checkFramebufferStatus func(target uint32) uint32
	blitFramebuffer        func(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter uint32)
}

// BindGL resolves every entry point through lookup. It fails if any symbol
// is missing.
func BindGL(lookup func(name string) uintptr) (GL, error) {
	g := &procGL{}
	bindings := []struct {
		fptr any
		name string
	}{
		{&g.viewport, "glViewport"},
		{&g.clearColor, "glClearColor"},
		{&g.clear, "glClear"},
		{&g.pixelStorei, "glPixelStorei"},
		{&g.genTextures, "glGenTextures"},
		{&g.deleteTextures, "glDeleteTextures"},
		{&g.bindTexture, "glBindTexture"},
		{&g.texParameteri, "glTexParameteri"},
		{&g.texImage2D, "glTexImage2D"},
		{&g.genFramebuffers, "glGenFramebuffers"},
		{&g.deleteFramebuffers, "glDeleteFramebuffers"},
		{&g.bindFramebuffer, "glBindFramebuffer"},
		{&g.framebufferTexture2D, "glFramebufferTexture2D"},
		{&g.checkFramebufferStatus, "glCheckFramebufferStatus"},
		{&g.blitFramebuffer, "glBlitFramebuffer"},
	}
	for _, b := range bindings {
		addr := lookup(b.name)
		if addr == 0 {
			return nil, fmt.Errorf("glrender: unresolved entry point %s", b.name)
		}
		purego.RegisterFunc(b.fptr, addr)
	}
	return g, nil
}

func (g *procGL) Viewport(x, y, width, height int32) { g.viewport(x, y, width, height) }
func (g *procGL) ClearColor(r, gr, b, a float32)     { g.clearColor(r, gr, b, a) }
func (g *procGL) Clear(mask uint32)                  { g.clear(mask) }
func (g *procGL) PixelStorei(pname uint32, param int32) {
	g.pixelStorei(pname, param)
}

func (g *procGL) GenTexture() uint32 {
	var id uint32
	g.genTextures(1, &id)
	return id
}

func (g *procGL) DeleteTexture(tex uint32) { g.deleteTextures(1, &tex) }

func (g *procGL) BindTexture(target, tex uint32) { g.bindTexture(target, tex) }

func (g *procGL) TexParameteri(target, pname uint32, param int32) {
	g.texParameteri(target, pname, param)
}

func (g *procGL) TexImage2D(target uint32, level, internalFormat, width, height int32, format, typ uint32, pixels []byte) {
	var p *byte
	if len(pixels) > 0 {
		p = &pixels[0]
	}
	g.texImage2D(target, level, internalFormat, width, height, 0, format, typ, p)
}

func (g *procGL) GenFramebuffer() uint32 {
	var id uint32
	g.genFramebuffers(1, &id)
	return id
}

func (g *procGL) DeleteFramebuffer(fb uint32) { g.deleteFramebuffers(1, &fb) }

func (g *procGL) BindFramebuffer(target, fb uint32) { g.bindFramebuffer(target, fb) }

func (g *procGL) FramebufferTexture2D(target, attachment, texTarget, tex uint32, level int32) {
	g.framebufferTexture2D(target, attachment, texTarget, tex, level)
}

func (g *procGL) CheckFramebufferStatus(target uint32) uint32 {
	return g.checkFramebufferStatus(target)
}

func (g *procGL) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter uint32) {
	g.blitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, mask, filter)
}
