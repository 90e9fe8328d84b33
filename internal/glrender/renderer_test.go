package glrender

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"
)

type fakeSurface struct {
	ensureErr error
	ensures   int
	swaps     int
	resized   [][2]uint32
	procs     map[string]uintptr
}

func (s *fakeSurface) EnsureCurrent() error { s.ensures++; return s.ensureErr }
func (s *fakeSurface) SwapBuffers() error   { s.swaps++; return nil }
func (s *fakeSurface) Resize(w, h uint32) error {
	s.resized = append(s.resized, [2]uint32{w, h})
	return nil
}
func (s *fakeSurface) ProcAddress(name string) uintptr { return s.procs[name] }

type blit struct {
	src, dst [4]int32
}

type fakeGL struct {
	status    uint32
	nextID    uint32
	uploads   [][]byte
	sizes     [][2]int32
	blits     []blit
	deleted   int
	viewports [][4]int32
}

func (g *fakeGL) Viewport(x, y, w, h int32)     { g.viewports = append(g.viewports, [4]int32{x, y, w, h}) }
func (g *fakeGL) ClearColor(r, gr, b, a float32) {}
func (g *fakeGL) Clear(mask uint32)              {}
func (g *fakeGL) PixelStorei(uint32, int32)      {}
func (g *fakeGL) GenTexture() uint32             { g.nextID++; return g.nextID }
func (g *fakeGL) DeleteTexture(uint32)           { g.deleted++ }
func (g *fakeGL) BindTexture(uint32, uint32)     {}
func (g *fakeGL) TexParameteri(uint32, uint32, int32) {
}
func (g *fakeGL) TexImage2D(target uint32, level, internalFormat, w, h int32, format, typ uint32, pixels []byte) {
	g.uploads = append(g.uploads, append([]byte(nil), pixels...))
	g.sizes = append(g.sizes, [2]int32{w, h})
}
func (g *fakeGL) GenFramebuffer() uint32     { g.nextID++; return g.nextID }
func (g *fakeGL) DeleteFramebuffer(uint32)   { g.deleted++ }
func (g *fakeGL) BindFramebuffer(uint32, uint32) {}
func (g *fakeGL) FramebufferTexture2D(uint32, uint32, uint32, uint32, int32) {
}
func (g *fakeGL) CheckFramebufferStatus(uint32) uint32 {
	if g.status != 0 {
		return g.status
	}
	return glFramebufferDone
}
func (g *fakeGL) BlitFramebuffer(sx0, sy0, sx1, sy1, dx0, dy0, dx1, dy1 int32, mask, filter uint32) {
	g.blits = append(g.blits, blit{src: [4]int32{sx0, sy0, sx1, sy1}, dst: [4]int32{dx0, dy0, dx1, dy1}})
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPresentUploadsFlipsAndSwaps(t *testing.T) {
	s := &fakeSurface{}
	gl := &fakeGL{}
	r := NewWithGL(s, gl, quiet())

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Pix[0] = 0xff
	if err := r.Present(img); err != nil {
		t.Fatalf("Present: %v", err)
	}

	if s.ensures != 1 || s.swaps != 1 {
		t.Fatalf("ensures=%d swaps=%d, want 1/1", s.ensures, s.swaps)
	}
	if len(gl.uploads) != 1 || len(gl.uploads[0]) != 4*2*4 || gl.uploads[0][0] != 0xff {
		t.Fatalf("unexpected upload: %v", gl.uploads)
	}
	if len(gl.blits) != 1 {
		t.Fatalf("blits = %d", len(gl.blits))
	}
	want := blit{src: [4]int32{0, 0, 4, 2}, dst: [4]int32{0, 2, 4, 0}}
	if gl.blits[0] != want {
		t.Fatalf("blit = %+v, want %+v", gl.blits[0], want)
	}
	if gl.viewports[0] != [4]int32{0, 0, 4, 2} {
		t.Fatalf("viewport = %v", gl.viewports[0])
	}
}

func TestPresentReusesTextureAcrossFrames(t *testing.T) {
	gl := &fakeGL{}
	r := NewWithGL(&fakeSurface{}, gl, quiet())
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 3; i++ {
		if err := r.Present(img); err != nil {
			t.Fatalf("Present #%d: %v", i, err)
		}
	}
	if gl.nextID != 2 {
		t.Fatalf("allocated %d GL objects, want 2", gl.nextID)
	}
	r.Release()
	if gl.deleted != 2 {
		t.Fatalf("deleted %d objects, want 2", gl.deleted)
	}
}

func TestPresentPacksSubImageRows(t *testing.T) {
	gl := &fakeGL{}
	r := NewWithGL(&fakeSurface{}, gl, quiet())

	full := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range full.Pix {
		full.Pix[i] = byte(i)
	}
	sub := full.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	if err := r.Present(sub); err != nil {
		t.Fatalf("Present: %v", err)
	}
	got := gl.uploads[0]
	if len(got) != 2*2*4 {
		t.Fatalf("upload length = %d", len(got))
	}
	if got[0] != full.Pix[full.PixOffset(1, 1)] || got[8] != full.Pix[full.PixOffset(1, 2)] {
		t.Fatalf("rows not packed: %v", got)
	}
}

func TestPresentSkipsDrawWhenNotCurrent(t *testing.T) {
	s := &fakeSurface{ensureErr: errors.New("context lost")}
	gl := &fakeGL{}
	r := NewWithGL(s, gl, quiet())
	if err := r.Present(image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatalf("Present succeeded without a current context")
	}
	if len(gl.uploads) != 0 || s.swaps != 0 {
		t.Fatalf("drew without a current context")
	}
}

func TestPresentIncompleteFramebuffer(t *testing.T) {
	s := &fakeSurface{}
	gl := &fakeGL{status: 0x8CD6}
	r := NewWithGL(s, gl, quiet())
	err := r.Present(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, ErrIncompleteFramebuffer) {
		t.Fatalf("Present = %v, want ErrIncompleteFramebuffer", err)
	}
	if s.swaps != 0 {
		t.Fatalf("swapped an incomplete frame")
	}
}

func TestNewFailsOnMissingEntryPoint(t *testing.T) {
	s := &fakeSurface{procs: map[string]uintptr{}}
	if _, err := New(s, quiet()); err == nil {
		t.Fatalf("New succeeded with no entry points")
	}
}

func TestResizeDelegates(t *testing.T) {
	s := &fakeSurface{}
	r := NewWithGL(s, &fakeGL{}, quiet())
	if err := r.Resize(640, 480); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(s.resized) != 1 || s.resized[0] != [2]uint32{640, 480} {
		t.Fatalf("resized = %v", s.resized)
	}
}
