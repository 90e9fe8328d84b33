// Package glcontext owns the lifecycle of the render thread's OpenGL
// context: configuration selection, context and window surface creation,
// keeping the context current, presenting frames and resizing the drawable.
//
// A Context is not safe for concurrent use. It must be created, used and
// released on a single OS-thread-locked goroutine.
package glcontext

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/glasslock/internal/message"
)

var (
	// ErrInit marks every failure to construct a Context. Callers treat it
	// as fatal: retrying with the same display and surface cannot succeed.
	ErrInit = errors.New("glcontext: initialization failed")

	// ErrNoConfig is returned when the driver offers no usable configuration.
	ErrNoConfig = errors.New("glcontext: no usable framebuffer configuration")

	// ErrInvalidSize is returned for zero width or height.
	ErrInvalidSize = errors.New("glcontext: invalid surface size")

	// ErrReleased is returned by operations on a released Context.
	ErrReleased = errors.New("glcontext: context released")
)

// Context is a current rendering context bound to a window surface.
type Context struct {
	driver  Driver
	logger  *slog.Logger
	config  Config
	ctx     ContextID
	surf    SurfaceID
	size    message.Size
	release bool
}

// New builds a Context on display and surface and makes it current on the
// calling thread. Any error wraps ErrInit.
func New(driver Driver, display message.DisplayHandle, surface message.SurfaceHandle, size message.Size, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %w: %s", ErrInit, ErrInvalidSize, size)
	}

	if err := driver.Initialize(display); err != nil {
		return nil, fmt.Errorf("%w: display: %w", ErrInit, err)
	}

	configs, err := driver.Configs()
	if err != nil {
		driver.Terminate()
		return nil, fmt.Errorf("%w: configs: %w", ErrInit, err)
	}
	cfg, ok := pickConfig(configs)
	if !ok {
		driver.Terminate()
		return nil, fmt.Errorf("%w: %w", ErrInit, ErrNoConfig)
	}
	logger.Debug("selected framebuffer config", "samples", cfg.Samples, "alpha", cfg.Alpha, "candidates", len(configs))

	ctx, err := driver.CreateContext(cfg)
	if err != nil {
		driver.Terminate()
		return nil, fmt.Errorf("%w: create context: %w", ErrInit, err)
	}

	surf, err := driver.CreateWindowSurface(cfg, surface, size)
	if err != nil {
		driver.DestroyContext(ctx)
		driver.Terminate()
		return nil, fmt.Errorf("%w: create window surface: %w", ErrInit, err)
	}

	if err := driver.MakeCurrent(ctx, surf); err != nil {
		driver.DestroySurface(surf)
		driver.DestroyContext(ctx)
		driver.Terminate()
		return nil, fmt.Errorf("%w: make current: %w", ErrInit, err)
	}

	logger.Info("rendering context created", "size", size.String(), "samples", cfg.Samples)

	return &Context{
		driver: driver,
		logger: logger,
		config: cfg,
		ctx:    ctx,
		surf:   surf,
		size:   size,
	}, nil
}

// pickConfig returns the configuration with the most samples. Ties keep
// the driver's earlier (preferred) entry.
func pickConfig(configs []Config) (Config, bool) {
	if len(configs) == 0 {
		return Config{}, false
	}
	best := configs[0]
	for _, cfg := range configs[1:] {
		if cfg.Samples > best.Samples {
			best = cfg
		}
	}
	return best, true
}

// EnsureCurrent makes the context current unless it already is.
func (c *Context) EnsureCurrent() error {
	if c.release {
		return ErrReleased
	}
	c.logger.Debug("ensuring context is current")
	if c.driver.CurrentContext() == c.ctx {
		return nil
	}
	c.logger.Info("context not current, making current")
	if err := c.driver.MakeCurrent(c.ctx, c.surf); err != nil {
		return fmt.Errorf("glcontext: make current: %w", err)
	}
	return nil
}

// SwapBuffers presents the completed frame.
func (c *Context) SwapBuffers() error {
	if c.release {
		return ErrReleased
	}
	c.logger.Debug("swapping buffers")
	if err := c.driver.SwapBuffers(c.surf); err != nil {
		return fmt.Errorf("glcontext: swap buffers: %w", err)
	}
	return nil
}

// Resize resizes the drawable. The context is made current first since
// resizing a surface whose context is not current is undefined on some
// drivers.
func (c *Context) Resize(size message.Size) error {
	if !size.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if err := c.EnsureCurrent(); err != nil {
		return err
	}
	c.logger.Debug("resizing surface", "size", size.String())
	if err := c.driver.ResizeSurface(c.surf, size); err != nil {
		return fmt.Errorf("glcontext: resize surface: %w", err)
	}
	c.size = size
	return nil
}

// LookupFunction resolves a graphics API entry point. It returns 0 when
// the symbol is unknown.
func (c *Context) LookupFunction(name string) uintptr {
	if c.release {
		return 0
	}
	return c.driver.ProcAddress(name)
}

// Size returns the drawable size last applied.
func (c *Context) Size() message.Size {
	return c.size
}

// Samples returns the sample count of the chosen configuration.
func (c *Context) Samples() int {
	return c.config.Samples
}

// Release unbinds and destroys the context and its surface. It is safe to
// call more than once.
func (c *Context) Release() error {
	if c.release {
		return nil
	}
	c.release = true

	errs := []error{
		c.driver.ReleaseCurrent(),
		c.driver.DestroySurface(c.surf),
		c.driver.DestroyContext(c.ctx),
		c.driver.Terminate(),
	}
	return errors.Join(errs...)
}
