package main

import (
	"errors"
	"log/slog"

	"github.com/1broseidon/glasslock/internal/config"
	"github.com/1broseidon/glasslock/internal/egl"
	"github.com/1broseidon/glasslock/internal/glcontext"
	"github.com/1broseidon/glasslock/internal/glrender"
	"github.com/1broseidon/glasslock/internal/lockui"
	"github.com/1broseidon/glasslock/internal/message"
	"github.com/1broseidon/glasslock/internal/render"
	"github.com/1broseidon/glasslock/internal/surface"
)

// lockSurface ties the GL surface to the renderer presenting on it so the
// render loop can resize and release both as one.
type lockSurface struct {
	surface  *surface.OpenGL
	renderer *glrender.Renderer
}

func (s *lockSurface) Resize(width, height uint32) error {
	return s.renderer.Resize(width, height)
}

func (s *lockSurface) Release() error {
	// GL objects can only be deleted with the context current.
	if err := s.surface.EnsureCurrent(); err == nil {
		s.renderer.Release()
	}
	return s.surface.Release()
}

func themeFromConfig(cfg *config.Config) lockui.Theme {
	return lockui.Theme{
		Background: cfg.Theme.Background,
		Panel:      cfg.Theme.Panel,
		Text:       cfg.Theme.Text,
		Dot:        cfg.Theme.Dot,
		Error:      cfg.Theme.Error,
		FontSize:   cfg.Theme.FontSize,
		Prompt:     cfg.Messages.Prompt,
		Verifying:  cfg.Messages.Verifying,
		Failure:    cfg.Messages.Failure,
	}
}

// newDriver is replaced in tests.
var newDriver = func(cfg *config.Config) glcontext.Driver {
	return egl.New(egl.Options{Library: cfg.EGLLibrary, SwapInterval: cfg.SwapInterval})
}

// buildLockScreen returns the render loop's build step: a GL context on
// the lock window, the renderer presenting on it and the lock screen
// drawing through the renderer.
func buildLockScreen(cfg *config.Config, logger *slog.Logger) render.BuildFunc {
	return func(ready message.SurfaceReady, submit func(string)) (render.Surface, render.Window, error) {
		ctx, err := glcontext.New(newDriver(cfg), ready.Display, ready.Surface, ready.Size, logger)
		if err != nil {
			return nil, nil, err
		}
		surf := surface.New(ctx)

		renderer, err := glrender.New(surf, logger)
		if err != nil {
			return nil, nil, errors.Join(err, surf.Release())
		}

		win, err := lockui.New(renderer, submit, themeFromConfig(cfg))
		if err != nil {
			renderer.Release()
			return nil, nil, errors.Join(err, surf.Release())
		}
		logger.Info("lock screen built", "size", surf.Size().String(), "samples", ctx.Samples())
		return &lockSurface{surface: surf, renderer: renderer}, win, nil
	}
}
