package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/1broseidon/glasslock/internal/audit"
	"github.com/1broseidon/glasslock/internal/auth"
	"github.com/1broseidon/glasslock/internal/config"
	"github.com/1broseidon/glasslock/internal/control"
	"github.com/1broseidon/glasslock/internal/daemon"
	"github.com/1broseidon/glasslock/internal/ipc"
	"github.com/1broseidon/glasslock/internal/mailbox"
	"github.com/1broseidon/glasslock/internal/message"
	"github.com/1broseidon/glasslock/internal/render"
	"github.com/1broseidon/glasslock/internal/runtimepath"
	"github.com/1broseidon/glasslock/internal/x11"
)

// lockStatus answers IPC status queries from the dispatcher and the
// render loop.
type lockStatus struct {
	dispatcher *control.Dispatcher
	loop       *render.Loop
	display    string
	started    time.Time
}

func (s lockStatus) Status() ipc.StatusData {
	st := s.dispatcher.Status()
	return ipc.StatusData{
		PID:             os.Getpid(),
		Display:         s.display,
		Locked:          st.Locked,
		LockedSeconds:   int64(time.Since(s.started).Seconds()),
		RenderState:     s.loop.State().String(),
		SurfaceReady:    st.SurfaceReady,
		Width:           st.Size.Width,
		Height:          st.Size.Height,
		PendingSerial:   uint32(st.PendingSerial),
		AwaitingAck:     st.AwaitingAck,
		LastAckedSerial: uint32(st.LastAcked),
		Verifying:       st.Verifying,
		FailedAttempts:  st.FailedAttempts,
	}
}

func runLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/glasslock/config.yaml)")
	displayFlag := fs.String("display", "", "X display to lock (default: config display, then $DISPLAY)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasslock lock [--path PATH] [--display :N]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Lock the screen until the configured password is entered.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "lock takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config
	logger := newLogger(os.Stderr, cfg.LogLevel)

	verifier, err := auth.New(cfg.PasswordHash, cfg.FailureDelay)
	if err != nil {
		if errors.Is(err, auth.ErrNoHash) {
			fmt.Fprintln(os.Stderr, "no unlock password set; run 'glasslock passwd' first")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}

	display := firstNonEmpty(*displayFlag, cfg.Display, os.Getenv("DISPLAY"))
	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}

	auditLog, err := audit.Open(audit.Config{
		Enabled:   cfg.Audit.Enabled,
		FilePath:  cfg.Audit.FilePath,
		MaxSizeMB: cfg.Audit.MaxSizeMB,
		MaxFiles:  cfg.Audit.MaxFiles,
	})
	if err != nil {
		logger.Warn("audit log disabled", "error", err)
		auditLog = nil
	}
	defer auditLog.Close()

	if err := lockDisplay(cfg, display, logger, auditLog, verifier); err != nil {
		logger.Error("lock failed", "error", err)
		return 1
	}
	return 0
}

func lockDisplay(cfg *config.Config, display string, logger *slog.Logger, auditLog *audit.Log, verifier *auth.Verifier) error {
	socketPath, err := runtimepath.SocketPath(display)
	if err != nil {
		return err
	}
	// Refuse early when this display is already locked.
	if err := ipc.NewClient(socketPath).Ping(); err == nil {
		return ipc.ErrAlreadyRunning
	}

	conn, err := x11.NewConnection(display)
	if err != nil {
		return err
	}
	defer conn.Close()

	native, err := x11.OpenNativeDisplay(display)
	if err != nil {
		return err
	}
	defer native.Close()

	session, err := x11.Lock(conn, native, x11.SessionConfig{Logger: logger.With("component", "x11")})
	if err != nil {
		return err
	}
	defer session.Close()

	// A terminal interrupt must not end the lock. SIGTERM still does, so
	// the session can be torn down cleanly at shutdown.
	signal.Ignore(syscall.SIGINT, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTSTP)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	toRender := mailbox.New[message.Inbound]()
	fromRender := mailbox.New[message.Outbound]()

	loop := render.New(render.Config{
		Inbound:       toRender,
		Outbound:      fromRender,
		Build:         buildLockScreen(cfg, logger.With("component", "gl")),
		Logger:        logger.With("component", "render"),
		FrameInterval: cfg.FrameInterval(),
	})
	dispatcher := control.New(control.Config{
		ToRender:      toRender,
		FromRender:    fromRender,
		Session:       session,
		Authenticator: verifier,
		Logger:        logger.With("component", "control"),
		Audit:         auditLog,
	})

	renderDone := make(chan error, 1)
	go func() {
		// The GL context is bound to this OS thread for its whole life.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		err := loop.Run(ctx)
		if err != nil {
			// The screen stays locked; only the drawing is gone.
			logger.Error("render loop failed", "error", err)
			auditLog.Record(audit.ActionRenderError, map[string]any{"error": err})
		}
		renderDone <- err
	}()

	go session.Run()

	guardCtx, stopGuard := context.WithCancel(ctx)
	defer stopGuard()
	guard := daemon.NewGuard(daemon.GuardConfig{
		Interval: cfg.GuardInterval,
		Logger:   logger.With("component", "guard"),
	}, session)
	go guard.Run(guardCtx)

	server := ipc.NewServer(socketPath, lockStatus{
		dispatcher: dispatcher,
		loop:       loop,
		display:    display,
		started:    time.Now(),
	})
	if err := server.Start(); err != nil {
		logger.Warn("status socket unavailable", "error", err)
	} else {
		defer server.Stop()
	}

	runErr := dispatcher.Run(ctx, session.Events(ctx))
	stopGuard()

	if runErr != nil {
		// Terminated without an unlock: release the display anyway.
		session.Unlock()
	}
	renderErr := <-renderDone

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return renderErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
