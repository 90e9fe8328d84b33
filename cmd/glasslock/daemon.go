package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/glasslock/internal/daemon"
	"github.com/1broseidon/glasslock/internal/hotkeys"
	"github.com/1broseidon/glasslock/internal/x11"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/glasslock/config.yaml)")
	displayFlag := fs.String("display", "", "X display (default: config display, then $DISPLAY)")
	hotkey := fs.String("hotkey", "", "Key sequence that locks the screen (default: config lock_hotkey)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasslock daemon [--path PATH] [--display :N] [--hotkey SEQ]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run in the foreground and lock the screen when the hotkey is pressed.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config
	if cfg.PasswordHash == "" {
		fmt.Fprintln(os.Stderr, "no unlock password set; run 'glasslock passwd' first")
		return 1
	}
	seq := firstNonEmpty(*hotkey, cfg.LockHotkey)
	if seq == "" {
		fmt.Fprintln(os.Stderr, "no hotkey configured (set lock_hotkey or pass --hotkey)")
		return 2
	}
	display := firstNonEmpty(*displayFlag, cfg.Display, os.Getenv("DISPLAY"))

	exe, err := os.Executable()
	if err != nil {
		log.Printf("Failed to find executable: %v", err)
		return 1
	}

	conn, err := x11.NewConnection(display)
	if err != nil {
		log.Printf("Failed to connect to display: %v", err)
		return 1
	}

	launcher := daemon.NewLauncher(daemon.LauncherConfig{
		Path:   exe,
		Args:   []string{"lock", "--path", res.Path, "--display", display},
		Logger: newLogger(os.Stderr, cfg.LogLevel).With("component", "launcher"),
	})

	handler := hotkeys.NewHandler(conn)
	if err := handler.RegisterFunc(seq, func() { launcher.Trigger() }); err != nil {
		log.Printf("Failed to register hotkey %s: %v", seq, err)
		conn.Close()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		conn.Quit()
		// Closing wakes the event loop out of its blocking read.
		conn.Close()
	}()

	log.Printf("glasslock daemon started (display %q, hotkey %s)", display, seq)
	conn.EventLoop()
	stop()

	// A running lock keeps the screen locked after the daemon is gone.
	if launcher.Running() {
		log.Println("Lock still running; leaving it in place")
	}
	log.Println("glasslock daemon stopped")
	return 0
}
