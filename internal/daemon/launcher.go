package daemon

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// LauncherConfig describes the command started on every trigger.
type LauncherConfig struct {
	Path   string
	Args   []string
	Logger *slog.Logger
}

// Launcher starts one child process at a time. Triggers while the child
// is still running are ignored, so a held or repeated hotkey cannot
// stack locks.
type Launcher struct {
	path   string
	args   []string
	logger *slog.Logger

	mu      sync.Mutex
	running *exec.Cmd
	wg      sync.WaitGroup
}

// NewLauncher creates a launcher.
func NewLauncher(cfg LauncherConfig) *Launcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{path: cfg.Path, args: cfg.Args, logger: logger}
}

// Trigger starts the command unless it is already running. It reports
// whether a new process was started.
func (l *Launcher) Trigger() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running != nil {
		l.logger.Info("launcher: already running, ignoring trigger", "pid", l.running.Process.Pid)
		return false
	}

	cmd := exec.Command(l.path, l.args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		l.logger.Error("launcher: failed to start", "path", l.path, "error", err)
		return false
	}
	l.running = cmd
	l.logger.Info("launcher: started", "path", l.path, "pid", cmd.Process.Pid)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := cmd.Wait()
		if err != nil {
			l.logger.Warn("launcher: process exited with error", "pid", cmd.Process.Pid, "error", err)
		} else {
			l.logger.Info("launcher: process exited", "pid", cmd.Process.Pid)
		}
		l.mu.Lock()
		l.running = nil
		l.mu.Unlock()
	}()
	return true
}

// Running reports whether a child is alive.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running != nil
}

// Wait blocks until the current child, if any, has exited.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
