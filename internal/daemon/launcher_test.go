package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func requireCommand(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func TestLauncherIgnoresTriggerWhileRunning(t *testing.T) {
	sh := requireCommand(t, "sh")
	dir := t.TempDir()
	gate := filepath.Join(dir, "gate")

	// The child runs until the gate file appears.
	script := "while [ ! -f " + gate + " ]; do sleep 0.01; done"
	l := NewLauncher(LauncherConfig{Path: sh, Args: []string{"-c", script}, Logger: quietLogger()})

	if !l.Trigger() {
		t.Fatalf("first Trigger did not start the process")
	}
	if l.Trigger() {
		t.Fatalf("second Trigger started another process while the first runs")
	}
	if !l.Running() {
		t.Fatalf("Running = false while the child runs")
	}

	if err := os.WriteFile(gate, nil, 0o600); err != nil {
		t.Fatalf("write gate: %v", err)
	}
	l.Wait()
	if l.Running() {
		t.Fatalf("Running = true after the child exited")
	}

	if !l.Trigger() {
		t.Fatalf("Trigger after exit did not start a new process")
	}
	l.Wait()
}

func TestLauncherStartFailure(t *testing.T) {
	l := NewLauncher(LauncherConfig{Path: filepath.Join(t.TempDir(), "missing"), Logger: quietLogger()})
	if l.Trigger() {
		t.Fatalf("Trigger reported success for a missing binary")
	}
	if l.Running() {
		t.Fatalf("Running = true after a failed start")
	}
}

func TestLauncherExitCodeClearsRunning(t *testing.T) {
	sh := requireCommand(t, "sh")
	l := NewLauncher(LauncherConfig{Path: sh, Args: []string{"-c", "exit 3"}, Logger: quietLogger()})
	if !l.Trigger() {
		t.Fatalf("Trigger did not start the process")
	}

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait did not return")
	}
	if l.Running() {
		t.Fatalf("Running = true after a failing child exited")
	}
}
