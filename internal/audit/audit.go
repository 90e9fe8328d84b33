// Package audit writes a rotated, append-only record of lock sessions and
// unlock attempts. Credentials are never written.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Action is a recorded lock event.
type Action string

const (
	ActionLock          Action = "LOCK"
	ActionUnlockAttempt Action = "UNLOCK-ATTEMPT"
	ActionUnlockFailed  Action = "UNLOCK-FAILED"
	ActionUnlocked      Action = "UNLOCKED"
	ActionSessionClosed Action = "SESSION-CLOSED"
	ActionRenderError   Action = "RENDER-ERROR"
)

// Config controls the audit log.
type Config struct {
	Enabled   bool
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Log is safe for concurrent use. A nil or disabled Log drops records.
type Log struct {
	mu   sync.Mutex
	cfg  Config
	file *os.File
	size int64
	now  func() time.Time
}

// Open opens (or creates) the log file with 0600 permissions.
func Open(cfg Config) (*Log, error) {
	l := &Log{cfg: cfg, now: time.Now}
	if !cfg.Enabled {
		return l, nil
	}
	if cfg.MaxFiles < 1 {
		l.cfg.MaxFiles = 1
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory %s: %w", dir, err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", cfg.FilePath, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("audit: stat %s: %w", cfg.FilePath, err)
	}
	l.file = f
	l.size = st.Size()
	return l, nil
}

// Record appends one line: timestamp, action and the details sorted by key.
func (l *Log) Record(action Action, details map[string]any) {
	if l == nil || !l.cfg.Enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}

	if limit := int64(l.cfg.MaxSizeMB) * 1024 * 1024; limit > 0 && l.size >= limit {
		if err := l.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "audit: rotate: %v\n", err)
		}
		if l.file == nil {
			return
		}
	}

	n, err := l.file.WriteString(formatEntry(l.now(), action, details))
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: write: %v\n", err)
		return
	}
	l.size += int64(n)
}

func formatEntry(ts time.Time, action Action, details map[string]any) string {
	var sb strings.Builder
	sb.WriteString(ts.Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(string(action))
	sb.WriteString("]")

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := details[k].(type) {
		case string:
			fmt.Fprintf(&sb, " %s=%q", k, v)
		case error:
			fmt.Fprintf(&sb, " %s=%q", k, v.Error())
		default:
			fmt.Fprintf(&sb, " %s=%v", k, v)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// rotate shifts path.N to path.N+1, dropping the oldest, and reopens path.
func (l *Log) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	base := l.cfg.FilePath
	os.Remove(fmt.Sprintf("%s.%d", base, l.cfg.MaxFiles))
	for i := l.cfg.MaxFiles - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", base, i), fmt.Sprintf("%s.%d", base, i+1))
	}
	if err := os.Rename(base, base+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(base, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	l.file = f
	l.size = 0
	return nil
}

// Close closes the file. Later records are dropped.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
