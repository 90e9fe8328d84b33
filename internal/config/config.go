package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Theme controls the lock screen's look.
type Theme struct {
	Background string  `yaml:"background"`
	Panel      string  `yaml:"panel"`
	Text       string  `yaml:"text"`
	Dot        string  `yaml:"dot"`
	Error      string  `yaml:"error"`
	FontSize   float64 `yaml:"font_size"`
}

// Messages are the strings shown on the lock screen.
type Messages struct {
	Prompt    string `yaml:"prompt"`
	Verifying string `yaml:"verifying"`
	Failure   string `yaml:"failure"`
}

// AuditConfig controls the audit log of lock activity.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	FilePath  string `yaml:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Config is the effective glasslock configuration.
type Config struct {
	PasswordHash  string        `yaml:"password_hash"`
	LogLevel      string        `yaml:"log_level"`
	Display       string        `yaml:"display,omitempty"`
	XAuthority    string        `yaml:"xauthority,omitempty"`
	FrameRate     int           `yaml:"frame_rate"`
	SwapInterval  int           `yaml:"swap_interval"`
	EGLLibrary    string        `yaml:"egl_library,omitempty"`
	FailureDelay  time.Duration `yaml:"failure_delay"`
	GuardInterval time.Duration `yaml:"guard_interval"`
	LockHotkey    string        `yaml:"lock_hotkey"`
	Theme         Theme         `yaml:"theme"`
	Messages      Messages      `yaml:"messages"`
	Audit         AuditConfig   `yaml:"audit"`
}

// DefaultConfig returns the built-in defaults. PasswordHash is empty; it
// is set with `glasslock passwd`.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		FrameRate:     60,
		SwapInterval:  1,
		FailureDelay:  2 * time.Second,
		GuardInterval: 2 * time.Second,
		LockHotkey:    "Mod4-l",
		Theme: Theme{
			Background: "#101418",
			Panel:      "#1c232b",
			Text:       "#d8dee9",
			Dot:        "#88c0d0",
			Error:      "#bf616a",
			FontSize:   22,
		},
		Messages: Messages{
			Prompt:    "Enter password",
			Verifying: "Verifying…",
			Failure:   "Wrong password",
		},
		Audit: AuditConfig{
			Enabled:   true,
			FilePath:  defaultAuditPath(),
			MaxSizeMB: 5,
			MaxFiles:  3,
		},
	}
}

func defaultAuditPath() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "glasslock", "audit.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "glasslock-audit.log")
	}
	return filepath.Join(home, ".local", "state", "glasslock", "audit.log")
}

// FrameInterval is the render loop's target frame time.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FrameRate)
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Validate checks value ranges. A missing password hash is not an error
// here; `glasslock lock` refuses to start without one.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.PasswordHash != "" && !strings.HasPrefix(c.PasswordHash, "$2") {
		return &ValidationError{Path: "password_hash", Err: fmt.Errorf("password_hash must be a bcrypt hash (run `glasslock passwd`)")}
	}
	if c.FrameRate < 0 || c.FrameRate > 240 {
		return &ValidationError{Path: "frame_rate", Err: fmt.Errorf("frame_rate must be between 0 and 240")}
	}
	if c.SwapInterval < 0 || c.SwapInterval > 4 {
		return &ValidationError{Path: "swap_interval", Err: fmt.Errorf("swap_interval must be between 0 and 4")}
	}
	if c.FailureDelay < 0 || c.FailureDelay > time.Minute {
		return &ValidationError{Path: "failure_delay", Err: fmt.Errorf("failure_delay must be between 0s and 1m")}
	}
	if c.GuardInterval < 100*time.Millisecond {
		return &ValidationError{Path: "guard_interval", Err: fmt.Errorf("guard_interval must be >= 100ms")}
	}

	colors := []struct {
		path, value string
	}{
		{"theme.background", c.Theme.Background},
		{"theme.panel", c.Theme.Panel},
		{"theme.text", c.Theme.Text},
		{"theme.dot", c.Theme.Dot},
		{"theme.error", c.Theme.Error},
	}
	for _, col := range colors {
		if !hexColor.MatchString(col.value) {
			return &ValidationError{Path: col.path, Err: fmt.Errorf("%q is not a #rrggbb or #rrggbbaa color", col.value)}
		}
	}
	if c.Theme.FontSize < 6 || c.Theme.FontSize > 200 {
		return &ValidationError{Path: "theme.font_size", Err: fmt.Errorf("font_size must be between 6 and 200")}
	}

	if c.Audit.Enabled {
		if strings.TrimSpace(c.Audit.FilePath) == "" {
			return &ValidationError{Path: "audit.file_path", Err: fmt.Errorf("file_path is required when audit is enabled")}
		}
		if c.Audit.MaxSizeMB <= 0 {
			return &ValidationError{Path: "audit.max_size_mb", Err: fmt.Errorf("max_size_mb must be > 0")}
		}
		if c.Audit.MaxFiles <= 0 {
			return &ValidationError{Path: "audit.max_files", Err: fmt.Errorf("max_files must be > 0")}
		}
	}
	return nil
}

// Save writes the configuration to the standard location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path with 0600 permissions, since it
// holds the password hash.
//
// Note: this marshals the effective config and will not preserve comments
// from the file on disk.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
