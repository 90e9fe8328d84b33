package config

import "time"

// RawConfig mirrors Config with optional fields so a file only overrides
// what it sets.
type RawConfig struct {
	PasswordHash  *string        `yaml:"password_hash"`
	LogLevel      *string        `yaml:"log_level"`
	Display       *string        `yaml:"display"`
	XAuthority    *string        `yaml:"xauthority"`
	FrameRate     *int           `yaml:"frame_rate"`
	SwapInterval  *int           `yaml:"swap_interval"`
	EGLLibrary    *string        `yaml:"egl_library"`
	FailureDelay  *time.Duration `yaml:"failure_delay"`
	GuardInterval *time.Duration `yaml:"guard_interval"`
	LockHotkey    *string        `yaml:"lock_hotkey"`
	Theme         *RawTheme      `yaml:"theme"`
	Messages      *RawMessages   `yaml:"messages"`
	Audit         *RawAudit      `yaml:"audit"`
}

type RawTheme struct {
	Background *string  `yaml:"background"`
	Panel      *string  `yaml:"panel"`
	Text       *string  `yaml:"text"`
	Dot        *string  `yaml:"dot"`
	Error      *string  `yaml:"error"`
	FontSize   *float64 `yaml:"font_size"`
}

type RawMessages struct {
	Prompt    *string `yaml:"prompt"`
	Verifying *string `yaml:"verifying"`
	Failure   *string `yaml:"failure"`
}

type RawAudit struct {
	Enabled   *bool   `yaml:"enabled"`
	FilePath  *string `yaml:"file_path"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (r RawConfig) apply(cfg *Config) {
	set(&cfg.PasswordHash, r.PasswordHash)
	set(&cfg.LogLevel, r.LogLevel)
	set(&cfg.Display, r.Display)
	set(&cfg.XAuthority, r.XAuthority)
	set(&cfg.FrameRate, r.FrameRate)
	set(&cfg.SwapInterval, r.SwapInterval)
	set(&cfg.EGLLibrary, r.EGLLibrary)
	set(&cfg.FailureDelay, r.FailureDelay)
	set(&cfg.GuardInterval, r.GuardInterval)
	set(&cfg.LockHotkey, r.LockHotkey)

	if t := r.Theme; t != nil {
		set(&cfg.Theme.Background, t.Background)
		set(&cfg.Theme.Panel, t.Panel)
		set(&cfg.Theme.Text, t.Text)
		set(&cfg.Theme.Dot, t.Dot)
		set(&cfg.Theme.Error, t.Error)
		set(&cfg.Theme.FontSize, t.FontSize)
	}
	if m := r.Messages; m != nil {
		set(&cfg.Messages.Prompt, m.Prompt)
		set(&cfg.Messages.Verifying, m.Verifying)
		set(&cfg.Messages.Failure, m.Failure)
	}
	if a := r.Audit; a != nil {
		set(&cfg.Audit.Enabled, a.Enabled)
		set(&cfg.Audit.FilePath, a.FilePath)
		set(&cfg.Audit.MaxSizeMB, a.MaxSizeMB)
		set(&cfg.Audit.MaxFiles, a.MaxFiles)
	}
}
