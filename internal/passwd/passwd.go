// Package passwd sets the unlock password stored in the config file.
package passwd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/1broseidon/glasslock/internal/auth"
	"github.com/1broseidon/glasslock/internal/config"
)

// MaxLength matches the longest password the lock screen accepts.
const MaxLength = 512

var (
	ErrEmpty    = errors.New("password must not be empty")
	ErrMismatch = errors.New("passwords do not match")
	ErrTooLong  = fmt.Errorf("password must be at most %d characters", MaxLength)
	ErrAborted  = errors.New("aborted")
)

// Prompter asks for a new password and its confirmation.
type Prompter interface {
	Prompt() (password, confirm string, err error)
}

// Check validates a new password against its confirmation.
func Check(password, confirm string) error {
	if password == "" {
		return ErrEmpty
	}
	if utf8.RuneCountInString(password) > MaxLength {
		return ErrTooLong
	}
	if password != confirm {
		return ErrMismatch
	}
	return nil
}

// Set prompts for a password, hashes it with cost and writes the hash to
// cfg at path.
func Set(cfg *config.Config, path string, p Prompter, cost int) error {
	pw, confirm, err := p.Prompt()
	if err != nil {
		return err
	}
	if err := Check(pw, confirm); err != nil {
		return err
	}
	hash, err := auth.HashPassword(pw, cost)
	if err != nil {
		return err
	}
	cfg.PasswordHash = hash
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// NewPrompter returns a form prompter when stdin and stdout are terminals
// and a line prompter otherwise.
func NewPrompter() Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return FormPrompter{}
	}
	return LinePrompter{In: os.Stdin, Out: os.Stderr}
}

// FormPrompter asks with an interactive form.
type FormPrompter struct{}

func (FormPrompter) Prompt() (string, string, error) {
	var pw, confirm string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("password").
				Title("New unlock password").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return ErrEmpty
					}
					if utf8.RuneCountInString(s) > MaxLength {
						return ErrTooLong
					}
					return nil
				}).
				Value(&pw),
			huh.NewInput().
				Key("confirm").
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s != pw {
						return ErrMismatch
					}
					return nil
				}).
				Value(&confirm),
		),
	).WithShowHelp(true).WithShowErrors(true)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", "", ErrAborted
		}
		return "", "", err
	}
	return pw, confirm, nil
}

// LinePrompter reads two lines. When In is a terminal echo is disabled.
type LinePrompter struct {
	In  *os.File
	Out io.Writer
}

func (p LinePrompter) Prompt() (string, string, error) {
	pw, err := p.readLine("New unlock password: ")
	if err != nil {
		return "", "", err
	}
	confirm, err := p.readLine("Confirm password: ")
	if err != nil {
		return "", "", err
	}
	return pw, confirm, nil
}

func (p LinePrompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	fd := int(p.In.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readPlainLine(p.In)
}

// readPlainLine reads up to a newline one byte at a time so the second
// prompt still finds its line in a pipe.
func readPlainLine(r io.Reader) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			line = append(line, buf[0])
		}
		if err == io.EOF {
			if len(line) == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line), nil
}
