package passwd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/1broseidon/glasslock/internal/config"
)

type fixedPrompter struct {
	pw, confirm string
	err         error
}

func (p fixedPrompter) Prompt() (string, string, error) {
	return p.pw, p.confirm, p.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		pw, conf string
		want     error
	}{
		{"ok", "hunter2", "hunter2", nil},
		{"empty", "", "", ErrEmpty},
		{"mismatch", "hunter2", "hunter3", ErrMismatch},
		{"too long", strings.Repeat("x", MaxLength+1), strings.Repeat("x", MaxLength+1), ErrTooLong},
		{"max length multibyte", strings.Repeat("é", MaxLength), strings.Repeat("é", MaxLength), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Check(tt.pw, tt.conf); !errors.Is(err, tt.want) {
				t.Fatalf("Check = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSetWritesHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glasslock", "config.yaml")
	cfg := config.DefaultConfig()

	if err := Set(cfg, path, fixedPrompter{pw: "correct horse", confirm: "correct horse"}, bcrypt.MinCost); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("stored hash does not match: %v", err)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if res.Config.PasswordHash != cfg.PasswordHash {
		t.Fatalf("saved hash = %q, want %q", res.Config.PasswordHash, cfg.PasswordHash)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("config mode = %o, want 600", perm)
	}
}

func TestSetLeavesConfigOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()

	err := Set(cfg, path, fixedPrompter{pw: "a", confirm: "b"}, bcrypt.MinCost)
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("Set = %v, want ErrMismatch", err)
	}
	if cfg.PasswordHash != "" {
		t.Fatalf("hash set after failed prompt")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("config written after failed prompt: %v", err)
	}

	if err := Set(cfg, path, fixedPrompter{err: ErrAborted}, bcrypt.MinCost); !errors.Is(err, ErrAborted) {
		t.Fatalf("Set = %v, want ErrAborted", err)
	}
}

func TestLinePrompterReadsPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	go func() {
		io.WriteString(w, "s3cret\r\ns3cret\n")
		w.Close()
	}()

	var prompts strings.Builder
	pw, confirm, err := LinePrompter{In: r, Out: &prompts}.Prompt()
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if pw != "s3cret" || confirm != "s3cret" {
		t.Fatalf("Prompt = %q, %q", pw, confirm)
	}
	if !strings.Contains(prompts.String(), "Confirm password") {
		t.Fatalf("prompts = %q", prompts.String())
	}
}

func TestLinePrompterEOF(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	w.Close()

	if _, _, err := (LinePrompter{In: r, Out: io.Discard}).Prompt(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Prompt = %v, want ErrUnexpectedEOF", err)
	}
}
