package secret

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func init() {
	keyring.MockInit()
}

func TestFromSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec     string
		wantName string
		wantErr  bool
	}{
		{"keyring:me@uic.edu", "keyring", false},
		{"exec:pass show mail", "exec", false},
		{"env:SMTP_PASSWORD", "env", false},
		{"vault:secret/mail", "", true},
		{"keyring:", "", true},
		{"no-colon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			src, err := FromSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FromSpec(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromSpec(%q) error: %v", tt.spec, err)
			}
			if src.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.wantName)
			}
		})
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("MAIL_AGENT_TEST_SECRET", "hunter2")
	t.Setenv("MAIL_AGENT_TEST_EMPTY", "")

	got, err := NewEnv("MAIL_AGENT_TEST_SECRET").Get(context.Background())
	if err != nil || got != "hunter2" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	if _, err := NewEnv("MAIL_AGENT_TEST_EMPTY").Get(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty var error = %v, want ErrNotFound", err)
	}
}

func TestKeyring_SetAndGet(t *testing.T) {
	k := NewKeyring("student@uic.edu")
	if err := k.Set("app-password"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := k.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "app-password" {
		t.Errorf("Get() = %q, want app-password", got)
	}
}

func TestKeyring_NotFound(t *testing.T) {
	_, err := NewKeyring("nobody@uic.edu").Get(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	t.Parallel()

	got, err := NewExec("printf '  s3cret\\n'").Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Get() = %q, want s3cret", got)
	}
}

func TestExec_Failures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	t.Parallel()

	if _, err := NewExec("echo nope >&2; exit 3").Get(context.Background()); err == nil {
		t.Error("expected error for failing command")
	}
	if _, err := NewExec("true").Get(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty output error = %v, want ErrNotFound", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := NewExec("sleep 5").Get(ctx); err == nil {
		t.Error("expected error when context deadline passes")
	}
}
