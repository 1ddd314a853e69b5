// Package secret resolves credentials from the environment, the OS keyring
// or an external command.
package secret

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name entries are stored under.
const KeyringService = "mail-agent"

// defaultExecTimeout bounds a credential command without its own deadline.
const defaultExecTimeout = 30 * time.Second

// ErrNotFound is returned when a source holds no value.
var ErrNotFound = errors.New("secret not found")

// Source yields a single secret value.
type Source interface {
	Get(ctx context.Context) (string, error)
	Name() string
}

// FromSpec builds a Source from "keyring:<user>", "exec:<command>" or
// "env:<VAR>".
func FromSpec(spec string) (Source, error) {
	kind, arg, ok := strings.Cut(spec, ":")
	if !ok || strings.TrimSpace(arg) == "" {
		return nil, fmt.Errorf("invalid secret spec %q: want keyring:<user>, exec:<command> or env:<VAR>", spec)
	}
	switch kind {
	case "keyring":
		return NewKeyring(arg), nil
	case "exec":
		return NewExec(arg), nil
	case "env":
		return NewEnv(arg), nil
	default:
		return nil, fmt.Errorf("unknown secret source %q", kind)
	}
}

// Env reads an environment variable.
type Env struct {
	name string
}

// NewEnv returns a Source for the named environment variable.
func NewEnv(name string) *Env {
	return &Env{name: name}
}

// Get returns the variable's value, or ErrNotFound when it is unset or empty.
func (e *Env) Get(ctx context.Context) (string, error) {
	v := os.Getenv(e.name)
	if v == "" {
		return "", fmt.Errorf("%w: environment variable %s", ErrNotFound, e.name)
	}
	return v, nil
}

// Name returns the source name.
func (e *Env) Name() string { return "env" }

// Keyring reads from the OS keychain (macOS Keychain, Secret Service,
// Windows Credential Manager).
type Keyring struct {
	user string
}

// NewKeyring returns a Source for the entry stored for user.
func NewKeyring(user string) *Keyring {
	return &Keyring{user: user}
}

// Get retrieves the stored value.
func (k *Keyring) Get(ctx context.Context) (string, error) {
	v, err := keyring.Get(KeyringService, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: keyring entry for %q", ErrNotFound, k.user)
		}
		return "", fmt.Errorf("reading secret from OS keyring: %w", err)
	}
	return v, nil
}

// Set stores value for the user.
func (k *Keyring) Set(value string) error {
	if err := keyring.Set(KeyringService, k.user, value); err != nil {
		return fmt.Errorf("storing secret in OS keyring: %w", err)
	}
	return nil
}

// Name returns the source name.
func (k *Keyring) Name() string { return "keyring" }

// Exec runs a shell command and reads the secret from its stdout.
type Exec struct {
	command string
}

// NewExec returns a Source that runs command with sh -c.
func NewExec(command string) *Exec {
	return &Exec{command: command}
}

// Get runs the command and returns its trimmed stdout.
func (e *Exec) Get(ctx context.Context) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultExecTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", e.command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running secret command %q: %w (stderr: %s)", e.command, err, strings.TrimSpace(stderr.String()))
	}

	v := strings.TrimSpace(stdout.String())
	if v == "" {
		return "", fmt.Errorf("%w: secret command %q printed nothing", ErrNotFound, e.command)
	}
	return v, nil
}

// Name returns the source name.
func (e *Exec) Name() string { return "exec" }
